package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"election-results-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// wsClient implements realtime.Client by wrapping a websocket connection.
type wsClient struct {
	conn *websocket.Conn
}

func (c *wsClient) Send(message []byte) bool {
	if c == nil || c.conn == nil {
		return false
	}
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return false
	}
	return true
}

func (c *wsClient) Close() {
	if c != nil && c.conn != nil {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is already handled at Gin level; allow upgrade from any origin here
		return true
	},
}

// parseTopics splits the ?topics= query parameter. Clients may follow the
// whole elections table ("elections"), every vote ("votes") or one
// election's votes ("votes:<electionID>"). Defaults to "elections".
func parseTopics(raw string) []string {
	if raw == "" {
		return []string{realtime.TopicElections()}
	}
	var topics []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == realtime.TopicElections() || part == realtime.TopicVotesAll() || strings.HasPrefix(part, "votes:") {
			topics = append(topics, part)
		}
	}
	if len(topics) == 0 {
		return []string{realtime.TopicElections()}
	}
	return topics
}

// WebSocketHandler upgrades the connection and registers the client on the
// requested change-notification topics. The registration is released on any
// exit path, read failure included.
func WebSocketHandler(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		topics := parseTopics(c.Query("topics"))

		// Upgrade HTTP connection to WebSocket
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("websocket upgrade error:", err)
			return
		}

		client := &wsClient{conn: conn}
		for _, topic := range topics {
			hub.Register(topic, client)
		}

		// Heartbeat: send periodic pings; close on error
		pingTicker := time.NewTicker(30 * time.Second)
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				case <-pingTicker.C:
					if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
						// ping failed; reader loop will exit on next error
						return
					}
				}
			}
		}()
		defer func() {
			close(done)
			pingTicker.Stop()
			for _, topic := range topics {
				hub.Unregister(topic, client)
			}
			client.Close()
		}()

		// Reader loop: drain messages and keep connection alive via pong handler
		conn.SetReadLimit(1024)
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				// Normal close or error; exit loop
				return
			}
		}
	}
}
