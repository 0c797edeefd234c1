package realtime

import (
	"encoding/json"
	"sync"
)

// Op identifies the kind of row change an Event reports.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event describes a row-level change in the election data set. Events carry
// no payload; they are invalidation hints and receivers refetch on their own.
type Event struct {
	Table      string `json:"table"`
	ElectionID string `json:"electionId,omitempty"`
	Op         Op     `json:"op"`
}

// Topics returns the subscription topics the event fans out on. A vote
// change lands both on its election-scoped topic and on the all-votes topic,
// since vote rows feed the aggregate counts of the election list as well as
// the per-election result sets. Everything else is an elections-table change.
func (e Event) Topics() []string {
	if e.Table == "votes" {
		if e.ElectionID != "" {
			return []string{TopicVotes(e.ElectionID), TopicVotesAll()}
		}
		return []string{TopicVotesAll()}
	}
	return []string{TopicElections()}
}

// TopicElections is the topic for any row change in the elections table.
func TopicElections() string { return "elections" }

// TopicVotes is the topic for new vote rows of a given election.
func TopicVotes(electionID string) string { return "votes:" + electionID }

// TopicVotesAll is the topic for vote rows of any election.
func TopicVotesAll() string { return "votes" }

// Client represents a single websocket client connection.
// We keep it minimal here; the actual network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// subscriptionBuffer bounds how far an in-process subscriber may fall behind
// before its channel is dropped.
const subscriptionBuffer = 16

// Subscription is one in-process registration of interest in a topic.
// Events arrive on C. If the subscriber falls too far behind, the hub closes
// C and forgets the subscription; receivers must treat a closed channel as a
// dropped feed and resubscribe.
type Subscription struct {
	C <-chan Event

	topic string
	ch    chan Event
	hub   *Hub
	once  sync.Once
}

// Topic returns the topic this subscription is registered on.
func (s *Subscription) Topic() string { return s.topic }

// Cancel releases the registration. It is idempotent and safe to call even
// after the hub has already dropped the subscription.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// Hub is the change-notification broker. It fans each published event out to
// the in-process subscriptions of the event's topic and to any websocket
// clients attached to that topic.
type Hub struct {
	mu             sync.RWMutex
	topicToSubs    map[string]map[*Subscription]struct{}
	topicToClients map[string]map[Client]struct{}
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{
		topicToSubs:    make(map[string]map[*Subscription]struct{}),
		topicToClients: make(map[string]map[Client]struct{}),
	}
}

// Subscribe registers in-process interest in a topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	ch := make(chan Event, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch, topic: topic, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.topicToSubs[topic]; !ok {
		h.topicToSubs[topic] = make(map[*Subscription]struct{})
	}
	h.topicToSubs[topic][sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topicToSubs[sub.topic]; ok {
		if _, present := subs[sub]; present {
			delete(subs, sub)
			close(sub.ch)
			if len(subs) == 0 {
				delete(h.topicToSubs, sub.topic)
			}
		}
	}
}

// Register adds a websocket client under a topic.
func (h *Hub) Register(topic string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.topicToClients[topic]; !ok {
		h.topicToClients[topic] = make(map[Client]struct{})
	}
	h.topicToClients[topic][client] = struct{}{}
}

// Unregister removes a client; if the topic has no more clients, cleans up map.
func (h *Hub) Unregister(topic string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.topicToClients[topic]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.topicToClients, topic)
		}
	}
}

// Publish fans an event out to the subscribers and clients of its topics.
// It never blocks on a subscriber: a subscription whose buffer is full is
// dropped (its channel closed) so a stuck consumer cannot stall publishers.
func (h *Hub) Publish(ev Event) {
	topics := ev.Topics()

	h.mu.Lock()
	for _, topic := range topics {
		var dropped []*Subscription
		for sub := range h.topicToSubs[topic] {
			select {
			case sub.ch <- ev:
			default:
				dropped = append(dropped, sub)
			}
		}
		for _, sub := range dropped {
			delete(h.topicToSubs[topic], sub)
			close(sub.ch)
		}
		if subs := h.topicToSubs[topic]; subs != nil && len(subs) == 0 {
			delete(h.topicToSubs, topic)
		}
	}
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	var message []byte
	for _, topic := range topics {
		clients := h.topicToClients[topic]
		if len(clients) == 0 {
			continue
		}
		if message == nil {
			var err error
			message, err = json.Marshal(ev)
			if err != nil {
				return
			}
		}
		for c := range clients {
			if ok := c.Send(message); !ok {
				// client write failed; let the handler clean it up on its side
			}
		}
	}
}

// NumSubscriptions reports the in-process subscription count for a topic.
func (h *Hub) NumSubscriptions(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topicToSubs[topic])
}
