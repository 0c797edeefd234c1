package livequery

import (
	"context"
	"log"
	"sync"
	"time"

	"election-results-api/internal/cache"
	"election-results-api/internal/models"
	"election-results-api/internal/realtime"

	"golang.org/x/sync/singleflight"
)

// DataService is the authoritative source the fetcher pulls from. Each call
// performs a full round trip; a failing call returns an error rather than a
// partial result.
type DataService interface {
	ListElections(ctx context.Context) ([]models.ElectionSummary, error)
	ElectionResults(ctx context.Context, electionID string) ([]models.CandidateResult, error)
}

// Feed is the change-notification source. Implemented by *realtime.Hub.
type Feed interface {
	Subscribe(topic string) *realtime.Subscription
}

// Options tunes the freshness and polling behavior of a Client.
type Options struct {
	// TTL windows; zero values default to 30s active / 5m ended.
	TTL cache.TTL

	// PollInterval is the safety-net refresh interval for keys whose
	// election is active. Defaults to TTL.Active.
	PollInterval time.Duration
}

// KeyElections is the cache key of the election list query.
func KeyElections() string { return "elections" }

// KeyResults is the cache key of one election's result set query.
func KeyResults(electionID string) string { return "results:" + electionID }

// Client is the single entry point consumers use to obtain current election
// data plus loading/error state. It reconciles three update sources per key
// (TTL expiry, push invalidation, interval polling) through one coalesced
// fetch path, so concurrent consumers never trigger redundant round trips.
//
// A Client is process-scoped shared state with an explicit lifecycle:
// construct one per process (or per test) and Close it when done.
type Client struct {
	ds   DataService
	feed Feed
	opts Options

	elections *cache.Store[[]models.ElectionSummary]
	results   *cache.Store[[]models.CandidateResult]

	// sf guarantees at most one in-flight fetch per key; late callers for
	// the same key await the pending result instead of fetching again.
	sf singleflight.Group

	mu   sync.Mutex
	keys map[string]*keyState
}

// keyState tracks the per-key machinery: consumer refcount, the fetch
// generation used to discard results that raced an invalidation, loading and
// error state, and the shared subscriptions/poller lifecycle.
type keyState struct {
	key    string
	topics []string

	refs     int
	gen      uint64 // bumped on every invalidation for this key
	inflight int    // logical fetch requests currently awaiting a flight
	lastErr  error
	polling  bool

	subs    map[string]*realtime.Subscription
	stop    chan struct{} // closed when the last consumer detaches
	stopped bool          // guards stop against a double close

	notify map[chan struct{}]struct{}

	// typed plumbing, erased into closures at attach time
	flight     func(ctx context.Context) <-chan singleflight.Result
	invalidate func() // marks the store entry stale; c.mu must be held
	fresh      func() bool
	active     func() bool
}

// New constructs a Client over the given data service and change feed.
// feed may be nil, in which case push invalidation is disabled and only TTL
// expiry and polling drive refreshes.
func New(ds DataService, feed Feed, opts Options) *Client {
	if opts.TTL.Active <= 0 {
		opts.TTL.Active = 30 * time.Second
	}
	if opts.TTL.Ended <= 0 {
		opts.TTL.Ended = 5 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = opts.TTL.Active
	}
	return &Client{
		ds:        ds,
		feed:      feed,
		opts:      opts,
		elections: cache.NewStore[[]models.ElectionSummary](),
		results:   cache.NewStore[[]models.CandidateResult](),
		keys:      make(map[string]*keyState),
	}
}

// Elections attaches a consumer to the election list query.
// The returned query must be closed when the consumer is done with it.
func (c *Client) Elections(ctx context.Context) *Query[[]models.ElectionSummary] {
	return attach(ctx, c,
		KeyElections(),
		[]string{realtime.TopicElections(), realtime.TopicVotesAll()},
		c.elections,
		c.ds.ListElections,
		c.anyElectionActive,
	)
}

// Results attaches a consumer to one election's result set query.
// The returned query must be closed when the consumer is done with it.
func (c *Client) Results(ctx context.Context, electionID string) *Query[[]models.CandidateResult] {
	return attach(ctx, c,
		KeyResults(electionID),
		[]string{realtime.TopicVotes(electionID)},
		c.results,
		func(ctx context.Context) ([]models.CandidateResult, error) {
			return c.ds.ElectionResults(ctx, electionID)
		},
		func() bool { return c.electionActive(electionID) },
	)
}

// Close releases every key's subscriptions and pollers. Queries still open
// become inert: snapshots keep working, refetches are still possible, but no
// background refreshes run anymore.
func (c *Client) Close() {
	c.mu.Lock()
	var cancel []*realtime.Subscription
	for _, ks := range c.keys {
		if !ks.stopped {
			ks.stopped = true
			close(ks.stop)
		}
		for _, sub := range ks.subs {
			cancel = append(cancel, sub)
		}
		ks.subs = make(map[string]*realtime.Subscription)
		ks.polling = false
	}
	c.keys = make(map[string]*keyState)
	c.mu.Unlock()

	for _, sub := range cancel {
		sub.Cancel()
	}
}

// anyElectionActive reports whether the cached election list contains an
// active election. With no cached list yet we assume activity, so polling
// errs on the side of freshness until the list is known.
func (c *Client) anyElectionActive() bool {
	ent, ok := c.elections.Get(KeyElections())
	if !ok {
		return true
	}
	for _, e := range ent.Value {
		if e.IsActive {
			return true
		}
	}
	return false
}

// electionActive reports whether one election is active, judged from the
// cached election list (stale is fine for TTL selection). Unknown elections
// are assumed active.
func (c *Client) electionActive(electionID string) bool {
	ent, ok := c.elections.Get(KeyElections())
	if !ok {
		return true
	}
	for _, e := range ent.Value {
		if e.ID == electionID {
			return e.IsActive
		}
	}
	return true
}

// attach wires a consumer onto a key: shares (or creates) the key's state,
// ensures the change subscription and poller exist, and kicks an initial
// fetch unless the cached entry is still fresh.
func attach[T any](
	ctx context.Context,
	c *Client,
	key string,
	topics []string,
	store *cache.Store[T],
	remote func(ctx context.Context) (T, error),
	active func() bool,
) *Query[T] {
	c.mu.Lock()

	ks, ok := c.keys[key]
	if !ok {
		ks = &keyState{
			key:    key,
			topics: topics,
			subs:   make(map[string]*realtime.Subscription),
			stop:   make(chan struct{}),
			notify: make(map[chan struct{}]struct{}),
			active: active,
		}
		ks.invalidate = func() { store.Invalidate(key) }
		ks.fresh = func() bool {
			ent, ok := store.Get(key)
			return ok && ent.Fresh(c.opts.TTL.For(ks.active()), time.Now())
		}
		// flight registers the coalesced fetch and returns its completion
		// channel. Registration happens inside DoChan before it returns, so
		// callers holding c.mu join an in-flight fetch at issuance time
		// rather than at goroutine-scheduling time.
		ks.flight = func(ctx context.Context) <-chan singleflight.Result {
			return c.sf.DoChan(key, func() (any, error) {
				c.mu.Lock()
				startGen := ks.gen
				c.mu.Unlock()

				val, ferr := remote(ctx)
				if ferr != nil {
					ferr = &DataServiceError{Key: key, Err: ferr}
				}

				c.mu.Lock()
				if ks.gen == startGen {
					// The most recently started fetch owns the outcome; a
					// flight that raced an invalidation is discarded here.
					ks.lastErr = ferr
					if ferr == nil {
						store.Put(key, val)
					}
				}
				c.mu.Unlock()
				return val, ferr
			})
		}
		c.keys[key] = ks
	}
	ks.refs++

	c.ensureSubscribedLocked(ks)
	c.ensurePollingLocked(ks)

	q := &Query[T]{
		c:       c,
		ks:      ks,
		store:   store,
		updates: make(chan struct{}, 1),
	}
	ks.notify[q.updates] = struct{}{}

	if !ks.fresh() {
		c.startFetchLocked(ctx, ks)
	}
	c.mu.Unlock()
	return q
}

// ensureSubscribedLocked registers the key's missing change subscriptions.
// Exactly one registration exists per topic per key, shared by all of the
// key's consumers; a subscription lost to a feed drop is re-created here on
// the next consumer-driven request. c.mu must be held.
func (c *Client) ensureSubscribedLocked(ks *keyState) {
	if c.feed == nil || ks.stopped {
		return
	}
	for _, topic := range ks.topics {
		if _, ok := ks.subs[topic]; ok {
			continue
		}
		sub := c.feed.Subscribe(topic)
		ks.subs[topic] = sub
		go c.watch(ks, sub, ks.stop)
	}
}

// ensurePollingLocked arms the safety-net poller if the key's election is
// active. Ended elections are not polled. c.mu must be held.
func (c *Client) ensurePollingLocked(ks *keyState) {
	if ks.polling || ks.stopped || !ks.active() {
		return
	}
	ks.polling = true
	go c.poll(ks, ks.stop)
}

// watch consumes one change subscription: every event invalidates the key
// and triggers an immediate refetch rather than waiting for the next poll
// tick. A closed feed channel is a SubscriptionError; it is logged and the
// registration is forgotten so a later consumer-driven request resubscribes.
func (c *Client) watch(ks *keyState, sub *realtime.Subscription, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case _, ok := <-sub.C:
			if !ok {
				c.mu.Lock()
				stopped := ks.stopped
				if ks.subs[sub.Topic()] == sub {
					delete(ks.subs, sub.Topic())
				}
				c.mu.Unlock()
				// Teardown cancels the subscription itself; only a drop the
				// listener did not ask for is worth reporting.
				if !stopped {
					log.Printf("livequery: %v (key %s)", &SubscriptionError{Topic: sub.Topic()}, ks.key)
				}
				return
			}
			c.invalidateKey(ks)
			go func() { _ = c.doFetch(context.Background(), ks) }()
		}
	}
}

// poll fires on a fixed interval while the key has consumers. A tick always
// consults the freshness policy first: an entry refreshed moments ago by a
// push invalidation makes the tick a no-op re-check, not an extra fetch.
func (c *Client) poll(ks *keyState, stop chan struct{}) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !ks.active() {
				continue
			}
			if ks.fresh() {
				continue
			}
			_ = c.doFetch(context.Background(), ks)
		}
	}
}

// invalidateKey bumps the key's fetch generation, forgets any in-flight
// coalesced fetch so the next request starts a genuinely new one, and marks
// the cache entry stale (its last good value stays servable).
func (c *Client) invalidateKey(ks *keyState) {
	c.mu.Lock()
	ks.gen++
	c.sf.Forget(ks.key)
	ks.invalidate()
	c.mu.Unlock()
	c.notifyKey(ks)
}

// doFetch runs one logical fetch request through the coalesced flight,
// tracking loading state around it. The flight is registered while c.mu is
// held, so a request issued during an in-flight fetch always joins that
// fetch instead of racing it.
func (c *Client) doFetch(ctx context.Context, ks *keyState) error {
	c.mu.Lock()
	ch := ks.flight(ctx)
	ks.inflight++
	c.mu.Unlock()
	c.notifyKey(ks)

	res := <-ch

	c.mu.Lock()
	ks.inflight--
	c.mu.Unlock()
	c.notifyKey(ks)
	return res.Err
}

// startFetchLocked registers the flight and marks the key loading before the
// attach lock is released, so a snapshot taken immediately after attach
// already observes loading and a later attach joins the same flight.
// The flight is detached from the caller's cancellation: a consumer that
// goes away mid-fetch must not abort the fetch, whose result is still
// written for any future consumer. c.mu must be held.
func (c *Client) startFetchLocked(ctx context.Context, ks *keyState) {
	ctx = context.WithoutCancel(ctx)
	ch := ks.flight(ctx)
	ks.inflight++
	go func() {
		<-ch
		c.mu.Lock()
		ks.inflight--
		c.mu.Unlock()
		c.notifyKey(ks)
	}()
}

// notifyKey nudges every consumer of the key. Sends are non-blocking; the
// per-query channel has capacity one, so notifications coalesce.
func (c *Client) notifyKey(ks *keyState) {
	c.mu.Lock()
	for ch := range ks.notify {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	c.mu.Unlock()
}

// detach drops one consumer. When the last one goes, the poller and watcher
// goroutines are stopped and the change registrations are released, even if
// a fetch is still in flight; such a fetch completes and its result is
// written to the cache for any future consumer.
func (c *Client) detach(ks *keyState, updates chan struct{}) {
	c.mu.Lock()
	delete(ks.notify, updates)
	ks.refs--
	var cancel []*realtime.Subscription
	if ks.refs <= 0 {
		if !ks.stopped {
			ks.stopped = true
			close(ks.stop)
		}
		for _, sub := range ks.subs {
			cancel = append(cancel, sub)
		}
		ks.subs = make(map[string]*realtime.Subscription)
		ks.polling = false
		// The map slot may already belong to a state created after Close.
		if c.keys[ks.key] == ks {
			delete(c.keys, ks.key)
		}
	}
	c.mu.Unlock()

	for _, sub := range cancel {
		sub.Cancel()
	}
}
