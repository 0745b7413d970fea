package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Key is the Redis hash holding the active session of a user.
func Key(userID string) string {
	return "user:session:" + userID
}

type entry struct {
	user      User
	signedOut bool
}

// Directory is the process-wide view of auth state.
//
// With a nil Redis client it runs in local mode: Publish applies events
// directly and Resolve only consults memory.
type Directory struct {
	rdb     *redis.Client
	channel string
	logger  *logrus.Logger

	mu       sync.RWMutex
	users    map[string]entry
	watchers map[int]func(Event)
	nextID   int

	pubsub *redis.PubSub
	done   chan struct{}
}

func NewDirectory(rdb *redis.Client, channel string, logger *logrus.Logger) *Directory {
	return &Directory{
		rdb:      rdb,
		channel:  channel,
		logger:   logger,
		users:    make(map[string]entry),
		watchers: make(map[int]func(Event)),
	}
}

// Start subscribes to the auth-state channel. It returns once Redis has
// confirmed the subscription; events are applied on a background goroutine
// until Close.
func (d *Directory) Start(ctx context.Context) error {
	if d.rdb == nil {
		return nil
	}
	if d.pubsub != nil {
		return errors.New("session directory already started")
	}
	ps := d.rdb.Subscribe(ctx, d.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}
	d.pubsub = ps
	d.done = make(chan struct{})
	go d.consume(ps.ChannelWithSubscriptions())
	return nil
}

// Close unsubscribes and waits for the consumer goroutine to exit.
func (d *Directory) Close() error {
	if d.pubsub == nil {
		return nil
	}
	err := d.pubsub.Close()
	<-d.done
	d.pubsub = nil
	return err
}

// consume applies events until ch closes. A subscription confirmation after
// Start means the client reconnected, so events may have been missed while
// it was down; the memory view is dropped and Resolve goes back to Redis.
func (d *Directory) consume(ch <-chan interface{}) {
	defer close(d.done)
	for m := range ch {
		switch m := m.(type) {
		case *redis.Subscription:
			if m.Kind == "subscribe" {
				d.reset()
			}
		case *redis.Message:
			d.handle(m)
		}
	}
}

func (d *Directory) reset() {
	d.mu.Lock()
	n := len(d.users)
	d.users = make(map[string]entry)
	d.mu.Unlock()
	if d.logger != nil && n > 0 {
		d.logger.WithField("dropped", n).Info("auth-state channel resubscribed, cleared session view")
	}
}

func (d *Directory) handle(msg *redis.Message) {
	var ev Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		if d.logger != nil {
			d.logger.WithError(err).WithField("channel", msg.Channel).Warn("bad auth-state event")
		}
		return
	}
	d.apply(ev)
}

// Publish emits an auth-state change to every process, this one included.
func (d *Directory) Publish(ctx context.Context, ev Event) error {
	if ev.UserID == "" {
		ev.UserID = ev.User.ID
	}
	if d.rdb == nil {
		d.apply(ev)
		return nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return d.rdb.Publish(ctx, d.channel, b).Err()
}

func (d *Directory) apply(ev Event) {
	if ev.UserID == "" {
		return
	}
	d.mu.Lock()
	switch ev.Kind {
	case SignedIn:
		d.users[ev.UserID] = entry{user: ev.User}
	case Updated:
		prev, ok := d.users[ev.UserID]
		if ok && prev.signedOut {
			break
		}
		u := ev.User
		if u.SessionID == "" {
			u.SessionID = prev.user.SessionID
		}
		d.users[ev.UserID] = entry{user: u}
	case SignedOut:
		d.users[ev.UserID] = entry{signedOut: true}
	}
	watchers := make([]func(Event), 0, len(d.watchers))
	for _, fn := range d.watchers {
		watchers = append(watchers, fn)
	}
	d.mu.Unlock()

	for _, fn := range watchers {
		fn(ev)
	}
}

// Watch registers fn for every applied event. The returned func removes it.
func (d *Directory) Watch(fn func(Event)) (cancel func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.watchers[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.watchers, id)
		d.mu.Unlock()
	}
}

// Current returns the in-memory view of uid. Loading means no event for
// that user has been seen by this process yet.
func (d *Directory) Current(uid string) (User, State) {
	d.mu.RLock()
	e, ok := d.users[uid]
	d.mu.RUnlock()
	switch {
	case !ok:
		return User{}, Loading
	case e.signedOut:
		return User{}, Unauthenticated
	default:
		return e.user, Authenticated
	}
}

// Resolve decides whether the session sid of uid is live. Memory answers
// first; when it has nothing definitive the Redis session hash does.
func (d *Directory) Resolve(ctx context.Context, uid, sid string) (User, State) {
	if uid == "" {
		return User{}, Unauthenticated
	}
	u, st := d.Current(uid)
	switch st {
	case Unauthenticated:
		return User{}, Unauthenticated
	case Authenticated:
		if u.SessionID == sid {
			return u, Authenticated
		}
	}
	if d.rdb == nil {
		return User{}, Unauthenticated
	}
	data, err := d.rdb.HGetAll(ctx, Key(uid)).Result()
	if err != nil || len(data) == 0 || data["sid"] != sid {
		return User{}, Unauthenticated
	}
	return User{ID: uid, Name: data["name"], Email: data["email"], SessionID: sid}, Authenticated
}
