package identity

import "sync"

// EventKind names an identity state change.
type EventKind int

const (
	EventSignedIn EventKind = iota + 1
	EventSignedOut
	// EventPasswordRecovery means a recovery link was followed; the session is
	// only good for setting a new password.
	EventPasswordRecovery
	EventPasswordUpdated
)

func (k EventKind) String() string {
	switch k {
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	case EventPasswordRecovery:
		return "password_recovery"
	case EventPasswordUpdated:
		return "password_updated"
	default:
		return "unknown"
	}
}

// Event is one identity state change. Session is nil after sign-out.
type Event struct {
	Kind    EventKind
	Session *Session
}

// subscriptionBuffer bounds how far a slow subscriber may fall behind before
// its oldest pending event is dropped.
const subscriptionBuffer = 8

// Notifier fans identity events out to subscribers over channels. Publish never
// blocks: a full subscriber loses its oldest pending event, so the newest state
// always arrives.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscription is one registered listener.
type Subscription struct {
	C <-chan Event

	id   int
	n    *Notifier
	once sync.Once
}

// Subscribe registers a listener. Callers must Close it when done.
func (n *Notifier) Subscribe() *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan Event, subscriptionBuffer)
	n.nextID++
	n.subs[n.nextID] = ch
	return &Subscription{C: ch, id: n.nextID, n: n}
}

// Close unregisters the listener and closes C. It is safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.n.mu.Lock()
		defer s.n.mu.Unlock()
		if ch, ok := s.n.subs[s.id]; ok {
			delete(s.n.subs, s.id)
			close(ch)
		}
	})
}

// Publish delivers e to every current subscriber.
func (n *Notifier) Publish(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- e:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers reports the number of open subscriptions.
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
