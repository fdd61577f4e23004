// Package notify provides change notification for application profile
// configurations.
//
// A Config publishes one Change per rule or profile that was inserted,
// removed, updated or moved. Row models subscribe to the topic they
// project and translate changes into row callbacks.
package notify

import (
	"sort"
	"sync"
)

// Topics a change can be published under.
const (
	TopicRules    = "rules"
	TopicProfiles = "profiles"
	TopicGlobal   = "global"
)

// ChangeType represents the type of configuration change.
type ChangeType int

const (
	// ChangeInserted indicates a rule or profile was added.
	ChangeInserted ChangeType = iota

	// ChangeRemoved indicates a rule or profile was deleted.
	ChangeRemoved

	// ChangeUpdated indicates the contents of a rule or profile changed
	// without affecting its position.
	ChangeUpdated

	// ChangeMoved indicates a rule moved to a new global position.
	ChangeMoved

	// ChangeReload indicates the entire configuration was replaced.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeInserted:
		return "inserted"
	case ChangeRemoved:
		return "removed"
	case ChangeUpdated:
		return "updated"
	case ChangeMoved:
		return "moved"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a configuration change event.
type Change struct {
	// Topic is one of TopicRules, TopicProfiles or TopicGlobal.
	// Empty for reload events.
	Topic string

	// Type is the type of change.
	Type ChangeType

	// RuleID identifies the rule for rule changes.
	RuleID int

	// Profile is the profile name for profile changes.
	Profile string

	// Index is the global rule position after the change. For removals
	// it is the position the rule occupied before it was removed.
	Index int

	// OldIndex is the global rule position before a move.
	OldIndex int

	// Source is the file that holds the entity after the change.
	Source string

	// OldSource is the file that held the entity before the change.
	OldSource string
}

// Observer is called when configuration changes occur.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	topic    string
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages configuration change subscriptions. Delivery is
// synchronous: Notify returns after every observer has run, so observers
// see changes in the order they were published. Observers of one change
// run in the order they subscribed.
type Notifier struct {
	mu sync.RWMutex

	// Observers that receive all changes
	globalObservers map[uint64]Observer

	// Topic-specific observers
	topicObservers map[string]map[uint64]Observer

	nextID uint64
	closed bool
}

// New creates a new Notifier.
func New() *Notifier {
	return &Notifier{
		globalObservers: make(map[uint64]Observer),
		topicObservers:  make(map[string]map[uint64]Observer),
	}
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.globalObservers[id] = observer

	return &Subscription{id: id, notifier: n}
}

// SubscribeTopic registers an observer for changes published under topic.
// Reload events are delivered to every topic observer.
func (n *Notifier) SubscribeTopic(topic string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	if n.topicObservers[topic] == nil {
		n.topicObservers[topic] = make(map[uint64]Observer)
	}
	n.topicObservers[topic][id] = observer

	return &Subscription{id: id, topic: topic, notifier: n}
}

// Notify sends a change notification to all relevant observers.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	n.deliverChange(change)
}

// NotifyReload tells every observer that the configuration was replaced.
func (n *Notifier) NotifyReload() {
	n.Notify(Change{Type: ChangeReload})
}

// Close stops delivery. It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
}

// unsubscribe removes an observer by ID.
func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.globalObservers, id)

	for topic, observers := range n.topicObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.topicObservers, topic)
		}
	}
}

type entry struct {
	id  uint64
	obs Observer
}

// deliverChange sends a change to all matching observers.
func (n *Notifier) deliverChange(change Change) {
	n.mu.RLock()

	var observers []entry
	collect := func(m map[uint64]Observer) {
		for id, obs := range m {
			observers = append(observers, entry{id: id, obs: obs})
		}
	}
	collect(n.globalObservers)
	if change.Topic != "" {
		collect(n.topicObservers[change.Topic])
	} else {
		// Reload event - notify all topic observers too
		for _, topicObs := range n.topicObservers {
			collect(topicObs)
		}
	}

	n.mu.RUnlock()

	sort.Slice(observers, func(i, j int) bool { return observers[i].id < observers[j].id })

	// Call observers outside the lock
	for _, e := range observers {
		e.obs(change)
	}
}

// Batch collects multiple changes and delivers them as a group.
type Batch struct {
	notifier *Notifier
	changes  []Change
	mu       sync.Mutex
}

// NewBatch creates a new batch for collecting changes.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n}
}

// Add adds changes to the batch.
func (b *Batch) Add(changes ...Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, changes...)
}

// Commit sends all batched changes to observers in the order they were
// added.
func (b *Batch) Commit() {
	b.mu.Lock()
	changes := b.changes
	b.changes = nil
	b.mu.Unlock()

	for _, change := range changes {
		b.notifier.Notify(change)
	}
}
