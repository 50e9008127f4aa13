package session

import (
	"sync"
	"time"
)

const (
	ModeIdle     = "idle"
	ModeTeaching = "teaching"
)

const (
	PaceSlow   = "slow"
	PaceMedium = "medium"
	PaceFast   = "fast"
)

// ValidPace reports whether p is a recognized pace setting.
func ValidPace(p string) bool {
	return p == PaceSlow || p == PaceMedium || p == PaceFast
}

// TeachingSession is the ephemeral per-(user, deck) teaching state. It is
// deliberately not persisted: decks and chunks survive restarts, sessions
// do not.
type TeachingSession struct {
	Mode           string    `json:"mode"`
	CurrentTopicID string    `json:"current_topic_id,omitempty"`
	VisitedIDs     []string  `json:"visited_topic_ids"`
	Pace           string    `json:"pace"`
	LastAction     string    `json:"last_action,omitempty"`
	TurnCount      int       `json:"turn_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newSession(pace string) *TeachingSession {
	if !ValidPace(pace) {
		pace = PaceMedium
	}
	return &TeachingSession{
		Mode:      ModeIdle,
		Pace:      pace,
		UpdatedAt: time.Now(),
	}
}

type sessionKey struct {
	userID uint
	deckID uint
}

type entry struct {
	mu      sync.Mutex
	session *TeachingSession
}

// Store keeps teaching sessions in process memory, keyed by (user, deck),
// with per-key locking so concurrent turns for one session serialize
// instead of racing.
type Store struct {
	mu      sync.Mutex
	entries map[sessionKey]*entry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

func NewStore(ttl, sweepEvery time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if sweepEvery <= 0 {
		sweepEvery = 10 * time.Minute
	}
	s := &Store{
		entries: make(map[sessionKey]*entry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.sweepLoop(sweepEvery)
	return s
}

// Update runs fn with exclusive access to the session for (userID, deckID),
// creating an idle session on first use. The applied mutation is a single
// logical turn; concurrent callers for the same key queue behind the lock.
func (s *Store) Update(userID, deckID uint, pace string, fn func(*TeachingSession)) *TeachingSession {
	e := s.entryFor(sessionKey{userID: userID, deckID: deckID}, pace)

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.session)
	e.session.UpdatedAt = time.Now()

	snapshot := *e.session
	snapshot.VisitedIDs = append([]string(nil), e.session.VisitedIDs...)
	return &snapshot
}

// Get returns a snapshot of the session, or nil when none exists.
func (s *Store) Get(userID, deckID uint) *TeachingSession {
	s.mu.Lock()
	e, ok := s.entries[sessionKey{userID: userID, deckID: deckID}]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := *e.session
	snapshot.VisitedIDs = append([]string(nil), e.session.VisitedIDs...)
	return &snapshot
}

// Delete drops the session for (userID, deckID) if present.
func (s *Store) Delete(userID, deckID uint) {
	s.mu.Lock()
	delete(s.entries, sessionKey{userID: userID, deckID: deckID})
	s.mu.Unlock()
}

// DeleteDeck drops every session referencing the deck, for deck deletion.
func (s *Store) DeleteDeck(deckID uint) {
	s.mu.Lock()
	for k := range s.entries {
		if k.deckID == deckID {
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
}

func (s *Store) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Store) entryFor(key sessionKey, pace string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{session: newSession(pace)}
		s.entries[key] = e
	}
	return e
}

func (s *Store) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		e.mu.Lock()
		expired := now.Sub(e.session.UpdatedAt) > s.ttl
		e.mu.Unlock()
		if expired {
			delete(s.entries, k)
		}
	}
}
