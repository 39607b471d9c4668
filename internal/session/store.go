package session

import (
	"context"
	"sync"
	"time"

	"temudesign/internal/studio"
)

// AwaitKind says what the next free-text message of a user is for.
type AwaitKind string

const (
	AwaitNone       AwaitKind = ""
	AwaitField      AwaitKind = "field"
	AwaitCredential AwaitKind = "credential"
	AwaitSuggestion AwaitKind = "suggestion"
)

// Panel is the front-end state kept next to a studio session: which menu is
// open, which message carries it and what typed text should fill.
type Panel struct {
	MessageID int
	Menu      string

	Await           AwaitKind
	AwaitField      studio.Field
	SuggestionField string

	// Slot pins the image slot the next photo fills. Empty means "next
	// empty required slot".
	Slot studio.Field
}

type Entry struct {
	Key    string
	Studio *studio.Session

	mu           sync.Mutex
	panel        Panel
	lastActivity time.Time
	now          func() time.Time
}

func (e *Entry) Panel() Panel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.panel
}

// UpdatePanel applies fn to the panel state and returns the result.
func (e *Entry) UpdatePanel(fn func(*Panel)) Panel {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn != nil {
		fn(&e.panel)
	}
	e.lastActivity = e.now()
	return e.panel
}

func (e *Entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastActivity = now
	e.mu.Unlock()
}

func (e *Entry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActivity
}

type Options struct {
	// Idle is how long an untouched session survives Sweep.
	Idle        time.Duration
	DefaultMode studio.Mode
	Now         func() time.Time
}

// Store is the per-user registry of studio sessions. Nothing is persisted.
type Store struct {
	mu          sync.Mutex
	entries     map[string]*Entry
	idle        time.Duration
	defaultMode studio.Mode
	now         func() time.Time
}

func NewStore(opts Options) *Store {
	idle := opts.Idle
	if idle <= 0 {
		idle = 2 * time.Hour
	}
	mode := opts.DefaultMode
	if mode == "" {
		mode = studio.ModeAutoDesign
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		entries:     make(map[string]*Entry),
		idle:        idle,
		defaultMode: mode,
		now:         now,
	}
}

func (s *Store) Get(key string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if ok {
		e.touch(s.now())
	}
	return e, ok
}

func (s *Store) GetOrCreate(key string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.touch(s.now())
		return e
	}
	e := &Entry{
		Key:          key,
		Studio:       studio.NewSession(s.defaultMode),
		panel:        Panel{Menu: "main"},
		lastActivity: s.now(),
		now:          s.now,
	}
	s.entries[key] = e
	return e
}

func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops sessions idle for longer than the configured window. Sessions
// with a request or credential check in flight are kept.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idle)
	n := 0
	for key, e := range s.entries {
		if e.Studio.Snapshot().Status.Busy() {
			continue
		}
		if e.idleSince().Before(cutoff) {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration, onSweep func(evicted int)) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}
