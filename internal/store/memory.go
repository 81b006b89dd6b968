package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"support-assistant/internal/dialogue"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// Entry is one line of a session transcript.
type Entry struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Intent  string    `json:"intent,omitempty"`
	At      time.Time `json:"at"`
}

type record struct {
	// turn serialises Update calls on one session.
	turn       sync.Mutex
	session    dialogue.Session
	transcript []Entry
	touched    time.Time
}

// MemoryStore keeps sessions for the lifetime of the process. Sessions idle
// for longer than ttl are dropped on access and by Sweep.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*record
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

func NewMemoryStore(ttl time.Duration, maxEntries int) *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]*record),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

func NewSessionID() string {
	return "s_" + uuid.NewString()
}

// Create starts a new session for name.
func (m *MemoryStore) Create(name string) dialogue.Session {
	sess := dialogue.NewSession(NewSessionID(), name)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = &record{session: sess, touched: m.now()}
	return sess
}

func (m *MemoryStore) Get(id string) (dialogue.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.liveLocked(id)
	if err != nil {
		return dialogue.Session{}, err
	}
	rec.touched = m.now()
	return rec.session, nil
}

// Save replaces the stored copy of sess. The session must already exist.
func (m *MemoryStore) Save(sess dialogue.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.liveLocked(sess.ID)
	if err != nil {
		return err
	}
	rec.session = sess
	rec.touched = m.now()
	return nil
}

// Update runs fn on the current copy of session id and stores the result.
// Calls for the same session run one at a time, so no update is lost to a
// concurrent one; other sessions are not blocked while fn runs. When fn
// fails nothing is stored and its error is returned.
func (m *MemoryStore) Update(id string, fn func(dialogue.Session) (dialogue.Session, error)) (dialogue.Session, error) {
	m.mu.Lock()
	rec, err := m.liveLocked(id)
	m.mu.Unlock()
	if err != nil {
		return dialogue.Session{}, err
	}

	rec.turn.Lock()
	defer rec.turn.Unlock()

	m.mu.Lock()
	current := rec.session
	m.mu.Unlock()

	next, err := fn(current)
	if err != nil {
		return current, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[id] != rec {
		return dialogue.Session{}, ErrSessionNotFound
	}
	rec.session = next
	rec.touched = m.now()
	return next, nil
}

func (m *MemoryStore) AppendTranscript(id string, entries ...Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.liveLocked(id)
	if err != nil {
		return err
	}
	rec.transcript = append(rec.transcript, entries...)
	m.trimLocked(rec)
	return nil
}

func (m *MemoryStore) Transcript(id string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[id]
	if !ok || m.expired(rec) {
		return nil, ErrSessionNotFound
	}
	out := make([]Entry, len(rec.transcript))
	copy(out, rec.transcript)
	return out, nil
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Sweep removes expired sessions and reports how many were dropped.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, rec := range m.sessions {
		if m.expired(rec) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) liveLocked(id string) (*record, error) {
	rec, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.expired(rec) {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return rec, nil
}

func (m *MemoryStore) expired(rec *record) bool {
	return m.ttl > 0 && m.now().Sub(rec.touched) > m.ttl
}

func (m *MemoryStore) trimLocked(rec *record) {
	if m.maxEntries <= 0 {
		return
	}
	if len(rec.transcript) > m.maxEntries {
		rec.transcript = rec.transcript[len(rec.transcript)-m.maxEntries:]
	}
}
