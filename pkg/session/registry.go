package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/SaeKazamatsuri/BEAVER-server/internal/observability"
	"github.com/rs/zerolog"
)

// Session is one named room's cached message log plus its store handle.
type Session struct {
	Key string

	log      Log
	initOnce sync.Once
	initErr  error

	mu       sync.Mutex
	messages []Message
}

// Registry owns the mapping from sanitized session key to Session. It is
// constructed once at process start and shared by all connection handlers.
// Each session is initialized exactly once, and its cached message list is
// only updated in lockstep with successful durable writes.
type Registry struct {
	opener func(key string) Log
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry backed by the given per-key log opener.
func NewRegistry(opener func(key string) Log, logger zerolog.Logger) *Registry {
	observability.EnsureRegistered()

	return &Registry{
		opener:   opener,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Ensure returns the cached session for key, creating and loading it exactly
// once. Concurrent first references share a single initialization; an
// initialization failure is sticky for that key and leaves every other
// session untouched.
func (r *Registry) Ensure(key string) (*Session, error) {
	r.mu.Lock()
	sess, ok := r.sessions[key]
	if !ok {
		sess = &Session{Key: key, log: r.opener(key)}
		r.sessions[key] = sess
		observability.SetActiveSessions(len(r.sessions))
	}
	r.mu.Unlock()

	sess.initOnce.Do(func() {
		start := time.Now()
		// Stats reads messages and initErr under sess.mu, so the
		// initializing writes must hold it too.
		if err := sess.log.Initialize(); err != nil {
			sess.mu.Lock()
			sess.initErr = fmt.Errorf("failed to initialize session %q: %w", key, err)
			sess.mu.Unlock()
			return
		}
		messages, err := sess.log.LoadAll()
		if err != nil {
			sess.mu.Lock()
			sess.initErr = fmt.Errorf("failed to load session %q: %w", key, err)
			sess.mu.Unlock()
			return
		}
		sess.mu.Lock()
		sess.messages = messages
		sess.mu.Unlock()
		observability.RecordSessionLoad(time.Since(start))
		r.logger.Info().Str("session", key).Int("messages", len(messages)).Msg("Session loaded")
	})

	if sess.initErr != nil {
		return nil, sess.initErr
	}
	return sess, nil
}

// Append durably persists msg for key, then updates the cache, then invokes
// deliver — all under the session lock, so no reader observes the cache and
// the store diverging and fan-out order always matches append order. A store
// failure aborts the whole append: the message is neither cached nor
// delivered.
func (r *Registry) Append(key string, msg Message, deliver func(Message)) (Message, error) {
	sess, err := r.Ensure(key)
	if err != nil {
		return Message{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	start := time.Now()
	if err := sess.log.Append(&msg); err != nil {
		observability.RecordCommentAppend(time.Since(start), false)
		r.logger.Error().Err(err).Str("session", key).Msg("Failed to persist comment")
		return Message{}, fmt.Errorf("failed to append to session %q: %w", key, err)
	}
	observability.RecordCommentAppend(time.Since(start), true)

	sess.messages = append(sess.messages, msg)
	if deliver != nil {
		deliver(msg)
	}

	return msg, nil
}

// History returns a snapshot copy of the session's ordered message list.
func (r *Registry) History(key string) ([]Message, error) {
	sess, err := r.Ensure(key)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	history := make([]Message, len(sess.messages))
	copy(history, sess.messages)
	return history, nil
}

// Stats reports the aggregate session and message counts. It is a read-only
// snapshot for the status surface.
func (r *Registry) Stats() (sessions int, messages int) {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		all = append(all, sess)
	}
	r.mu.Unlock()

	for _, sess := range all {
		sess.mu.Lock()
		if sess.initErr == nil {
			sessions++
			messages += len(sess.messages)
		}
		sess.mu.Unlock()
	}
	return sessions, messages
}
