package conversation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"expense-tracker-bot-go/internal/normalize"
	"expense-tracker-bot-go/internal/store"

	"go.uber.org/zap"
)

const (
	DefaultIdleTTL         = 30 * time.Minute
	DefaultCleanupInterval = time.Minute
)

// Key identifies one conversation: a user inside a chat.
type Key struct {
	ChatId int64
	UserId int64
}

// Inserter is the part of store.ExpenseStore the flow needs.
type Inserter interface {
	Insert(ctx context.Context, params store.InsertParams) (int64, error)
}

type RegistryConfig struct {
	Store           Inserter
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	Now             func() time.Time
}

// Registry holds in-flight sessions in memory. Sessions are dropped on
// completion or cancel, and swept once idle for longer than the TTL.
//
// Callers must not feed two messages for the same key concurrently.
type Registry struct {
	store Inserter
	now   func() time.Time

	sessions        map[Key]Session
	mutex           sync.RWMutex
	idleTTL         time.Duration
	cleanupInterval time.Duration

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewRegistry(cfg RegistryConfig) *Registry {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	return &Registry{
		store:           cfg.Store,
		now:             now,
		sessions:        make(map[Key]Session),
		idleTTL:         cfg.IdleTTL,
		cleanupInterval: cfg.CleanupInterval,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Begin starts a fresh session for key, replacing any session in progress.
func (r *Registry) Begin(key Key) []string {
	session, effects := Start(r.now())

	r.mutex.Lock()
	_, restarted := r.sessions[key]
	r.sessions[key] = session
	r.mutex.Unlock()

	if restarted {
		zap.L().Debug("Restarted conversation", zap.Int64("chat_id", key.ChatId), zap.Int64("user_id", key.UserId))
	}
	return replies(effects)
}

// Active reports whether key has a session awaiting input.
func (r *Registry) Active(key Key) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.sessions[key]
	return ok
}

// Cancel ends the session for key and returns the reply to send.
func (r *Registry) Cancel(key Key) string {
	r.mutex.Lock()
	session, ok := r.sessions[key]
	delete(r.sessions, key)
	r.mutex.Unlock()

	if !ok {
		session = Session{State: Cancelled}
	}
	_, effects := Cancel(session, r.now())
	return replies(effects)[0]
}

// Handle feeds input into the session for key. handled is false when no
// session is active. When the insert fails the session stays at the
// description step and the error is returned.
func (r *Registry) Handle(ctx context.Context, key Key, input string) (out []string, handled bool, err error) {
	r.mutex.RLock()
	session, ok := r.sessions[key]
	r.mutex.RUnlock()
	if !ok {
		return nil, false, nil
	}

	now := r.now()
	next, effects := Step(session, input, now)

	for _, effect := range effects {
		switch e := effect.(type) {
		case Reply:
			out = append(out, e.Text)
		case Persist:
			if err := r.persist(ctx, key, e.Draft); err != nil {
				r.put(key, next)
				return out, true, err
			}
			var saved []Effect
			next, saved = Saved(next, now)
			out = append(out, replies(saved)...)
		}
	}

	if next.State.Terminal() {
		r.mutex.Lock()
		delete(r.sessions, key)
		r.mutex.Unlock()
	} else {
		r.put(key, next)
	}
	return out, true, nil
}

func (r *Registry) put(key Key, session Session) {
	r.mutex.Lock()
	r.sessions[key] = session
	r.mutex.Unlock()
}

func (r *Registry) persist(ctx context.Context, key Key, draft Draft) error {
	description := draft.Description
	id, err := r.store.Insert(ctx, store.InsertParams{
		UserId:      key.UserId,
		Category:    draft.Category,
		Amount:      draft.Amount,
		DateText:    normalize.FormatDate(draft.Date),
		Description: &description,
	})
	if err != nil {
		zap.L().Error("Failed to save interactive entry",
			zap.Int64("chat_id", key.ChatId),
			zap.Int64("user_id", key.UserId),
			zap.Error(err))
		return fmt.Errorf("failed to save entry: %w", err)
	}

	zap.L().Info("Interactive entry saved",
		zap.Int64("id", id),
		zap.Int64("user_id", key.UserId),
		zap.String("category", draft.Category))
	return nil
}

// Len returns the number of sessions held.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.sessions)
}

// Start runs the idle sweep until Stop is called or ctx is done.
func (r *Registry) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.cleanupLoop(ctx)
}

func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	if r.started.Load() {
		<-r.doneChan
	}
}

func (r *Registry) cleanupLoop(ctx context.Context) {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanupIdleSessions()
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// cleanupIdleSessions removes sessions untouched for longer than the idle TTL
func (r *Registry) cleanupIdleSessions() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	cleaned := 0

	for key, session := range r.sessions {
		if session.UpdatedAt.Before(cutoff) {
			delete(r.sessions, key)
			cleaned++
		}
	}

	if cleaned > 0 {
		zap.L().Debug("Cleaned up idle conversations",
			zap.Int("cleaned", cleaned),
			zap.Int("remaining", len(r.sessions)))
	}
	return cleaned
}

func replies(effects []Effect) []string {
	var out []string
	for _, effect := range effects {
		if reply, ok := effect.(Reply); ok {
			out = append(out, reply.Text)
		}
	}
	return out
}
