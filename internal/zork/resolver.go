package zork

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zork-argento/gateway/internal/assistant"
	"github.com/zork-argento/gateway/internal/store"
)

// Resolver maps a client conversation id to an assistant thread, consulting
// the in-memory cache, then the store, then provisioning a fresh remote
// thread. Resolutions for the same id are serialized through a singleflight
// group so a burst of requests for an unseen conversation creates exactly
// one remote thread.
type Resolver struct {
	log   *slog.Logger
	store *store.Store
	api   assistant.API
	cache *threadCache
	group singleflight.Group
}

type ResolverOptions struct {
	Logger *slog.Logger
	Store  *store.Store
	API    assistant.API
}

func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if opts.Store == nil {
		return nil, errors.New("missing Store")
	}
	if opts.API == nil {
		return nil, errors.New("missing API")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		log:   logger,
		store: opts.Store,
		api:   opts.API,
		cache: newThreadCache(),
	}, nil
}

// Resolve returns the thread for conversationID, creating one if needed.
func (r *Resolver) Resolve(ctx context.Context, conversationID string) (Entry, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return Entry{}, errors.New("missing conversation id")
	}

	if e, ok := r.cache.Get(conversationID); ok {
		return e, nil
	}

	// Note: concurrent callers share the leader's resolution; the leader
	// keeps polling on its own ctx, so a follower cancelling does not abort
	// the in-flight creation.
	v, err, _ := r.group.Do(conversationID, func() (any, error) {
		e, err := r.resolveSlow(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

func (r *Resolver) resolveSlow(ctx context.Context, conversationID string) (Entry, error) {
	// A follower may have raced past the fast path while the leader was
	// already populating the cache.
	if e, ok := r.cache.Get(conversationID); ok {
		return e, nil
	}

	row, err := r.store.Get(ctx, conversationID)
	if err != nil {
		return Entry{}, err
	}
	if row != nil {
		e := Entry{ThreadID: row.ThreadID, CreatedAtUnixMs: row.CreatedAtUnixMs}
		r.cache.Put(conversationID, e)
		r.log.Debug("conversation restored from store", "conversation_id", conversationID, "thread_id", row.ThreadID)
		return e, nil
	}

	threadID, err := r.api.CreateThread(ctx)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{ThreadID: threadID, CreatedAtUnixMs: time.Now().UnixMilli()}
	r.cache.Put(conversationID, e)
	if err := r.store.Save(ctx, conversationID, threadID); err != nil {
		return Entry{}, err
	}
	r.log.Info("thread created", "conversation_id", conversationID, "thread_id", threadID)
	return e, nil
}

// Forget drops the mapping for conversationID from cache and store, and
// deletes the remote thread best-effort. The next Resolve provisions a
// fresh thread.
func (r *Resolver) Forget(ctx context.Context, conversationID string) error {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return errors.New("missing conversation id")
	}

	threadID := ""
	if e, ok := r.cache.Get(conversationID); ok {
		threadID = e.ThreadID
	} else if row, err := r.store.Get(ctx, conversationID); err == nil && row != nil {
		threadID = row.ThreadID
	}

	r.cache.Delete(conversationID)
	if err := r.store.Delete(ctx, conversationID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if threadID != "" {
		if err := r.api.DeleteThread(ctx, threadID); err != nil {
			r.log.Warn("remote thread cleanup failed", "conversation_id", conversationID, "thread_id", threadID, "error", err)
		}
	}
	r.log.Info("conversation forgotten", "conversation_id", conversationID)
	return nil
}
