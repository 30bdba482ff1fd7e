package zork

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/zork-argento/gateway/internal/assistant"
	"github.com/zork-argento/gateway/internal/store"
)

// ErrUnknownConversation reports a conversation id with no stored mapping.
var ErrUnknownConversation = errors.New("zork: unknown conversation")

// Service is the conversation core: new-game detection, thread resolution
// and run synchronization, plus the read-only query surface the HTTP
// boundary exposes.
type Service struct {
	log      *slog.Logger
	store    *store.Store
	api      assistant.API
	resolver *Resolver
	runner   *Runner
}

type ServiceOptions struct {
	Logger       *slog.Logger
	Store        *store.Store
	API          assistant.API
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

func NewService(opts ServiceOptions) (*Service, error) {
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

	resolver, err := NewResolver(ResolverOptions{Logger: logger, Store: opts.Store, API: opts.API})
	if err != nil {
		return nil, err
	}
	runner, err := NewRunner(RunnerOptions{
		Logger:       logger,
		API:          opts.API,
		PollInterval: opts.PollInterval,
		WaitTimeout:  opts.WaitTimeout,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		log:      logger,
		store:    opts.Store,
		api:      opts.API,
		resolver: resolver,
		runner:   runner,
	}, nil
}

// ChatResult is the outcome of one player message.
type ChatResult struct {
	ConversationID string
	ThreadID       string
	Reply          string
}

// Chat routes one player message through the core: a new-game request
// purges the existing mapping first, then the thread is resolved and the
// message run against it.
func (s *Service) Chat(ctx context.Context, conversationID string, message string) (ChatResult, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return ChatResult{}, errors.New("missing conversation id")
	}

	if IsNewGameRequest(message) {
		s.log.Info("new game requested", "conversation_id", conversationID)
		if err := s.resolver.Forget(ctx, conversationID); err != nil {
			return ChatResult{}, err
		}
	}

	entry, err := s.resolver.Resolve(ctx, conversationID)
	if err != nil {
		return ChatResult{}, err
	}

	reply, err := s.runner.Converse(ctx, entry.ThreadID, message)
	if err != nil {
		return ChatResult{}, err
	}

	return ChatResult{
		ConversationID: conversationID,
		ThreadID:       entry.ThreadID,
		Reply:          reply,
	}, nil
}

// ContextInfo is the mapping metadata plus the latest assistant message.
type ContextInfo struct {
	Conversation store.Conversation `json:"conversation"`
	LastMessage  string             `json:"lastMessage"`
}

// Context returns the stored mapping and the newest message of its thread.
func (s *Service) Context(ctx context.Context, conversationID string) (*ContextInfo, error) {
	row, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrUnknownConversation
	}

	info := &ContextInfo{Conversation: *row}
	msgs, err := s.api.ListMessages(ctx, row.ThreadID, 1, false)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		info.LastMessage = msgs[0].Text
	}
	return info, nil
}

// History rebuilds the conversation's exchange list from the remote thread.
func (s *Service) History(ctx context.Context, conversationID string) ([]Exchange, error) {
	row, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrUnknownConversation
	}

	msgs, err := s.api.ListMessages(ctx, row.ThreadID, 100, true)
	if err != nil {
		return nil, err
	}
	return BuildHistory(msgs), nil
}

// Conversations returns all stored mappings, newest first.
func (s *Service) Conversations(ctx context.Context) ([]store.Conversation, error) {
	return s.store.List(ctx)
}

// CachedThreads reports how many conversations are held in the cache.
func (s *Service) CachedThreads() int {
	return s.resolver.cache.Len()
}
