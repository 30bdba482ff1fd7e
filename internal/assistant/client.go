package assistant

import (
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
)

// Run statuses the gateway distinguishes. Anything else counts as pending.
const (
	RunStatusQueued     = "queued"
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
	RunStatusCancelled  = "cancelled"
	RunStatusExpired    = "expired"
	RunStatusIncomplete = "incomplete"
)

// Run is the gateway's view of one remote assistant execution.
type Run struct {
	ID            string
	Status        string
	FailureReason string
}

// Terminal reports whether the run reached a final state.
func (r Run) Terminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete:
		return true
	}
	return false
}

// Message is one thread message with its text content flattened.
type Message struct {
	ID        string
	Role      string
	Text      string
	CreatedAt int64
}

// API is the subset of the OpenAI Assistants surface the gateway uses.
// The concrete Client talks to api.openai.com; tests substitute fakes.
type API interface {
	CreateThread(ctx context.Context) (string, error)
	DeleteThread(ctx context.Context, threadID string) error
	AddUserMessage(ctx context.Context, threadID string, text string) error
	CreateRun(ctx context.Context, threadID string) (Run, error)
	GetRun(ctx context.Context, threadID string, runID string) (Run, error)
	// ListMessages returns up to limit messages, ascending by creation when
	// asc is true, newest first otherwise.
	ListMessages(ctx context.Context, threadID string, limit int, asc bool) ([]Message, error)
}

type Client struct {
	oc          openai.Client
	assistantID string
}

type Options struct {
	APIKey      string
	AssistantID string
}

func New(opts Options) (*Client, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("missing api key")
	}
	assistantID := strings.TrimSpace(opts.AssistantID)
	if assistantID == "" {
		return nil, errors.New("missing assistant id")
	}
	return &Client{
		oc:          openai.NewClient(ooption.WithAPIKey(key)),
		assistantID: assistantID,
	}, nil
}

func (c *Client) CreateThread(ctx context.Context) (string, error) {
	th, err := c.oc.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", classify(err)
	}
	return th.ID, nil
}

func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	_, err := c.oc.Beta.Threads.Delete(ctx, threadID)
	return classify(err)
}

func (c *Client) AddUserMessage(ctx context.Context, threadID string, text string) error {
	_, err := c.oc.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(text),
		},
	})
	return classify(err)
}

func (c *Client) CreateRun(ctx context.Context, threadID string) (Run, error) {
	run, err := c.oc.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: c.assistantID,
	})
	if err != nil {
		return Run{}, classify(err)
	}
	return mapRun(run), nil
}

func (c *Client) GetRun(ctx context.Context, threadID string, runID string) (Run, error) {
	run, err := c.oc.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return Run{}, classify(err)
	}
	return mapRun(run), nil
}

func (c *Client) ListMessages(ctx context.Context, threadID string, limit int, asc bool) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	order := openai.BetaThreadMessageListParamsOrderDesc
	if asc {
		order = openai.BetaThreadMessageListParamsOrderAsc
	}
	page, err := c.oc.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		Limit: openai.Int(int64(limit)),
		Order: order,
	})
	if err != nil {
		return nil, classify(err)
	}

	out := make([]Message, 0, len(page.Data))
	for _, m := range page.Data {
		out = append(out, Message{
			ID:        m.ID,
			Role:      string(m.Role),
			Text:      messageText(m),
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

func mapRun(run *openai.Run) Run {
	if run == nil {
		return Run{}
	}
	return Run{
		ID:            run.ID,
		Status:        string(run.Status),
		FailureReason: strings.TrimSpace(run.LastError.Message),
	}
}

// messageText concatenates the text content blocks of a message. The
// assistant replies with a single text block in practice.
func messageText(m openai.Message) string {
	var b strings.Builder
	for _, c := range m.Content {
		if c.Type != "text" {
			continue
		}
		b.WriteString(c.Text.Value)
	}
	return b.String()
}
