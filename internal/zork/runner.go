package zork

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/zork-argento/gateway/internal/assistant"
)

// ErrRunTimeout reports a run still pending when the wait deadline expired.
// Distinct from a failed run: the remote execution may still finish later.
var ErrRunTimeout = errors.New("zork: run did not reach a terminal state before the wait deadline")

var errRunPending = errors.New("zork: run still pending")

const maxPollInterval = 10 * time.Second

// Runner submits a user message to a thread, starts a run and waits for it
// to finish, polling with exponential backoff up to a bounded deadline.
type Runner struct {
	log          *slog.Logger
	api          assistant.API
	pollInterval time.Duration
	waitTimeout  time.Duration
}

type RunnerOptions struct {
	Logger *slog.Logger
	API    assistant.API
	// PollInterval is the initial delay between status polls (default 1s).
	PollInterval time.Duration
	// WaitTimeout bounds the total wait for a terminal state (default 2m).
	WaitTimeout time.Duration
}

func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.API == nil {
		return nil, errors.New("missing API")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	waitTimeout := opts.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = 2 * time.Minute
	}
	return &Runner{
		log:          logger,
		api:          opts.API,
		pollInterval: pollInterval,
		waitTimeout:  waitTimeout,
	}, nil
}

// Converse appends message to the thread, runs the assistant against it and
// returns the newest reply text once the run completes.
func (r *Runner) Converse(ctx context.Context, threadID string, message string) (string, error) {
	if strings.TrimSpace(threadID) == "" {
		return "", errors.New("missing thread id")
	}

	if err := r.api.AddUserMessage(ctx, threadID, message); err != nil {
		return "", err
	}
	run, err := r.api.CreateRun(ctx, threadID)
	if err != nil {
		return "", err
	}
	r.log.Debug("run started", "thread_id", threadID, "run_id", run.ID)

	final, err := r.waitForRun(ctx, threadID, run)
	if err != nil {
		return "", err
	}

	if final.Status != assistant.RunStatusCompleted {
		r.log.Warn("run failed", "thread_id", threadID, "run_id", final.ID, "status", final.Status, "reason", final.FailureReason)
		return "", &assistant.RunError{RunID: final.ID, Status: final.Status, Reason: final.FailureReason}
	}

	msgs, err := r.api.ListMessages(ctx, threadID, 1, false)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", errors.New("zork: completed run produced no messages")
	}
	return msgs[0].Text, nil
}

func (r *Runner) waitForRun(ctx context.Context, threadID string, run assistant.Run) (assistant.Run, error) {
	if run.Terminal() {
		return run, nil
	}

	final := run
	op := func() error {
		cur, err := r.api.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if cur.Terminal() {
			final = cur
			return nil
		}
		return errRunPending
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.pollInterval
	b.MaxInterval = maxPollInterval
	b.MaxElapsedTime = r.waitTimeout

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, errRunPending) {
			r.log.Warn("run wait deadline exceeded", "thread_id", threadID, "run_id", run.ID, "timeout", r.waitTimeout)
			return assistant.Run{}, ErrRunTimeout
		}
		return assistant.Run{}, err
	}
	return final, nil
}
