package zork

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zork-argento/gateway/internal/assistant"
)

// fakeAPI is a scripted in-memory stand-in for the OpenAI Assistants API.
type fakeAPI struct {
	mu sync.Mutex

	threadSeq int
	created   []string
	deleted   []string

	// userMsgs records AddUserMessage calls per thread.
	userMsgs map[string][]string

	// createRunStatus is the status of a freshly created run ("queued" when
	// empty). runStatuses scripts subsequent GetRun responses; the last
	// entry repeats once exhausted.
	createRunStatus string
	runStatuses     []string
	statusIdx       int
	getRunCalls     int
	failureReason   string

	// messages is returned by ListMessages in ascending order.
	messages []assistant.Message

	createThreadDelay time.Duration
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{userMsgs: map[string][]string{}}
}

func (f *fakeAPI) CreateThread(ctx context.Context) (string, error) {
	if f.createThreadDelay > 0 {
		time.Sleep(f.createThreadDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadSeq++
	id := fmt.Sprintf("thread_%d", f.threadSeq)
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakeAPI) DeleteThread(ctx context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, threadID)
	return nil
}

func (f *fakeAPI) AddUserMessage(ctx context.Context, threadID string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userMsgs[threadID] = append(f.userMsgs[threadID], text)
	return nil
}

func (f *fakeAPI) CreateRun(ctx context.Context, threadID string) (assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := f.createRunStatus
	if status == "" {
		status = assistant.RunStatusQueued
	}
	return assistant.Run{ID: "run_1", Status: status, FailureReason: f.failureReason}, nil
}

func (f *fakeAPI) GetRun(ctx context.Context, threadID string, runID string) (assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getRunCalls++
	status := assistant.RunStatusQueued
	if len(f.runStatuses) > 0 {
		if f.statusIdx >= len(f.runStatuses) {
			status = f.runStatuses[len(f.runStatuses)-1]
		} else {
			status = f.runStatuses[f.statusIdx]
			f.statusIdx++
		}
	}
	return assistant.Run{ID: runID, Status: status, FailureReason: f.failureReason}, nil
}

func (f *fakeAPI) ListMessages(ctx context.Context, threadID string, limit int, asc bool) ([]assistant.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msgs := make([]assistant.Message, len(f.messages))
	copy(msgs, f.messages)
	if !asc {
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (f *fakeAPI) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}
