package zork

import (
	"time"

	"github.com/zork-argento/gateway/internal/assistant"
)

// Exchange pairs a player message with the assistant reply that followed it.
type Exchange struct {
	User       string `json:"user"`
	ZorkMaster string `json:"zorkMaster"`
	Timestamp  string `json:"timestamp"`
}

// BuildHistory reconstructs exchanges from a thread's messages in
// chronological order. Each user message is paired with the assistant
// message immediately following it; a trailing user message with no reply
// yet yields an exchange with an empty ZorkMaster. An assistant message
// without a preceding user message (the opening narration) gets an
// exchange of its own.
func BuildHistory(msgs []assistant.Message) []Exchange {
	out := make([]Exchange, 0, len(msgs)/2+1)
	open := false
	for _, m := range msgs {
		switch m.Role {
		case "user":
			out = append(out, Exchange{User: m.Text, Timestamp: formatTimestamp(m.CreatedAt)})
			open = true
		case "assistant":
			if open {
				out[len(out)-1].ZorkMaster = m.Text
				open = false
				continue
			}
			out = append(out, Exchange{ZorkMaster: m.Text, Timestamp: formatTimestamp(m.CreatedAt)})
		}
	}
	return out
}

func formatTimestamp(unixSec int64) string {
	if unixSec <= 0 {
		return ""
	}
	return time.Unix(unixSec, 0).UTC().Format(time.RFC3339)
}
