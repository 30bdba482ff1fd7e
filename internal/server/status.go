package server

import (
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// handleStatus reports configuration flags and process stats. No side
// effects; safe to poll.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data := map[string]any{
		"configured":    strings.TrimSpace(s.cfg.OpenAIAPIKey) != "" && strings.TrimSpace(s.cfg.AssistantID) != "",
		"assistantId":   s.cfg.AssistantID,
		"environment":   s.cfg.Environment,
		"version":       s.version,
		"platform":      runtime.GOOS,
		"goroutines":    runtime.NumGoroutine(),
		"cachedThreads": s.svc.CachedThreads(),
		"uptimeSeconds": int64(time.Since(s.startedAt).Seconds()),
		"timestamp":     nowISO(),
	}

	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
			data["memoryRSSBytes"] = mi.RSS
		}
		if pct, err := p.CPUPercentWithContext(ctx); err == nil {
			data["cpuPercent"] = pct
		}
	} else {
		s.log.Warn("status: process stats unavailable", "error", err)
	}

	writeData(w, data)
}
