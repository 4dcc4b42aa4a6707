package cli

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ustczzh/AlephNote/internal/services"
)

// syncStatus is fed by the sync worker and read by the prompt.
type syncStatus struct {
	mu       sync.Mutex
	failures []services.SyncFailure
}

func (s *syncStatus) feedback() services.FeedbackFuncs {
	return services.FeedbackFuncs{
		OnSuccess: func(time.Time) { s.set(nil) },
		OnError:   s.set,
	}
}

func (s *syncStatus) set(f []services.SyncFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = f
}

func (s *syncStatus) Failures() []services.SyncFailure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]services.SyncFailure(nil), s.failures...)
}

// describe renders the short state shown in the prompt.
func describe(syncing bool, last time.Time, failures []services.SyncFailure) string {
	switch {
	case syncing:
		return "[SYNCING]"
	case len(failures) > 0:
		labels := make([]string, 0, len(failures))
		for _, f := range failures {
			labels = append(labels, f.Label)
		}
		return fmt.Sprintf("[ERROR] %s", strings.Join(labels, ", "))
	case last.IsZero():
		return "never synced"
	default:
		return "synced " + last.Local().Format("2006-01-02 15:04:05")
	}
}
