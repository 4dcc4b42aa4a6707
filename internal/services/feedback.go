package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ustczzh/AlephNote/internal/logging"
)

// SyncFailure is one problem met during a pass. Label names the note (its
// title, or its ID when untitled) or the provider for pass-wide failures.
type SyncFailure struct {
	Label string
	Err   error
}

func (f SyncFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Label, f.Err)
}

func (f SyncFailure) Unwrap() error { return f.Err }

// SynchronizationFeedback observes sync passes. Every pass calls StartSync
// once, then exactly one of SyncSuccess or SyncError. Calls come from the
// sync worker goroutine; implementations hand off to their own thread if
// they need one.
type SynchronizationFeedback interface {
	StartSync()
	SyncSuccess(at time.Time)
	SyncError(failures []SyncFailure)
}

// FeedbackFuncs adapts plain functions. Nil members are skipped.
type FeedbackFuncs struct {
	OnStart   func()
	OnSuccess func(time.Time)
	OnError   func([]SyncFailure)
}

func (f FeedbackFuncs) StartSync() {
	if f.OnStart != nil {
		f.OnStart()
	}
}

func (f FeedbackFuncs) SyncSuccess(at time.Time) {
	if f.OnSuccess != nil {
		f.OnSuccess(at)
	}
}

func (f FeedbackFuncs) SyncError(failures []SyncFailure) {
	if f.OnError != nil {
		f.OnError(failures)
	}
}

// Feedbacks fans every call out to each member in order.
type Feedbacks []SynchronizationFeedback

func (fs Feedbacks) StartSync() {
	for _, f := range fs {
		f.StartSync()
	}
}

func (fs Feedbacks) SyncSuccess(at time.Time) {
	for _, f := range fs {
		f.SyncSuccess(at)
	}
}

func (fs Feedbacks) SyncError(failures []SyncFailure) {
	for _, f := range fs {
		f.SyncError(failures)
	}
}

type loggingFeedback struct {
	log logging.Logger
}

// NewLoggingFeedback reports passes to log.
func NewLoggingFeedback(log logging.Logger) SynchronizationFeedback {
	return &loggingFeedback{log: log.With("module", "sync")}
}

func (l *loggingFeedback) StartSync() {
	l.log.Debug(context.Background(), "sync started")
}

func (l *loggingFeedback) SyncSuccess(at time.Time) {
	l.log.Info(context.Background(), "sync finished", "at", at.Format(time.RFC3339))
}

func (l *loggingFeedback) SyncError(failures []SyncFailure) {
	for _, f := range failures {
		l.log.Warn(context.Background(), "sync failure", "item", f.Label, "err", f.Err)
	}
	l.log.Error(context.Background(), "sync finished with errors", "failures", len(failures))
}
