package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/micro-ha/appdriver/internal/remote"
)

const recordTimeout = 5 * time.Second

// Recorder stores journal entries. *Repository implements it.
type Recorder interface {
	Record(ctx context.Context, entry Entry) (int64, error)
}

// Executor records every command passed to the wrapped executor. The result and
// error of the wrapped call are returned untouched; a failed write is only logged.
type Executor struct {
	next     remote.Executor
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewExecutor(next remote.Executor, recorder Recorder, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		next:     next,
		recorder: recorder,
		logger:   logger.With("component", "journal"),
		now:      time.Now,
	}
}

func (e *Executor) Execute(ctx context.Context, cmd remote.Command, args remote.Arguments) (any, error) {
	callID := ulid.Make().String()
	startedAt := e.now()
	value, err := e.next.Execute(ctx, cmd, args)
	duration := e.now().Sub(startedAt)

	entry := Entry{
		CallID:     callID,
		Command:    cmd.Name(),
		Outcome:    OutcomeOf(err),
		StartedAt:  startedAt,
		DurationMS: duration.Milliseconds(),
	}
	if encoded, encodeErr := json.Marshal(args); encodeErr == nil {
		entry.ArgumentsJSON = string(encoded)
	}
	if err != nil {
		message := err.Error()
		entry.Error = &message
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if _, recordErr := e.recorder.Record(recordCtx, entry); recordErr != nil {
		e.logger.Warn("failed to record command", "command", cmd.Name(), "call_id", callID, "err", recordErr)
	}
	return value, err
}
