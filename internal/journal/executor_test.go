package journal

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/micro-ha/appdriver/internal/remote"
	"github.com/micro-ha/appdriver/internal/remote/mock"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(context.Background(), filepath.Join(t.TempDir(), "journal.db"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

type failingRecorder struct {
	calls int
}

func (r *failingRecorder) Record(ctx context.Context, entry Entry) (int64, error) {
	r.calls++
	return 0, errors.New("disk full")
}

func TestExecutorRecordsSuccessfulCall(t *testing.T) {
	repo := newTestRepository(t)
	next := (&mock.Executor{}).Returning(remote.IsAppInstalled, true)
	executor := NewExecutor(next, repo, nil)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ticks := []time.Time{start, start.Add(250 * time.Millisecond)}
	executor.now = func() time.Time {
		current := ticks[0]
		ticks = ticks[1:]
		return current
	}

	value, err := executor.Execute(context.Background(), remote.IsAppInstalled, remote.NewArguments("bundleId", "com.example"))
	if err != nil || value != true {
		t.Fatalf("Execute = %v, %v", value, err)
	}

	entries, err := repo.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Command != "isAppInstalled" || entry.Outcome != OutcomeOK || entry.Error != nil {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.ArgumentsJSON != `{"bundleId":"com.example"}` {
		t.Fatalf("arguments_json = %s", entry.ArgumentsJSON)
	}
	if _, err := ulid.ParseStrict(entry.CallID); err != nil {
		t.Fatalf("call_id %q is not a ULID: %v", entry.CallID, err)
	}
	if entry.DurationMS != 250 || !entry.StartedAt.Equal(start) {
		t.Fatalf("timing = %d ms at %s", entry.DurationMS, entry.StartedAt)
	}
}

func TestExecutorReturnsWrappedErrorUnchanged(t *testing.T) {
	repo := newTestRepository(t)
	remoteErr := &remote.CommandError{Command: remote.RemoveApp, Code: "unknown error", Message: "boom"}
	next := (&mock.Executor{}).Failing(remote.RemoveApp, remoteErr)
	executor := NewExecutor(next, repo, nil)

	_, err := executor.Execute(context.Background(), remote.RemoveApp, remote.NewArguments("bundleId", "x"))
	if err != remoteErr {
		t.Fatalf("error = %v, want the executor error itself", err)
	}

	entries, err := repo.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Outcome != OutcomeRemoteError {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Error == nil || *entries[0].Error != remoteErr.Error() {
		t.Fatalf("error text = %v", entries[0].Error)
	}
}

func TestExecutorIgnoresRecorderFailure(t *testing.T) {
	recorder := &failingRecorder{}
	next := (&mock.Executor{}).Returning(remote.QueryAppState, json.Number("4"))
	executor := NewExecutor(next, recorder, nil)

	value, err := executor.Execute(context.Background(), remote.QueryAppState, remote.NewArguments("bundleId", "x"))
	if err != nil || value != json.Number("4") {
		t.Fatalf("Execute = %v, %v", value, err)
	}
	if recorder.calls != 1 {
		t.Fatalf("recorder calls = %d", recorder.calls)
	}
	if len(next.CallsSnapshot()) != 1 {
		t.Fatalf("wrapped executor must be called exactly once")
	}
}

func TestExecutorRecordsCancelledCalls(t *testing.T) {
	repo := newTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	next := &mock.Executor{ExecuteFunc: func(ctx context.Context, cmd remote.Command, args remote.Arguments) (any, error) {
		cancel()
		return nil, &remote.TransportError{Command: cmd, Err: ctx.Err()}
	}}
	executor := NewExecutor(next, repo, nil)

	if _, err := executor.Execute(ctx, remote.TerminateApp, remote.NewArguments("bundleId", "x")); err == nil {
		t.Fatalf("expected error")
	}
	entries, err := repo.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Outcome != OutcomeTransportError {
		t.Fatalf("entries = %+v", entries)
	}
}
