package journal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/micro-ha/appdriver/internal/remote"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Outcome classifies how a command ended.
type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeRemoteError    Outcome = "remote_error"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeError          Outcome = "error"
)

// Entry is one executed command.
type Entry struct {
	ID            int64     `json:"id"`
	CallID        string    `json:"call_id"`
	Command       string    `json:"command"`
	ArgumentsJSON string    `json:"arguments_json"`
	Outcome       Outcome   `json:"outcome"`
	Error         *string   `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`
}

// OutcomeOf maps an execution error onto an Outcome.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var cmdErr *remote.CommandError
	if errors.As(err, &cmdErr) {
		return OutcomeRemoteError
	}
	var transportErr *remote.TransportError
	if errors.As(err, &transportErr) {
		return OutcomeTransportError
	}
	return OutcomeError
}

func (r *Repository) Record(ctx context.Context, entry Entry) (int64, error) {
	if entry.CallID == "" {
		entry.CallID = ulid.Make().String()
	}
	if entry.ArgumentsJSON == "" {
		entry.ArgumentsJSON = "{}"
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO command_journal (call_id, command, arguments_json, outcome, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.CallID,
		entry.Command,
		entry.ArgumentsJSON,
		string(entry.Outcome),
		fromStringPtr(entry.Error),
		fromTime(entry.StartedAt),
		entry.DurationMS,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns the newest entries first. Non-positive limits use the default.
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	return r.ListByCommand(ctx, remote.Command{}, limit)
}

// ListByCommand is List restricted to one command. The zero Command matches all.
func (r *Repository) ListByCommand(ctx context.Context, cmd remote.Command, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT id, call_id, command, arguments_json, outcome, error, started_at, duration_ms
		FROM command_journal`
	args := []any{}
	if !cmd.IsZero() {
		query += `
		WHERE command = ?`
		args = append(args, cmd.Name())
	}
	query += `
		ORDER BY id DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Entry, 0)
	for rows.Next() {
		var (
			entry     Entry
			outcome   string
			errText   sql.NullString
			startedAt string
		)
		if err := rows.Scan(&entry.ID, &entry.CallID, &entry.Command, &entry.ArgumentsJSON, &outcome, &errText, &startedAt, &entry.DurationMS); err != nil {
			return nil, err
		}
		entry.Outcome = Outcome(outcome)
		entry.Error = strPtr(errText)
		entry.StartedAt = toTime(startedAt)
		items = append(items, entry)
	}
	return items, rows.Err()
}

// Prune deletes entries started before cutoff.
func (r *Repository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM command_journal WHERE started_at < ?`, fromTime(cutoff))
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		r.logger.Warn("journal prune row count unavailable", "err", err)
		return 0, nil
	}
	if rows > 0 {
		r.logger.Info("pruned command journal", "rows", rows)
	}
	return rows, nil
}
