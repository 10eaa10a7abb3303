package audit

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PostgresSink implements AuditSink for PostgreSQL storage
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a new PostgreSQL audit sink
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// Write persists an audit event to the database
func (s *PostgresSink) Write(ctx context.Context, event AuditEvent) error {
	details := map[string]any{"actor": event.Actor}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	before := marshalOrNil(event.BeforeState)
	after := marshalOrNil(event.AfterState)
	changes := marshalOrNil(event.Changes)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_logs (
			occurred_at, request_id, api_key_id, action, resource_type,
			resource_id, environment, ip_address, user_agent, status,
			error_message, before_state, after_state, changes, details
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)`,
		event.OccurredAt,
		event.RequestID,
		event.Actor.ID,
		event.Action,
		event.ResourceType,
		event.ResourceID,
		event.Environment,
		event.Source.IPAddress,
		event.Source.UserAgent,
		httpStatusFromString(event.Status),
		event.ErrorMessage,
		before,
		after,
		changes,
		detailsJSON,
	)
	return err
}

func marshalOrNil(m map[string]any) []byte {
	if m == nil {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}

// httpStatusFromString converts status string to HTTP status code
func httpStatusFromString(status string) int32 {
	switch status {
	case StatusSuccess:
		return http.StatusOK
	case StatusFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// MultiSink fans one audit event out to several sinks. Used to keep the
// queryable in-memory sink alongside a durable one.
type MultiSink struct {
	sinks []AuditSink
}

// NewMultiSink creates a sink that writes to every given sink in order.
func NewMultiSink(sinks ...AuditSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Write delivers the event to every sink, returning the first error after
// attempting all of them.
func (s *MultiSink) Write(ctx context.Context, event AuditEvent) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogSink implements AuditSink by emitting structured log events. Used with
// the memory storage backend where there is no database to persist to.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a sink that writes audit events to the given logger.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Write emits the audit event as one structured log line.
func (s *LogSink) Write(ctx context.Context, event AuditEvent) error {
	s.log.Info().
		Time("occurred_at", event.OccurredAt).
		Str("request_id", event.RequestID).
		Str("actor", event.Actor.Display).
		Str("action", event.Action).
		Str("resource_type", event.ResourceType).
		Str("resource_id", event.ResourceID).
		Str("status", event.Status).
		Msg("audit event")
	return nil
}
