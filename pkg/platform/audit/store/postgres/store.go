package postgres

import (
	"context"
	"database/sql"
	"fmt"

	audit "intake/pkg/platform/audit"
	txcontext "intake/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table. When the context
// carries a transaction the event joins it, so audit rows commit or roll back
// with the change they describe.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	_, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO audit_events (consultation_id, product_id, action, decision, reason, actor_id, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ConsultationID,
		event.ProductID,
		string(event.Action),
		event.Decision,
		event.Reason,
		event.ActorID,
		event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByConsultation returns a consultation's events oldest first.
func (s *Store) ListByConsultation(ctx context.Context, consultationID string) ([]audit.Event, error) {
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx, `
		SELECT consultation_id, product_id, action, decision, reason, actor_id, request_id, occurred_at
		FROM audit_events
		WHERE consultation_id = $1
		ORDER BY occurred_at, id`, consultationID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e      audit.Event
			action string
		)
		if err := rows.Scan(&e.ConsultationID, &e.ProductID, &action, &e.Decision, &e.Reason, &e.ActorID, &e.RequestID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = audit.Action(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
