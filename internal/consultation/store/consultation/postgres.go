package consultation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"intake/internal/consultation/models"
	"intake/internal/consultation/service"
	"intake/pkg/platform/sentinel"
	txcontext "intake/pkg/platform/tx"
)

// PostgresStore persists consultations in the consultations table. Answers
// and the doctor review are JSONB columns.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save upserts c.
func (s *PostgresStore) Save(ctx context.Context, c models.Consultation) error {
	answers, err := json.Marshal(answersToRecords(c.Answers))
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	var review []byte
	if c.DoctorReview != nil {
		review, err = json.Marshal(reviewToRecord(c.DoctorReview))
		if err != nil {
			return fmt.Errorf("encode doctor review: %w", err)
		}
	}

	_, err = txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO consultations (id, product_id, answers, submitted_at, eligible, eligibility_reason, status, doctor_review, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			answers = EXCLUDED.answers,
			submitted_at = EXCLUDED.submitted_at,
			eligible = EXCLUDED.eligible,
			eligibility_reason = EXCLUDED.eligibility_reason,
			status = EXCLUDED.status,
			doctor_review = EXCLUDED.doctor_review,
			updated_at = NOW()`,
		c.ID,
		c.ProductID,
		answers,
		c.SubmittedAt,
		c.Eligibility.Eligible,
		c.Eligibility.Reason,
		string(c.Status),
		nullableJSON(review),
	)
	if err != nil {
		return fmt.Errorf("upsert consultation: %w", err)
	}
	return nil
}

// FindByID loads a consultation. Inside a transaction the row is locked for
// update so a review can check and write it atomically. Ids that are not
// UUIDs cannot exist and are reported as not found without a query.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Consultation, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, sentinel.ErrNotFound
	}

	query := `
		SELECT id, product_id, answers, submitted_at, eligible, eligibility_reason, status, doctor_review
		FROM consultations
		WHERE id = $1`
	if _, inTx := txcontext.From(ctx); inTx {
		query += " FOR UPDATE"
	}

	var (
		r       consultationRecord
		answers []byte
		review  []byte
	)
	err = txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query, key.String()).Scan(
		&r.ID, &r.ProductID, &answers, &r.SubmittedAt, &r.Eligible, &r.EligibilityReason, &r.Status, &review,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select consultation: %w", err)
	}
	if err := json.Unmarshal(answers, &r.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if len(review) > 0 {
		r.DoctorReview = &reviewRecord{}
		if err := json.Unmarshal(review, r.DoctorReview); err != nil {
			return nil, fmt.Errorf("decode doctor review: %w", err)
		}
	}
	c := fromRecord(r)
	return &c, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// PostgresTx runs review read-modify-write sequences in a database
// transaction carried through the context.
type PostgresTx struct {
	db    *sql.DB
	store *PostgresStore
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db, store: NewPostgres(db)}
}

func (t *PostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context, store service.Store) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), t.store); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
