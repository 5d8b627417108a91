package question

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"intake/internal/consultation/models"
	txcontext "intake/pkg/platform/tx"
)

// PostgresStore reads questionnaires from the questions table in position
// order.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByProductID(ctx context.Context, productID string) ([]models.Question, error) {
	rows, err := txcontext.ExecutorFor(ctx, s.db).QueryContext(ctx, `
		SELECT id, text, type, required, disqualifying_answer, sub_points
		FROM questions
		WHERE product_id = $1
		ORDER BY position ASC`, productID)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	defer rows.Close()

	questions := make([]models.Question, 0)
	for rows.Next() {
		var (
			q         models.Question
			qType     string
			subPoints []string
		)
		if err := rows.Scan(&q.ID, &q.Text, &qType, &q.Required, &q.DisqualifyingAnswer, pq.Array(&subPoints)); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if len(subPoints) == 0 {
			subPoints = nil
		}
		questions = append(questions, models.NewQuestion(q.ID, q.Text, models.QuestionType(qType), q.Required, q.DisqualifyingAnswer, subPoints...))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return questions, nil
}

// ReplaceProduct swaps a product's questionnaire in one transaction.
func (s *PostgresStore) ReplaceProduct(ctx context.Context, productID string, questions []models.Question) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE product_id = $1`, productID); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		return insertQuestions(ctx, tx, productID, questions)
	})
}

// Seed loads every product in catalog that has no questions yet, leaving
// edited questionnaires untouched. The check and the insert run under a
// per-product advisory lock so concurrent replicas seed a product once.
func (s *PostgresStore) Seed(ctx context.Context, catalog map[string][]models.Question) error {
	for productID, questions := range catalog {
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('questions:' || $1))`, productID); err != nil {
				return fmt.Errorf("lock questions for %s: %w", productID, err)
			}
			var exists bool
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM questions WHERE product_id = $1)`, productID,
			).Scan(&exists)
			if err != nil {
				return fmt.Errorf("check questions for %s: %w", productID, err)
			}
			if exists {
				return nil
			}
			return insertQuestions(ctx, tx, productID, questions)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertQuestions(ctx context.Context, tx *sql.Tx, productID string, questions []models.Question) error {
	for i, q := range questions {
		subPoints := q.SubPoints
		if subPoints == nil {
			subPoints = []string{}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO questions (product_id, id, position, text, type, required, disqualifying_answer, sub_points)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			productID, q.ID, i, q.Text, string(q.Type), q.Required, q.DisqualifyingAnswer, pq.Array(subPoints),
		)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	return nil
}
