package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	insertDecisionSQL = `INSERT INTO decisions (
        request_id,
        decision,
        credit_score,
        loan_amount,
        reason,
        decided_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (request_id) DO NOTHING;`

	getDecisionSQL = `SELECT
        request_id,
        decision,
        credit_score,
        loan_amount,
        reason,
        decided_at
    FROM decisions
    WHERE request_id = $1;`

	listRecentDecisionsSQL = `SELECT
        request_id,
        decision,
        credit_score,
        loan_amount,
        reason,
        decided_at
    FROM decisions
    ORDER BY decided_at DESC
    LIMIT $1;`
)

// PostgresStore persists decisions in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires a pgx pool into a decision store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Insert persists a record once per request id. When a concurrent writer won
// the race, the stored record is read back and returned.
func (s *PostgresStore) Insert(ctx context.Context, record Record) (Record, error) {
	tag, err := s.pool.Exec(ctx, insertDecisionSQL,
		record.RequestID,
		record.Decision,
		record.CreditScore.String(),
		record.LoanAmount.String(),
		record.Reason,
		record.Timestamp,
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.GetByRequestID(ctx, record.RequestID)
	}
	return record, nil
}

// GetByRequestID fetches the decision for a request id.
func (s *PostgresStore) GetByRequestID(ctx context.Context, requestID string) (Record, error) {
	row := s.pool.QueryRow(ctx, getDecisionSQL, requestID)
	record, err := scanDecision(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrDecisionNotFound
		}
		return Record{}, fmt.Errorf("get decision: %w", err)
	}
	return record, nil
}

// ListRecent returns the most recent decisions, newest first.
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, listRecentDecisionsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent decisions: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		record, scanErr := scanDecision(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanDecision(row pgx.Row) (Record, error) {
	var (
		record    Record
		scoreStr  string
		amountStr string
		decidedAt time.Time
	)

	if err := row.Scan(
		&record.RequestID,
		&record.Decision,
		&scoreStr,
		&amountStr,
		&record.Reason,
		&decidedAt,
	); err != nil {
		return Record{}, err
	}

	score, err := decimal.NewFromString(scoreStr)
	if err != nil {
		return Record{}, fmt.Errorf("parse credit score: %w", err)
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Record{}, fmt.Errorf("parse loan amount: %w", err)
	}

	record.CreditScore = score
	record.LoanAmount = amount
	record.Timestamp = decidedAt

	return record, nil
}

var _ Store = (*PostgresStore)(nil)
