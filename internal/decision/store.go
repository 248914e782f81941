package decision

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDecisionNotFound indicates no decision exists for a request id.
var ErrDecisionNotFound = errors.New("decision: not found")

// Record is one persisted decision. The unique request id is the idempotency
// boundary: one record per request id, ever.
type Record struct {
	RequestID   string
	Decision    string
	CreditScore decimal.Decimal
	LoanAmount  decimal.Decimal
	Reason      string
	Timestamp   time.Time
}

// Store defines decision persistence. Insert must be insert-if-absent: under
// concurrent duplicate submissions the loser reads back the winner's record
// instead of erroring.
type Store interface {
	Insert(ctx context.Context, record Record) (Record, error)
	GetByRequestID(ctx context.Context, requestID string) (Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
