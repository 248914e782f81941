package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	ruleColumns = `name,
        rule_type,
        description,
        threshold_value,
        operator,
        priority,
        importance,
        enabled,
        failure_message,
        source,
        confidence_score,
        model_version,
        metadata,
        created_at,
        updated_at`

	insertRuleSQL = `INSERT INTO rule_configurations (
        name,
        rule_type,
        description,
        threshold_value,
        operator,
        priority,
        importance,
        enabled,
        failure_message,
        source,
        confidence_score,
        model_version,
        metadata
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
    )
    RETURNING ` + ruleColumns + `;`

	updateRuleSQL = `UPDATE rule_configurations
    SET rule_type       = $2,
        description     = $3,
        threshold_value = $4,
        operator        = $5,
        priority        = $6,
        importance      = $7,
        enabled         = $8,
        failure_message = $9,
        source          = $10,
        confidence_score = $11,
        model_version   = $12,
        metadata        = $13,
        updated_at      = now()
    WHERE name = $1
    RETURNING ` + ruleColumns + `;`

	upsertRuleSQL = `INSERT INTO rule_configurations (
        name,
        rule_type,
        description,
        threshold_value,
        operator,
        priority,
        importance,
        enabled,
        failure_message,
        source,
        confidence_score,
        model_version,
        metadata
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
    )
    ON CONFLICT (name) DO UPDATE
    SET rule_type       = EXCLUDED.rule_type,
        description     = EXCLUDED.description,
        threshold_value = EXCLUDED.threshold_value,
        operator        = EXCLUDED.operator,
        priority        = EXCLUDED.priority,
        importance      = EXCLUDED.importance,
        enabled         = EXCLUDED.enabled,
        failure_message = EXCLUDED.failure_message,
        source          = EXCLUDED.source,
        confidence_score = EXCLUDED.confidence_score,
        model_version   = EXCLUDED.model_version,
        metadata        = EXCLUDED.metadata,
        updated_at      = now()
    RETURNING ` + ruleColumns + `;`

	deleteRuleSQL = `DELETE FROM rule_configurations WHERE name = $1;`

	setEnabledSQL = `UPDATE rule_configurations
    SET enabled = $2, updated_at = now()
    WHERE name = $1
    RETURNING ` + ruleColumns + `;`

	getRuleSQL = `SELECT ` + ruleColumns + `
    FROM rule_configurations
    WHERE name = $1;`

	listRulesSQL = `SELECT ` + ruleColumns + `
    FROM rule_configurations
    ORDER BY priority, name;`

	listEnabledRulesSQL = `SELECT ` + ruleColumns + `
    FROM rule_configurations
    WHERE enabled = true
    ORDER BY priority, name;`
)

// PostgresStore persists rule configurations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires a pgx pool into a rule store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new rule; the unique name constraint is the duplicate guard.
func (s *PostgresStore) Create(ctx context.Context, rule Rule) (Rule, error) {
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	if rule.Source == "" {
		rule.Source = SourceManual
	}

	row := s.pool.QueryRow(ctx, insertRuleSQL, ruleArgs(rule)...)
	saved, err := scanRule(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Rule{}, ErrDuplicateRuleName
		}
		return Rule{}, fmt.Errorf("insert rule: %w", err)
	}
	return saved, nil
}

// Update replaces an existing rule identified by name.
func (s *PostgresStore) Update(ctx context.Context, rule Rule) (Rule, error) {
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}

	row := s.pool.QueryRow(ctx, updateRuleSQL, ruleArgs(rule)...)
	saved, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrRuleNotFound
		}
		return Rule{}, fmt.Errorf("update rule: %w", err)
	}
	return saved, nil
}

// UpsertModelRule inserts or replaces a rule by name.
func (s *PostgresStore) UpsertModelRule(ctx context.Context, rule Rule) (Rule, error) {
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	if rule.Source == "" {
		rule.Source = SourceModel
	}

	row := s.pool.QueryRow(ctx, upsertRuleSQL, ruleArgs(rule)...)
	saved, err := scanRule(row)
	if err != nil {
		return Rule{}, fmt.Errorf("upsert rule: %w", err)
	}
	return saved, nil
}

// Delete removes a rule by name.
func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, deleteRuleSQL, name)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// SetEnabled toggles a rule's enablement state.
func (s *PostgresStore) SetEnabled(ctx context.Context, name string, enabled bool) (Rule, error) {
	row := s.pool.QueryRow(ctx, setEnabledSQL, name, enabled)
	saved, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrRuleNotFound
		}
		return Rule{}, fmt.Errorf("toggle rule: %w", err)
	}
	return saved, nil
}

// GetByName fetches a single rule.
func (s *PostgresStore) GetByName(ctx context.Context, name string) (Rule, error) {
	row := s.pool.QueryRow(ctx, getRuleSQL, name)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrRuleNotFound
		}
		return Rule{}, fmt.Errorf("get rule: %w", err)
	}
	return rule, nil
}

// List returns every rule ordered by priority.
func (s *PostgresStore) List(ctx context.Context) ([]Rule, error) {
	return s.queryRules(ctx, listRulesSQL)
}

// ListEnabled returns enabled rules ordered by ascending priority.
func (s *PostgresStore) ListEnabled(ctx context.Context) ([]Rule, error) {
	return s.queryRules(ctx, listEnabledRulesSQL)
}

func (s *PostgresStore) queryRules(ctx context.Context, sql string) ([]Rule, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	list := make([]Rule, 0)
	for rows.Next() {
		rule, scanErr := scanRule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		list = append(list, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return list, nil
}

func ruleArgs(rule Rule) []any {
	var confidence any
	if rule.Confidence != nil {
		confidence = rule.Confidence.String()
	}
	return []any{
		rule.Name,
		string(rule.Type),
		rule.Description,
		rule.Threshold.String(),
		string(rule.Operator),
		rule.Priority,
		rule.Importance,
		rule.Enabled,
		nullable(rule.FailureMessage),
		rule.Source,
		confidence,
		nullable(rule.ModelVersion),
		nullable(rule.Metadata),
	}
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func scanRule(row pgx.Row) (Rule, error) {
	var (
		rule          Rule
		ruleType      string
		operator      string
		thresholdStr  string
		failureMsg    *string
		confidenceStr *string
		modelVersion  *string
		metadata      *string
		createdAt     time.Time
		updatedAt     time.Time
	)

	if err := row.Scan(
		&rule.Name,
		&ruleType,
		&rule.Description,
		&thresholdStr,
		&operator,
		&rule.Priority,
		&rule.Importance,
		&rule.Enabled,
		&failureMsg,
		&rule.Source,
		&confidenceStr,
		&modelVersion,
		&metadata,
		&createdAt,
		&updatedAt,
	); err != nil {
		return Rule{}, err
	}

	threshold, err := decimal.NewFromString(thresholdStr)
	if err != nil {
		return Rule{}, fmt.Errorf("parse threshold: %w", err)
	}

	rule.Type = Type(ruleType)
	rule.Operator = Operator(operator)
	rule.Threshold = threshold
	rule.CreatedAt = createdAt
	rule.UpdatedAt = updatedAt
	if failureMsg != nil {
		rule.FailureMessage = *failureMsg
	}
	if confidenceStr != nil {
		confidence, convErr := decimal.NewFromString(*confidenceStr)
		if convErr != nil {
			return Rule{}, fmt.Errorf("parse confidence: %w", convErr)
		}
		rule.Confidence = &confidence
	}
	if modelVersion != nil {
		rule.ModelVersion = *modelVersion
	}
	if metadata != nil {
		rule.Metadata = *metadata
	}

	return rule, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*PostgresStore)(nil)
