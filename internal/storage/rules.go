package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

const ruleSelect = `
	SELECT r.id, r.pattern, r.match_type, r.vendor, r.category_id, c.name,
	       r.priority, r.hit_count, r.is_active, r.created_at
	FROM rules r
	JOIN categories c ON c.id = r.category_id`

// CreateRule inserts an active rule. The assigned ID fixes its tie-break position.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return s.createRuleTx(ctx, s.db, rule)
}

func (s *SQLiteStorage) createRuleTx(ctx context.Context, q queryable, rule *model.Rule) error {
	kind, _ := model.ParseMatchKind(string(rule.Kind))
	rule.Kind = kind

	result, err := q.ExecContext(ctx, `
		INSERT INTO rules (pattern, match_type, vendor, category_id, priority, is_active)
		VALUES (?, ?, ?, ?, ?, 1)
	`, strings.TrimSpace(rule.Pattern), string(rule.Kind), nullIfEmpty(rule.Vendor), rule.CategoryID, rule.Priority)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}
	rule.ID = id
	rule.Pattern = strings.TrimSpace(rule.Pattern)
	rule.IsActive = true

	slog.Debug("created rule", "id", id, "pattern", rule.Pattern, "kind", rule.Kind, "priority", rule.Priority)
	return nil
}

// GetRule returns a rule, active or not.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int64) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getRuleTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getRuleTx(ctx context.Context, q queryable, id int64) (*model.Rule, error) {
	rule, err := scanRule(q.QueryRowContext(ctx, ruleSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// GetActiveRules returns active rules in evaluation order:
// priority descending, then creation order.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getRulesTx(ctx, s.db, true)
}

// GetRules returns every rule, inactive ones included, in evaluation order.
func (s *SQLiteStorage) GetRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getRulesTx(ctx, s.db, false)
}

func (s *SQLiteStorage) getRulesTx(ctx context.Context, q queryable, activeOnly bool) ([]model.Rule, error) {
	query := ruleSelect
	if activeOnly {
		query += ` WHERE r.is_active = 1`
	}
	query += ` ORDER BY r.priority DESC, r.id ASC`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// DeactivateRule soft-deletes a rule so it stops matching; its hit count is kept.
func (s *SQLiteStorage) DeactivateRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.deactivateRuleTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deactivateRuleTx(ctx context.Context, q queryable, id int64) error {
	result, err := q.ExecContext(ctx, `UPDATE rules SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate rule: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("rule %d", id))
}

// IncrementRuleHitCount records one match of a rule.
func (s *SQLiteStorage) IncrementRuleHitCount(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.incrementRuleHitCountTx(ctx, s.db, id)
}

func (s *SQLiteStorage) incrementRuleHitCountTx(ctx context.Context, q queryable, id int64) error {
	result, err := q.ExecContext(ctx, `UPDATE rules SET hit_count = hit_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment hit count: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("rule %d", id))
}

func scanRule(sc scanner) (*model.Rule, error) {
	var (
		rule   model.Rule
		kind   string
		vendor sql.NullString
	)
	if err := sc.Scan(&rule.ID, &rule.Pattern, &kind, &vendor, &rule.CategoryID, &rule.Category,
		&rule.Priority, &rule.HitCount, &rule.IsActive, &rule.CreatedAt); err != nil {
		return nil, err
	}
	rule.Kind = model.MatchKind(kind)
	rule.Vendor = vendor.String
	return &rule, nil
}
