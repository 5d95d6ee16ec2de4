// Package review implements the interactive review of unresolved transactions.
//
// A Session walks a snapshot of the unresolved queue taken when it starts.
// Every Resolve pushes a Decision carrying the transaction's exact prior
// state, so Back can invert it, including deactivating a rule the decision
// created. Each Resolve and Back commits as a single transaction.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
	"github.com/Veraticus/tally/internal/service"
)

// State is the lifecycle state of a Session.
type State int

// Session states.
const (
	StateActive State = iota
	StatePaused
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateComplete:
		return "complete"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Decision is one undoable Resolve.
type Decision struct {
	CreatedRuleID *int64
	Prior         model.TransactionState
	TransactionID int64
	Index         int
}

// BackOutcome reports what Back undid. EmptyStack is set, and nothing else,
// when there was no decision to undo.
type BackOutcome struct {
	DeactivatedRuleID *int64
	TransactionID     int64
	EmptyStack        bool
}

// Session is one pass over the unresolved queue. It is safe for use from
// multiple goroutines.
type Session struct {
	storage         service.Storage
	ID              string
	queue           []int64
	stack           []Decision
	position        int
	defaultPriority int
	state           State
	mu              sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithDefaultPriority sets the priority given to rules created by Resolve
// when the rule spec does not carry one.
func WithDefaultPriority(p int) Option {
	return func(s *Session) { s.defaultPriority = p }
}

// Start snapshots the unresolved queue and opens a session over it.
func Start(ctx context.Context, storage service.Storage, opts ...Option) (*Session, error) {
	pending, err := storage.GetUnresolvedTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load review queue: %w", err)
	}

	s := &Session{
		storage: storage,
		ID:      uuid.NewString(),
		queue:   make([]int64, len(pending)),
	}
	for i, txn := range pending {
		s.queue[i] = txn.ID
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.queue) == 0 {
		s.state = StateComplete
	}

	slog.Debug("review session started", "session_id", s.ID, "queue", len(s.queue))
	return s, nil
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Position returns the current index and the queue length.
func (s *Session) Position() (index, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, len(s.queue)
}

// Decisions returns the number of undoable decisions.
func (s *Session) Decisions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack)
}

// Current returns the transaction at the current position. Queue entries
// that were resolved since the snapshot are passed over without a decision
// frame. It returns nil once the queue is exhausted.
func (s *Session) Current(ctx context.Context) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(ctx)
}

func (s *Session) current(ctx context.Context) (*model.Transaction, error) {
	if s.state != StateActive {
		return nil, nil
	}
	for s.position < len(s.queue) {
		txn, err := s.storage.GetTransaction(ctx, s.queue[s.position])
		if err != nil {
			return nil, err
		}
		if txn.Unresolved {
			return txn, nil
		}
		slog.Debug("passing over resolved transaction", "transaction_id", txn.ID)
		s.position++
	}
	s.state = StateComplete
	return nil, nil
}

// Categories returns the active categories, income first, then by name.
func (s *Session) Categories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.storage.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].Type != categories[j].Type {
			return categories[i].Type == model.CategoryTypeIncome
		}
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

// Resolve assigns categoryID and vendor to the current transaction and
// advances. A non-nil rule spec also creates a rule from the decision. Errors
// leave the position unchanged.
func (s *Session) Resolve(ctx context.Context, categoryID int64, vendor string, spec *model.RuleSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, err := s.current(ctx)
	if err != nil {
		return err
	}
	if txn == nil {
		return common.ErrSessionClosed
	}

	var ruleSpec model.RuleSpec
	if spec != nil {
		if ruleSpec, err = pattern.ValidateSpec(*spec); err != nil {
			return err
		}
	}

	decision := Decision{Index: s.position, TransactionID: txn.ID}
	err = service.WithTx(ctx, s.storage, func(tx service.Transaction) error {
		category, err := tx.GetCategoryByID(ctx, categoryID)
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: no category with id %d", common.ErrInvalidCategory, categoryID)
		}
		if err != nil {
			return err
		}
		if !category.IsActive {
			return fmt.Errorf("%w: %q is inactive", common.ErrInvalidCategory, category.Name)
		}

		// Re-read inside the transaction so the frame holds the committed prior state.
		fresh, err := tx.GetTransaction(ctx, txn.ID)
		if err != nil {
			return err
		}
		decision.Prior = fresh.State()

		if spec != nil {
			rule := &model.Rule{
				Pattern:    ruleSpec.Pattern,
				Kind:       ruleSpec.Kind,
				Vendor:     vendor,
				CategoryID: categoryID,
				Priority:   s.defaultPriority,
			}
			if ruleSpec.Priority != nil {
				rule.Priority = *ruleSpec.Priority
			}
			if err := tx.CreateRule(ctx, rule); err != nil {
				return err
			}
			decision.CreatedRuleID = &rule.ID
		}

		return tx.SetTransactionState(ctx, txn.ID, model.Resolved(categoryID, vendor))
	})
	if err != nil {
		return err
	}

	s.stack = append(s.stack, decision)
	s.advance()

	slog.Debug("resolved transaction",
		"session_id", s.ID,
		"transaction_id", txn.ID,
		"category_id", categoryID,
		"created_rule", decision.CreatedRuleID != nil)
	return nil
}

// Skip advances past the current transaction without recording a decision.
func (s *Session) Skip(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, err := s.current(ctx)
	if err != nil {
		return err
	}
	if txn == nil {
		return common.ErrSessionClosed
	}
	s.advance()
	return nil
}

func (s *Session) advance() {
	s.position++
	if s.position >= len(s.queue) {
		s.state = StateComplete
	}
}

// Back undoes the most recent decision: the transaction gets its prior
// state back, a rule the decision created is deactivated, and the position
// returns to that transaction. Back also reopens a completed session.
func (s *Session) Back(ctx context.Context) (BackOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StatePaused {
		return BackOutcome{}, common.ErrSessionClosed
	}
	if len(s.stack) == 0 {
		return BackOutcome{EmptyStack: true}, nil
	}

	frame := s.stack[len(s.stack)-1]
	err := service.WithTx(ctx, s.storage, func(tx service.Transaction) error {
		if err := tx.SetTransactionState(ctx, frame.TransactionID, frame.Prior); err != nil {
			return err
		}
		if frame.CreatedRuleID != nil {
			return tx.DeactivateRule(ctx, *frame.CreatedRuleID)
		}
		return nil
	})
	if err != nil {
		return BackOutcome{}, err
	}

	s.stack = s.stack[:len(s.stack)-1]
	s.position = frame.Index
	s.state = StateActive

	slog.Debug("undid decision", "session_id", s.ID, "transaction_id", frame.TransactionID)
	return BackOutcome{TransactionID: frame.TransactionID, DeactivatedRuleID: frame.CreatedRuleID}, nil
}

// Quit pauses the session. Committed decisions stay committed; a later
// review starts over from a fresh snapshot.
func (s *Session) Quit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StatePaused
	slog.Debug("review session paused", "session_id", s.ID, "position", s.position, "queue", len(s.queue))
}
