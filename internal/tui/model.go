// Package tui provides the interactive review screen. It only drives a
// review session's transitions; every write goes through the session.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
	"github.com/Veraticus/tally/internal/review"
	"github.com/Veraticus/tally/internal/tui/themes"
)

// Session is the review state machine the screen drives.
type Session interface {
	Current(ctx context.Context) (*model.Transaction, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Resolve(ctx context.Context, categoryID int64, vendor string, spec *model.RuleSpec) error
	Skip(ctx context.Context) error
	Back(ctx context.Context) (review.BackOutcome, error)
	Quit()
	Position() (index, total int)
	Decisions() int
	State() review.State
}

// step is the form step for the current transaction.
type step int

const (
	stepCategory step = iota
	stepVendor
	stepRule
	stepPattern
)

// Summary counts what happened during a run of the screen.
type Summary struct {
	Resolved int
	Skipped  int
	Undone   int
	Complete bool
}

// Model is the bubbletea model of the review screen.
type Model struct {
	ctx        context.Context
	session    Session
	err        error
	fatal      error
	current    *model.Transaction
	chosen     *model.Category
	theme      themes.Theme
	keymap     KeyMap
	help       help.Model
	filter     textinput.Model
	vendor     textinput.Model
	pattern    textinput.Model
	status     string
	categories []model.Category
	filtered   []model.Category
	summary    Summary
	cursor     int
	width      int
	height     int
	step       step
	busy       bool
	quitting   bool
}

// Option configures a Model.
type Option func(*Model)

// WithTheme sets the color theme.
func WithTheme(t themes.Theme) Option {
	return func(m *Model) { m.theme = t }
}

// New creates a review screen over session.
func New(ctx context.Context, session Session, opts ...Option) Model {
	filter := textinput.New()
	filter.Placeholder = "type to filter categories"
	filter.Prompt = "Category: "
	filter.CharLimit = 50

	vendor := textinput.New()
	vendor.Placeholder = "optional"
	vendor.Prompt = "Vendor: "
	vendor.CharLimit = 80

	pat := textinput.New()
	pat.Prompt = "Rule pattern: "
	pat.CharLimit = 120

	m := Model{
		ctx:     ctx,
		session: session,
		theme:   themes.Default,
		keymap:  DefaultKeyMap(),
		help:    help.New(),
		filter:  filter,
		vendor:  vendor,
		pattern: pat,
		busy:    true,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Summary returns the counts gathered so far.
func (m Model) Summary() Summary {
	return m.summary
}

// Messages produced by session commands.
type (
	loadedMsg struct {
		err        error
		current    *model.Transaction
		categories []model.Category
	}

	// advancedMsg follows a Resolve, Skip or Back.
	advancedMsg struct {
		err     error
		current *model.Transaction
		status  string
		action  action
	}
)

type action int

const (
	actionResolve action = iota
	actionSkip
	actionBack
)

// Init loads the categories and the first transaction.
func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		categories, err := session.Categories(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		current, err := session.Current(ctx)
		return loadedMsg{err: err, current: current, categories: categories}
	}
}

// run performs op against the session and reloads the current transaction.
func (m Model) run(act action, op func() (string, error)) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		status, err := op()
		if err != nil {
			return advancedMsg{err: err, action: act}
		}
		current, err := session.Current(ctx)
		return advancedMsg{err: err, current: current, status: status, action: act}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case loadedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.fatal = msg.err
			m.quitting = true
			return m, tea.Quit
		}
		m.categories = msg.categories
		m.refilter()
		return m.present(msg.current)

	case advancedMsg:
		m.busy = false
		if msg.err != nil {
			// The decision was rejected; stay on the same step so it can be retried.
			m.status = ""
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = msg.status
		switch msg.action {
		case actionResolve:
			m.summary.Resolved++
		case actionSkip:
			m.summary.Skipped++
		case actionBack:
			if msg.status != emptyStackStatus {
				m.summary.Undone++
			}
		}
		return m.present(msg.current)

	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.Quit) {
			m.session.Quit()
			m.quitting = true
			return m, tea.Quit
		}
		if m.busy || m.current == nil {
			return m, nil
		}
		switch m.step {
		case stepCategory:
			return m.updateCategory(msg)
		case stepVendor:
			return m.updateVendor(msg)
		case stepRule:
			return m.updateRule(msg)
		case stepPattern:
			return m.updatePattern(msg)
		}
	}
	return m, nil
}

// present shows txn with a fresh form, or finishes when the queue is done.
func (m Model) present(txn *model.Transaction) (tea.Model, tea.Cmd) {
	m.current = txn
	if txn == nil {
		m.summary.Complete = m.session.State() == review.StateComplete
		m.quitting = true
		return m, tea.Quit
	}
	m.step = stepCategory
	m.chosen = nil
	m.vendor.SetValue("")
	m.pattern.SetValue("")
	m.vendor.Blur()
	m.pattern.Blur()
	m.filter.SetValue("")
	m.cursor = 0
	m.refilter()
	cmd := m.filter.Focus()
	return m, cmd
}

const emptyStackStatus = "Nothing to undo"

func (m Model) updateCategory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keymap.Select):
		if len(m.filtered) == 0 {
			return m, nil
		}
		chosen := m.filtered[m.cursor]
		m.chosen = &chosen
		m.step = stepVendor
		m.filter.Blur()
		cmd := m.vendor.Focus()
		return m, cmd

	case key.Matches(msg, m.keymap.Skip):
		m.busy = true
		session, ctx := m.session, m.ctx
		return m, m.run(actionSkip, func() (string, error) {
			return "Skipped", session.Skip(ctx)
		})

	case key.Matches(msg, m.keymap.Back):
		m.busy = true
		session, ctx := m.session, m.ctx
		return m, m.run(actionBack, func() (string, error) {
			out, err := session.Back(ctx)
			if err != nil {
				return "", err
			}
			if out.EmptyStack {
				return emptyStackStatus, nil
			}
			if out.DeactivatedRuleID != nil {
				return "Undid last decision and deactivated its rule", nil
			}
			return "Undid last decision", nil
		})
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.refilter()
	return m, cmd
}

func (m Model) updateVendor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Back):
		m.step = stepCategory
		m.vendor.Blur()
		cmd := m.filter.Focus()
		return m, cmd
	case key.Matches(msg, m.keymap.Select):
		m.step = stepRule
		m.vendor.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.vendor, cmd = m.vendor.Update(msg)
	return m, cmd
}

func (m Model) updateRule(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Back):
		m.step = stepVendor
		cmd := m.vendor.Focus()
		return m, cmd
	case key.Matches(msg, m.keymap.Yes):
		m.step = stepPattern
		m.pattern.SetValue(pattern.SuggestPattern(m.current.Description))
		m.pattern.CursorEnd()
		cmd := m.pattern.Focus()
		return m, cmd
	case key.Matches(msg, m.keymap.No):
		return m.resolve(nil)
	}
	return m, nil
}

func (m Model) updatePattern(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Back):
		m.step = stepRule
		m.pattern.Blur()
		return m, nil
	case key.Matches(msg, m.keymap.Select):
		return m.resolve(&model.RuleSpec{Pattern: m.pattern.Value(), Kind: model.MatchContains})
	}

	var cmd tea.Cmd
	m.pattern, cmd = m.pattern.Update(msg)
	return m, cmd
}

func (m Model) resolve(spec *model.RuleSpec) (tea.Model, tea.Cmd) {
	m.busy = true
	session, ctx := m.session, m.ctx
	categoryID, name := m.chosen.ID, m.chosen.Name
	vendor := strings.TrimSpace(m.vendor.Value())
	return m, m.run(actionResolve, func() (string, error) {
		if err := session.Resolve(ctx, categoryID, vendor, spec); err != nil {
			return "", err
		}
		if spec != nil {
			return "Categorized as " + name + " and added rule", nil
		}
		return "Categorized as " + name, nil
	})
}

// refilter narrows the category list to names containing the filter text.
func (m *Model) refilter() {
	needle := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	filtered := make([]model.Category, 0, len(m.categories))
	for _, c := range m.categories {
		if needle == "" || strings.Contains(strings.ToLower(c.Name), needle) {
			filtered = append(filtered, c)
		}
	}
	m.filtered = filtered
	if m.cursor >= len(m.filtered) {
		m.cursor = max(len(m.filtered)-1, 0)
	}
}

// Err returns the error that stopped the screen before review could begin.
func (m Model) Err() error {
	return m.fatal
}

