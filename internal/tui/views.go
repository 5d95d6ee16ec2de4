package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/tally/internal/cli"
)

// visibleCategories bounds the category list so the screen never scrolls.
const visibleCategories = 10

// View renders the review screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.busy && m.current == nil {
		return m.theme.Subtitle.Render("Loading review queue...")
	}
	if m.current == nil {
		return m.theme.StatusSuccess.Render("Nothing left to review")
	}

	sections := []string{
		m.renderHeader(),
		m.renderTransaction(),
		m.renderStep(),
	}
	if line := m.renderStatus(); line != "" {
		sections = append(sections, line)
	}
	sections = append(sections, m.help.View(m.keymap))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	index, total := m.session.Position()
	title := m.theme.Title.Render("Review")
	progress := m.theme.Subtitle.Render(fmt.Sprintf("  %d of %d", index+1, total))
	if n := m.session.Decisions(); n > 0 {
		progress += m.theme.Subtitle.Render(fmt.Sprintf("  (%d undoable)", n))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, progress)
}

func (m Model) renderTransaction() string {
	txn := m.current
	style := m.theme.Outflow
	if txn.Amount.IsPositive() {
		style = m.theme.Inflow
	}
	amount := style.Render(cli.FormatAmount(txn.Amount))

	lines := []string{
		m.theme.Bold.Render(txn.Description),
		fmt.Sprintf("%s  %s", m.theme.Normal.Render(txn.Date), amount),
	}
	if txn.AccountName != "" {
		lines = append(lines, m.theme.Subtitle.Render(txn.AccountName))
	}
	return m.theme.RoundedBox.Render(strings.Join(lines, "\n"))
}

func (m Model) renderStep() string {
	switch m.step {
	case stepVendor:
		return lipgloss.JoinVertical(lipgloss.Left, m.renderChosen(), m.vendor.View())
	case stepRule:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.renderChosen(),
			m.theme.Normal.Render("Create a rule for similar transactions? (y/N)"))
	case stepPattern:
		return lipgloss.JoinVertical(lipgloss.Left, m.renderChosen(), m.pattern.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.filter.View(), m.renderCategories())
}

func (m Model) renderChosen() string {
	line := "Category: " + m.chosen.Name
	if vendor := strings.TrimSpace(m.vendor.Value()); vendor != "" && m.step != stepVendor {
		line += "  Vendor: " + vendor
	}
	return m.theme.Normal.Render(line)
}

func (m Model) renderCategories() string {
	if len(m.filtered) == 0 {
		return m.theme.StatusWarning.Render("No matching categories")
	}

	start := 0
	if m.cursor >= visibleCategories {
		start = m.cursor - visibleCategories + 1
	}
	end := min(start+visibleCategories, len(m.filtered))

	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)
	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		c := m.filtered[i]
		label := fmt.Sprintf("%-28s %s", c.Name, muted.Render(c.TaxLine))
		if i == m.cursor {
			rows = append(rows, m.theme.Selected.Render("> "+c.Name))
			continue
		}
		rows = append(rows, "  "+label)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderStatus() string {
	if m.err != nil {
		return m.theme.StatusError.Render("Error: " + m.err.Error())
	}
	if m.status != "" {
		return m.theme.StatusInfo.Render(m.status)
	}
	return ""
}
