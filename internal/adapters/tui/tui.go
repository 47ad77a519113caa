// Package tui is the interactive terminal comparison screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	service "github.com/okian/aptrank/internal/app"
	"github.com/okian/aptrank/internal/domain/model"
	"github.com/okian/aptrank/internal/domain/selector"
	"github.com/okian/aptrank/internal/domain/types"
)

const (
	maxFields   = 6
	defaultCard = 40
	rankingRows = 15
)

// Session is what the screen needs from the ranking service.
type Session interface {
	SmartPair(ctx context.Context, strategy selector.Strategy) (types.Pair, error)
	RecordMatch(ctx context.Context, winnerKey, loserKey string) (model.Outcome, error)
	Rankings(ctx context.Context) ([]types.Entry, error)
	DefaultStrategy() selector.Strategy
}

// Run shows the comparison screen until the user quits.
func Run(ctx context.Context, s Session) error {
	_, err := tea.NewProgram(New(ctx, s), tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type pairMsg struct {
	pair types.Pair
	err  error
}

type recordedMsg struct {
	outcome model.Outcome
	err     error
}

type rankingsMsg struct {
	entries []types.Entry
	err     error
}

// Model is the bubbletea model for the comparison screen.
type Model struct {
	ctx      context.Context
	session  Session
	styles   Styles
	strategy selector.Strategy

	pair         *types.Pair
	rankings     []types.Entry
	showRankings bool
	recorded     int
	status       string
	warn         bool
	err          error
	width        int
}

// New creates the screen model.
func New(ctx context.Context, s Session) Model {
	return Model{
		ctx:      ctx,
		session:  s,
		styles:   DefaultStyles(),
		strategy: s.DefaultStrategy(),
	}
}

// Init requests the first pair.
func (m Model) Init() tea.Cmd {
	return m.fetchPair()
}

func (m Model) fetchPair() tea.Cmd {
	ctx, s, strategy := m.ctx, m.session, m.strategy
	return func() tea.Msg {
		p, err := s.SmartPair(ctx, strategy)
		return pairMsg{pair: p, err: err}
	}
}

func (m Model) record(winner, loser string) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		o, err := s.RecordMatch(ctx, winner, loser)
		return recordedMsg{outcome: o, err: err}
	}
}

func (m Model) fetchRankings() tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		entries, err := s.Rankings(ctx)
		return rankingsMsg{entries: entries, err: err}
	}
}

// Update handles key presses and session results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case pairMsg:
		if msg.err != nil {
			m.pair = nil
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		p := msg.pair
		m.pair = &p
	case recordedMsg:
		switch {
		case msg.err == nil:
			m.recorded++
			m.warn = false
			m.status = fmt.Sprintf("recorded: %+.1f points", msg.outcome.WinnerAfter-msg.outcome.WinnerBefore)
		case errors.Is(msg.err, service.ErrPersistence):
			m.recorded++
			m.warn = true
			m.status = "recorded, but not saved: " + msg.err.Error()
		default:
			m.warn = true
			m.status = msg.err.Error()
		}
		cmds := []tea.Cmd{m.fetchPair()}
		if m.showRankings {
			cmds = append(cmds, m.fetchRankings())
		}
		return m, tea.Batch(cmds...)
	case rankingsMsg:
		if msg.err != nil {
			m.warn = true
			m.status = msg.err.Error()
			return m, nil
		}
		m.rankings = msg.entries
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "a", "left", "1":
		if m.pair != nil {
			a, b := m.pair.A.Listing.Key, m.pair.B.Listing.Key
			m.pair = nil
			return m, m.record(a, b)
		}
	case "b", "right", "2":
		if m.pair != nil {
			a, b := m.pair.A.Listing.Key, m.pair.B.Listing.Key
			m.pair = nil
			return m, m.record(b, a)
		}
	case "s", " ":
		m.status, m.warn = "skipped", false
		return m, m.fetchPair()
	case "tab":
		m.strategy = m.strategy.Next()
		m.status, m.warn = "strategy: "+m.strategy.String(), false
		return m, m.fetchPair()
	case "r":
		m.showRankings = !m.showRankings
		if m.showRankings {
			return m, m.fetchRankings()
		}
	}
	return m, nil
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Which apartment do you prefer?"))
	b.WriteString("  ")
	b.WriteString(m.styles.Muted.Render(fmt.Sprintf("strategy: %s · compared: %d", m.strategy, m.recorded)))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(m.styles.Error.Render(m.err.Error()))
		b.WriteString("\n")
	case m.pair == nil:
		b.WriteString(m.styles.Muted.Render("loading…"))
		b.WriteString("\n")
	default:
		w := m.cardWidth()
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			m.card("[A] ←", m.pair.A, w),
			" ",
			m.card("[B] →", m.pair.B, w),
		))
		b.WriteString("\n")
		if m.pair.Strategy != m.pair.Requested {
			b.WriteString(m.styles.Muted.Render(fmt.Sprintf("(%s fell back to %s)", m.pair.Requested, m.pair.Strategy)))
			b.WriteString("\n")
		}
	}

	if m.status != "" {
		style := m.styles.Success
		if m.warn {
			style = m.styles.Warn
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}

	if m.showRankings {
		b.WriteString("\n")
		b.WriteString(m.rankingTable())
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("a/← A wins · b/→ B wins · s skip · tab strategy · r rankings · q quit"))
	return b.String()
}

func (m Model) cardWidth() int {
	if m.width <= 0 {
		return defaultCard
	}
	return max((m.width-5)/2, 20)
}

func (m Model) card(label string, c types.Contender, width int) string {
	l := c.Listing
	lines := []string{
		m.styles.Label.Render(label) + "  " + m.styles.Rating.Render(fmt.Sprintf("%.1f", c.Rating)),
		m.styles.Muted.Render(fmt.Sprintf("compared %d times", c.Appearances)),
	}
	if l.Address != "" {
		lines = append(lines, l.Address)
	}
	lines = append(lines, m.styles.Muted.Render(l.Link))

	shown := 0
	for _, col := range l.Columns {
		v := strings.TrimSpace(l.Fields[col])
		if v == "" || v == l.Link || v == l.Address {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", col, v))
		if shown++; shown >= maxFields {
			break
		}
	}
	return m.styles.Card.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) rankingTable() string {
	if len(m.rankings) == 0 {
		return m.styles.Muted.Render("no rankings yet") + "\n"
	}
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Rankings"))
	b.WriteString("\n")
	for i, e := range m.rankings {
		if i == rankingRows {
			b.WriteString(m.styles.Muted.Render(fmt.Sprintf("… %d more", len(m.rankings)-rankingRows)))
			b.WriteString("\n")
			break
		}
		name := e.Listing.Address
		if name == "" {
			name = e.Listing.Link
		}
		fmt.Fprintf(&b, "%3d. %8.2f  %s\n", e.Rank, e.Rating, name)
	}
	return b.String()
}
