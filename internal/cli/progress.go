package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/raphaelgruber/podsearch/internal/navigator"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// errCanceled is returned when the user quits the progress view.
var errCanceled = errors.New("canceled")

// navStepMsg carries a completed navigation step.
type navStepMsg navigator.Event

// workDoneMsg signals that the background work returned.
type workDoneMsg struct {
	err error
}

// navProgressModel is the bubbletea model showing navigation steps as they complete.
type navProgressModel struct {
	title    string
	spinner  spinner.Model
	theme    Theme
	steps    []navigator.Event
	done     bool
	quitting bool
	err      error
}

func newNavProgressModel(title string) navProgressModel {
	return navProgressModel{
		title:   title,
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		theme:   defaultTheme,
	}
}

// Init starts the spinner.
func (m navProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and returns the updated model.
func (m navProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case navStepMsg:
		m.steps = append(m.steps, navigator.Event(msg))
		return m, nil

	case workDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m navProgressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m navProgressModel) renderContent() string {
	var b strings.Builder
	for _, e := range m.steps {
		b.WriteString(m.stepLine(e))
	}

	switch {
	case m.quitting:
		b.WriteString(m.theme.hintStyle().Render("Canceled.") + "\n")
	case m.done && m.err != nil:
		b.WriteString(m.theme.errorStyle().Render(fmt.Sprintf("✗ %s failed: %s", m.title, m.err)) + "\n")
	case m.done:
		b.WriteString(m.theme.completedStyle().Render("✓ "+m.title) + "\n")
	default:
		status := m.theme.statusStyle().Render(m.title + "...")
		b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), status))
		b.WriteString(m.theme.hintStyle().Render("Press q to cancel") + "\n")
	}
	return b.String()
}

func (m navProgressModel) stepLine(e navigator.Event) string {
	label := m.theme.completedStyle().Render("✓ " + e.Step)
	detail := e.Detail
	if r := []rune(detail); len(r) > 100 {
		detail = string(r[:100]) + "..."
	}
	timing := m.theme.hintStyle().Render(fmt.Sprintf("(%s, iteration %d)", e.Duration.Round(time.Millisecond), e.Iteration))
	return fmt.Sprintf("%s %s %s\n", label, detail, timing)
}

// showProgress reports whether the interactive view should be used.
func showProgress() bool {
	return !verbose && term.IsTerminal(int(os.Stderr.Fd()))
}

// runWithProgress runs work while rendering navigation steps on stderr.
// Quitting the view cancels the context passed to work. Without a terminal
// (or in verbose mode) work runs directly with a nil observer.
func runWithProgress[T any](ctx context.Context, title string, work func(ctx context.Context, observe func(navigator.Event)) (T, error)) (T, error) {
	if !showProgress() {
		return work(ctx, nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newNavProgressModel(title), tea.WithOutput(os.Stderr), tea.WithContext(ctx))

	var (
		result  T
		workErr error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		result, workErr = work(ctx, func(e navigator.Event) {
			p.Send(navStepMsg(e))
		})
		p.Send(workDoneMsg{err: workErr})
	}()

	final, err := p.Run()
	if m, ok := final.(navProgressModel); ok && m.quitting {
		cancel()
		<-done
		var zero T
		return zero, errCanceled
	}
	<-done
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return result, fmt.Errorf("progress UI error: %w", err)
	}
	return result, workErr
}
