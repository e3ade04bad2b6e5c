package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	outcomedto "outcomes/internal/modules/outcome/dto"
	sessiondto "outcomes/internal/modules/session/dto"
	syncjobdto "outcomes/internal/modules/syncjob/dto"
	"outcomes/internal/ui/theme"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type sessionPort interface {
	Foreground(ctx context.Context) (sessiondto.TransitionOutput, error)
	Background(ctx context.Context) (sessiondto.TransitionOutput, error)
	Received(ctx context.Context, id string, wasBackground bool) (sessiondto.ReceivedOutput, error)
	Clicked(ctx context.Context, id string) (sessiondto.TransitionOutput, error)
	State(ctx context.Context) (sessiondto.StateOutput, error)
}

type outcomePort interface {
	SendOutcome(ctx context.Context, name string) (outcomedto.DeliveryOutput, error)
	SendOutcomeWithValue(ctx context.Context, name string, weight float64) (outcomedto.DeliveryOutput, error)
	SendUniqueOutcome(ctx context.Context, name string) (outcomedto.DeliveryOutput, error)
	Pending(ctx context.Context) ([]outcomedto.EventOutput, error)
}

type jobPort interface {
	RunNow(ctx context.Context) (syncjobdto.RunOutput, error)
	Pending(ctx context.Context) (syncjobdto.JobOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type snapshotMsg struct {
	state   sessiondto.StateOutput
	pending []outcomedto.EventOutput
	job     syncjobdto.JobOutput
	err     error
}

type actionMsg struct {
	line string
	err  error
}

const maxLog = 12

var keyHelp = []string{
	"f foreground", "b background", "r receive", "c click",
	"o outcome", "w weighted", "u unique", "j run job", "q quit",
}

// Model drives the session and outcome modules from the keyboard so the
// attribution rules can be exercised by hand.
type Model struct {
	session  sessionPort
	outcomes outcomePort
	jobs     jobPort

	state   sessiondto.StateOutput
	pending []outcomedto.EventOutput
	job     syncjobdto.JobOutput
	log     []string
	nextID  int
	lastID  string
	status  string
	width   int
}

func NewModel(session sessionPort, outcomes outcomePort, jobs jobPort) Model {
	return Model{session: session, outcomes: outcomes, jobs: jobs, status: "ready"}
}

func (m Model) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case snapshotMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.state, m.pending, m.job = msg.state, msg.pending, msg.job
	case actionMsg:
		line := msg.line
		if msg.err != nil {
			line += ": " + msg.err.Error()
		}
		m.status = line
		m.log = append(m.log, time.Now().Format("15:04:05")+" "+line)
		if len(m.log) > maxLog {
			m.log = m.log[len(m.log)-maxLog:]
		}
		return m, m.refreshCmd()
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "f":
		return m, m.act(func(ctx context.Context) (string, error) {
			tr, err := m.session.Foreground(ctx)
			return describeTransition("foreground", tr), err
		})
	case "b":
		return m, m.act(func(ctx context.Context) (string, error) {
			tr, err := m.session.Background(ctx)
			return describeTransition("background", tr), err
		})
	case "r":
		m.nextID++
		id := fmt.Sprintf("n%d", m.nextID)
		m.lastID = id
		background := !m.state.Foreground
		return m, m.act(func(ctx context.Context) (string, error) {
			out, err := m.session.Received(ctx, id, background)
			return fmt.Sprintf("received %s (eligible=%t)", id, out.Accepted), err
		})
	case "c":
		if m.lastID == "" {
			m.status = "nothing to click; press r first"
			return m, nil
		}
		id := m.lastID
		return m, m.act(func(ctx context.Context) (string, error) {
			tr, err := m.session.Clicked(ctx, id)
			return describeTransition("clicked "+id, tr), err
		})
	case "o":
		return m, m.act(func(ctx context.Context) (string, error) {
			out, err := m.outcomes.SendOutcome(ctx, "purchase")
			return describeDelivery(out), err
		})
	case "w":
		return m, m.act(func(ctx context.Context) (string, error) {
			out, err := m.outcomes.SendOutcomeWithValue(ctx, "revenue", 1.5)
			return describeDelivery(out), err
		})
	case "u":
		return m, m.act(func(ctx context.Context) (string, error) {
			out, err := m.outcomes.SendUniqueOutcome(ctx, "open")
			return describeDelivery(out), err
		})
	case "j":
		return m, m.act(func(ctx context.Context) (string, error) {
			out, err := m.jobs.RunNow(ctx)
			return fmt.Sprintf("job: focus=%d outcomes=%d remaining=%d completed=%t", out.FocusSent, out.OutcomesSent, out.Remaining, out.Completed), err
		})
	}
	return m, nil
}

func (m Model) act(fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		line, err := fn(context.Background())
		return actionMsg{line: line, err: err}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		state, err := m.session.State(ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		pending, err := m.outcomes.Pending(ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		job, err := m.jobs.Pending(ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{state: state, pending: pending, job: job}
	}
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	left := theme.PaneActive.Width(44).Render(m.sessionView())
	right := theme.Pane.Width(44).Render(m.deliveryView())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
	logPane := theme.Pane.Width(91).Render(theme.Title.Render("Activity") + "\n" + strings.Join(m.log, "\n"))
	footer := theme.Muted.Render(strings.Join(keyHelp, " · "))
	return theme.App.Render(lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("outcomes simulator"),
		body,
		logPane,
		theme.Hot.Render(m.status),
		footer,
	))
}

func (m Model) sessionView() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Session") + "\n")
	lifecycle := "background"
	if m.state.Foreground {
		lifecycle = "foreground"
	}
	fmt.Fprintf(&b, "type      %s\n", theme.Session(m.state.Attribution.Type).Render(m.state.Attribution.Type))
	fmt.Fprintf(&b, "ids       %s\n", strings.Join(m.state.Attribution.NotificationIDs, ", "))
	fmt.Fprintf(&b, "lifecycle %s\n", lifecycle)
	fmt.Fprintf(&b, "active    %s\n", m.state.ActiveTime.Round(time.Second))
	fmt.Fprintf(&b, "queued    %s\n", strings.Join(m.state.Received, ", "))
	if m.state.ClickPending {
		b.WriteString(theme.Muted.Render("click pending") + "\n")
	}
	for _, f := range m.state.PendingFocus {
		fmt.Fprintf(&b, "focus     %s %s\n", f.Type, f.ActiveTime.Round(time.Second))
	}
	return b.String()
}

func (m Model) deliveryView() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Delivery") + "\n")
	if m.job.Scheduled {
		fmt.Fprintf(&b, "job due   %s\n", m.job.DueAt.Local().Format("15:04:05"))
	} else {
		b.WriteString(theme.Muted.Render("no sync job") + "\n")
	}
	fmt.Fprintf(&b, "saved     %d\n", len(m.pending))
	for _, ev := range m.pending {
		fmt.Fprintf(&b, "  %s [%s] %s\n", ev.Name, ev.Session, ev.Params)
	}
	return b.String()
}

func describeTransition(label string, tr sessiondto.TransitionOutput) string {
	line := fmt.Sprintf("%s -> %s", label, tr.Type)
	if tr.NewSession {
		line += " (new session)"
	}
	if tr.Elapsed > 0 {
		line += fmt.Sprintf(" +%s", tr.Elapsed.Round(time.Second))
	}
	return line
}

func describeDelivery(out outcomedto.DeliveryOutput) string {
	line := fmt.Sprintf("%s [%s] %s", out.Name, out.Session, theme.Status(out.Status).Render(out.Status))
	if out.Error != "" {
		line += " (" + out.Error + ")"
	}
	return line
}
