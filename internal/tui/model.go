package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"salescoach/internal/coach"
	"salescoach/internal/conversation"
	"salescoach/internal/domain"
	"salescoach/internal/llm"
	"salescoach/internal/reports"
)

// Backend scores and archives sessions.
type Backend interface {
	Evaluate(ctx context.Context, s *conversation.Session, onToken llm.TokenFunc) (reports.Report, error)
	SaveConversation(s *conversation.Session) (string, error)
}

type openingMsg struct{ text string }

type replyMsg struct {
	reply string
	err   error
}

type evaluatedMsg struct {
	report reports.Report
	err    error
}

type savedMsg struct {
	path string
	err  error
}

// Model is the Bubble Tea model for one chat session.
type Model struct {
	ctx      context.Context
	session  *conversation.Session
	backend  Backend
	input    textinput.Model
	viewport viewport.Model
	status   string
	report   string
	busy     bool
	ready    bool
}

// New creates a chat model around a fresh session.
func New(ctx context.Context, session *conversation.Session, backend Backend) Model {
	ti := textinput.New()
	ti.Prompt = "销售> "
	ti.Placeholder = "输入您的话术，回车发送；ctrl+e 生成报告 · ctrl+s 保存对话 · ctrl+r 重新开始"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, session: session, backend: backend, input: ti, viewport: vp, status: "客户正在进店...", busy: true}
}

// Init starts the cursor blink and asks the customer for an opening line.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.start())
}

func (m Model) start() tea.Cmd {
	return func() tea.Msg {
		return openingMsg{text: m.session.Start(m.ctx, nil)}
	}
}

func (m Model) say(utterance string) tea.Cmd {
	return func() tea.Msg {
		reply, err := m.session.Say(m.ctx, utterance, nil)
		return replyMsg{reply: reply, err: err}
	}
}

func (m Model) evaluate() tea.Cmd {
	return func() tea.Msg {
		r, err := m.backend.Evaluate(m.ctx, m.session, nil)
		return evaluatedMsg{report: r, err: err}
	}
}

func (m Model) save() tea.Cmd {
	return func() tea.Msg {
		path, err := m.backend.SaveConversation(m.session)
		return savedMsg{path: path, err: err}
	}
}

// Update handles key, window and completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, input, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-ch)
		m.refresh()
		return m, nil
	case openingMsg:
		m.busy = false
		m.status = m.hint()
		m.refresh()
		return m, nil
	case replyMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "错误: " + msg.err.Error()
		} else {
			m.input.SetValue("")
			m.status = m.hint()
		}
		m.refresh()
		return m, nil
	case evaluatedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "评估失败: " + msg.err.Error()
		} else {
			m.report = msg.report.Content
			m.status = fmt.Sprintf("报告已保存，ID: %s", msg.report.ID)
		}
		m.refresh()
		return m, nil
	case savedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "保存失败: " + msg.err.Error()
		} else {
			m.status = "对话已保存: " + msg.path
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = m.session.Agent().Persona().Speaker + " 正在思考..."
			return m, m.say(q)
		case "ctrl+e":
			if m.busy {
				return m, nil
			}
			if m.session.Len() == 0 {
				m.status = "请先进行对话"
				return m, nil
			}
			m.busy = true
			m.status = "AI正在生成评估报告..."
			return m, m.evaluate()
		case "ctrl+s":
			if m.busy || m.session.Len() == 0 {
				return m, nil
			}
			m.busy = true
			return m, m.save()
		case "ctrl+r":
			if m.busy {
				return m, nil
			}
			m.session = conversation.NewSession(m.session.Agent())
			m.report = ""
			m.input.SetValue("")
			m.busy = true
			m.status = "客户正在进店..."
			m.refresh()
			return m, m.start()
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// hint returns the most relevant coaching tip, plus the quality score once
// there are enough turns to judge.
func (m Model) hint() string {
	turns := m.session.Transcript()
	var parts []string
	if tips := coach.Tips(turns, m.session.Agent().Persona().Name); len(tips) > 0 {
		parts = append(parts, tips[len(tips)-1])
	} else {
		parts = append(parts, "下一步: "+coach.NextStep(turns))
	}
	if len(turns) >= 4 {
		q := coach.Analyze(turns)
		score := fmt.Sprintf("对话质量 %d/10", q.Score)
		if len(q.Suggestions) > 0 {
			score += " · " + q.Suggestions[0]
		}
		parts = append(parts, score)
	}
	return strings.Join(parts, " | ")
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the header, transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	p := m.session.Agent().Persona()
	header := headerStyle.Render(fmt.Sprintf("销售模拟 · %s · %s", p.Name, m.session.Agent().Mode()))
	chat := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + chat + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	turns := m.session.Transcript()
	if len(turns) == 0 {
		return "..."
	}
	speaker := m.session.Agent().Persona().Speaker
	width := max(10, m.viewport.Width-4)
	var b strings.Builder
	for _, t := range turns {
		label := salesStyle.Render("销售")
		if t.Role == domain.RoleCustomer {
			label = customerStyle.Render(speaker)
		}
		b.WriteString(label + ": " + lipgloss.NewStyle().Width(width).Render(t.Content) + "\n")
	}
	if m.report != "" {
		b.WriteString("\n" + reportStyle.Render("评估报告") + "\n" + m.report + "\n")
	}
	return b.String()
}

var (
	chatBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle   = lipgloss.NewStyle().Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	salesStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	customerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	reportStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true).Underline(true)
)
