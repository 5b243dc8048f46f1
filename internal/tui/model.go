// Package tui renders the public feed in a terminal and drives the feed
// controller from keyboard input.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"public-chat/internal/client"
	"public-chat/internal/feed"
)

// Accounts is the slice of the account service the UI uses.
type Accounts interface {
	Get(ctx context.Context) (*client.User, error)
	Create(ctx context.Context, userID, email, password, name string) (*client.User, error)
	CreateEmailPasswordSession(ctx context.Context, email, password string) (*client.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Feed is satisfied by *feed.Controller.
type Feed interface {
	Initialize(ctx context.Context) error
	Send(ctx context.Context, user *feed.User, text string, file *client.InputFile) (feed.Result, error)
	Items() []feed.Message
	State() feed.State
	Err() error
	Sending() bool
	Composer() feed.Composer
	SetDraft(text string)
	Attach(file *client.InputFile)
	Detach()
}

// ChangedMsg tells the model the feed changed and must be redrawn.
type ChangedMsg struct{}

type initDoneMsg struct{ err error }

type sessionMsg struct {
	user   *feed.User
	status string
	err    error
}

type sentMsg struct {
	result feed.Result
	err    error
}

type attachedMsg struct {
	file *client.InputFile
	err  error
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx      context.Context
	accounts Accounts
	feed     Feed
	user     *feed.User

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
	width    int
	status   string
}

// New builds the model. ctx bounds every network call it makes.
func New(ctx context.Context, accounts Accounts, f Feed) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message, or /help"
	ti.CharLimit = 2000
	ti.Focus()

	return Model{
		ctx:      ctx,
		accounts: accounts,
		feed:     f,
		input:    ti,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		status:   "loading messages",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.initialize(), m.restoreSession())
}

func (m Model) initialize() tea.Cmd {
	return func() tea.Msg {
		return initDoneMsg{err: m.feed.Initialize(m.ctx)}
	}
}

// restoreSession resolves the current account; no session simply means anonymous.
func (m Model) restoreSession() tea.Cmd {
	return func() tea.Msg {
		u, err := m.accounts.Get(m.ctx)
		if err != nil {
			return sessionMsg{}
		}
		return sessionMsg{user: feed.SessionUser(u)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := msg.Height - 4
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = msg.Width - 4
		m.refresh()

	case ChangedMsg:
		m.refresh()

	case initDoneMsg:
		switch {
		case msg.err == nil, errors.Is(msg.err, feed.ErrTornDown):
			m.status = ""
		case errors.Is(msg.err, feed.ErrConfigMissing):
			m.status = "chat is not configured: " + msg.err.Error()
		default:
			m.status = "could not load messages: " + msg.err.Error()
		}
		m.refresh()

	case sessionMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.user = msg.user
			if msg.status != "" {
				m.status = msg.status
			}
		}
		m.refresh()

	case sentMsg:
		m.afterSend(msg)
		m.refresh()

	case attachedMsg:
		if msg.err != nil {
			m.status = "attach failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("attached %s", msg.file.Name)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	cmd, err := ParseCommand(line)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}

	switch cmd.Kind {
	case CmdSend:
		m.feed.SetDraft(line)
		file := m.feed.Composer().File
		if m.feed.Sending() {
			m.status = "still sending the previous message"
			return m, nil
		}
		return m, m.send(cmd.Text, file)
	case CmdRegister:
		m.input.Reset()
		m.status = "creating account"
		return m, m.register(cmd.Args[0], cmd.Args[1], cmd.Args[2])
	case CmdLogin:
		m.input.Reset()
		m.status = "logging in"
		return m, m.login(cmd.Args[0], cmd.Args[1])
	case CmdLogout:
		m.input.Reset()
		return m, m.logout()
	case CmdAttach:
		m.input.Reset()
		return m, m.attach(cmd.Args[0])
	case CmdDetach:
		m.input.Reset()
		m.feed.Detach()
		m.status = "attachment removed"
		return m, nil
	case CmdHelp:
		m.status = helpText
		return m, nil
	case CmdQuit:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) send(text string, file *client.InputFile) tea.Cmd {
	user := m.user
	return func() tea.Msg {
		res, err := m.feed.Send(m.ctx, user, text, file)
		return sentMsg{result: res, err: err}
	}
}

func (m *Model) afterSend(msg sentMsg) {
	switch {
	case msg.result.Skipped:
		m.status = "still sending the previous message"
	case msg.err == nil:
		m.input.Reset()
		m.status = ""
	case errors.Is(msg.err, feed.ErrUnauthenticated):
		m.status = "log in to send messages: /login <email> <password>"
	case errors.Is(msg.err, feed.ErrEmptyMessage):
		m.status = "nothing to send"
	case errors.Is(msg.err, feed.ErrUploadFailed):
		m.status = "image upload failed, try again"
	default:
		m.input.SetValue(EscapeMessage(m.feed.Composer().Text))
		m.input.CursorEnd()
		m.status = "message not sent: " + msg.err.Error()
	}
}

func (m Model) login(email, password string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.accounts.CreateEmailPasswordSession(m.ctx, email, password); err != nil {
			return sessionMsg{err: fmt.Errorf("login failed: %w", err)}
		}
		u, err := m.accounts.Get(m.ctx)
		if err != nil {
			return sessionMsg{err: fmt.Errorf("login failed: %w", err)}
		}
		return sessionMsg{user: feed.SessionUser(u), status: "logged in"}
	}
}

// register creates the account, naming it after the email's local part when no
// name is given, and then logs in.
func (m Model) register(email, password, name string) tea.Cmd {
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	login := m.login(email, password)
	return func() tea.Msg {
		if _, err := m.accounts.Create(m.ctx, client.UniqueID(), email, password, name); err != nil {
			return sessionMsg{err: fmt.Errorf("registration failed: %w", err)}
		}
		return login()
	}
}

func (m Model) logout() tea.Cmd {
	return func() tea.Msg {
		if err := m.accounts.DeleteSession(m.ctx, "current"); err != nil {
			log.Printf("logout failed: %v", err)
			return sessionMsg{err: fmt.Errorf("logout failed: %w", err)}
		}
		return sessionMsg{status: "logged out"}
	}
}

func (m Model) attach(path string) tea.Cmd {
	return func() tea.Msg {
		file, err := client.InputFileFromPath(path)
		if err != nil {
			return attachedMsg{err: err}
		}
		m.feed.Attach(file)
		return attachedMsg{file: file}
	}
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderFeed(m.feed.Items(), m.user, m.width))
	m.viewport.GotoBottom()
}
