package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"public-chat/internal/client"
	"public-chat/internal/feed"
)

type fakeFeed struct {
	items    []feed.Message
	composer feed.Composer
	sending  bool

	sendUser *feed.User
	sendText string
	sendFile *client.InputFile
	sendErr  error
}

func (f *fakeFeed) Initialize(context.Context) error { return nil }

func (f *fakeFeed) Send(_ context.Context, user *feed.User, text string, file *client.InputFile) (feed.Result, error) {
	f.sendUser, f.sendText, f.sendFile = user, text, file
	if f.sendErr != nil {
		f.composer.Text = strings.TrimSpace(text)
		return feed.Result{}, f.sendErr
	}
	f.composer = feed.Composer{Focused: true}
	return feed.Result{}, nil
}

func (f *fakeFeed) Items() []feed.Message         { return f.items }
func (f *fakeFeed) State() feed.State             { return feed.StateReady }
func (f *fakeFeed) Err() error                    { return nil }
func (f *fakeFeed) Sending() bool                 { return f.sending }
func (f *fakeFeed) Composer() feed.Composer       { return f.composer }
func (f *fakeFeed) SetDraft(text string)          { f.composer.Text = text }
func (f *fakeFeed) Attach(file *client.InputFile) { f.composer.File = file }
func (f *fakeFeed) Detach()                       { f.composer.File = nil }

type accountsMock struct {
	mock.Mock
}

func (m *accountsMock) Get(ctx context.Context) (*client.User, error) {
	args := m.Called(ctx)
	var u *client.User
	if val := args.Get(0); val != nil {
		u = val.(*client.User)
	}
	return u, args.Error(1)
}

func (m *accountsMock) Create(ctx context.Context, userID, email, password, name string) (*client.User, error) {
	args := m.Called(ctx, userID, email, password, name)
	return nil, args.Error(1)
}

func (m *accountsMock) CreateEmailPasswordSession(ctx context.Context, email, password string) (*client.Session, error) {
	args := m.Called(ctx, email, password)
	return &client.Session{}, args.Error(1)
}

func (m *accountsMock) DeleteSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func ready(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func enter(t *testing.T, m Model, line string) (Model, tea.Msg) {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func TestEnterSendsAndClearsInput(t *testing.T) {
	f := &fakeFeed{}
	m := ready(t, New(context.Background(), new(accountsMock), f))
	m.user = &feed.User{ID: "u1", DisplayName: "Ada"}

	m, msg := enter(t, m, "  hello  ")
	require.IsType(t, sentMsg{}, msg)
	assert.Equal(t, "  hello  ", f.sendText)
	assert.Equal(t, "u1", f.sendUser.ID)

	next, _ := m.Update(msg)
	m = next.(Model)
	assert.Empty(t, m.input.Value())
}

func TestFailedSendRestoresDraft(t *testing.T) {
	f := &fakeFeed{sendErr: fmt.Errorf("%w: boom", feed.ErrSendFailed)}
	m := ready(t, New(context.Background(), new(accountsMock), f))
	m.user = &feed.User{ID: "u1"}

	m, msg := enter(t, m, " hello ")
	next, _ := m.Update(msg)
	m = next.(Model)

	assert.Equal(t, "hello", m.input.Value())
	assert.Contains(t, m.status, "message not sent")
}

func TestFailedSendKeepsSlashEscape(t *testing.T) {
	f := &fakeFeed{sendErr: fmt.Errorf("%w: boom", feed.ErrSendFailed)}
	m := ready(t, New(context.Background(), new(accountsMock), f))
	m.user = &feed.User{ID: "u1"}

	m, msg := enter(t, m, "//shrug")
	assert.Equal(t, "/shrug", f.sendText)
	next, _ := m.Update(msg)
	m = next.(Model)
	require.Equal(t, "//shrug", m.input.Value())

	// a second Enter sends the same message rather than an unknown command
	f.sendErr = nil
	_, msg = enter(t, m, m.input.Value())
	require.IsType(t, sentMsg{}, msg)
	assert.Equal(t, "/shrug", f.sendText)
}

func TestSendWithoutSessionPromptsLogin(t *testing.T) {
	f := &fakeFeed{sendErr: feed.ErrUnauthenticated}
	m := ready(t, New(context.Background(), new(accountsMock), f))

	m, msg := enter(t, m, "hello")
	next, _ := m.Update(msg)
	m = next.(Model)

	assert.Nil(t, f.sendUser)
	assert.Contains(t, m.status, "/login")
}

func TestLoginResolvesUser(t *testing.T) {
	accounts := new(accountsMock)
	accounts.On("CreateEmailPasswordSession", mock.Anything, "a@b.c", "secret123").Return(nil, nil).Once()
	accounts.On("Get", mock.Anything).Return(&client.User{ID: "u1", Email: "a@b.c"}, nil).Once()

	m := ready(t, New(context.Background(), accounts, &fakeFeed{}))
	m, msg := enter(t, m, "/login a@b.c secret123")
	next, _ := m.Update(msg)
	m = next.(Model)

	require.NotNil(t, m.user)
	assert.Equal(t, "a@b.c", m.user.DisplayName)
	assert.Contains(t, m.View(), "logged in as a@b.c")
	accounts.AssertExpectations(t)
}

func TestLoginFailureKeepsAnonymous(t *testing.T) {
	accounts := new(accountsMock)
	accounts.On("CreateEmailPasswordSession", mock.Anything, "a@b.c", "nope").Return(nil, errors.New("invalid credentials")).Once()

	m := ready(t, New(context.Background(), accounts, &fakeFeed{}))
	m, msg := enter(t, m, "/login a@b.c nope")
	next, _ := m.Update(msg)
	m = next.(Model)

	assert.Nil(t, m.user)
	assert.Contains(t, m.status, "login failed")
	accounts.AssertExpectations(t)
}

func TestLogoutClearsUser(t *testing.T) {
	accounts := new(accountsMock)
	accounts.On("DeleteSession", mock.Anything, "current").Return(nil).Once()

	m := ready(t, New(context.Background(), accounts, &fakeFeed{}))
	m.user = &feed.User{ID: "u1"}
	m, msg := enter(t, m, "/logout")
	next, _ := m.Update(msg)
	m = next.(Model)

	assert.Nil(t, m.user)
	accounts.AssertExpectations(t)
}

func TestDetachAndHelp(t *testing.T) {
	f := &fakeFeed{composer: feed.Composer{File: client.NewInputFile("cat.png", []byte("x"))}}
	m := ready(t, New(context.Background(), new(accountsMock), f))
	assert.Contains(t, m.View(), "attachment: cat.png")

	m, _ = enter(t, m, "/detach")
	assert.Nil(t, f.composer.File)

	m, _ = enter(t, m, "/help")
	assert.Equal(t, helpText, m.status)
}

func TestRegisterDefaultsNameAndLogsIn(t *testing.T) {
	accounts := new(accountsMock)
	accounts.On("Create", mock.Anything, mock.AnythingOfType("string"), "ada@b.c", "secret123", "ada").Return(nil, nil).Once()
	accounts.On("CreateEmailPasswordSession", mock.Anything, "ada@b.c", "secret123").Return(nil, nil).Once()
	accounts.On("Get", mock.Anything).Return(&client.User{ID: "u1", Name: "ada"}, nil).Once()

	m := ready(t, New(context.Background(), accounts, &fakeFeed{}))
	m, msg := enter(t, m, "/register ada@b.c secret123")
	next, _ := m.Update(msg)
	m = next.(Model)

	require.NotNil(t, m.user)
	assert.Equal(t, "ada", m.user.DisplayName)
	accounts.AssertExpectations(t)
}
