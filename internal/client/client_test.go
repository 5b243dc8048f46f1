package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/v1/", "demo")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewValidatesEndpoint(t *testing.T) {
	_, err := New("", "p")
	assert.ErrorIs(t, err, ErrNoEndpoint)

	_, err = New("ftp://host/v1", "p")
	assert.Error(t, err)

	c, err := New("https://chat.example.com/v1/", "p")
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com/v1", c.Endpoint())
	assert.Equal(t, "p", c.Project())
}

func TestListDocumentsSendsQueries(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/databases/chat/collections/messages/documents", r.URL.Path)
		assert.Equal(t, []string{
			`{"method":"orderDesc","attribute":"createdAt"}`,
			`{"method":"limit","values":[100]}`,
		}, r.URL.Query()["queries[]"])
		assert.Equal(t, "demo", r.Header.Get("X-Project"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"total":1,"documents":[{"$id":"m1","$createdAt":"2025-01-01T00:00:00.000Z","text":"hi","senderId":"u1"}]}`)
	}))

	list, err := NewDatabases(c).ListDocuments(context.Background(), "chat", "messages", OrderDesc("createdAt"), Limit(100))
	require.NoError(t, err)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "m1", list.Documents[0].ID)

	var body struct {
		Text     string `json:"text"`
		SenderID string `json:"senderId"`
	}
	require.NoError(t, list.Documents[0].Decode(&body))
	assert.Equal(t, "hi", body.Text)
}

func TestCreateDocumentUsesSession(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req struct {
			DocumentID string         `json:"documentId"`
			Data       map[string]any `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "m1", req.DocumentID)
		assert.Contains(t, req.Data, "imageUrl")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"$id":"m1","text":"hi"}`)
	}))
	c.SetSession("tok")

	doc, err := NewDatabases(c).CreateDocument(context.Background(), "chat", "messages", "m1", map[string]any{"text": "hi", "imageUrl": nil})
	require.NoError(t, err)
	assert.Equal(t, "m1", doc.ID)
}

func TestErrorResponsesMapToError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/account" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"missing authorization"}`)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := NewAccount(c).Get(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Code)
	assert.Equal(t, "missing authorization", apiErr.Message)

	_, err = NewDatabases(c).ListDocuments(context.Background(), "d", "c")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Code)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestSessionLifecycle(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/account/sessions/email":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"$id":"s1","userId":"u1","secret":"tok"}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/account/sessions/current":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	account := NewAccount(c)

	session, err := account.CreateEmailPasswordSession(context.Background(), "a@b.c", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	assert.Equal(t, "tok", c.Session())

	require.NoError(t, account.DeleteSession(context.Background(), "current"))
	assert.Empty(t, c.Session())
}

func TestCreateFileMultipart(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/storage/buckets/images/files", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "f1", r.FormValue("fileId"))
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "cat.png", header.Filename)
		assert.Equal(t, "pixels", string(data))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"$id":"f1","bucketId":"images","name":"cat.png"}`)
	}))

	file, err := NewStorage(c).CreateFile(context.Background(), "images", "f1", NewInputFile("cat.png", []byte("pixels")))
	require.NoError(t, err)
	assert.Equal(t, "f1", file.ID)

	_, err = NewStorage(c).CreateFile(context.Background(), "images", "f2", nil)
	assert.Error(t, err)
}

func TestFileViewURL(t *testing.T) {
	c, err := New("https://chat.example.com/v1", "demo")
	require.NoError(t, err)
	s := NewStorage(c)

	u, err := s.FileViewURL("images", "f1")
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com/v1/storage/buckets/images/files/f1/view?project=demo", u)

	_, err = s.FileViewURL("images", "")
	assert.Error(t, err)
}

func TestRealtimeSubscribe(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/realtime", r.URL.Path)
		assert.Equal(t, []string{"databases.chat.collections.messages.documents"}, r.URL.Query()["channels[]"])
		assert.Equal(t, "demo", r.URL.Query().Get("project"))
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"events":["databases.chat.collections.messages.documents.m1.create"],"channels":["documents"],"timestamp":"t","payload":{"$id":"m1"}}`))
		// wait for the client to go away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(received)
				return
			}
		}
	}))

	events := make(chan RealtimeEvent, 2)
	unsubscribe, err := NewRealtime(c).Subscribe(context.Background(), []string{"databases.chat.collections.messages.documents"}, func(ev RealtimeEvent) {
		events <- ev
	}, func(err error) {
		t.Errorf("unexpected close: %v", err)
	})
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.True(t, strings.HasSuffix(ev.Events[0], ".create"))
		assert.JSONEq(t, `{"$id":"m1"}`, string(ev.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("no realtime event delivered")
	}

	unsubscribe()
	unsubscribe()
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not see the close")
	}
	c.mu.RLock()
	assert.Empty(t, c.subs)
	c.mu.RUnlock()
}

func TestRealtimeSubscribeValidation(t *testing.T) {
	c, err := New("http://127.0.0.1:1/v1", "demo")
	require.NoError(t, err)
	r := NewRealtime(c)

	_, err = r.Subscribe(context.Background(), nil, func(RealtimeEvent) {}, nil)
	assert.Error(t, err)
	_, err = r.Subscribe(context.Background(), []string{"documents"}, nil, nil)
	assert.Error(t, err)
	_, err = r.Subscribe(context.Background(), []string{"documents"}, func(RealtimeEvent) {}, nil)
	assert.Error(t, err)
}

func TestRealtimeSubscribeReportsLostConnection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		// drop the connection without a close frame
		_ = conn.Close()
	}))

	lost := make(chan error, 1)
	unsubscribe, err := NewRealtime(c).Subscribe(context.Background(), []string{"documents"}, func(RealtimeEvent) {}, func(err error) {
		lost <- err
	})
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case err := <-lost:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("lost connection not reported")
	}
	assert.Eventually(t, func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return len(c.subs) == 0
	}, time.Second, 10*time.Millisecond)
}
