package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"public-chat/internal/client"
	"public-chat/internal/feed"
)

type DocumentStoreMock struct {
	mock.Mock
}

func (m *DocumentStoreMock) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...string) (*client.DocumentList, error) {
	args := m.Called(ctx, databaseID, collectionID, queries)
	var list *client.DocumentList
	if val := args.Get(0); val != nil {
		list = val.(*client.DocumentList)
	}
	return list, args.Error(1)
}

func (m *DocumentStoreMock) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (*client.Document, error) {
	args := m.Called(ctx, databaseID, collectionID, documentID, data)
	var doc *client.Document
	if val := args.Get(0); val != nil {
		doc = val.(*client.Document)
	}
	return doc, args.Error(1)
}

type ObjectStoreMock struct {
	mock.Mock
}

func (m *ObjectStoreMock) CreateFile(ctx context.Context, bucketID, fileID string, file *client.InputFile) (*client.File, error) {
	args := m.Called(ctx, bucketID, fileID, file)
	var out *client.File
	if val := args.Get(0); val != nil {
		out = val.(*client.File)
	}
	return out, args.Error(1)
}

func (m *ObjectStoreMock) FileViewURL(bucketID, fileID string) (string, error) {
	args := m.Called(bucketID, fileID)
	return args.String(0), args.Error(1)
}

func (m *ObjectStoreMock) DeleteFile(ctx context.Context, bucketID, fileID string) error {
	args := m.Called(ctx, bucketID, fileID)
	return args.Error(0)
}

// ChangeChannelMock records the callbacks passed to Subscribe so tests can push
// events and drop the connection.
type ChangeChannelMock struct {
	mock.Mock
	Handler func(client.RealtimeEvent)
	OnClose func(error)
}

func (m *ChangeChannelMock) Subscribe(ctx context.Context, channels []string, onEvent func(client.RealtimeEvent), onClose func(error)) (func(), error) {
	args := m.Called(ctx, channels)
	m.Handler = onEvent
	m.OnClose = onClose
	var unsubscribe func()
	if val := args.Get(0); val != nil {
		unsubscribe = val.(func())
	}
	return unsubscribe, args.Error(1)
}

// Push delivers ev to the subscribed handler.
func (m *ChangeChannelMock) Push(ev client.RealtimeEvent) {
	if m.Handler != nil {
		m.Handler(ev)
	}
}

// Lose simulates the connection dropping.
func (m *ChangeChannelMock) Lose(err error) {
	if m.OnClose != nil {
		m.OnClose(err)
	}
}

var _ feed.DocumentStore = (*DocumentStoreMock)(nil)
var _ feed.ObjectStore = (*ObjectStoreMock)(nil)
var _ feed.ChangeChannel = (*ChangeChannelMock)(nil)
