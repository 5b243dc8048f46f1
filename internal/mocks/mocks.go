package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"public-chat/internal/models"
	"public-chat/internal/realtime"
	"public-chat/internal/repositories"
)

var (
	_ repositories.DocumentRepository = (*DocumentRepositoryMock)(nil)
	_ repositories.AccountRepository  = (*AccountRepositoryMock)(nil)
	_ repositories.FileRepository     = (*FileRepositoryMock)(nil)
	_ realtime.Bus                    = (*BusMock)(nil)
)

type DocumentRepositoryMock struct {
	mock.Mock
}

func (m *DocumentRepositoryMock) CreateDocument(ctx context.Context, doc models.Document) (models.Document, error) {
	args := m.Called(ctx, doc)
	return args.Get(0).(models.Document), args.Error(1)
}

func (m *DocumentRepositoryMock) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (models.Document, error) {
	args := m.Called(ctx, databaseID, collectionID, documentID)
	return args.Get(0).(models.Document), args.Error(1)
}

func (m *DocumentRepositoryMock) ListDocuments(ctx context.Context, databaseID, collectionID string, opts repositories.ListOptions) ([]models.Document, error) {
	args := m.Called(ctx, databaseID, collectionID, opts)
	var docs []models.Document
	if val := args.Get(0); val != nil {
		docs = val.([]models.Document)
	}
	return docs, args.Error(1)
}

type AccountRepositoryMock struct {
	mock.Mock
}

func (m *AccountRepositoryMock) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *AccountRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *AccountRepositoryMock) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *AccountRepositoryMock) CreateSession(ctx context.Context, session models.Session) (models.Session, error) {
	args := m.Called(ctx, session)
	return args.Get(0).(models.Session), args.Error(1)
}

func (m *AccountRepositoryMock) SessionActive(ctx context.Context, sessionID, userID string) (bool, error) {
	args := m.Called(ctx, sessionID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *AccountRepositoryMock) DeleteSession(ctx context.Context, sessionID, userID string) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

type FileRepositoryMock struct {
	mock.Mock
}

func (m *FileRepositoryMock) CreateFile(ctx context.Context, file models.File) (models.File, error) {
	args := m.Called(ctx, file)
	return args.Get(0).(models.File), args.Error(1)
}

func (m *FileRepositoryMock) GetFile(ctx context.Context, bucketID, fileID string) (models.File, error) {
	args := m.Called(ctx, bucketID, fileID)
	return args.Get(0).(models.File), args.Error(1)
}

func (m *FileRepositoryMock) DeleteFile(ctx context.Context, bucketID, fileID string) error {
	args := m.Called(ctx, bucketID, fileID)
	return args.Error(0)
}

type BusMock struct {
	mock.Mock
}

func (m *BusMock) Publish(ctx context.Context, ev models.RealtimeEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *BusMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
