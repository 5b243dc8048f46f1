package repositories

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"public-chat/internal/db"
	"public-chat/internal/models"
)

var (
	testDB    *sqlx.DB
	testDSN   string
	testMongo *mongo.Database
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("chatd"),
		postgres.WithUsername("chatd"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("postgres container unavailable, skipping sql tests: %v", err)
	} else {
		testDSN, err = pgContainer.ConnectionString(ctx, "sslmode=disable", "application_name=test")
		if err != nil {
			log.Fatalf("failed to get connection string: %v", err)
		}
		testDB, err = db.Connect(testDSN)
		if err != nil {
			log.Fatalf("failed to connect db: %v", err)
		}
	}

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		log.Printf("mongo container unavailable, skipping mongo tests: %v", err)
	} else {
		uri, err := mongoContainer.ConnectionString(ctx)
		if err != nil {
			log.Fatalf("failed to get mongo uri: %v", err)
		}
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			log.Fatalf("failed to connect mongo: %v", err)
		}
		testMongo = client.Database("chatd")
	}

	code := m.Run()

	if testDB != nil {
		testDB.Close()
	}
	if pgContainer != nil {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate postgres container: %v", err)
		}
	}
	if testMongo != nil {
		_ = testMongo.Client().Disconnect(ctx)
	}
	if mongoContainer != nil {
		if err := mongoContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate mongo container: %v", err)
		}
	}
	os.Exit(code)
}

func requireSQL(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres container not available")
	}
	t.Cleanup(func() {
		_, err := testDB.ExecContext(context.Background(), `TRUNCATE TABLE documents, files, sessions, users`)
		require.NoError(t, err)
	})
}

func requireMongo(t *testing.T) *MongoDocumentRepo {
	t.Helper()
	if testMongo == nil {
		t.Skip("mongo container not available")
	}
	repo := NewMongoDocumentRepo(testMongo)
	require.NoError(t, repo.EnsureIndexes(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, testMongo.Collection("documents").Drop(context.Background()))
	})
	return repo
}

// seedMessages stores five messages whose createdAt attribute runs opposite to
// their insertion order, so ordering by the attribute and by $createdAt differ.
func seedMessages(t *testing.T, repo DocumentRepository) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		_, err := repo.CreateDocument(context.Background(), models.Document{
			ID:           fmt.Sprintf("m%d", i),
			DatabaseID:   "chat",
			CollectionID: "messages",
			Data: map[string]any{
				"senderId":  "u1",
				"text":      fmt.Sprintf("message %d", i),
				"createdAt": base.Add(time.Duration(6-i) * time.Second).Format(models.TimestampLayout),
			},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	// another collection must not leak into listings
	_, err := repo.CreateDocument(context.Background(), models.Document{
		ID: "m1", DatabaseID: "chat", CollectionID: "other",
		Data: map[string]any{"createdAt": base.Add(time.Hour).Format(models.TimestampLayout)},
	})
	require.NoError(t, err)
}

func documentIDs(docs []models.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func assertListOrdering(t *testing.T, repo DocumentRepository) {
	t.Helper()
	ctx := context.Background()
	seedMessages(t, repo)

	newest, err := repo.ListDocuments(ctx, "chat", "messages", ListOptions{OrderBy: "createdAt", Desc: true, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, documentIDs(newest))

	oldest, err := repo.ListDocuments(ctx, "chat", "messages", ListOptions{OrderBy: "createdAt", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"m5", "m4"}, documentIDs(oldest))

	bySystem, err := repo.ListDocuments(ctx, "chat", "messages", ListOptions{OrderBy: "$createdAt", Desc: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"m5", "m4", "m3", "m2", "m1"}, documentIDs(bySystem))
	assert.Equal(t, "message 5", bySystem[0].Data["text"])
}

func assertDuplicateRejected(t *testing.T, repo DocumentRepository) {
	t.Helper()
	ctx := context.Background()
	doc := models.Document{ID: "m1", DatabaseID: "chat", CollectionID: "messages", Data: map[string]any{"text": "hi"}}

	_, err := repo.CreateDocument(ctx, doc)
	require.NoError(t, err)
	_, err = repo.CreateDocument(ctx, doc)
	assert.ErrorIs(t, err, ErrDocumentExists)

	doc.CollectionID = "archive"
	_, err = repo.CreateDocument(ctx, doc)
	assert.NoError(t, err)

	_, err = repo.GetDocument(ctx, "chat", "messages", "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func assertCreatedAtKept(t *testing.T, repo DocumentRepository) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2025, 3, 4, 5, 6, 7, 891_234_567, time.UTC)

	created, err := repo.CreateDocument(ctx, models.Document{
		ID: "m1", DatabaseID: "chat", CollectionID: "messages",
		Data: map[string]any{"text": "hi"}, CreatedAt: at, UpdatedAt: at,
	})
	require.NoError(t, err)
	want := at.Truncate(time.Millisecond)
	assert.True(t, want.Equal(created.CreatedAt), "created %s", created.CreatedAt)

	got, err := repo.GetDocument(ctx, "chat", "messages", "m1")
	require.NoError(t, err)
	assert.True(t, want.Equal(got.CreatedAt), "stored %s", got.CreatedAt)
	assert.True(t, want.Equal(got.UpdatedAt), "stored %s", got.UpdatedAt)
	assert.Equal(t, "hi", got.Data["text"])
}

func TestConnectMigrationsAreIdempotent(t *testing.T) {
	requireSQL(t)

	again, err := db.Connect(testDSN)
	require.NoError(t, err)
	defer again.Close()

	var tables []string
	require.NoError(t, again.Select(&tables, `SELECT table_name FROM information_schema.tables
        WHERE table_schema='public' ORDER BY table_name`))
	assert.Equal(t, []string{"documents", "files", "sessions", "users"}, tables)
}

func TestDocumentRepoListDocumentsOrdering(t *testing.T) {
	requireSQL(t)
	assertListOrdering(t, NewDocumentRepo(testDB))
}

func TestDocumentRepoCreateDuplicate(t *testing.T) {
	requireSQL(t)
	assertDuplicateRejected(t, NewDocumentRepo(testDB))
}

func TestDocumentRepoKeepsCreatedAt(t *testing.T) {
	requireSQL(t)
	assertCreatedAtKept(t, NewDocumentRepo(testDB))
}

func TestMongoDocumentRepoListDocumentsOrdering(t *testing.T) {
	assertListOrdering(t, requireMongo(t))
}

func TestMongoDocumentRepoCreateDuplicate(t *testing.T) {
	assertDuplicateRejected(t, requireMongo(t))
}

func TestMongoDocumentRepoKeepsCreatedAt(t *testing.T) {
	assertCreatedAtKept(t, requireMongo(t))
}

func TestAccountRepoUsersAndSessions(t *testing.T) {
	requireSQL(t)
	ctx := context.Background()
	repo := NewAccountRepo(testDB)

	user, err := repo.CreateUser(ctx, models.User{ID: "u1", Email: "ada@example.com", Name: "Ada", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	_, err = repo.CreateUser(ctx, models.User{ID: "u2", Email: "ada@example.com", Name: "Other", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	byEmail, err := repo.GetUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)
	_, err = repo.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.CreateSession(ctx, models.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	_, err = repo.CreateSession(ctx, models.Session{ID: "s2", UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)

	active, err := repo.SessionActive(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.True(t, active)
	active, err = repo.SessionActive(ctx, "s2", "u1")
	require.NoError(t, err)
	assert.False(t, active, "expired")
	active, err = repo.SessionActive(ctx, "s1", "u2")
	require.NoError(t, err)
	assert.False(t, active, "other user")

	require.NoError(t, repo.DeleteSession(ctx, "s1", "u1"))
	assert.ErrorIs(t, repo.DeleteSession(ctx, "s1", "u1"), ErrSessionNotFound)
}

func TestFileRepoLifecycle(t *testing.T) {
	requireSQL(t)
	ctx := context.Background()
	repo := NewFileRepo(testDB)
	file := models.File{ID: "f1", BucketID: "images", OwnerID: "u1", Name: "cat.png", MimeType: "image/png", Size: 3, Content: []byte{1, 2, 3}}

	created, err := repo.CreateFile(ctx, file)
	require.NoError(t, err)
	assert.Nil(t, created.Content)
	_, err = repo.CreateFile(ctx, file)
	assert.ErrorIs(t, err, ErrFileExists)

	got, err := repo.GetFile(ctx, "images", "f1")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got.Content)
	assert.Equal(t, "u1", got.OwnerID)

	require.NoError(t, repo.DeleteFile(ctx, "images", "f1"))
	assert.ErrorIs(t, repo.DeleteFile(ctx, "images", "f1"), ErrFileNotFound)
	_, err = repo.GetFile(ctx, "images", "f1")
	assert.ErrorIs(t, err, ErrFileNotFound)
}
