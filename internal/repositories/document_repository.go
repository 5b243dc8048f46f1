package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"public-chat/internal/models"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentExists   = errors.New("document already exists")
)

// ListOptions narrows a document listing. OrderBy names a data attribute or one of
// the system attributes $id, $createdAt, $updatedAt.
type ListOptions struct {
	OrderBy string
	Desc    bool
	Limit   int
}

// DocumentRepository abstracts document persistence.
type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc models.Document) (models.Document, error)
	GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (models.Document, error)
	ListDocuments(ctx context.Context, databaseID, collectionID string, opts ListOptions) ([]models.Document, error)
}

// DocumentRepo stores documents as JSONB rows.
type DocumentRepo struct {
	db *sqlx.DB
}

// NewDocumentRepo constructs a DocumentRepo.
func NewDocumentRepo(db *sqlx.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

type documentRow struct {
	ID           string    `db:"id"`
	DatabaseID   string    `db:"database_id"`
	CollectionID string    `db:"collection_id"`
	Data         []byte    `db:"data"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r documentRow) model() (models.Document, error) {
	doc := models.Document{
		ID:           r.ID,
		DatabaseID:   r.DatabaseID,
		CollectionID: r.CollectionID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Data, &doc.Data); err != nil {
		return models.Document{}, fmt.Errorf("decode document %s: %w", r.ID, err)
	}
	return doc, nil
}

const documentColumns = `id, database_id, collection_id, data, created_at, updated_at`

// stamped returns the document's creation and update times at millisecond
// precision, filling in now for zero values.
func stamped(doc models.Document) (time.Time, time.Time) {
	created := doc.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	created = created.UTC().Truncate(time.Millisecond)
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	return created, updated.UTC().Truncate(time.Millisecond)
}

// CreateDocument inserts a document; the id must be unique in its collection.
func (r *DocumentRepo) CreateDocument(ctx context.Context, doc models.Document) (models.Document, error) {
	data, err := json.Marshal(doc.Data)
	if err != nil {
		return models.Document{}, fmt.Errorf("encode document: %w", err)
	}

	created, updated := stamped(doc)
	var row documentRow
	err = r.db.QueryRowxContext(ctx, `INSERT INTO documents (database_id, collection_id, id, data, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+documentColumns,
		doc.DatabaseID, doc.CollectionID, doc.ID, data, created, updated).StructScan(&row)
	if isUniqueViolation(err) {
		return models.Document{}, ErrDocumentExists
	}
	if err != nil {
		return models.Document{}, err
	}
	return row.model()
}

// GetDocument fetches one document.
func (r *DocumentRepo) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (models.Document, error) {
	var row documentRow
	err := r.db.GetContext(ctx, &row, `SELECT `+documentColumns+` FROM documents WHERE database_id=$1 AND collection_id=$2 AND id=$3`,
		databaseID, collectionID, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, ErrDocumentNotFound
	}
	if err != nil {
		return models.Document{}, err
	}
	return row.model()
}

// ListDocuments returns documents of one collection in the requested order.
func (r *DocumentRepo) ListDocuments(ctx context.Context, databaseID, collectionID string, opts ListOptions) ([]models.Document, error) {
	args := []any{databaseID, collectionID, opts.Limit}
	order := systemColumn(opts.OrderBy)
	if order == "" {
		order = "data->>($4::text)"
		args = append(args, opts.OrderBy)
	}
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM documents
        WHERE database_id=$1 AND collection_id=$2
        ORDER BY %s %s, created_at %s
        LIMIT $3`, documentColumns, order, dir, dir)

	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.model()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func systemColumn(attribute string) string {
	switch attribute {
	case "", "$createdAt":
		return "created_at"
	case "$updatedAt":
		return "updated_at"
	case "$id":
		return "id"
	default:
		return ""
	}
}
