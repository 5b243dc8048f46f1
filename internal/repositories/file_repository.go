package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"public-chat/internal/models"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileExists   = errors.New("file already exists")
)

// FileRepository abstracts bucket object storage.
type FileRepository interface {
	CreateFile(ctx context.Context, file models.File) (models.File, error)
	GetFile(ctx context.Context, bucketID, fileID string) (models.File, error)
	DeleteFile(ctx context.Context, bucketID, fileID string) error
}

// FileRepo keeps file bytes in postgres.
type FileRepo struct {
	db *sqlx.DB
}

// NewFileRepo constructs a FileRepo.
func NewFileRepo(db *sqlx.DB) *FileRepo {
	return &FileRepo{db: db}
}

// CreateFile stores a file; ids are unique per bucket.
func (r *FileRepo) CreateFile(ctx context.Context, file models.File) (models.File, error) {
	var out models.File
	err := r.db.QueryRowxContext(ctx, `INSERT INTO files (bucket_id, id, owner_id, name, mime_type, size_bytes, content)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING bucket_id, id, owner_id, name, mime_type, size_bytes, created_at`,
		file.BucketID, file.ID, file.OwnerID, file.Name, file.MimeType, file.Size, file.Content).
		Scan(&out.BucketID, &out.ID, &out.OwnerID, &out.Name, &out.MimeType, &out.Size, &out.CreatedAt)
	if isUniqueViolation(err) {
		return models.File{}, ErrFileExists
	}
	return out, err
}

// GetFile fetches a file including its content.
func (r *FileRepo) GetFile(ctx context.Context, bucketID, fileID string) (models.File, error) {
	var file models.File
	err := r.db.GetContext(ctx, &file, `SELECT bucket_id, id, owner_id, name, mime_type, size_bytes, content, created_at FROM files WHERE bucket_id=$1 AND id=$2`, bucketID, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.File{}, ErrFileNotFound
	}
	return file, err
}

// DeleteFile removes a file.
func (r *FileRepo) DeleteFile(ctx context.Context, bucketID, fileID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE bucket_id=$1 AND id=$2`, bucketID, fileID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrFileNotFound
	}
	return nil
}
