package models

import "time"

// File is an object stored in a bucket.
type File struct {
	ID        string    `db:"id" json:"$id"`
	BucketID  string    `db:"bucket_id" json:"bucketId"`
	OwnerID   string    `db:"owner_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	MimeType  string    `db:"mime_type" json:"mimeType"`
	Size      int64     `db:"size_bytes" json:"sizeOriginal"`
	Content   []byte    `db:"content" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"$createdAt"`
}
