package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// User is an account as returned by the backend.
type User struct {
	ID        string `json:"$id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"$createdAt"`
}

// Session is a login session. Secret is the bearer token for later calls.
type Session struct {
	ID     string `json:"$id"`
	UserID string `json:"userId"`
	Expire string `json:"expire"`
	Secret string `json:"secret"`
}

// Document is a stored document. Its user fields are kept raw; use Decode.
type Document struct {
	ID           string `json:"$id"`
	DatabaseID   string `json:"$databaseId"`
	CollectionID string `json:"$collectionId"`
	CreatedAt    string `json:"$createdAt"`
	UpdatedAt    string `json:"$updatedAt"`

	raw json.RawMessage
}

func (d *Document) UnmarshalJSON(b []byte) error {
	type meta Document
	var m meta
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*d = Document(m)
	d.raw = append(json.RawMessage(nil), b...)
	return nil
}

// Decode unmarshals the full document body into v.
func (d Document) Decode(v any) error {
	if len(d.raw) == 0 {
		return fmt.Errorf("document %q has no body", d.ID)
	}
	return json.Unmarshal(d.raw, v)
}

// NewDocument builds a Document from a raw JSON body. Mostly useful in tests.
func NewDocument(raw []byte) (Document, error) {
	var d Document
	err := json.Unmarshal(raw, &d)
	return d, err
}

// DocumentList is the result of ListDocuments.
type DocumentList struct {
	Total     int        `json:"total"`
	Documents []Document `json:"documents"`
}

// File is an uploaded object.
type File struct {
	ID           string `json:"$id"`
	BucketID     string `json:"bucketId"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	SizeOriginal int64  `json:"sizeOriginal"`
	CreatedAt    string `json:"$createdAt"`
}

// InputFile is a blob to upload. Data is kept in memory so a failed upload can be retried.
type InputFile struct {
	Name string
	Data []byte
}

// NewInputFile wraps in-memory bytes.
func NewInputFile(name string, data []byte) *InputFile {
	return &InputFile{Name: name, Data: data}
}

// InputFileFromPath reads a local file for upload.
func InputFileFromPath(path string) (*InputFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &InputFile{Name: filepath.Base(path), Data: data}, nil
}

// RealtimeEvent is one frame delivered on a realtime subscription.
type RealtimeEvent struct {
	Events    []string        `json:"events"`
	Channels  []string        `json:"channels"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}
