package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
)

// Storage wraps the bucket endpoints.
type Storage struct {
	client *Client
}

// NewStorage constructs the service.
func NewStorage(c *Client) *Storage {
	return &Storage{client: c}
}

func filesPath(bucketID string) string {
	return "/storage/buckets/" + url.PathEscape(bucketID) + "/files"
}

// CreateFile uploads file under fileID.
func (s *Storage) CreateFile(ctx context.Context, bucketID, fileID string, file *InputFile) (*File, error) {
	if file == nil {
		return nil, errors.New("create file: no file given")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("fileId", fileID); err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	part, err := w.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	var out File
	if err := s.client.call(ctx, http.MethodPost, filesPath(bucketID), nil, &body, w.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FileViewURL builds the public URL serving the raw bytes of a file.
func (s *Storage) FileViewURL(bucketID, fileID string) (string, error) {
	if bucketID == "" || fileID == "" {
		return "", fmt.Errorf("file view url: bucket %q file %q", bucketID, fileID)
	}
	params := url.Values{}
	if s.client.project != "" {
		params.Set("project", s.client.project)
	}
	return s.client.url(filesPath(bucketID)+"/"+url.PathEscape(fileID)+"/view", params), nil
}

// DeleteFile removes a file.
func (s *Storage) DeleteFile(ctx context.Context, bucketID, fileID string) error {
	return s.client.callJSON(ctx, http.MethodDelete, filesPath(bucketID)+"/"+url.PathEscape(fileID), nil, nil, nil)
}
