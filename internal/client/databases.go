package client

import (
	"context"
	"net/http"
	"net/url"
)

// Databases wraps the document endpoints.
type Databases struct {
	client *Client
}

// NewDatabases constructs the service.
func NewDatabases(c *Client) *Databases {
	return &Databases{client: c}
}

func documentsPath(databaseID, collectionID string) string {
	return "/databases/" + url.PathEscape(databaseID) + "/collections/" + url.PathEscape(collectionID) + "/documents"
}

// ListDocuments lists a collection. Queries are built with OrderDesc, OrderAsc and Limit.
func (d *Databases) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...string) (*DocumentList, error) {
	params := url.Values{}
	for _, q := range queries {
		params.Add("queries[]", q)
	}
	var list DocumentList
	if err := d.client.callJSON(ctx, http.MethodGet, documentsPath(databaseID, collectionID), params, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateDocument writes data under documentID.
func (d *Databases) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (*Document, error) {
	req := map[string]any{
		"documentId": documentID,
		"data":       data,
	}
	var doc Document
	if err := d.client.callJSON(ctx, http.MethodPost, documentsPath(databaseID, collectionID), nil, req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
