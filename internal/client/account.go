package client

import (
	"context"
	"net/http"
	"net/url"
)

// Account wraps the identity endpoints.
type Account struct {
	client *Client
}

// NewAccount constructs the service.
func NewAccount(c *Client) *Account {
	return &Account{client: c}
}

// Get returns the user owning the current session.
func (a *Account) Get(ctx context.Context) (*User, error) {
	var user User
	if err := a.client.callJSON(ctx, http.MethodGet, "/account", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create registers a new account.
func (a *Account) Create(ctx context.Context, userID, email, password, name string) (*User, error) {
	req := map[string]string{
		"userId":   userID,
		"email":    email,
		"password": password,
		"name":     name,
	}
	var user User
	if err := a.client.callJSON(ctx, http.MethodPost, "/account", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateEmailPasswordSession logs in and stores the session secret on the client.
func (a *Account) CreateEmailPasswordSession(ctx context.Context, email, password string) (*Session, error) {
	req := map[string]string{"email": email, "password": password}
	var session Session
	if err := a.client.callJSON(ctx, http.MethodPost, "/account/sessions/email", nil, req, &session); err != nil {
		return nil, err
	}
	a.client.SetSession(session.Secret)
	return &session, nil
}

// DeleteSession logs out. Pass "current" for the session in use.
func (a *Account) DeleteSession(ctx context.Context, sessionID string) error {
	if err := a.client.callJSON(ctx, http.MethodDelete, "/account/sessions/"+url.PathEscape(sessionID), nil, nil, nil); err != nil {
		return err
	}
	if sessionID == "current" {
		a.client.SetSession("")
	}
	return nil
}
