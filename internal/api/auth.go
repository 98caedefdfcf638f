package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

type emailRequest struct {
	Email string `json:"email"`
}

// Login opens a backend session for email. Any failure is reported as
// KindAuth.
func (c *Client) Login(ctx context.Context, email string) (*LoginResponse, error) {
	const op = "login"
	if err := requireIdentity(op, email); err != nil {
		return nil, err
	}
	data, err := c.doJSON(ctx, op, http.MethodPost, "/auth/login", nil, emailRequest{Email: email})
	if err != nil {
		return nil, asAuth(err)
	}
	var out LoginResponse
	// the payload is opaque; a body we cannot read is still a success
	_ = json.Unmarshal(data, &out)
	return &out, nil
}

// Logout ends the backend session for email.
func (c *Client) Logout(ctx context.Context, email string) error {
	const op = "logout"
	if err := requireIdentity(op, email); err != nil {
		return err
	}
	_, err := c.doJSON(ctx, op, http.MethodPost, "/auth/logout", nil, emailRequest{Email: email})
	return asAuth(err)
}

func asAuth(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind != KindValidation {
		cp := *apiErr
		cp.Kind = KindAuth
		return &cp
	}
	return err
}
