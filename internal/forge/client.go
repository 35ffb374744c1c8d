// Package forge talks to the Forgejo instance that hosts student git
// accounts for the Linux course.
package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	key        string
	httpClient *http.Client
}

func NewClient(baseURL, key string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type createUserRequest struct {
	Username           string `json:"username"`
	Email              string `json:"email"`
	Password           string `json:"password"`
	MustChangePassword bool   `json:"must_change_password"`
}

type editUserRequest struct {
	LoginName string `json:"login_name"`
	SourceID  int64  `json:"source_id"`
	Password  string `json:"password"`
}

// CreateUser registers a git account with the given password.
func (c *Client) CreateUser(ctx context.Context, username, email, password string) error {
	body := createUserRequest{
		Username:           username,
		Email:              email,
		Password:           password,
		MustChangePassword: false,
	}
	return c.do(ctx, http.MethodPost, "/api/v1/admin/users", body)
}

// ResetPassword overwrites the account's password.
func (c *Client) ResetPassword(ctx context.Context, username, password string) error {
	body := editUserRequest{LoginName: username, Password: password}
	return c.do(ctx, http.MethodPatch, "/api/v1/admin/users/"+username, body)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "token "+c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("forge %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
