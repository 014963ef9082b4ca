// Package backend is the HTTP client for the remote command-interpretation
// service: the command endpoint, the interactive draft collection and
// send-draft endpoints, and the friends directory.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"voxdesk/internal/domain"
)

// ClientConfig configures the backend client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Logger  *slog.Logger
}

// Client talks to the backend over JSON/HTTP. The HTTP client carries no
// timeout: once dispatched, the engine always waits for a response or a
// transport failure, and never cancels an in-flight command.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{},
		logger:  cfg.Logger,
	}
}

type commandRequest struct {
	Command          string          `json:"command"`
	ConfirmationData json.RawMessage `json:"confirmation_data,omitempty"`
}

// Submit sends a command to the command endpoint and decodes the reply.
// A transport failure returns an error; the dispatcher converts it to the
// fixed plain-failure result.
func (c *Client) Submit(ctx context.Context, command string, confirmationData json.RawMessage) (*domain.CommandResult, error) {
	body := commandRequest{Command: command, ConfirmationData: confirmationData}

	var result domain.CommandResult
	if err := c.postJSON(ctx, "/api/command", body, &result); err != nil {
		return nil, err
	}

	c.logger.Debug("command reply",
		"action", result.Action,
		"success", result.Success,
	)
	return &result, nil
}

// CollectInteractiveDraft submits the interactive draft collection form
// and returns the backend's draft-shaped reply.
func (c *Client) CollectInteractiveDraft(ctx context.Context, req domain.InteractiveDraftRequest) (*domain.CommandResult, error) {
	var result domain.CommandResult
	if err := c.postJSON(ctx, "/api/interactive-draft", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendDraft attaches recipients to the current draft and sends it.
func (c *Client) SendDraft(ctx context.Context, recipients []string) (*domain.CommandResult, error) {
	body := map[string][]string{"recipients": recipients}
	var result domain.CommandResult
	if err := c.postJSON(ctx, "/api/send-draft", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DirectoryReply is the friends-resource response envelope.
type DirectoryReply struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ListFriends fetches the friends directory.
func (c *Client) ListFriends(ctx context.Context) ([]domain.Friend, error) {
	reply, err := c.doDirectory(ctx, http.MethodGet, "/api/friends", nil)
	if err != nil {
		return nil, err
	}
	var friends []domain.Friend
	if len(reply.Data) > 0 {
		if err := json.Unmarshal(reply.Data, &friends); err != nil {
			return nil, fmt.Errorf("decode friends list: %w", err)
		}
	}
	return friends, nil
}

// AddFriend creates a directory entry.
func (c *Client) AddFriend(ctx context.Context, f domain.Friend) (*DirectoryReply, error) {
	return c.doDirectory(ctx, http.MethodPost, "/api/friends", f)
}

// UpdateFriend updates a directory entry by ID.
func (c *Client) UpdateFriend(ctx context.Context, id string, f domain.Friend) (*DirectoryReply, error) {
	return c.doDirectory(ctx, http.MethodPut, "/api/friends/"+url.PathEscape(id), f)
}

// DeleteFriend removes a directory entry by ID.
func (c *Client) DeleteFriend(ctx context.Context, id string) (*DirectoryReply, error) {
	return c.doDirectory(ctx, http.MethodDelete, "/api/friends/"+url.PathEscape(id), nil)
}

// SearchFriends queries the directory.
func (c *Client) SearchFriends(ctx context.Context, query string) ([]domain.Friend, error) {
	reply, err := c.doDirectory(ctx, http.MethodGet, "/api/friends/search?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	var friends []domain.Friend
	if len(reply.Data) > 0 {
		if err := json.Unmarshal(reply.Data, &friends); err != nil {
			return nil, fmt.Errorf("decode friends search: %w", err)
		}
	}
	return friends, nil
}

func (c *Client) doDirectory(ctx context.Context, method, path string, body any) (*DirectoryReply, error) {
	var reply DirectoryReply
	if err := c.do(ctx, method, path, body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend error %s (status %d): %s", path, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode reply %s: %w", path, err)
	}
	return nil
}
