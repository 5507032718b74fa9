// Package rest implements the status-update API collaborator: a small HTTP
// client that persists delivery and read marks server-side. The realtime
// core invokes it fire-and-forget; only failures are logged.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the chat server's REST status-update endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a status-update client. baseURL is the API root, e.g.
// "https://api.murmur.im/v1"; token authenticates the local account.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// updateStatusRequest is the wire body of an UpdateStatus call. Zero IDs
// leave the corresponding mark untouched server-side.
type updateStatusRequest struct {
	RoomID                int64 `json:"room_id"`
	LastCommentReadID     int64 `json:"last_comment_read_id"`
	LastCommentReceivedID int64 `json:"last_comment_received_id"`
}

// UpdateStatus persists the read and/or delivered mark for a room.
func (c *Client) UpdateStatus(ctx context.Context, roomID, readCommentID, deliveredCommentID int64) error {
	body, err := json.Marshal(updateStatusRequest{
		RoomID:                roomID,
		LastCommentReadID:     readCommentID,
		LastCommentReceivedID: deliveredCommentID,
	})
	if err != nil {
		return fmt.Errorf("rest: marshal update status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/update_comment_status", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rest: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rest: update status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("rest: update status: unexpected status %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
