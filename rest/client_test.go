package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUpdateStatus(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotBody map[string]int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-abc")
	if err := c.UpdateStatus(context.Background(), 42, 100, 99); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	if gotPath != "/update_comment_status" {
		t.Errorf("expected path /update_comment_status, got %q", gotPath)
	}
	if gotAuth != "Bearer tok-abc" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected JSON content type, got %q", gotContentType)
	}
	want := map[string]int64{
		"room_id":                  42,
		"last_comment_read_id":     100,
		"last_comment_received_id": 99,
	}
	for k, v := range want {
		if gotBody[k] != v {
			t.Errorf("body field %q: expected %d, got %d", k, v, gotBody[k])
		}
	}
}

func TestUpdateStatusServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "room not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-abc")
	err := c.UpdateStatus(context.Background(), 42, 0, 99)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status code in error, got %q", err)
	}
	if !strings.Contains(err.Error(), "room not found") {
		t.Errorf("expected body snippet in error, got %q", err)
	}
}

func TestUpdateStatusCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, "tok-abc")
	if err := c.UpdateStatus(ctx, 42, 0, 99); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
