package syncer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPClient_GetSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("path = %q, want /api/status", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"agents":[{"id":"1","name":"scout","status":"active"}],"lastUpdate":"2025-06-01T12:00:00Z"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL + "/")
	snap, err := client.GetSnapshot(context.Background())
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if len(snap.Agents) != 1 || snap.Agents[0].Name != "scout" {
		t.Errorf("agents = %+v", snap.Agents)
	}
	// Absent collections decode as empty, never nil.
	if snap.Tasks == nil || snap.Activities == nil {
		t.Error("snapshot not normalized")
	}
}

func TestHTTPClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Failed to fetch agent status"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	_, err := client.GetSnapshot(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unexpected status 500") {
		t.Errorf("error = %v, want unexpected status", err)
	}
}

func TestHTTPClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"agents": [broken`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	if _, err := client.GetSnapshot(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func TestHTTPClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewHTTPClient(srv.URL)
	if _, err := client.GetSnapshot(context.Background()); err == nil {
		t.Error("expected connection error")
	}
}
