package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchURLName(t *testing.T) {
	f := NewFetchURL()
	if f.Name() != "fetch_url" {
		t.Errorf("expected 'fetch_url', got %q", f.Name())
	}
}

func TestFetchURLExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><h1>Shipping Policy</h1><p>Orders ship within 2 days.</p></body></html>`))
	}))
	defer server.Close()

	f := NewFetchURL()
	args, _ := json.Marshal(map[string]string{"url": server.URL})
	result, err := f.Execute(context.Background(), args)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result, "Shipping Policy") {
		t.Errorf("expected 'Shipping Policy' in result, got %q", result)
	}
	if !strings.Contains(result, "Orders ship within 2 days") {
		t.Errorf("expected body text in result, got %q", result)
	}
}

func TestFetchURLMissingURL(t *testing.T) {
	f := NewFetchURL()
	args, _ := json.Marshal(map[string]string{})
	_, err := f.Execute(context.Background(), args)
	if err == nil {
		t.Fatal("expected error for missing URL")
	}
}

func TestFetchURLHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetchURL()
	args, _ := json.Marshal(map[string]string{"url": server.URL})
	_, err := f.Execute(context.Background(), args)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFetchURLTruncation(t *testing.T) {
	long := strings.Repeat("x", 60000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><p>" + long + "</p></body></html>"))
	}))
	defer server.Close()

	f := NewFetchURL()
	args, _ := json.Marshal(map[string]string{"url": server.URL})
	result, err := f.Execute(context.Background(), args)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result, "[Content truncated]") {
		t.Error("expected truncation marker in long result")
	}
}
