package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPageExtractor_UsesOpenGraphMeta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head>
			<title>Fallback Title</title>
			<meta property="og:title" content="Tech Summit 2025">
			<meta property="og:description" content="Two days of talks and workshops.">
		</head><body><p>body</p></body></html>`))
	}))
	defer srv.Close()

	p := NewPageExtractor(5*time.Second, "test-agent")
	meta, err := p.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if meta.Title != "Tech Summit 2025" {
		t.Errorf("unexpected title: %q", meta.Title)
	}
	if meta.Description != "Two days of talks and workshops." {
		t.Errorf("unexpected description: %q", meta.Description)
	}
}

func TestPageExtractor_FallsBackToReadableContent(t *testing.T) {
	body := strings.Repeat("The annual community festival returns with music, food and games. ", 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Community Festival</title></head><body><article><p>` + body + `</p></article></body></html>`))
	}))
	defer srv.Close()

	p := NewPageExtractor(5*time.Second, "test-agent")
	meta, err := p.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if meta.Description == "" {
		t.Errorf("expected readable-content fallback description")
	}
	if len(meta.Description) > maxDescriptionChars+3 {
		t.Errorf("description not truncated: %d chars", len(meta.Description))
	}
}

func TestPageExtractor_RejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	p := NewPageExtractor(5*time.Second, "test-agent")
	if _, err := p.Extract(context.Background(), srv.URL); err == nil {
		t.Errorf("expected error for non-HTML content")
	}
}
