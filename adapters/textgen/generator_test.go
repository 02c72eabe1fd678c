package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gimmefy/core"
)

func TestHTTPGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": req.Prompt + " And then some."})
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL, time.Second)
	out, err := g.Generate(context.Background(), "Hello there!")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Hello there! And then some." {
		t.Fatalf("got %q", out)
	}
}

func TestHTTPGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL, time.Second)
	if _, err := g.Generate(context.Background(), "seed"); !errors.Is(err, core.ErrGeneration) {
		t.Fatalf("want generation error, got %v", err)
	}
}

func TestHTTPGenerateBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL, time.Second)
	if _, err := g.Generate(context.Background(), "seed"); !errors.Is(err, core.ErrGeneration) {
		t.Fatalf("want generation error, got %v", err)
	}
}

func TestStatic(t *testing.T) {
	out, err := Static{}.Generate(context.Background(), "seed phrase")
	if err != nil || out != "seed phrase" {
		t.Fatalf("got %q err %v", out, err)
	}
}
