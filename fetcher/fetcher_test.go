package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hdb-resale/config"
	"hdb-resale/utils"
)

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "api"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "api", "RFP.csv"), []byte("Month\n2023-05\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFileFetcher(dir)

	res, err := f.Fetch(context.Background(), "api/RFP.csv")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res.OK || res.Status != http.StatusOK || res.Body != "Month\n2023-05\n" {
		t.Errorf("unexpected result: %+v", res)
	}

	res, err = f.Fetch(context.Background(), "api/missing.csv")
	if err != nil {
		t.Fatalf("Fetch missing: %v", err)
	}
	if res.OK || res.Status != http.StatusNotFound {
		t.Errorf("missing file: got %+v, want 404", res)
	}
}

func TestFileFetcherCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFileFetcher("").Fetch(ctx, "whatever.csv"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/RFP.csv":
			_, _ = w.Write([]byte("Month,Block\n"))
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	h := NewHTTPFetcher(srv.URL+"/pages", time.Second)

	res, err := h.Fetch(context.Background(), "../api/RFP.csv")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res.OK || res.Body != "Month,Block\n" {
		t.Errorf("unexpected result: %+v", res)
	}

	res, err = h.Fetch(context.Background(), "/missing.csv")
	if err != nil {
		t.Fatalf("Fetch missing: %v", err)
	}
	if res.OK || res.Status != http.StatusNotFound {
		t.Errorf("missing: got %+v, want 404", res)
	}
}

func TestHTTPFetcherUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewHTTPFetcher(url, time.Second).Fetch(context.Background(), "x.csv"); err == nil {
		t.Error("expected transport error for closed server")
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"http://h/pages", "../api/RFP.csv", "http://h/api/RFP.csv"},
		{"http://h/pages/", "data.csv", "http://h/pages/data.csv"},
		{"http://h/pages", "/root.csv", "http://h/root.csv"},
		{"http://h/", "https://other/x.csv", "https://other/x.csv"},
		{"", "relative.csv", "relative.csv"},
	}

	for _, tt := range tests {
		got, err := resolve(tt.base, tt.path)
		if err != nil {
			t.Errorf("resolve(%q, %q): %v", tt.base, tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("resolve(%q, %q) = %q; want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	log := utils.Discard()
	for mode, want := range map[string]string{
		"":        "*fetcher.FileFetcher",
		"file":    "*fetcher.FileFetcher",
		"HTTP":    "*fetcher.HTTPFetcher",
		"browser": "*fetcher.BrowserFetcher",
	} {
		f, err := New(&config.Config{FetchMode: mode}, log)
		if err != nil {
			t.Errorf("New(%q): %v", mode, err)
			continue
		}
		if got := fmt.Sprintf("%T", f); got != want {
			t.Errorf("New(%q) = %s; want %s", mode, got, want)
		}
	}

	if _, err := New(&config.Config{FetchMode: "ftp"}, log); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestBrowserFetcher(t *testing.T) {
	if os.Getenv("BROWSER_TESTS") == "" {
		t.Skip("set BROWSER_TESTS=1 to run the headless browser test")
	}
	if findChromeBinary() == "" {
		t.Skip("no Chrome/Chromium binary available")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/RFP.csv":
			_, _ = w.Write([]byte("Month,Block\n2023-05,1\n"))
		case "/":
			_, _ = w.Write([]byte("<html><body>listings</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	b := NewBrowserFetcher(srv.URL+"/", "", 30*time.Second, utils.Discard())
	res, err := b.Fetch(context.Background(), "api/RFP.csv")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res.OK || res.Body != "Month,Block\n2023-05,1\n" {
		t.Errorf("unexpected result: %+v", res)
	}
}
