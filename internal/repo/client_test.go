package repo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bindery/internal/config"
)

func newTestClient(baseURL string) *Client {
	cfg := config.Default()
	cfg.Repository.BaseURL = baseURL
	cfg.Repository.Token = "test-token"
	cfg.Repository.CollectionID = 7
	return NewClient(&cfg)
}

func writeArchiveFixture(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "package.zip")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestSubmitPackageContract(t *testing.T) {
	archive := writeArchiveFixture(t, "zip bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/collections/7/package" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token test-token" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/zip" {
			t.Errorf("content type = %q", got)
		}
		if r.ContentLength != int64(len("zip bytes")) {
			t.Errorf("content length = %d", r.ContentLength)
		}
		w.Header().Set("Location", "https://repo.example.edu/items/99")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 99, "handle": "1234/99"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Collections(7).SubmitPackage(context.Background(), archive)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Location != "https://repo.example.edu/items/99" {
		t.Fatalf("location = %q", result.Location)
	}
	if got, ok := result.Body["handle"].(string); !ok || got != "1234/99" {
		t.Fatalf("body = %v", result.Body)
	}
}

func TestSubmitPackageRejectionIncludesSnippet(t *testing.T) {
	archive := writeArchiveFixture(t, "zip bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("manifest.json is missing a title"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Collections(7).SubmitPackage(context.Background(), archive)
	if !IsRejected(err) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "missing a title") {
		t.Fatalf("rejection lost response detail: %v", err)
	}
}

func TestSubmitPackageConnectionRefused(t *testing.T) {
	archive := writeArchiveFixture(t, "zip bytes")

	client := newTestClient("http://127.0.0.1:1")
	_, err := client.Collections(7).SubmitPackage(context.Background(), archive)
	if !IsConnectivity(err) {
		t.Fatalf("expected connectivity failure, got %v", err)
	}
}

func TestSubmitPackageMissingArchive(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	_, err := client.Collections(7).SubmitPackage(context.Background(), filepath.Join(t.TempDir(), "absent.zip"))
	if !IsLocalIO(err) {
		t.Fatalf("expected local i/o failure, got %v", err)
	}
}

func TestSubmitPackageMalformedResponseBody(t *testing.T) {
	archive := writeArchiveFixture(t, "zip bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Collections(7).SubmitPackage(context.Background(), archive)
	if !IsRejected(err) {
		t.Fatalf("expected rejection for undecodable body, got %v", err)
	}
}

func TestPingClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"ok", http.StatusOK, func(err error) bool { return err == nil }},
		{"unauthorized", http.StatusUnauthorized, IsRejected},
		{"forbidden", http.StatusForbidden, IsRejected},
		{"server error", http.StatusBadGateway, IsConnectivity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			err := newTestClient(server.URL).Ping(context.Background())
			if !tc.check(err) {
				t.Fatalf("status %d: unexpected classification: %v", tc.status, err)
			}
		})
	}
}

func TestPingUnreachable(t *testing.T) {
	err := newTestClient("http://127.0.0.1:1").Ping(context.Background())
	if !IsConnectivity(err) {
		t.Fatalf("expected connectivity failure, got %v", err)
	}
}

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(ErrLocalIO, "open package archive", cause)
	if !IsLocalIO(err) {
		t.Fatalf("marker lost: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
	if ClassifyFailure(err) != FailureLocalIO {
		t.Fatalf("kind = %v", ClassifyFailure(err))
	}
}

func TestClassifyFailureUnknown(t *testing.T) {
	if got := ClassifyFailure(errors.New("mystery")); got != FailureUnknown {
		t.Fatalf("kind = %v", got)
	}
}

func TestParseFailureKind(t *testing.T) {
	if kind, ok := ParseFailureKind("  Rejected "); !ok || kind != FailureRejected {
		t.Fatalf("parse = %v %v", kind, ok)
	}
	if _, ok := ParseFailureKind("bogus"); ok {
		t.Fatal("bogus kind accepted")
	}
	if kind, ok := ParseFailureKind("unknown"); !ok || kind != FailureUnknown {
		t.Fatalf("parse unknown = %v %v", kind, ok)
	}
}
