package update

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Metadata
		wantErr bool
	}{
		{
			name:  "all fields",
			input: `{"jsVersion":"1.1.0","jsUrl":"https://cdn/main.jsbundle","version":"2.0.0","url":"https://cdn/app.apk"}`,
			want:  Metadata{JSVersion: "1.1.0", JSURL: "https://cdn/main.jsbundle", Version: "2.0.0", URL: "https://cdn/app.apk"},
		},
		{
			name:  "bundle only",
			input: `{"jsVersion":"1.1.0","jsUrl":"https://cdn/main.jsbundle"}`,
			want:  Metadata{JSVersion: "1.1.0", JSURL: "https://cdn/main.jsbundle"},
		},
		{
			name:  "numeric versions",
			input: `{"jsVersion": 3, "version": 1.5}`,
			want:  Metadata{JSVersion: "3", Version: "1.5"},
		},
		{
			name:  "null fields",
			input: `{"jsVersion": null, "url": null}`,
			want:  Metadata{},
		},
		{
			name:  "checksums",
			input: `{"jsSha256":"abc","sha256":"def"}`,
			want:  Metadata{JSSHA256: "abc", SHA256: "def"},
		},
		{
			name:  "unknown fields ignored",
			input: `{"jsVersion":"1","extra":{"a":1}}`,
			want:  Metadata{JSVersion: "1"},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace", input: "  \n", wantErr: true},
		{name: "malformed", input: `{"jsVersion":`, wantErr: true},
		{name: "array", input: `[]`, wantErr: true},
		{name: "html error page", input: `<html>oops</html>`, wantErr: true},
		{name: "bool version", input: `{"version":true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMetadata([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMetadata() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var perr *ParseError
				if !errors.As(err, &perr) {
					t.Errorf("expected *ParseError, got %T", err)
				}
				return
			}
			if *got != tt.want {
				t.Errorf("ParseMetadata() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestMetadataHas(t *testing.T) {
	var nilMeta *Metadata
	if nilMeta.HasBundle() || nilMeta.HasPackage() {
		t.Error("nil metadata should describe nothing")
	}

	md := &Metadata{JSVersion: "1.0", URL: "https://cdn/app.apk"}
	if md.HasBundle() {
		t.Error("bundle without jsUrl should not be available")
	}
	if md.HasPackage() {
		t.Error("package without version should not be available")
	}

	md = &Metadata{JSVersion: "1.0", JSURL: "u", Version: "2", URL: "v"}
	if !md.HasBundle() || !md.HasPackage() {
		t.Error("complete metadata should describe both artifacts")
	}
}

func TestHTTPFetcherFetch(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "appupdate/") {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsVersion":"1.2.0","jsUrl":"https://cdn/b"}`))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(nil, "test")
	md, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if md.JSVersion != "1.2.0" {
		t.Errorf("JSVersion = %s, want 1.2.0", md.JSVersion)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestHTTPFetcherFetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			check: func(t *testing.T, err error) {
				var perr *ParseError
				if !errors.As(err, &perr) {
					t.Errorf("expected *ParseError, got %v", err)
				}
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			check: func(t *testing.T, err error) {
				var perr *ParseError
				if !errors.As(err, &perr) {
					t.Errorf("expected *ParseError, got %v", err)
				}
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			check: func(t *testing.T, err error) {
				var serr *HTTPStatusError
				if !errors.As(err, &serr) || serr.Code != http.StatusInternalServerError {
					t.Errorf("expected HTTPStatusError 500, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewHTTPFetcher(nil, "test").Fetch(context.Background(), server.URL)
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestHTTPFetcherFetch_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTPFetcher(nil, "test").Fetch(context.Background(), url)
	var nerr *NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
}

func TestLoadLocalMetadata(t *testing.T) {
	fsys := fstest.MapFS{
		"metadata.android.json": &fstest.MapFile{Data: []byte(`{"jsVersion":"0.9.0"}`)},
		"broken.json":           &fstest.MapFile{Data: []byte(`{`)},
	}

	md, err := LoadLocalMetadata(fsys, "metadata.android.json")
	if err != nil {
		t.Fatalf("LoadLocalMetadata() error = %v", err)
	}
	if md.JSVersion != "0.9.0" {
		t.Errorf("JSVersion = %s, want 0.9.0", md.JSVersion)
	}

	if _, err := LoadLocalMetadata(fsys, "missing.json"); err == nil {
		t.Error("expected error for missing asset")
	}

	_, err = LoadLocalMetadata(fsys, "broken.json")
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Source != "broken.json" {
		t.Errorf("expected *ParseError from broken.json, got %v", err)
	}
}
