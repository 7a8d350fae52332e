package update

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	userAgent = "appupdate/%s"

	// maxMetadataSize bounds the metadata body read into memory.
	maxMetadataSize = 1 << 20
)

// Metadata describes the currently published bundle and package.
// Empty fields disable the corresponding update path.
type Metadata struct {
	JSVersion string `json:"jsVersion,omitempty" yaml:"jsVersion,omitempty" toml:"jsVersion,omitempty"`
	JSURL     string `json:"jsUrl,omitempty" yaml:"jsUrl,omitempty" toml:"jsUrl,omitempty"`
	JSSHA256  string `json:"jsSha256,omitempty" yaml:"jsSha256,omitempty" toml:"jsSha256,omitempty"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty"`
	SHA256    string `json:"sha256,omitempty" yaml:"sha256,omitempty" toml:"sha256,omitempty"`
}

// HasBundle reports whether the metadata describes a downloadable bundle.
func (m *Metadata) HasBundle() bool {
	return m != nil && m.JSVersion != "" && m.JSURL != ""
}

// HasPackage reports whether the metadata describes a downloadable package.
func (m *Metadata) HasPackage() bool {
	return m != nil && m.Version != "" && m.URL != ""
}

// rawMetadata accepts versions published as JSON numbers as well as strings.
type rawMetadata struct {
	JSVersion looseString `json:"jsVersion"`
	JSURL     looseString `json:"jsUrl"`
	JSSHA256  looseString `json:"jsSha256"`
	Version   looseString `json:"version"`
	URL       looseString `json:"url"`
	SHA256    looseString `json:"sha256"`
}

type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(strings.TrimSpace(v))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*s = looseString(n.String())
		return nil
	}
}

// ParseMetadata decodes a metadata document. Empty payloads and anything
// other than a JSON object fail with *ParseError.
func ParseMetadata(data []byte) (*Metadata, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ParseError{Err: errors.New("empty metadata")}
	}
	if trimmed[0] != '{' {
		return nil, &ParseError{Err: errors.New("metadata is not a JSON object")}
	}

	var raw rawMetadata
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &ParseError{Err: err}
	}

	return &Metadata{
		JSVersion: string(raw.JSVersion),
		JSURL:     string(raw.JSURL),
		JSSHA256:  string(raw.JSSHA256),
		Version:   string(raw.Version),
		URL:       string(raw.URL),
		SHA256:    string(raw.SHA256),
	}, nil
}

// LoadLocalMetadata reads the metadata document packaged with the application.
func LoadLocalMetadata(fsys fs.FS, name string) (*Metadata, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read packaged metadata %s: %w", name, err)
	}

	md, err := ParseMetadata(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Source = name
		}
		return nil, err
	}
	return md, nil
}

// HTTPFetcher fetches metadata over HTTP. It performs exactly one request per
// call and neither retries nor caches.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher. A nil client gets a default one with a
// 30 second timeout.
func NewHTTPFetcher(client *http.Client, appVersion string) *HTTPFetcher {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &HTTPFetcher{
		client:    client,
		userAgent: fmt.Sprintf(userAgent, appVersion),
	}
}

// Fetch retrieves and parses the metadata document at url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Metadata, error) {
	log.Debugf("fetching update metadata from %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{URL: url, Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataSize+1))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	if len(data) > maxMetadataSize {
		return nil, &ParseError{Source: url, Err: fmt.Errorf("metadata larger than %d bytes", maxMetadataSize)}
	}

	md, err := ParseMetadata(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Source = url
		}
		return nil, err
	}
	return md, nil
}
