package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// chunkSize is the read size used while streaming an artifact to disk.
// Cancellation is checked once per chunk.
const chunkSize = 4 * 1024

// Target is the fixed location of one artifact category, relative to the
// downloader base directory.
type Target struct {
	Dir  string
	File string
}

// DefaultTargets returns the artifact locations for platform.
func DefaultTargets(p Platform) map[Category]Target {
	return map[Category]Target{
		CategoryBundle:  {Dir: "bundle", File: p.BundleFileName()},
		CategoryPackage: {Dir: "package", File: p.PackageFileName()},
	}
}

// HTTPDownloader downloads artifacts over HTTP into per-category directories.
type HTTPDownloader struct {
	client    *http.Client
	baseDir   string
	targets   map[Category]Target
	userAgent string
}

// NewHTTPDownloader creates a downloader storing artifacts under baseDir.
// A nil client uses http.DefaultClient; artifacts can be large so no overall
// timeout is imposed, callers bound downloads through the context.
func NewHTTPDownloader(baseDir string, platform Platform, client *http.Client) *HTTPDownloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDownloader{
		client:    client,
		baseDir:   baseDir,
		targets:   DefaultTargets(platform),
		userAgent: fmt.Sprintf(userAgent, "downloader"),
	}
}

// Path returns the absolute location the artifact of category is stored at.
func (d *HTTPDownloader) Path(category Category) (string, error) {
	target, ok := d.targets[category]
	if !ok {
		return "", fmt.Errorf("unknown artifact category %q", category)
	}
	return filepath.Abs(filepath.Join(d.baseDir, target.Dir, target.File))
}

// Download streams url into the fixed file of category and returns its
// absolute path. The body goes to a temp file that is renamed into place only
// once complete and, when checksum is non-empty, only once its SHA-256
// matches. On any failure the existing target is left untouched.
func (d *HTTPDownloader) Download(ctx context.Context, url string, category Category, checksum string) (string, error) {
	dst, err := d.Path(category)
	if err != nil {
		return "", err
	}

	log.Debugf("starting %s download from %s", category, url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &NetworkError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", cancelled(ctx.Err())
		}
		return "", &NetworkError{URL: url, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	// expect 200 so an error page is never stored as the artifact
	if resp.StatusCode != http.StatusOK {
		return "", &HTTPStatusError{URL: url, Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", &IOError{Op: "create directory", Path: dir, Err: err}
	}

	out, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return "", &IOError{Op: "create", Path: dir, Err: err}
	}
	partName := out.Name()

	var success bool
	defer func() {
		if success {
			return
		}
		if cerr := out.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
			log.Warnf("error closing file %q: %v", partName, cerr)
		}
		if rerr := os.Remove(partName); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			log.Warnf("failed to remove partial download %q: %v", partName, rerr)
		}
	}()

	h := sha256.New()
	written, err := copyChunks(ctx, io.MultiWriter(out, h), resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			log.Infof("%s download from %s cancelled after %d bytes", category, url, written)
			return "", cancelled(ctx.Err())
		}
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			ioErr.Path = partName
			return "", ioErr
		}
		return "", &NetworkError{URL: url, Err: err}
	}

	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return "", &NetworkError{URL: url, Err: fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength)}
	}

	if checksum != "" {
		if err := matchChecksum(dst, checksum, h.Sum(nil)); err != nil {
			log.Warnf("discarding %s download from %s: %v", category, url, err)
			return "", err
		}
	}

	if err := out.Sync(); err != nil {
		return "", &IOError{Op: "sync", Path: partName, Err: err}
	}
	if err := out.Close(); err != nil {
		return "", &IOError{Op: "close", Path: partName, Err: err}
	}
	if err := os.Rename(partName, dst); err != nil {
		return "", &IOError{Op: "rename", Path: dst, Err: err}
	}
	success = true

	log.Infof("downloaded %s (%d bytes) to %s", category, written, dst)
	return dst, nil
}

// copyChunks copies src to dst chunkSize bytes at a time, stopping as soon as
// ctx is done. Write failures are returned as *IOError.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, &IOError{Op: "write", Err: werr}
			}
			if wn != n {
				return written, &IOError{Op: "write", Err: io.ErrShortWrite}
			}
		}
		if errors.Is(rerr, io.EOF) {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// VerifyChecksum verifies the file's SHA-256 against the hex digest checksum.
// An optional "sha256:" prefix is accepted.
func (d *HTTPDownloader) VerifyChecksum(file, checksum string) error {
	f, err := os.Open(file)
	if err != nil {
		return &IOError{Op: "open", Path: file, Err: err}
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return &IOError{Op: "read", Path: file, Err: err}
	}

	return matchChecksum(file, checksum, h.Sum(nil))
}

func matchChecksum(file, checksum string, sum []byte) error {
	expected := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(checksum, "sha256:")))
	actual := hex.EncodeToString(sum)
	if actual != expected {
		return &ChecksumError{Path: file, Expected: expected, Actual: actual}
	}
	return nil
}

// Remove deletes the stored artifact of category, if any.
func (d *HTTPDownloader) Remove(category Category) error {
	path, err := d.Path(category)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &IOError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Clean removes the stored artifacts of the given categories, or of all
// categories when none are given.
func (d *HTTPDownloader) Clean(categories ...Category) error {
	if len(categories) == 0 {
		categories = []Category{CategoryBundle, CategoryPackage}
	}

	var merr *multierror.Error
	for _, c := range categories {
		if err := d.Remove(c); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("failed to remove %s artifact: %w", c, err))
		}
	}
	return merr.ErrorOrNil()
}
