// Package filesystem provides content-addressable storage for raw captured markup.
package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/normatrack/normatrack/internal/config"
	"github.com/normatrack/normatrack/internal/fingerprint"
)

// ErrInvalidRef is returned for references that are not a 64-char hex digest.
var ErrInvalidRef = errors.New("filesystem: invalid object reference")

// Archive stores raw documents under objects/<ref[:2]>/<ref>.html where ref is
// the SHA-256 of the raw bytes.
type Archive struct {
	root string
}

// NewArchive creates an archive rooted at dir. An empty dir means the
// configured objects directory.
func NewArchive(dir string) *Archive {
	if dir == "" {
		dir = config.GetObjectsDir()
	}
	return &Archive{root: dir}
}

// Root returns the archive directory.
func (a *Archive) Root() string { return a.root }

// Ref returns the reference raw would be stored under.
func Ref(raw string) string {
	return fingerprint.Of(raw).String()
}

// Path returns the storage path of ref. Only the lowercase form produced by
// Ref is accepted, so an object has exactly one path.
func (a *Archive) Path(ref string) (string, error) {
	if fp, err := fingerprint.Parse(ref); err != nil || fp.String() != ref {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(a.root, ref[:2], ref+".html"), nil
}

// Save writes raw to the archive and returns its reference and path. Saving
// content that is already archived does not rewrite it.
func (a *Archive) Save(raw string) (string, string, error) {
	ref := Ref(raw)
	path, err := a.Path(ref)
	if err != nil {
		return "", "", err
	}
	if fileExists(path) {
		return ref, path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+ref[:8]+"-*")
	if err != nil {
		return "", "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", "", err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", "", err
	}

	return ref, path, nil
}

// Read returns the archived content of ref.
func (a *Archive) Read(ref string) (string, error) {
	path, err := a.Path(ref)
	if err != nil {
		return "", err
	}
	return readFile(path)
}

// Verify reports whether ref exists and its content still hashes to ref.
func (a *Archive) Verify(ref string) (bool, error) {
	path, err := a.Path(ref)
	if err != nil {
		return false, err
	}
	return verifyFile(path, ref)
}

// WalkFunc is called with the reference and path of every archived object.
type WalkFunc func(ref, path string) error

// Walk visits every archived object.
func (a *Archive) Walk(fn WalkFunc) error {
	if _, err := os.Stat(a.root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ".html") {
			return nil
		}
		ref := strings.TrimSuffix(name, ".html")
		if fp, err := fingerprint.Parse(ref); err != nil || fp.String() != ref {
			return nil
		}
		return fn(ref, path)
	})
}

// readFile reads a file from disk and returns its contents as a string.
func readFile(path string) (string, error) {
	//nolint:gosec // G304: path is derived from a validated object reference
	bytes, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// fileExists reports whether the given path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// verifyFile ensures the file exists and its SHA-256 hash matches the expected hash.
func verifyFile(path, expectedHash string) (bool, error) {
	if !fileExists(path) {
		return false, nil
	}

	content, err := readFile(path)
	if err != nil {
		return false, err
	}

	return Ref(content) == expectedHash, nil
}
