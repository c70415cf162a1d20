package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/normatrack/normatrack/internal/config"
)

const page = "<html><body><p>Art. 1: Texto A</p></body></html>"

func TestSaveReadAndVerify(t *testing.T) {
	tmp := t.TempDir()
	archive := NewArchive(tmp)

	ref, path, err := archive.Save(page)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if len(ref) != 64 {
		t.Fatalf("expected 64-char ref, got %q", ref)
	}
	if want := filepath.Join(tmp, ref[:2], ref+".html"); path != want {
		t.Fatalf("expected path %s, got %s", want, path)
	}

	content, err := archive.Read(ref)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if content != page {
		t.Fatalf("unexpected content %q", content)
	}

	ok, err := archive.Verify(ref)
	if err != nil || !ok {
		t.Fatalf("Verify expected true, got %v (%v)", ok, err)
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	archive := NewArchive(t.TempDir())

	ref1, path1, err := archive.Save(page)
	if err != nil {
		t.Fatalf("first Save error: %v", err)
	}
	ref2, path2, err := archive.Save(page)
	if err != nil {
		t.Fatalf("second Save error: %v", err)
	}
	if ref1 != ref2 || path1 != path2 {
		t.Fatalf("expected identical refs and paths")
	}

	entries, err := os.ReadDir(filepath.Dir(path1))
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single object file, got %d", len(entries))
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	archive := NewArchive(t.TempDir())
	ref, path, err := archive.Save(page)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := os.WriteFile(path, []byte("tampered"), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	ok, err := archive.Verify(ref)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected Verify to fail for modified content")
	}

	missing := strings.Repeat("0", 64)
	ok, err = archive.Verify(missing)
	if err != nil || ok {
		t.Fatalf("expected false for missing object, got %v (%v)", ok, err)
	}
}

func TestInvalidRefRejected(t *testing.T) {
	archive := NewArchive(t.TempDir())
	for _, ref := range []string{"", "../../etc/passwd", "abc"} {
		if _, err := archive.Read(ref); !errors.Is(err, ErrInvalidRef) {
			t.Fatalf("expected ErrInvalidRef for %q, got %v", ref, err)
		}
	}
}

func TestUppercaseRefRejected(t *testing.T) {
	archive := NewArchive(t.TempDir())
	ref, _, err := archive.Save("<p>Art. 1</p>")
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}

	upper := strings.ToUpper(ref)
	if _, err := archive.Path(upper); !errors.Is(err, ErrInvalidRef) {
		t.Fatalf("expected ErrInvalidRef for %q, got %v", upper, err)
	}
	if ok, err := archive.Verify(upper); ok || !errors.Is(err, ErrInvalidRef) {
		t.Fatalf("expected uppercase ref to fail verification, got %v (%v)", ok, err)
	}
	if ok, err := archive.Verify(ref); err != nil || !ok {
		t.Fatalf("expected lowercase ref to verify, got %v (%v)", ok, err)
	}
}

func TestWalkVisitsObjects(t *testing.T) {
	archive := NewArchive(t.TempDir())
	want := map[string]bool{}
	for _, raw := range []string{"uno", "dos", "tres"} {
		ref, _, err := archive.Save(raw)
		if err != nil {
			t.Fatalf("Save error: %v", err)
		}
		want[ref] = true
	}

	seen := map[string]bool{}
	if err := archive.Walk(func(ref, _ string) error {
		seen[ref] = true
		return nil
	}); err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	if len(seen) != len(want) {
		t.Fatalf("expected %d objects, saw %d", len(want), len(seen))
	}
	for ref := range want {
		if !seen[ref] {
			t.Fatalf("missing %s in walk", ref)
		}
	}

	empty := NewArchive(filepath.Join(t.TempDir(), "absent"))
	if err := empty.Walk(func(string, string) error { return errors.New("unexpected") }); err != nil {
		t.Fatalf("Walk on missing dir error: %v", err)
	}
}

func TestDefaultRootUsesConfig(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(config.DirEnv, tmp)

	if got, want := NewArchive("").Root(), filepath.Join(tmp, "objects"); got != want {
		t.Fatalf("expected root %s, got %s", want, got)
	}
}
