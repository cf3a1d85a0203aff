package cli

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cbout22/repo-import/internal/ledger"
	"github.com/cbout22/repo-import/internal/storage"
)

// testFileWriter is a minimal in-memory FileWriter for checker tests.
type testFileWriter struct {
	files   map[string]bool // paths that "exist"
	written map[string][]byte
}

var _ storage.FileWriter = (*testFileWriter)(nil)

func newTestFileWriter(paths ...string) *testFileWriter {
	fw := &testFileWriter{files: make(map[string]bool), written: make(map[string][]byte)}
	for _, p := range paths {
		fw.files[filepath.FromSlash(p)] = true
	}
	return fw
}

func (f *testFileWriter) Write(path string, data []byte) error {
	f.files[path] = true
	f.written[path] = data
	return nil
}

func (f *testFileWriter) Create(path string) (io.WriteCloser, error) { return nil, io.ErrClosedPipe }
func (f *testFileWriter) MkdirAll(path string) error                 { return nil }
func (f *testFileWriter) Remove(path string) error                   { return nil }
func (f *testFileWriter) Exists(path string) bool                    { return f.files[path] }

// List returns the direct children of path among the known paths.
func (f *testFileWriter) List(path string) ([]string, error) {
	prefix := path + string(filepath.Separator)
	seen := map[string]bool{}
	var names []string
	for p := range f.files {
		if rest, ok := strings.CutPrefix(p, prefix); ok {
			name := strings.SplitN(rest, string(filepath.Separator), 2)[0]
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func ledgerWith(folders ...string) *ledger.Ledger {
	led := ledger.New()
	for _, f := range folders {
		led.Record(ledger.Entry{Folder: f, Source: "https://github.com/acme/" + f, Files: 2})
	}
	return led
}

func TestCheckImports_AllPresent(t *testing.T) {
	t.Parallel()

	led := ledgerWith("demo", "proj")
	fs := newTestFileWriter("root/demo", "root/demo/README.md", "root/proj", "root/proj/a.py")

	results, err := CheckImports(led, fs, "root")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Status != CheckOK {
			t.Errorf("%s: status = %d, want CheckOK", r.Folder, r.Status)
		}
	}
}

func TestCheckImports_FolderMissing(t *testing.T) {
	t.Parallel()

	results, err := CheckImports(ledgerWith("demo"), newTestFileWriter(), "root")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Status != CheckFolderMissing {
		t.Fatalf("results = %+v, want one CheckFolderMissing", results)
	}
	if results[0].Files != 2 || results[0].Source != "https://github.com/acme/demo" {
		t.Errorf("result = %+v, want ledger data carried over", results[0])
	}
}

func TestCheckImports_FolderEmpty(t *testing.T) {
	t.Parallel()

	results, err := CheckImports(ledgerWith("demo"), newTestFileWriter("root/demo"), "root")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Status != CheckFolderEmpty {
		t.Fatalf("results = %+v, want one CheckFolderEmpty", results)
	}
}

func TestCheckImports_SortedByFolder(t *testing.T) {
	t.Parallel()

	led := ledgerWith("zeta", "alpha", "mid")
	results, err := CheckImports(led, newTestFileWriter(), "root")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range results {
		got = append(got, r.Folder)
	}
	if strings.Join(got, ",") != "alpha,mid,zeta" {
		t.Errorf("order = %v, want alpha,mid,zeta", got)
	}
}

func TestCheckImports_EmptyLedger(t *testing.T) {
	t.Parallel()

	results, err := CheckImports(ledger.New(), newTestFileWriter("root/demo"), "root")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
