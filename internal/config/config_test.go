package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should not be an error, got %v", err)
	}
	if f.K != 0 || f.Metric != "" {
		t.Errorf("expected zero-valued File, got %+v", f)
	}
}

func TestLoadParsesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".annd.toml")
	body := `
k = 15
metric = "cosine"
n-trees = 12
leaf-size = 40
n-threads = 4
seed = 99
max-iters = 8
delta = 0.002
rho = 0.6
`
	if err := writeFile(path, body); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.K != 15 || f.Metric != "cosine" || f.NTrees != 12 || f.LeafSize != 40 ||
		f.NThreads != 4 || f.Seed != 99 || f.MaxIters != 8 || f.Delta != 0.002 || f.Rho != 0.6 {
		t.Errorf("unexpected parsed config: %+v", f)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".annd.toml")
	if err := writeFile(path, "k = [this is not valid toml"); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o644)
}
