package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pybun/pybun/internal/config"
)

func TestOpenIndex_RequiresIndexFlag(t *testing.T) {
	cfg := &config.Config{}
	_, err := openIndex(cfg, "", "")
	if err == nil {
		t.Fatal("expected error when neither --index-url nor --index-file is set")
	}
}

func TestOpenIndex_LoadsFromFile(t *testing.T) {
	doc := `{"numpy": [{"version": "1.0.0", "url": "https://example.com/numpy-1.0.0.tar.gz", "sha256": "abc"}]}`
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("writing index fixture: %v", err)
	}

	cfg := &config.Config{}
	idx, err := openIndex(cfg, "", path)
	if err != nil {
		t.Fatalf("openIndex: %v", err)
	}

	versions, err := idx.Versions(context.Background(), "numpy")
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) != 1 || versions[0] != "1.0.0" {
		t.Errorf("Versions() = %v, want [1.0.0]", versions)
	}
}

func TestResolveCmd_RequiresAtLeastOnePackage(t *testing.T) {
	cmd := rootCmd
	cmd.SetArgs([]string{"resolve"})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected usage error for zero package args")
	}
	if !strings.Contains(err.Error(), "requires at least 1 arg") {
		t.Errorf("unexpected error: %v", err)
	}
}
