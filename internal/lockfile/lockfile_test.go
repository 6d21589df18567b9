package lockfile

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func samplePackages() []Package {
	return []Package{
		{Name: "a", Version: "1.0.0", SourceKind: "registry", IndexName: "default", ArtifactFilename: "a-1.0.0.tar.gz", ArtifactDigest: "sha256:aaa"},
		{Name: "b", Version: "2.0.0", SourceKind: "registry", IndexName: "default", ArtifactFilename: "b-2.0.0.tar.gz", ArtifactDigest: "sha256:bbb", Dependencies: []string{"a==1.0.0"}},
		{Name: "c", Version: "3.0.0", SourceKind: "url", URL: "https://example.test/c.tar.gz", ArtifactFilename: "c.tar.gz", ArtifactDigest: "sha256:ccc"},
	}
}

// Invariant: from_bytes(to_bytes(L)) == L.
func TestRoundTrip(t *testing.T) {
	l := New([]string{"3.11", "3.12"}, []string{"linux-x86_64-glibc"})
	for _, p := range samplePackages() {
		l.AddPackage(p)
	}

	data := l.ToBytes()
	decoded, err := FromBytes(data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	if !equalLockfiles(l, decoded) {
		t.Fatalf("round trip mismatch:\n original: %+v\n decoded:  %+v", l, decoded)
	}
}

// Invariant: equal logical content -> byte-identical to_bytes(), regardless
// of insertion order (E6).
func TestToBytes_DeterministicRegardlessOfInsertionOrder(t *testing.T) {
	pkgs := samplePackages()

	l1 := New([]string{"3.12"}, []string{"linux-x86_64-glibc"})
	l1.AddPackage(pkgs[1])
	l1.AddPackage(pkgs[0])
	l1.AddPackage(pkgs[2])

	l2 := New([]string{"3.12"}, []string{"linux-x86_64-glibc"})
	l2.AddPackage(pkgs[2])
	l2.AddPackage(pkgs[1])
	l2.AddPackage(pkgs[0])

	if !bytes.Equal(l1.ToBytes(), l2.ToBytes()) {
		t.Fatal("ToBytes() differed across insertion orders for equal logical content")
	}
}

func TestAddPackage_IdempotentLastWriteWins(t *testing.T) {
	l := New(nil, nil)
	l.AddPackage(Package{Name: "a", Version: "1.0.0"})
	l.AddPackage(Package{Name: "a", Version: "2.0.0"})

	pkgs := l.Packages()
	if len(pkgs) != 1 {
		t.Fatalf("expected 1 package, got %d", len(pkgs))
	}
	if pkgs[0].Version != "2.0.0" {
		t.Errorf("Version = %q, want %q (last write should win)", pkgs[0].Version, "2.0.0")
	}
}

// Bad magic -> InvalidMagicError.
func TestFromBytes_InvalidMagic(t *testing.T) {
	_, err := FromBytes([]byte("NOTPYBUN"))
	var invalidMagic *InvalidMagicError
	if !errors.As(err, &invalidMagic) {
		t.Fatalf("expected InvalidMagicError, got %v", err)
	}
}

func TestFromBytes_TooShort(t *testing.T) {
	_, err := FromBytes([]byte("short"))
	var invalidMagic *InvalidMagicError
	if !errors.As(err, &invalidMagic) {
		t.Fatalf("expected InvalidMagicError, got %v", err)
	}
}

// Unknown version -> UnsupportedVersionError; a reader of version N must
// reject N+1 files.
func TestFromBytes_UnsupportedVersion(t *testing.T) {
	l := New(nil, nil)
	data := l.ToBytes()

	// Corrupt the version field (bytes 8-11) to FormatVersion+1.
	corrupted := append([]byte{}, data...)
	corrupted[8] = byte(FormatVersion + 1)
	corrupted[9] = 0
	corrupted[10] = 0
	corrupted[11] = 0

	_, err := FromBytes(corrupted)
	var unsupported *UnsupportedVersionError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedVersionError, got %v", err)
	}
	if unsupported.Found != FormatVersion+1 {
		t.Errorf("Found = %d, want %d", unsupported.Found, FormatVersion+1)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	l := New([]string{"3.12"}, []string{"darwin-aarch64"})
	l.AddPackage(Package{Name: "pkg", Version: "1.0.0", SourceKind: "registry", ArtifactDigest: "sha256:aaa"})

	path := filepath.Join(t.TempDir(), FileName)
	if err := l.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !equalLockfiles(l, loaded) {
		t.Fatalf("Save/Load mismatch:\n original: %+v\n loaded:   %+v", l, loaded)
	}
}

func equalLockfiles(a, b *Lockfile) bool {
	if len(a.PythonVersions) != len(b.PythonVersions) || len(a.Platforms) != len(b.Platforms) {
		return false
	}
	for i := range a.PythonVersions {
		if a.PythonVersions[i] != b.PythonVersions[i] {
			return false
		}
	}
	for i := range a.Platforms {
		if a.Platforms[i] != b.Platforms[i] {
			return false
		}
	}

	ap, bp := a.Packages(), b.Packages()
	if len(ap) != len(bp) {
		return false
	}
	for i := range ap {
		if ap[i].Name != bp[i].Name || ap[i].Version != bp[i].Version ||
			ap[i].SourceKind != bp[i].SourceKind || ap[i].IndexName != bp[i].IndexName ||
			ap[i].URL != bp[i].URL || ap[i].ArtifactFilename != bp[i].ArtifactFilename ||
			ap[i].ArtifactDigest != bp[i].ArtifactDigest || len(ap[i].Dependencies) != len(bp[i].Dependencies) {
			return false
		}
		for j := range ap[i].Dependencies {
			if ap[i].Dependencies[j] != bp[i].Dependencies[j] {
				return false
			}
		}
	}
	return true
}
