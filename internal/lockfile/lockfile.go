// Package lockfile implements the canonical binary lockfile format: a
// small magic-prefixed, version-tagged, deterministically encoded record
// of the python versions, platforms, and resolved packages an install was
// performed against.
package lockfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Magic is the 8-byte ASCII identifier at the start of every lockfile.
const Magic = "PYBUNLK1"

// FormatVersion is the current on-disk format version this package writes
// and the highest version it can read. A reader must reject any file whose
// format version is greater than the version it was built against.
const FormatVersion uint32 = 1

// FileName is the conventional lockfile name written alongside a project.
const FileName = "pybun.lockb"

// Package is one resolved, locked dependency.
type Package struct {
	Name             string
	Version          string
	SourceKind       string // "registry" or "url"
	IndexName        string // set when SourceKind == "registry"
	URL              string
	ArtifactFilename string
	ArtifactDigest   string
	Dependencies     []string
}

// Lockfile is the in-memory representation of a locked install.
type Lockfile struct {
	PythonVersions []string
	Platforms      []string
	packages       map[string]Package // keyed by name, last AddPackage wins
}

// New creates an empty Lockfile for the given python versions and
// platforms.
func New(pythonVersions, platforms []string) *Lockfile {
	return &Lockfile{
		PythonVersions: append([]string{}, pythonVersions...),
		Platforms:      append([]string{}, platforms...),
		packages:       make(map[string]Package),
	}
}

// AddPackage inserts or replaces the entry for p.Name. Idempotent: calling
// it twice for the same name leaves only the most recent value.
func (l *Lockfile) AddPackage(p Package) {
	if l.packages == nil {
		l.packages = make(map[string]Package)
	}
	l.packages[p.Name] = p
}

// Packages returns the locked packages sorted ascending by name.
func (l *Lockfile) Packages() []Package {
	out := make([]Package, 0, len(l.packages))
	for _, p := range l.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// InvalidMagicError is returned by FromBytes when the input doesn't start
// with Magic.
type InvalidMagicError struct {
	Found []byte
}

func (e *InvalidMagicError) Error() string {
	return fmt.Sprintf("lockfile: invalid magic: %q", e.Found)
}

// UnsupportedVersionError is returned by FromBytes when the file's format
// version is newer than this package understands.
type UnsupportedVersionError struct {
	Found uint32
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("lockfile: unsupported format version %d (supports up to %d)", e.Found, FormatVersion)
}

// ToBytes encodes l into the canonical binary format. Equal logical
// content always produces byte-identical output: packages are written in
// ascending name order regardless of insertion order.
func (l *Lockfile) ToBytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(Magic)

	var versionBytes [4]byte
	binary.LittleEndian.PutUint32(versionBytes[:], FormatVersion)
	buf.Write(versionBytes[:])

	writeStringSlice(&buf, l.PythonVersions)
	writeStringSlice(&buf, l.Platforms)

	packages := l.Packages()
	writeUint32(&buf, uint32(len(packages)))
	for _, p := range packages {
		writePackage(&buf, p)
	}

	return buf.Bytes()
}

// FromBytes decodes a Lockfile previously produced by ToBytes.
func FromBytes(data []byte) (*Lockfile, error) {
	if len(data) < len(Magic)+4 {
		return nil, &InvalidMagicError{Found: data}
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, &InvalidMagicError{Found: data[:len(Magic)]}
	}

	r := bytes.NewReader(data[len(Magic):])

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("lockfile: reading format version: %w", err)
	}
	if version > FormatVersion {
		return nil, &UnsupportedVersionError{Found: version}
	}

	pythonVersions, err := readStringSlice(r)
	if err != nil {
		return nil, fmt.Errorf("lockfile: reading python_versions: %w", err)
	}
	platforms, err := readStringSlice(r)
	if err != nil {
		return nil, fmt.Errorf("lockfile: reading platforms: %w", err)
	}

	count, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("lockfile: reading package count: %w", err)
	}

	l := New(pythonVersions, platforms)
	for i := uint32(0); i < count; i++ {
		p, err := readPackage(r)
		if err != nil {
			return nil, fmt.Errorf("lockfile: reading package %d: %w", i, err)
		}
		l.AddPackage(p)
	}

	return l, nil
}

// Save writes l to path atomically: the encoded bytes are written to a
// temp file in the same directory, then renamed into place, so readers
// never observe a partially written lockfile.
func (l *Lockfile) Save(path string) error {
	data := l.ToBytes()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pybun.lockb.tmp-*")
	if err != nil {
		return fmt.Errorf("lockfile: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("lockfile: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("lockfile: closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("lockfile: renaming into place: %w", err)
	}

	return nil
}

// Load reads and decodes a Lockfile from path.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lockfile: reading %s: %w", path, err)
	}
	return FromBytes(data)
}
