// Package unpack extracts downloaded artifacts into a destination directory,
// hardened against path traversal and symlink escape.
package unpack

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"
)

// Format identifies an archive container/compression scheme.
type Format string

const (
	FormatTarGz  Format = "tar.gz"
	FormatTarXz  Format = "tar.xz"
	FormatTarBz2 Format = "tar.bz2"
	FormatTarZst Format = "tar.zst"
	FormatTarLz  Format = "tar.lz"
	FormatTar    Format = "tar"
	FormatZip    Format = "zip"
)

// DetectFormat guesses the archive format from a filename's suffix.
// Returns an empty Format if the suffix is unrecognized.
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return FormatTarXz
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"), strings.HasSuffix(lower, ".tbz"):
		return FormatTarBz2
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return FormatTarZst
	case strings.HasSuffix(lower, ".tar.lz"), strings.HasSuffix(lower, ".tlz"):
		return FormatTarLz
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip
	default:
		return ""
	}
}

// Extract unpacks archivePath into destPath, auto-detecting the format from
// archivePath's filename. destPath is created if it does not exist.
func Extract(archivePath, destPath string) error {
	format := DetectFormat(archivePath)
	if format == "" {
		return fmt.Errorf("unpack: cannot detect archive format for %s", archivePath)
	}
	return ExtractFormat(archivePath, destPath, format)
}

// ExtractFormat unpacks archivePath into destPath using the given format.
func ExtractFormat(archivePath, destPath string, format Format) error {
	if err := os.MkdirAll(destPath, 0o755); err != nil {
		return fmt.Errorf("unpack: creating destination: %w", err)
	}

	switch format {
	case FormatTarGz:
		return extractTarGz(archivePath, destPath)
	case FormatTarXz:
		return extractTarXz(archivePath, destPath)
	case FormatTarBz2:
		return extractTarBz2(archivePath, destPath)
	case FormatTarZst:
		return extractTarZst(archivePath, destPath)
	case FormatTarLz:
		return extractTarLz(archivePath, destPath)
	case FormatTar:
		return extractTar(archivePath, destPath)
	case FormatZip:
		return extractZip(archivePath, destPath)
	default:
		return fmt.Errorf("unpack: unsupported archive format: %s", format)
	}
}

// isPathWithinDirectory reports whether targetPath is contained within basePath.
func isPathWithinDirectory(targetPath, basePath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	return absTarget == absBase || strings.HasPrefix(absTarget, absBase+string(os.PathSeparator))
}

// validateSymlinkTarget rejects symlinks that would escape destPath.
func validateSymlinkTarget(linkTarget, linkLocation, destPath string) error {
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("unpack: absolute symlink targets are not allowed: %s -> %s", linkLocation, linkTarget)
	}

	resolvedTarget := filepath.Join(filepath.Dir(linkLocation), linkTarget)
	if !isPathWithinDirectory(resolvedTarget, destPath) {
		return fmt.Errorf("unpack: symlink target escapes destination directory: %s -> %s (resolves to %s)",
			linkLocation, linkTarget, resolvedTarget)
	}
	return nil
}

// atomicSymlink creates a symlink via a temp-name-then-rename sequence,
// avoiding a window where a partially created link is observable.
func atomicSymlink(target, linkPath string) error {
	tmpLink := linkPath + ".tmp"
	os.Remove(tmpLink)

	if err := os.Symlink(target, tmpLink); err != nil {
		return err
	}
	if err := os.Rename(tmpLink, linkPath); err != nil {
		os.Remove(tmpLink)
		return err
	}
	return nil
}

func extractTarGz(archivePath, destPath string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("unpack: opening archive: %w", err)
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("unpack: creating gzip reader: %w", err)
	}
	defer gzr.Close()

	return extractTarReader(tar.NewReader(gzr), destPath)
}

func extractTarXz(archivePath, destPath string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("unpack: opening archive: %w", err)
	}
	defer file.Close()

	xzr, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("unpack: creating xz reader: %w", err)
	}
	return extractTarReader(tar.NewReader(xzr), destPath)
}

func extractTarBz2(archivePath, destPath string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("unpack: opening archive: %w", err)
	}
	defer file.Close()

	bzr := bzip2.NewReader(file)
	return extractTarReader(tar.NewReader(bzr), destPath)
}

func extractTarZst(archivePath, destPath string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("unpack: opening archive: %w", err)
	}
	defer file.Close()

	zr, err := zstd.NewReader(file)
	if err != nil {
		return fmt.Errorf("unpack: creating zstd reader: %w", err)
	}
	defer zr.Close()

	return extractTarReader(tar.NewReader(zr), destPath)
}

func extractTarLz(archivePath, destPath string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("unpack: opening archive: %w", err)
	}
	defer file.Close()

	lr, err := lzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("unpack: creating lzip reader: %w", err)
	}
	return extractTarReader(tar.NewReader(lr), destPath)
}

func extractTar(archivePath, destPath string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("unpack: opening archive: %w", err)
	}
	defer file.Close()

	return extractTarReader(tar.NewReader(file), destPath)
}

// extractTarReader streams tar entries to disk, preserving Unix execute bits
// from each header's mode.
func extractTarReader(tr *tar.Reader, destPath string) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("unpack: reading tar header: %w", err)
		}

		relativePath := filepath.Join(strings.Split(strings.TrimPrefix(header.Name, "./"), "/")...)
		target := filepath.Join(destPath, relativePath)

		if !isPathWithinDirectory(target, destPath) {
			return fmt.Errorf("unpack: archive entry escapes destination directory: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("unpack: creating directory: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("unpack: creating parent directory: %w", err)
			}

			f, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("unpack: creating file: %w", err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return fmt.Errorf("unpack: writing file: %w", err)
			}
			f.Close()

		case tar.TypeSymlink:
			if err := validateSymlinkTarget(header.Linkname, target, destPath); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("unpack: creating parent directory: %w", err)
			}
			if err := atomicSymlink(header.Linkname, target); err != nil {
				return fmt.Errorf("unpack: creating symlink: %w", err)
			}
		}
	}

	return nil
}

func extractZip(archivePath, destPath string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("unpack: opening zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		relativePath := filepath.Join(strings.Split(strings.TrimPrefix(f.Name, "./"), "/")...)
		target := filepath.Join(destPath, relativePath)

		if !isPathWithinDirectory(target, destPath) {
			return fmt.Errorf("unpack: zip entry escapes destination directory: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("unpack: creating directory: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("unpack: creating parent directory: %w", err)
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("unpack: opening file in zip: %w", err)
		}

		outFile, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return fmt.Errorf("unpack: creating file: %w", err)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			outFile.Close()
			rc.Close()
			return fmt.Errorf("unpack: writing file: %w", err)
		}

		outFile.Close()
		rc.Close()
	}

	return nil
}
