package lockfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

func writeUint32(buf *bytes.Buffer, n uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], n)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeStringSlice(buf *bytes.Buffer, ss []string) {
	writeUint32(buf, uint32(len(ss)))
	for _, s := range ss {
		writeString(buf, s)
	}
}

func writePackage(buf *bytes.Buffer, p Package) {
	writeString(buf, p.Name)
	writeString(buf, p.Version)
	writeString(buf, p.SourceKind)
	writeString(buf, p.IndexName)
	writeString(buf, p.URL)
	writeString(buf, p.ArtifactFilename)
	writeString(buf, p.ArtifactDigest)
	writeStringSlice(buf, p.Dependencies)
}

func readUint32(r io.Reader) (uint32, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("reading %d-byte string: %w", n, err)
	}
	return string(buf), nil
}

func readStringSlice(r io.Reader) ([]string, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("reading string %d of %d: %w", i, n, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func readPackage(r io.Reader) (Package, error) {
	var p Package
	var err error

	if p.Name, err = readString(r); err != nil {
		return p, fmt.Errorf("reading name: %w", err)
	}
	if p.Version, err = readString(r); err != nil {
		return p, fmt.Errorf("reading version: %w", err)
	}
	if p.SourceKind, err = readString(r); err != nil {
		return p, fmt.Errorf("reading source kind: %w", err)
	}
	if p.IndexName, err = readString(r); err != nil {
		return p, fmt.Errorf("reading index name: %w", err)
	}
	if p.URL, err = readString(r); err != nil {
		return p, fmt.Errorf("reading url: %w", err)
	}
	if p.ArtifactFilename, err = readString(r); err != nil {
		return p, fmt.Errorf("reading artifact filename: %w", err)
	}
	if p.ArtifactDigest, err = readString(r); err != nil {
		return p, fmt.Errorf("reading artifact digest: %w", err)
	}
	if p.Dependencies, err = readStringSlice(r); err != nil {
		return p, fmt.Errorf("reading dependencies: %w", err)
	}

	return p, nil
}
