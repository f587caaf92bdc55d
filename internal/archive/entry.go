package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"
)

// Kind classifies a central directory record.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
)

// String returns the human-readable kind name used in listings.
func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// Entry is an immutable snapshot of one archive member, taken from the
// central directory at open time.
type Entry struct {
	Name           string
	Kind           Kind
	Size           uint64
	CompressedSize uint64
	Method         uint16
	CRC32          uint32
	Mode           fs.FileMode
	Modified       time.Time

	// LinkTarget holds the symlink destination for KindSymlink entries.
	LinkTarget string
}

// MethodName returns the compression method as text.
func (e Entry) MethodName() string {
	switch e.Method {
	case zip.Store:
		return "store"
	case zip.Deflate:
		return "deflate"
	default:
		return fmt.Sprintf("method(%d)", e.Method)
	}
}

// Ratio returns the compressed/uncompressed percentage, 100 for empty entries.
func (e Entry) Ratio() float64 {
	if e.Size == 0 {
		return 100.0
	}
	return float64(e.CompressedSize) / float64(e.Size) * 100.0
}

// maxLinkTarget bounds how much of a symlink entry body is read when the
// manifest is built. Real targets are path-sized.
const maxLinkTarget = 4096

// NormalizeName canonicalizes a user-supplied entry name: backslashes become
// forward slashes and leading "./" or "/" prefixes are stripped. Archives
// written on Windows routinely carry backslash names, so the same
// normalization is applied to names read back from a central directory.
func NormalizeName(name string) (string, error) {
	n := strings.ReplaceAll(name, `\`, "/")
	for {
		switch {
		case strings.HasPrefix(n, "./"):
			n = n[2:]
		case strings.HasPrefix(n, "/"):
			n = n[1:]
		default:
			if n == "" || n == "." {
				return "", fmt.Errorf("invalid entry name %q", name)
			}
			return n, nil
		}
	}
}

// classify builds an Entry from a zip.File, reading the body of symlink
// records to capture the target.
func classify(f *zip.File) (Entry, error) {
	mode := f.Mode()
	e := Entry{
		Name:           f.Name,
		Size:           f.UncompressedSize64,
		CompressedSize: f.CompressedSize64,
		Method:         f.Method,
		CRC32:          f.CRC32,
		Mode:           mode,
		Modified:       f.Modified,
	}
	if n, err := NormalizeName(f.Name); err == nil {
		e.Name = n
	}

	switch {
	case strings.HasSuffix(f.Name, "/") || mode.IsDir():
		e.Kind = KindDir
	case mode&fs.ModeSymlink != 0:
		e.Kind = KindSymlink
		target, err := readLinkTarget(f)
		if err != nil {
			return Entry{}, fmt.Errorf("read symlink target of %q: %w", e.Name, err)
		}
		e.LinkTarget = target
	default:
		e.Kind = KindFile
	}
	return e, nil
}

func readLinkTarget(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxLinkTarget))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
