package walk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// MaxFileSize is the exclusive upper bound on indexed file size
	MaxFileSize = 1 << 20

	// ProtobufMarker on the first line marks generated protobuf code
	ProtobufMarker = "Generated by the protocol buffer compiler"

	binarySniffLen = 8 << 10
)

// ErrNotEligible reports a file that exists but must not be indexed
var ErrNotEligible = errors.New("file not eligible for indexing")

// skippedNames are directory or file names never indexed
var skippedNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	".svn":         true,
	".bzr":         true,
	".cvs":         true,
	".m2":          true,
	".idea":        true,
	".vscode":      true,
	".project":     true,
	".settings":    true,
	"vendor":       true,
	"lib":          true,
	"build":        true,
	"target":       true,
	"media":        true,
	"logs":         true,
	"uploads":      true,
	".DS_Store":    true,
}

// FileInfo describes an eligible file. Path is absolute with forward
// slashes.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Filter decides which paths under a root are indexed
type Filter struct {
	root string
	ig   *ignoreMatcher
}

// NewFilter loads the ignore rules of root
func NewFilter(root string) (*Filter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	ig, err := loadIgnoreMatcher(abs)
	if err != nil {
		return nil, fmt.Errorf("load ignore rules: %w", err)
	}
	return &Filter{root: filepath.Clean(abs), ig: ig}, nil
}

// Root returns the absolute root directory
func (f *Filter) Root() string {
	return f.root
}

// Rel converts an absolute path into a slash-separated path relative to
// the root. ok is false for paths outside the root.
func (f *Filter) Rel(abs string) (string, bool) {
	rel, err := filepath.Rel(f.root, filepath.Clean(filepath.FromSlash(abs)))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Ignored reports whether a root-relative path is excluded by name,
// visibility or ignore rules. Any excluded ancestor excludes the path.
func (f *Filter) Ignored(rel string, isDir bool) bool {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return false
	}

	parts := strings.Split(rel, "/")
	for i, name := range parts {
		last := i == len(parts)-1
		if skippedNames[name] || strings.HasPrefix(name, ".") {
			return true
		}
		if !last && f.ig.isIgnored(strings.Join(parts[:i+1], "/"), true) {
			return true
		}
	}
	return f.ig.isIgnored(rel, isDir)
}

// Check stats an absolute path and applies the ignore rules and the content
// checks. It returns ErrNotEligible for files that must be skipped and the
// stat error for files that are gone.
func (f *Filter) Check(abs string) (FileInfo, error) {
	rel, ok := f.Rel(abs)
	if !ok {
		return FileInfo{}, fmt.Errorf("%w: outside project root", ErrNotEligible)
	}
	if f.Ignored(rel, false) {
		return FileInfo{}, fmt.Errorf("%w: ignored", ErrNotEligible)
	}

	info, err := os.Stat(filepath.FromSlash(abs))
	if err != nil {
		return FileInfo{}, err
	}
	if info.IsDir() {
		return FileInfo{}, fmt.Errorf("%w: directory", ErrNotEligible)
	}
	return f.checkContent(abs, info)
}

func (f *Filter) checkContent(abs string, info os.FileInfo) (FileInfo, error) {
	if info.Size() <= 0 || info.Size() >= MaxFileSize {
		return FileInfo{}, fmt.Errorf("%w: size %d", ErrNotEligible, info.Size())
	}

	file, err := os.Open(filepath.FromSlash(abs))
	if err != nil {
		return FileInfo{}, err
	}
	defer func() { _ = file.Close() }()

	head := make([]byte, binarySniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FileInfo{}, err
	}
	head = head[:n]

	if bytes.IndexByte(head, 0) >= 0 {
		return FileInfo{}, fmt.Errorf("%w: binary", ErrNotEligible)
	}
	if isGeneratedProtobuf(head) {
		return FileInfo{}, fmt.Errorf("%w: generated", ErrNotEligible)
	}

	return FileInfo{
		Path:    filepath.ToSlash(abs),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func isGeneratedProtobuf(head []byte) bool {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	return bytes.Contains(head, []byte(ProtobufMarker))
}
