package walk

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, data []byte) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func relPaths(t *testing.T, f *Filter, files []FileInfo) []string {
	t.Helper()
	out := make([]string, len(files))
	for i, fi := range files {
		rel, ok := f.Rel(fi.Path)
		require.True(t, ok)
		out[i] = rel
	}
	return out
}

func TestList(t *testing.T) {
	root := t.TempDir()
	code := []byte("package x\n")

	writeFile(t, root, ".gitignore", []byte("*.log\ngenerated/\n"))
	writeFile(t, root, "main.go", code)
	writeFile(t, root, "sub/util.go", code)
	writeFile(t, root, "sub/deeper/Service.java", []byte("class Service {}\n"))
	writeFile(t, root, "app.log", code)
	writeFile(t, root, "generated/x.go", code)
	writeFile(t, root, "node_modules/pkg/index.js", code)
	writeFile(t, root, "sub/build/out.go", code)
	writeFile(t, root, ".hidden/b.go", code)
	writeFile(t, root, ".env", code)
	writeFile(t, root, "empty.txt", nil)
	writeFile(t, root, "big.txt", bytes.Repeat([]byte("a"), MaxFileSize))
	writeFile(t, root, "image.dat", []byte{'P', 'N', 'G', 0, 1, 2})
	writeFile(t, root, "api.pb.go", []byte("// Code generated by protoc-gen-go. "+ProtobufMarker+". DO NOT EDIT.\npackage api\n"))
	writeFile(t, root, "mentions_marker.go", []byte("package x\n// "+ProtobufMarker+"\n"))

	lister, err := NewLister(root, nil)
	require.NoError(t, err)

	files, err := lister.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"main.go",
		"mentions_marker.go",
		"sub/deeper/Service.java",
		"sub/util.go",
	}, relPaths(t, lister.Filter(), files))

	for _, f := range files {
		assert.True(t, filepath.IsAbs(filepath.FromSlash(f.Path)))
		assert.Positive(t, f.Size)
		assert.False(t, f.ModTime.IsZero())
	}
}

func TestList_JustUnderSizeLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.txt", bytes.Repeat([]byte("a"), MaxFileSize-1))

	lister, err := NewLister(root, nil)
	require.NoError(t, err)
	files, err := lister.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(MaxFileSize-1), files[0].Size)
}

func TestList_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", []byte("package a\n"))

	lister, err := NewLister(root, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = lister.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilter_Ignored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", []byte("dist/\n*.tmp\n"))

	f, err := NewFilter(root)
	require.NoError(t, err)

	tests := []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{"main.go", false, false},
		{"src/app/main.go", false, false},
		{"dist", true, true},
		{"dist/bundle.js", false, true},
		{"a/b.tmp", false, true},
		{"vendor/x/y.go", false, true},
		{"lib", true, true},
		{"pkg/.cache/z", false, true},
		{".DS_Store", false, true},
		{"", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Ignored(tt.rel, tt.isDir))
		})
	}
}

func TestFilter_Check(t *testing.T) {
	root := t.TempDir()
	good := writeFile(t, root, "good.go", []byte("package good\n"))
	ignored := writeFile(t, root, "vendor/v.go", []byte("package v\n"))
	empty := writeFile(t, root, "empty.go", nil)

	f, err := NewFilter(root)
	require.NoError(t, err)

	fi, err := f.Check(good)
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(good), fi.Path)
	assert.Equal(t, int64(13), fi.Size)

	_, err = f.Check(filepath.ToSlash(good))
	assert.NoError(t, err)

	_, err = f.Check(ignored)
	assert.ErrorIs(t, err, ErrNotEligible)

	_, err = f.Check(empty)
	assert.ErrorIs(t, err, ErrNotEligible)

	_, err = f.Check(filepath.Join(root, "missing.go"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = f.Check(filepath.Join(filepath.Dir(root), "elsewhere.go"))
	assert.ErrorIs(t, err, ErrNotEligible)

	_, err = f.Check(root)
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestFilter_Rel(t *testing.T) {
	root := t.TempDir()
	f, err := NewFilter(root)
	require.NoError(t, err)

	rel, ok := f.Rel(filepath.Join(root, "a", "b.go"))
	assert.True(t, ok)
	assert.Equal(t, "a/b.go", rel)

	_, ok = f.Rel(root)
	assert.False(t, ok)

	_, ok = f.Rel(filepath.Dir(root))
	assert.False(t, ok)

	rel, ok = f.Rel(filepath.Join(root, "..foo"))
	assert.True(t, ok)
	assert.Equal(t, "..foo", rel)
}
