package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeindex/pkg/types"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func word(path string, start, end int, content string, vector ...float32) types.Word {
	return types.NewWord(path, types.Chunk{Content: content, StartLine: start, EndLine: end}, vector)
}

func TestNewSQLiteStore(t *testing.T) {
	store := setupTestStore(t)
	assert.NotNil(t, store.db)
	assert.Empty(t, store.Dir())

	version, err := schemaVersion(context.Background(), store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version.Original())
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, store.db))

	var n int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n))
	assert.Equal(t, len(AllMigrations), n)
}

func TestRollbackMigration(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, store.db))
	version, err := schemaVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version.Original())

	_, err = store.db.Exec("SELECT 1 FROM symbols")
	assert.Error(t, err)

	require.NoError(t, ApplyMigrations(ctx, store.db))
	_, err = store.db.Exec("SELECT 1 FROM symbols")
	assert.NoError(t, err)
}

func TestAddOrUpdate_SameIDKeepsOneDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := types.Document{Path: "src/a.go", Content: "first", StartLine: 1, EndLine: 2, Vector: []float32{1}}
	require.NoError(t, store.AddOrUpdate(ctx, doc))

	doc.Content = "second"
	require.NoError(t, store.AddOrUpdate(ctx, doc))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := store.LexicalSearch(ctx, "second", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "src/a.go--1--2", results[0].ID)
	assert.Equal(t, "a.go", results[0].FileName)

	results, err = store.LexicalSearch(ctx, "first", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAddOrUpdate_NormalizesPath(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddOrUpdate(ctx, types.Document{Path: `src\win\b.go`, Content: "x", StartLine: 1, EndLine: 1}))
	assert.True(t, store.Exists(ctx, "src/win/b.go"))
	assert.True(t, store.Exists(ctx, `src\win\b.go`))
}

func TestBulkReplace_Repeatable(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	words := []types.Word{
		word("a.go", 1, 3, "package a\nfunc Alpha() {}\n", 1, 0),
		word("b.go", 1, 2, "package b\nfunc Beta() {}\n", 0, 1),
	}

	require.NoError(t, store.BulkReplace(ctx, words))
	require.NoError(t, store.BulkReplace(ctx, words))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, store.BulkReplace(ctx, words[:1]))
	assert.True(t, store.Exists(ctx, "a.go"))
	assert.False(t, store.Exists(ctx, "b.go"))

	results, err := store.LexicalSearch(ctx, "Beta", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBulkReplace_Empty(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkReplace(ctx, []types.Word{word("a.go", 1, 1, "x")}))
	require.NoError(t, store.BulkReplace(ctx, nil))
	assert.False(t, store.HasAnyIndex(ctx))
}

func TestIncrementalUpdate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkReplace(ctx, []types.Word{
		word("a.go", 1, 10, "old alpha content"),
		word("a.go", 11, 20, "old alpha tail"),
		word("b.go", 1, 5, "beta content"),
	}))

	// a.go shrank to a single chunk
	err := store.IncrementalUpdate(ctx,
		[]types.Word{word("a.go", 1, 8, "new alpha content"), word("c.go", 1, 2, "gamma")},
		[]string{"a.go"})
	require.NoError(t, err)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := store.LexicalSearch(ctx, "old", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = store.LexicalSearch(ctx, "new", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go--1--8", results[0].ID)

	assert.True(t, store.Exists(ctx, "b.go"))
	assert.True(t, store.Exists(ctx, "c.go"))
}

func TestIncrementalUpdate_RemoveOnly(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkReplace(ctx, []types.Word{word("a.go", 1, 1, "a"), word("b.go", 1, 1, "b")}))
	require.NoError(t, store.IncrementalUpdate(ctx, nil, []string{"a.go", "missing.go"}))

	assert.False(t, store.Exists(ctx, "a.go"))
	assert.True(t, store.Exists(ctx, "b.go"))
}

func TestIncrementalUpdate_RemovesDirectory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	under := word("/src/pkg/a.go", 1, 1, "alpha")
	under.File = &types.FileState{Path: "/src/pkg/a.go", Symbols: []types.Symbol{{Name: "Alpha", Kind: types.KindFunction}}}
	require.NoError(t, store.BulkReplace(ctx, []types.Word{
		under,
		word("/src/pkg/sub/b.go", 1, 1, "beta"),
		word("/src/pkgx/c.go", 1, 1, "gamma"),
		word("/src/pkg.go", 1, 1, "delta"),
	}))

	require.NoError(t, store.IncrementalUpdate(ctx, nil, []string{"/src/pkg"}))

	assert.False(t, store.Exists(ctx, "/src/pkg/a.go"))
	assert.False(t, store.Exists(ctx, "/src/pkg/sub/b.go"))
	assert.True(t, store.Exists(ctx, "/src/pkgx/c.go"), "sibling with a shared prefix survives")
	assert.True(t, store.Exists(ctx, "/src/pkg.go"))

	_, err := store.FileRecord(ctx, "/src/pkg/a.go")
	assert.ErrorIs(t, err, ErrNotFound)
	syms, err := store.SymbolCandidates(ctx, "alpha", 0)
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestWrite_FileWordRecordsStateOnly(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkReplace(ctx, []types.Word{
		types.FileWord(&types.FileState{Path: "blank.py", Size: 3, ModTime: 7}),
	}))

	assert.False(t, store.HasAnyIndex(ctx))
	assert.False(t, store.Exists(ctx, "blank.py"))

	rec, err := store.FileRecord(ctx, "blank.py")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Size)
	assert.Equal(t, 0, rec.Chunks)

	paths, err := store.NonExistentPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"blank.py"}, paths, "recorded files are reconciled like indexed ones")
}

func TestWrite_ReadsContentFromDiskWhenMissing(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0644))

	require.NoError(t, store.BulkReplace(ctx, []types.Word{word(path, 3, 3, "")}))

	results, err := store.LexicalSearch(ctx, "main", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "func main() {}\n", results[0].Content)
}

func TestWrite_SkipsBlankContent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkReplace(ctx, []types.Word{
		word("blank.go", 1, 2, "  \n\t\n"),
		word("gone.go", 1, 2, ""),
	}))
	assert.False(t, store.HasAnyIndex(ctx))
}

func TestWrite_FileStateAndSymbols(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	w := word("svc/user.go", 1, 4, "type UserService struct{}\n")
	w.File = &types.FileState{
		Path:    "svc/user.go",
		Size:    42,
		ModTime: 1700000000,
		Hash:    "abc",
		Chunks:  1,
		Symbols: []types.Symbol{
			{Name: "UserService", Kind: types.KindStruct, Start: types.Position{Line: 1}, End: types.Position{Line: 1}},
			{Name: "GetUser", Kind: types.KindMethod, Receiver: "UserService", Start: types.Position{Line: 3}, End: types.Position{Line: 4}},
		},
	}
	require.NoError(t, store.BulkReplace(ctx, []types.Word{w}))

	rec, err := store.FileRecord(ctx, "svc/user.go")
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.Size)
	assert.Equal(t, int64(1700000000), rec.ModTime)
	assert.Equal(t, "abc", rec.Hash)
	assert.Equal(t, 1, rec.Chunks)

	_, err = store.FileRecord(ctx, "other.go")
	assert.ErrorIs(t, err, ErrNotFound)

	syms, err := store.SymbolCandidates(ctx, "user", 0)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "GetUser", syms[0].Name)
	assert.Equal(t, "svc/user.go", syms[0].Path)
	assert.Equal(t, "UserService", syms[0].Receiver)
	assert.Equal(t, types.KindMethod, syms[0].Kind)
	assert.Equal(t, 3, syms[0].Start.Line)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 2, stats.Symbols)

	// Removing the path removes its symbols and record
	require.NoError(t, store.IncrementalUpdate(ctx, nil, []string{"svc/user.go"}))
	syms, err = store.SymbolCandidates(ctx, "user", 0)
	require.NoError(t, err)
	assert.Empty(t, syms)
	_, err = store.FileRecord(ctx, "svc/user.go")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSymbolCandidates_EscapesLikePatterns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	w := word("a.go", 1, 1, "x")
	w.File = &types.FileState{Path: "a.go", Symbols: []types.Symbol{
		{Name: "max_size", Kind: types.KindConst},
		{Name: "maxXsize", Kind: types.KindConst},
	}}
	require.NoError(t, store.BulkReplace(ctx, []types.Word{w}))

	syms, err := store.SymbolCandidates(ctx, "x_s", 0)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "max_size", syms[0].Name)
}

func TestFileNameCandidates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkReplace(ctx, []types.Word{
		word("src/UserController.java", 1, 1, "a"),
		word("src/UserController.java", 2, 2, "b"),
		word("src/order.go", 1, 1, "c"),
	}))

	files, err := store.FileNameCandidates(ctx, "controller", 0)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, FileName{Path: "src/UserController.java", Name: "UserController.java"}, files[0])

	files, err = store.FileNameCandidates(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestPathsContaining(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkReplace(ctx, []types.Word{
		word("a.go", 1, 1, "calls user_repo.Find"),
		word("b.go", 1, 1, "nothing here"),
	}))

	paths, err := store.PathsContaining(ctx, "user_repo", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, paths)
}

func TestExistsAndHasAnyIndex(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assert.False(t, store.HasAnyIndex(ctx))
	assert.False(t, store.Exists(ctx, "a.go"))

	require.NoError(t, store.BulkReplace(ctx, []types.Word{word("a.go", 1, 1, "a")}))
	assert.True(t, store.HasAnyIndex(ctx))
	assert.True(t, store.Exists(ctx, "a.go"))
	assert.False(t, store.Exists(ctx, "b.go"))
}

func TestNonExistentPaths(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	present := filepath.Join(dir, "present.go")
	missing := filepath.Join(dir, "missing.go")
	require.NoError(t, os.WriteFile(present, []byte("package x\n"), 0644))

	require.NoError(t, store.BulkReplace(ctx, []types.Word{
		word(present, 1, 1, "package x"),
		word(missing, 1, 1, "package y"),
	}))

	paths, err := store.NonExistentPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{types.NormalizePath(missing)}, paths)
}

func TestLexicalSearch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkReplace(ctx, []types.Word{
		word("auth.go", 1, 5, "func handleLogin(user string) error { return validate_token(user) }"),
		word("db.go", 1, 5, "func openDatabase(path string) error { return nil }"),
	}))

	t.Run("case insensitive", func(t *testing.T) {
		results, err := store.LexicalSearch(ctx, "HANDLELOGIN", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "auth.go", results[0].Path)
		assert.Greater(t, results[0].Score, 0.0)
	})

	t.Run("terms are or-ed", func(t *testing.T) {
		results, err := store.LexicalSearch(ctx, "openDatabase handleLogin", 10)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("underscore is part of a token", func(t *testing.T) {
		results, err := store.LexicalSearch(ctx, "validate_token", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)

		results, err = store.LexicalSearch(ctx, "validate", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("malformed syntax falls back to raw terms", func(t *testing.T) {
		results, err := store.LexicalSearch(ctx, `openDatabase("`, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "db.go", results[0].Path)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := store.LexicalSearch(ctx, "func", 1)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("empty query", func(t *testing.T) {
		results, err := store.LexicalSearch(ctx, "   ", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestVectorSearch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkReplace(ctx, []types.Word{
		word("x.go", 1, 1, "x", 1, 0, 0),
		word("xy.go", 1, 1, "xy", 1, 1, 0),
		word("z.go", 1, 1, "z", 0, 0, 1),
		word("neg.go", 1, 1, "neg", -1, 0, 0),
	}))

	results, err := store.VectorSearch(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "x.go", results[0].Path)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "xy.go", results[1].Path)
	assert.Nil(t, results[0].Vector)

	results, err = store.VectorSearch(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = store.VectorSearch(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorSearch_StoredVectorsAreFitted(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	long := make([]float32, types.VectorDimension+10)
	long[0] = 1
	long[types.VectorDimension+5] = 1 // truncated away
	require.NoError(t, store.BulkReplace(ctx, []types.Word{types.NewWord("long.go", types.Chunk{Content: "x", StartLine: 1, EndLine: 1}, long)}))

	var blob []byte
	require.NoError(t, store.db.QueryRow("SELECT vector FROM documents").Scan(&blob))
	assert.Len(t, blob, types.VectorDimension*4)

	results, err := store.VectorSearch(ctx, []float32{1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestHybridSearch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkReplace(ctx, []types.Word{
		word("src/auth/login.go", 1, 20, "func Login(user string) error { return checkPassword(user) }", 1, 0),
		word("src/db/conn.go", 1, 20, "func Connect(dsn string) error { return nil }", 0, 1),
	}))

	t.Run("both modes agree", func(t *testing.T) {
		results, err := store.HybridSearch(ctx, "checkPassword", []float32{1, 0}, 0.3, 0.7, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		r := results[0]
		assert.Equal(t, "src/auth/login.go--1--20", r.ID)
		assert.Equal(t, "login.go", r.Name)
		assert.Equal(t, "src/auth/login.go", r.Path)
		assert.Equal(t, 1, r.StartLine)
		assert.Equal(t, 20, r.EndLine)
		assert.InDelta(t, 0.0, r.Distance, 1e-9)
		assert.NoError(t, r.Validate())
	})

	t.Run("weights decide between modes", func(t *testing.T) {
		results, err := store.HybridSearch(ctx, "Connect", []float32{1, 0}, 0.3, 0.7, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "src/auth/login.go", results[0].Path)
		assert.InDelta(t, 0.3, results[0].Distance, 1e-9)
		assert.InDelta(t, 0.7, results[1].Distance, 1e-9)

		results, err = store.HybridSearch(ctx, "Connect", []float32{1, 0}, 0.9, 0.1, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "src/db/conn.go", results[0].Path)
	})

	t.Run("text only", func(t *testing.T) {
		results, err := store.HybridSearch(ctx, "Connect", nil, 0.3, 0.7, 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "src/db/conn.go", results[0].Path)
		assert.InDelta(t, 0.0, results[0].Distance, 1e-9)
	})

	t.Run("vector only", func(t *testing.T) {
		results, err := store.HybridSearch(ctx, "", []float32{0, 1}, 0.3, 0.7, 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "src/db/conn.go", results[0].Path)
	})

	t.Run("no inputs", func(t *testing.T) {
		results, err := store.HybridSearch(ctx, " ", nil, 0.3, 0.7, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestStartCacheIndex(t *testing.T) {
	root := t.TempDir()
	old := filepath.Join(root, "proj", "index_1")
	unrelated := filepath.Join(root, "proj", "embeddings")
	require.NoError(t, os.MkdirAll(old, 0755))
	require.NoError(t, os.MkdirAll(unrelated, 0755))

	dir, err := StartCacheIndex(root, "proj", "index", "2")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "proj", "index_2"), dir)
	assert.DirExists(t, dir)
	assert.NoDirExists(t, old)
	assert.DirExists(t, unrelated)
}

func TestOpen_ExclusiveLock(t *testing.T) {
	opts := Options{Root: t.TempDir(), Project: ProjectKey("/work/app")}

	first, err := Open(opts)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(first.Dir(), dbFileName))

	_, err = Open(opts)
	assert.ErrorIs(t, err, ErrStoreLocked)

	require.NoError(t, first.Close())

	second, err := Open(opts)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	opts := Options{Root: t.TempDir(), Project: "app"}
	ctx := context.Background()

	store, err := Open(opts)
	require.NoError(t, err)
	require.NoError(t, store.BulkReplace(ctx, []types.Word{word("a.go", 1, 1, "persisted")}))
	require.NoError(t, store.Close())

	store, err = Open(opts)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	assert.True(t, store.HasAnyIndex(ctx))
}

func TestOpen_RequiresRootAndProject(t *testing.T) {
	_, err := Open(Options{Project: "x"})
	assert.Error(t, err)
}

func TestProjectKey(t *testing.T) {
	a := ProjectKey("/work/app")
	assert.Equal(t, a, ProjectKey("/work/app"))
	assert.NotEqual(t, a, ProjectKey("/other/app"))
	assert.Regexp(t, `^app-[0-9a-f]{8}$`, a)
}

func TestQueryBuilders(t *testing.T) {
	assert.Equal(t, "foo OR bar_baz", structuredQuery("foo, bar_baz"))
	assert.Equal(t, `"exact phrase"`, structuredQuery(`"exact phrase"`))
	assert.Equal(t, "a AND b", structuredQuery("a AND b"))
	assert.Equal(t, `"foo" OR "bar"`, rawTermQuery(`foo("bar`))
	assert.Empty(t, rawTermQuery("(){}"))
	assert.Equal(t, `a\%b\_c\\`, escapeLike(`a%b_c\`))
}
