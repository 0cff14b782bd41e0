package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/rtp/internal/config"
	"github.com/udisondev/rtp/internal/testutil"
)

// exerciseBackend checks the Backend contract shared by every implementation.
func exerciseBackend(t *testing.T, open func() Backend) {
	t.Helper()
	ctx := context.Background()

	b := open()
	recs, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)

	p, q := uuid.New(), uuid.New()
	require.NoError(t, b.Insert(ctx, Record{p, "world"}))
	require.NoError(t, b.Insert(ctx, Record{p, "world"}), "duplicate insert is not an error")
	require.NoError(t, b.Insert(ctx, Record{p, "lobby"}))
	require.NoError(t, b.Insert(ctx, Record{q, "world"}))
	require.NoError(t, b.Flush(ctx))
	require.NoError(t, b.Close())

	b = open()
	defer b.Close()
	recs, err = b.Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Record{{p, "world"}, {p, "lobby"}, {q, "world"}}, recs)
}

func TestYAMLFile_Backend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "players.yml")
	exerciseBackend(t, func() Backend {
		f, err := OpenYAML(path)
		require.NoError(t, err)
		return f
	})
}

func TestYAMLFile_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.yml")
	_, err := OpenYAML(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestYAMLFile_Layout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.yml")
	f, err := OpenYAML(path)
	require.NoError(t, err)

	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	require.NoError(t, f.Insert(context.Background(), Record{id, "world"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.YAMLEq(t, `
players:
  0f8fad5b-d9cb-469f-a165-70867728950e:
    worlds: [world]
`, string(data))
}

func TestYAMLFile_SkipsBadIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
players:
  not-a-uuid:
    worlds: [world]
  0f8fad5b-d9cb-469f-a165-70867728950e:
    worlds: [world, lobby]
`), 0o644))

	f, err := OpenYAML(path)
	require.NoError(t, err)
	recs, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestYAMLFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.yml")
	require.NoError(t, os.WriteFile(path, []byte("players: [oops"), 0o644))
	_, err := OpenYAML(path)
	assert.Error(t, err)
}

func TestSQLite_Backend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	exerciseBackend(t, func() Backend {
		db, err := OpenSQLite(context.Background(), path)
		require.NoError(t, err)
		return db
	})
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()

	b, err := OpenBackend(context.Background(), config.HistoryConfig{Backend: config.BackendYAML, Path: filepath.Join(dir, "p.yml")})
	require.NoError(t, err)
	assert.IsType(t, &YAMLFile{}, b)

	b, err = OpenBackend(context.Background(), config.HistoryConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "h.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, b)
	require.NoError(t, b.Close())

	_, err = OpenBackend(context.Background(), config.HistoryConfig{Backend: "mongo"})
	assert.Error(t, err)
}

func TestPostgres_Backend(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	dsn := testutil.SetupPostgres(t)

	exerciseBackend(t, func() Backend {
		db, err := OpenPostgres(context.Background(), dsn)
		require.NoError(t, err)
		return db
	})
}
