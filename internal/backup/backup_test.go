package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyowon/folio/internal/contracts"
	"github.com/hyowon/folio/internal/store"
	"github.com/hyowon/folio/pkg/config"
	"github.com/hyowon/folio/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
}

func newManager(t *testing.T, st *store.Store) *Manager {
	t.Helper()
	m, err := New(t.TempDir(), st, testLogger())
	require.NoError(t, err)
	return m
}

func seedStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New()
	_, err := st.Buy("Growth", "AAPL", 10, 100, "first lot")
	require.NoError(t, err)
	_, err = st.Sell("Growth", "AAPL", 4, 120, "")
	require.NoError(t, err)
	require.NoError(t, st.SetDefault("Growth"))
	return st
}

func TestCreateAndRestore_RoundTrip(t *testing.T) {
	st := seedStore(t)
	m := newManager(t, st)

	path, err := m.Create()
	require.NoError(t, err)
	assert.FileExists(t, path)

	wantSnap := st.Snapshot()

	// Wipe the store, then restore from the file
	st.Restore(contracts.Snapshot{})
	require.Empty(t, st.Names())

	require.NoError(t, m.Restore(path))
	assert.Equal(t, wantSnap, st.Snapshot())
}

func TestCreate_FileNaming(t *testing.T) {
	m := newManager(t, store.New())
	m.now = func() time.Time {
		return time.Date(2026, 3, 5, 14, 30, 9, 0, time.Local)
	}

	path, err := m.Create()
	require.NoError(t, err)

	assert.Equal(t, "backup-20260305-143009.json", filepath.Base(path))
}

func TestList_NewestFirst(t *testing.T) {
	m := newManager(t, store.New())
	stamps := []string{"20260101-000000", "20260301-120000", "20260215-080000"}
	for _, stamp := range stamps {
		path := filepath.Join(m.Dir(), "backup-"+stamp+".json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	}
	// Non-backup files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "notes.txt"), []byte("x"), 0o644))

	names, err := m.List()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"backup-20260301-120000.json",
		"backup-20260215-080000.json",
		"backup-20260101-000000.json",
	}, names)
}

func TestLatest_EmptyDir(t *testing.T) {
	m := newManager(t, store.New())

	_, ok, err := m.Latest()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestoreData_Malformed(t *testing.T) {
	st := seedStore(t)
	m := newManager(t, st)
	before := st.Snapshot()

	err := m.RestoreData([]byte("not json at all"))

	require.Error(t, err)
	// Failed restore leaves the store untouched
	assert.Equal(t, before, st.Snapshot())
}

func TestRestoreData_MissingFieldsFallBack(t *testing.T) {
	st := store.New()
	m := newManager(t, st)

	require.NoError(t, m.RestoreData([]byte(`{"portfolios": {"Solo": {}}}`)))

	assert.Equal(t, []string{"Solo"}, st.Names())
	assert.Equal(t, contracts.FallbackPortfolioName, st.DefaultName())
	pf, ok := st.Get("Solo")
	require.True(t, ok)
	assert.NotNil(t, pf.Positions)
	assert.NotNil(t, pf.Tickers)
}

func TestLoadLatest_CorruptFileStartsEmpty(t *testing.T) {
	st := store.New()
	m := newManager(t, st)
	path := filepath.Join(m.Dir(), "backup-20260301-120000.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	m.LoadLatest()

	assert.Empty(t, st.Names())
}

func TestLoadLatest_RestoresNewest(t *testing.T) {
	st := seedStore(t)
	m := newManager(t, st)
	_, err := m.Create()
	require.NoError(t, err)
	want := st.Snapshot()

	fresh := store.New()
	m2, err := New(m.Dir(), fresh, testLogger())
	require.NoError(t, err)
	m2.LoadLatest()

	assert.Equal(t, want, fresh.Snapshot())
}
