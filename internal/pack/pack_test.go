package pack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_New(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.texpack")

	w, err := New(dbPath, Metadata{Name: "Test", Description: "Test description", Version: "1.0"})
	require.NoError(t, err)
	defer w.Close()

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "database file was not created")

	var count int
	require.NoError(t, w.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='maps'").Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, w.db.QueryRow("SELECT COUNT(*) FROM metadata").Scan(&count))
	assert.Equal(t, 3, count)
	assert.Equal(t, dbPath, w.Path())
}

func TestRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.texpack")

	w, err := New(dbPath, Metadata{Name: "bricks", Params: "strength=2"})
	require.NoError(t, err)

	entries := []Entry{
		{Source: "bricks", Kind: "normal", Format: "png", Width: 4, Height: 2, Data: []byte("normal data")},
		{Source: "bricks", Kind: "spec", Format: "png", Width: 4, Height: 2, Data: []byte("spec data")},
		{Source: "aardvark", Kind: "occlusion", Format: "webp", Width: 8, Height: 8, Data: []byte{0, 1, 2, 255}},
	}
	for _, e := range entries {
		require.NoError(t, w.WriteMap(e))
	}
	require.NoError(t, w.Close())

	r, err := OpenReader(dbPath)
	require.NoError(t, err)
	defer r.Close()

	for _, want := range entries {
		got, err := r.ReadMap(want.Source, want.Kind)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	list, err := r.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "aardvark", list[0].Source)
	assert.Equal(t, "normal", list[1].Kind)
	assert.Equal(t, "spec", list[2].Kind)
	assert.Nil(t, list[0].Data)

	meta, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, Metadata{Name: "bricks", Params: "strength=2"}, meta)
}

func TestWriter_BatchFlush(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.texpack")
	w, err := New(dbPath, Metadata{Name: "Test"})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < DefaultBatchSize; i++ {
		require.NoError(t, w.WriteMap(Entry{Source: fmt.Sprintf("tex%02d", i), Kind: "normal", Format: "png", Data: []byte{byte(i)}}))
	}

	// A full batch is flushed without an explicit Flush.
	var count int
	require.NoError(t, w.db.QueryRow("SELECT COUNT(*) FROM maps").Scan(&count))
	assert.Equal(t, DefaultBatchSize, count)
	assert.Empty(t, w.batch)

	require.NoError(t, w.WriteMap(Entry{Source: "extra", Kind: "spec", Format: "png", Data: []byte{1}}))
	require.NoError(t, w.db.QueryRow("SELECT COUNT(*) FROM maps").Scan(&count))
	assert.Equal(t, DefaultBatchSize, count)

	require.NoError(t, w.Flush())
	require.NoError(t, w.db.QueryRow("SELECT COUNT(*) FROM maps").Scan(&count))
	assert.Equal(t, DefaultBatchSize+1, count)
}

func TestWriter_ReplaceExisting(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.texpack")
	w, err := New(dbPath, Metadata{Name: "Test"})
	require.NoError(t, err)

	require.NoError(t, w.WriteMap(Entry{Source: "a", Kind: "normal", Format: "png", Width: 1, Height: 1, Data: []byte("first")}))
	require.NoError(t, w.Flush())
	require.NoError(t, w.WriteMap(Entry{Source: "a", Kind: "normal", Format: "webp", Width: 2, Height: 2, Data: []byte("second")}))
	require.NoError(t, w.Close())

	r, err := OpenReader(dbPath)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadMap("a", "normal")
	require.NoError(t, err)
	assert.Equal(t, "webp", got.Format)
	assert.Equal(t, []byte("second"), got.Data)

	list, err := r.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWriter_ConcurrentWrites(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.texpack")
	w, err := New(dbPath, Metadata{Name: "Test"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, w.WriteMap(Entry{Source: fmt.Sprintf("tex%02d", i), Kind: "spec", Format: "png", Data: []byte{byte(i)}}))
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	r, err := OpenReader(dbPath)
	require.NoError(t, err)
	defer r.Close()
	list, err := r.List()
	require.NoError(t, err)
	assert.Len(t, list, 40)
}

func TestWriter_RejectsIncompleteEntry(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "test.texpack"), Metadata{})
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.WriteMap(Entry{Kind: "normal", Data: []byte{1}}))
	assert.Error(t, w.WriteMap(Entry{Source: "a", Data: []byte{1}}))
}

func TestReader_MapNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.texpack")
	w, err := New(dbPath, Metadata{Name: "Test"})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenReader(dbPath)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadMap("missing", "normal")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestReader_InvalidDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "invalid.texpack")
	require.NoError(t, os.WriteFile(dbPath, []byte("not a database"), 0o644))

	_, err := OpenReader(dbPath)
	assert.Error(t, err)
}
