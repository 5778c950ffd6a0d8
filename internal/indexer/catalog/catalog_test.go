package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newCatalog(t *testing.T) (*Catalog, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return New(1<<20, 4, m), m
}

func TestLoadAndGet(t *testing.T) {
	c, m := newCatalog(t)

	engine, outcome, err := c.Load("pets", strings.NewReader("the cat sat\nthe dog sat\n"))
	require.NoError(t, err)
	assert.Equal(t, Indexed, outcome)
	assert.Equal(t, "pets", engine.Name())

	got, err := c.Get("pets")
	require.NoError(t, err)
	assert.Same(t, engine, got)

	n, err := got.Count("sat")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogDocuments))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.DocumentUniqueWords.WithLabelValues("pets")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsIndexed.WithLabelValues("indexed")))
}

func TestLoadUnchangedAndReplace(t *testing.T) {
	c, m := newCatalog(t)

	first, _, err := c.Load("doc", strings.NewReader("alpha beta"))
	require.NoError(t, err)

	same, outcome, err := c.Load("doc", strings.NewReader("alpha beta"))
	require.NoError(t, err)
	assert.Equal(t, Unchanged, outcome)
	assert.Same(t, first, same)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsIndexed.WithLabelValues("unchanged")))

	replaced, outcome, err := c.Load("doc", strings.NewReader("alpha gamma"))
	require.NoError(t, err)
	assert.Equal(t, Indexed, outcome)
	assert.NotSame(t, first, replaced)

	n, err := replaced.Count("beta")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, c.Len())
}

func TestLoadRejects(t *testing.T) {
	c := New(10, 1, nil)

	_, _, err := c.Load("", strings.NewReader("x"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, outcome, err := c.Load("big", strings.NewReader("this line is too long"))
	assert.ErrorIs(t, err, apperrors.ErrDocumentTooLarge)
	assert.Equal(t, Failed, outcome)

	_, _, err = c.Load("fits", strings.NewReader("exactly 10"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"fits"}, c.Names())
}

func TestGetMissing(t *testing.T) {
	c, _ := newCatalog(t)
	_, err := c.Get("nope")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestRemove(t *testing.T) {
	c, m := newCatalog(t)
	_, _, err := c.Load("a", strings.NewReader("one"))
	require.NoError(t, err)
	_, _, err = c.Load("b", strings.NewReader("two"))
	require.NoError(t, err)

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, []string{"b"}, c.Names())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogDocuments))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"one.txt":   "the quick brown fox",
		"two.TXT":   "jumps over\nthe lazy dog",
		"three.txt": "",
		"notes.md":  "ignored",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	c, _ := newCatalog(t)
	loaded, err := c.LoadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded)
	assert.Equal(t, []string{"one.txt", "three.txt", "two.TXT"}, c.Names())

	stats := c.Stats()
	require.Len(t, stats, 3)
	assert.Equal(t, "one.txt", stats[0].Name)
	assert.Equal(t, 4, stats[0].UniqueWords)

	again, err := c.LoadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestLoadDirErrors(t *testing.T) {
	c, _ := newCatalog(t)
	_, err := c.LoadDir(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.LoadDir(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentLoadAndRead(t *testing.T) {
	c, _ := newCatalog(t)
	_, _, err := c.Load("shared", strings.NewReader("red green blue"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := c.Load("shared", strings.NewReader("red green blue"))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			engine, err := c.Get("shared")
			if assert.NoError(t, err) {
				n, err := engine.Count("green")
				assert.NoError(t, err)
				assert.Equal(t, 1, n)
			}
		}()
	}
	wg.Wait()
}
