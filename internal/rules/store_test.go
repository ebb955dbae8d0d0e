package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/tidy/internal/apperr"
	"github.com/starford/tidy/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.json")
	s := New(path, quietLogger())
	require.NoError(t, s.Load())
	return s, path
}

func readFile(t *testing.T, path string) []models.Rule {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []models.Rule
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestLoadMissingInstallsDefaults(t *testing.T) {
	s, path := newStore(t)
	assert.Equal(t, DefaultRules(), s.Rules())
	assert.Equal(t, DefaultRules(), readFile(t, path))
}

func TestLoadCorruptFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"keyword": "x", `), 0o644))

	s := New(path, quietLogger())
	require.NoError(t, s.Load())
	assert.Equal(t, DefaultRules(), s.Rules())

	// The broken file is left for the user to inspect.
	data, _ := os.ReadFile(path)
	assert.Equal(t, `[{"keyword": "x", `, string(data))
}

func TestLoadDropsIncompleteRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"keyword": "tax", "folder": "Taxes"},
		{"keyword": "", "folder": "Nowhere"},
		{"keyword": "  cv ", "folder": " Career "}
	]`), 0o644))

	s := New(path, quietLogger())
	require.NoError(t, s.Load())
	assert.Equal(t, []models.Rule{
		{Keyword: "tax", Folder: "Taxes"},
		{Keyword: "cv", Folder: "Career"},
	}, s.Rules())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, path := newStore(t)
	_, _, err := s.Add(models.Rule{Keyword: "città", Folder: "Viaggi/Città"})
	require.NoError(t, err)
	_, _, err = s.Add(models.Rule{Keyword: "fattura", Folder: "/abs/dup"})
	require.NoError(t, err)

	reloaded := New(path, quietLogger())
	require.NoError(t, reloaded.Load())
	assert.Equal(t, s.Rules(), reloaded.Rules())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Viaggi/Città", "non-ASCII must not be escaped")
	assert.Contains(t, string(data), "\n    {", "expected 4-space indentation")
}

func TestAddValidates(t *testing.T) {
	s, _ := newStore(t)
	for _, r := range []models.Rule{
		{Keyword: "", Folder: "x"},
		{Keyword: "x", Folder: ""},
		{Keyword: "   ", Folder: "x"},
	} {
		_, _, err := s.Add(r)
		assert.ErrorIs(t, err, apperr.ErrInvalidRule, "rule %+v", r)
	}
	assert.Len(t, s.Rules(), 2)
}

func TestAddTrims(t *testing.T) {
	s, _ := newStore(t)
	_, r, err := s.Add(models.Rule{Keyword: " bank ", Folder: " Finance "})
	require.NoError(t, err)
	assert.Equal(t, models.Rule{Keyword: "bank", Folder: "Finance"}, r)
	assert.Equal(t, r, s.Rules()[2])
}

func TestAddReturnsStoredIndex(t *testing.T) {
	s, _ := newStore(t)

	const n = 8
	indices := make([]int, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx, _, err := s.Add(models.Rule{Keyword: fmt.Sprintf("k%d", i), Folder: "F"})
			assert.NoError(t, err)
			indices[i] = idx
		}()
	}
	wg.Wait()

	list := s.Rules()
	require.Len(t, list, 2+n)
	for i, idx := range indices {
		assert.Equal(t, fmt.Sprintf("k%d", i), list[idx].Keyword, "index %d", idx)
	}

	idx, _, err := s.Add(models.Rule{Keyword: "", Folder: "F"})
	assert.Error(t, err)
	assert.Equal(t, -1, idx)
}

func TestUpdate(t *testing.T) {
	s, path := newStore(t)
	_, err := s.Update(1, models.Rule{Keyword: "snip", Folder: "Clips"})
	require.NoError(t, err)
	assert.Equal(t, models.Rule{Keyword: "snip", Folder: "Clips"}, s.Rules()[1])
	assert.Equal(t, s.Rules(), readFile(t, path))

	_, err = s.Update(5, models.Rule{Keyword: "a", Folder: "b"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.Update(-1, models.Rule{Keyword: "a", Folder: "b"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRemoveMultipleAnyOrder(t *testing.T) {
	for _, sel := range [][]int{{1, 3}, {3, 1}, {3, 1, 3}} {
		s, path := newStore(t)
		for _, k := range []string{"c", "d", "e"} {
			_, _, err := s.Add(models.Rule{Keyword: k, Folder: strings.ToUpper(k)})
			require.NoError(t, err)
		}
		// fattura, screenshot, c, d, e
		require.NoError(t, s.Remove(sel...))
		want := []models.Rule{
			{Keyword: "fattura", Folder: "Documenti/Fatture"},
			{Keyword: "c", Folder: "C"},
			{Keyword: "e", Folder: "E"},
		}
		assert.Equal(t, want, s.Rules(), "selection %v", sel)
		assert.Equal(t, want, readFile(t, path))
	}
}

func TestRemoveOutOfRangeRemovesNothing(t *testing.T) {
	s, _ := newStore(t)
	err := s.Remove(0, 7)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Len(t, s.Rules(), 2)

	assert.ErrorIs(t, s.Remove(), apperr.ErrInvalidRule)
}

func TestRemoveAllWritesEmptyArray(t *testing.T) {
	s, path := newStore(t)
	require.NoError(t, s.Remove(0, 1))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestSaveFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := New(filepath.Join(blocker, "rules.json"), quietLogger())
	// The path is unreadable, so the defaults stay in memory.
	require.NoError(t, s.Load())
	assert.Equal(t, DefaultRules(), s.Rules())

	_, _, err := s.Add(models.Rule{Keyword: "a", Folder: "b"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperr.ErrInvalidRule))
	assert.Equal(t, DefaultRules(), s.Rules())
}

func TestRulesReturnsCopy(t *testing.T) {
	s, _ := newStore(t)
	got := s.Rules()
	got[0].Keyword = "mutated"
	assert.Equal(t, "fattura", s.Rules()[0].Keyword)
}

func TestOnChange(t *testing.T) {
	s, _ := newStore(t)
	var calls atomic.Int32
	s.OnChange(func(list []models.Rule) { calls.Add(1) })

	_, _, _ = s.Add(models.Rule{Keyword: "a", Folder: "b"})
	_ = s.Remove(0)
	_, _, _ = s.Add(models.Rule{Keyword: "", Folder: "b"}) // rejected, no event
	assert.Equal(t, int32(2), calls.Load())
}

func TestWatchReloadsExternalEdit(t *testing.T) {
	s, path := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`[{"keyword":"bill","folder":"Bills"}]`), 0o644))

	require.Eventually(t, func() bool {
		list := s.Rules()
		return len(list) == 1 && list[0].Keyword == "bill"
	}, 5*time.Second, 50*time.Millisecond)

	// A broken edit keeps the current rules.
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, []models.Rule{{Keyword: "bill", Folder: "Bills"}}, s.Rules())
}

func TestWatchIgnoresOwnWrites(t *testing.T) {
	s, _ := newStore(t)
	var calls atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx)
	time.Sleep(100 * time.Millisecond)

	s.OnChange(func([]models.Rule) { calls.Add(1) })
	_, _, err := s.Add(models.Rule{Keyword: "a", Folder: "b"})
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "own save must not trigger a reload")
}
