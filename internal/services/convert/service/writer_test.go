package service

import (
	"path/filepath"
	"testing"

	"cachetrace/internal/core/classify"
	kit "cachetrace/internal/platform/testkit"
	"cachetrace/internal/services/convert/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(cat, key string) domain.Record {
	return domain.Record{Class: classify.ClassRead, Category: cat, Key: key}
}

func TestSeenSet(t *testing.T) {
	s := NewSeenSet()
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))
	assert.Equal(t, 2, s.Len())
}

func TestWriter_DedupFirstSighting(t *testing.T) {
	dir := t.TempDir()
	out := domain.Outputs{
		Full:   filepath.Join(dir, "c_full.txt"),
		Unique: filepath.Join(dir, "c_unique.txt"),
	}
	seen := NewSeenSet()
	w, err := NewWriter(out, seen)
	require.NoError(t, err)

	// nothing visible under final names until commit
	kit.MustNotExist(t, out.Full)

	for _, r := range []domain.Record{
		rec("READ", "k1"), rec("UPDATE", "k1"), rec("READ", "k2"), rec("UPDATE", "k3"), rec("READ", "k2"),
	} {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Commit())
	w.Abort() // no-op after commit

	assert.Equal(t, []string{"READ,k1", "UPDATE,k1", "READ,k2", "UPDATE,k3", "READ,k2"}, kit.ReadLines(t, out.Full))
	assert.Equal(t, []string{"READ,k1", "READ,k2", "UPDATE,k3"}, kit.ReadLines(t, out.Unique))
	f, u := w.Counts()
	assert.Equal(t, int64(5), f)
	assert.Equal(t, int64(3), u)
	assert.Equal(t, 3, seen.Len())
	kit.MustNotExist(t, out.Full+".part")
	kit.MustNotExist(t, out.Unique+".part")
}

func TestWriter_NoDedup(t *testing.T) {
	dir := t.TempDir()
	out := domain.Outputs{Full: filepath.Join(dir, "sub", "x_full.txt")}
	w, err := NewWriter(out, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(rec("READ", "k")))
	require.NoError(t, w.Write(rec("READ", "k")))
	require.NoError(t, w.Commit())

	assert.Equal(t, []string{"READ,k", "READ,k"}, kit.ReadLines(t, out.Full))
	kit.MustNotExist(t, filepath.Join(dir, "sub", "x_unique.txt"))
}

func TestWriter_AbortRemovesPartials(t *testing.T) {
	dir := t.TempDir()
	out := domain.Outputs{
		Full:   filepath.Join(dir, "a_full.txt"),
		Unique: filepath.Join(dir, "a_unique.txt"),
	}
	w, err := NewWriter(out, NewSeenSet())
	require.NoError(t, err)
	require.NoError(t, w.Write(rec("READ", "k")))
	w.Abort()
	require.NoError(t, w.Commit()) // no-op after abort

	for _, p := range []string{out.Full, out.Unique, out.Full + ".part", out.Unique + ".part"} {
		kit.MustNotExist(t, p)
	}
}

func TestWriter_DedupNeedsSeenSet(t *testing.T) {
	dir := t.TempDir()
	out := domain.Outputs{
		Full:   filepath.Join(dir, "b_full.txt"),
		Unique: filepath.Join(dir, "b_unique.txt"),
	}
	_, err := NewWriter(out, nil)
	require.Error(t, err)
	kit.MustNotExist(t, out.Full+".part")
}
