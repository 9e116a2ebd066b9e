package services

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/gotidy/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regtree/internal/domain"
)

func folderNode(id string) *domain.TreeNode {
	return &domain.TreeNode{Node: domain.Node{ID: id, Type: domain.NodeFolder}}
}

func labels(nodes []domain.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, node.Label)
	}
	return out
}

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "b_dir"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("abc"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("0123456789"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	return dir
}

func TestFSFetcherListsFoldersFirst(t *testing.T) {
	dir := writeTree(t)
	fetcher := NewFSFetcher()

	result, err := fetcher.Fetch(context.Background(), FetchRequest{Node: folderNode(dir)})
	require.NoError(t, err)
	assert.Equal(t, []string{"b_dir", "a.txt", "c.txt"}, labels(result.Data))
	assert.False(t, result.Pagination.HasMore)

	first := result.Data[0]
	assert.Equal(t, filepath.Join(dir, "b_dir"), first.ID)
	assert.Equal(t, domain.NodeFolder, first.Type)
	entry, ok := result.Data[2].Metadata.(FileEntry)
	require.True(t, ok)
	assert.Equal(t, int64(10), entry.SizeBytes)
	assert.False(t, entry.IsDir)
}

func TestFSFetcherOptions(t *testing.T) {
	dir := writeTree(t)
	tests := []struct {
		name    string
		fetcher *FSFetcher
		filters domain.NodeConfig
		want    []string
		hasMore bool
	}{
		{
			name:    "hidden and excluded",
			fetcher: NewFSFetcher(WithShowHidden(true)),
			want:    []string{"b_dir", "node_modules", ".hidden", "a.txt", "c.txt"},
		},
		{
			name:    "first page",
			fetcher: NewFSFetcher(WithPageSize(2)),
			want:    []string{"b_dir", "a.txt"},
			hasMore: true,
		},
		{
			name:    "second page",
			fetcher: NewFSFetcher(WithPageSize(2)),
			filters: domain.NodeConfig{Page: ptr.Int(1)},
			want:    []string{"c.txt"},
		},
		{
			name:    "largest first",
			fetcher: NewFSFetcher(),
			filters: domain.NodeConfig{Sort: ptr.String("size,asc")},
			want:    []string{"b_dir", "c.txt", "a.txt"},
		},
		{
			name:    "name descending keeps folders first",
			fetcher: NewFSFetcher(),
			filters: domain.NodeConfig{Sort: ptr.String("name,desc")},
			want:    []string{"b_dir", "c.txt", "a.txt"},
		},
		{
			name:    "case insensitive search",
			fetcher: NewFSFetcher(),
			filters: domain.NodeConfig{SearchTerm: ptr.String("C.")},
			want:    []string{"c.txt"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result, err := test.fetcher.Fetch(context.Background(), FetchRequest{Node: folderNode(dir), Filters: test.filters})
			require.NoError(t, err)
			assert.Equal(t, test.want, labels(result.Data))
			assert.Equal(t, test.hasMore, result.Pagination.HasMore)
		})
	}
}

func TestFSFetcherErrors(t *testing.T) {
	fetcher := NewFSFetcher()

	_, err := fetcher.Fetch(context.Background(), FetchRequest{Node: folderNode(filepath.Join(t.TempDir(), "missing"))})
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)

	_, err = fetcher.Fetch(context.Background(), FetchRequest{})
	assert.ErrorIs(t, err, ErrUnsupportedNode)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fetcher.Fetch(ctx, FetchRequest{Node: folderNode(t.TempDir())})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPathHelpers(t *testing.T) {
	assert.True(t, isWithin("/a", "/a"))
	assert.True(t, isWithin("/a", "/a/b"))
	assert.False(t, isWithin("/a", "/ab"))
	assert.True(t, filepath.IsAbs(RootPath(".")))
	assert.Equal(t, "", RootPath(""))
}
