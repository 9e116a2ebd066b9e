package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regtree/internal/config"
	"regtree/internal/domain"
	"regtree/internal/logging"
	"regtree/internal/services"
)

func TestSeedThenBrowseCatalog(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(`
registries:
  - name: images
    packageType: docker
    artifacts:
      - name: web
        versions:
          - name: v1
            size: 2048
`), 0o644))

	cfg := config.DefaultConfig()
	cfg.Source = config.SourceCatalog
	cfg.Catalog = filepath.Join(dir, "catalog.db")

	var out bytes.Buffer
	require.NoError(t, Seed(context.Background(), cfg, seedPath, &out))
	assert.Contains(t, out.String(), "seeded 3 rows")

	src, err := openSource(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFetcher(src.fetcher, logging.Discard())
	assert.Equal(t, "registries", src.root)
	assert.Len(t, src.sortOptions, 4)

	root := &domain.TreeNode{Node: domain.Node{ID: src.root, Type: domain.NodeFolder}}
	result, err := src.fetcher.Fetch(context.Background(), services.FetchRequest{Node: root})
	require.NoError(t, err)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "Σ 1 registry", src.header(&domain.TreeNode{Node: result.Data[0]}))
	assert.Equal(t, "DOCKER · 1", src.action(&domain.TreeNode{Node: result.Data[1]}))
}

func TestSeedReportsMissingFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Catalog = filepath.Join(t.TempDir(), "catalog.db")
	err := Seed(context.Background(), cfg, filepath.Join(t.TempDir(), "absent.yaml"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "open seed")
}

func TestOpenSourceDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source = config.SourceMock
	src, err := openSource(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "demo", src.root)

	cfg.Source = config.SourceFS
	cfg.Path = t.TempDir()
	src, err = openSource(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, services.RootPath(cfg.Path), src.root)
	assert.Equal(t, "1 B", fileAction(&domain.TreeNode{Node: domain.Node{Metadata: services.FileEntry{SizeBytes: 1}}}))
	assert.Equal(t, "", fileAction(&domain.TreeNode{Node: domain.Node{Metadata: services.FileEntry{IsDir: true}}}))
}

func TestCatalogAction(t *testing.T) {
	version := &domain.TreeNode{Node: domain.Node{Metadata: services.CatalogEntry{Entity: services.EntityVersion, Size: 2048}}}
	assert.Equal(t, "2.0 kB", catalogAction(version))

	artifact := &domain.TreeNode{Node: domain.Node{Metadata: services.CatalogEntry{Entity: services.EntityArtifact, Children: 3}}}
	assert.Equal(t, "3 versions", catalogAction(artifact))

	assert.Equal(t, "", catalogAction(&domain.TreeNode{}))
}
