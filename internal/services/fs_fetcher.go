package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"regtree/internal/domain"
)

// FileEntry is the metadata carried by filesystem rows.
type FileEntry struct {
	Path      string
	SizeBytes int64
	ModTime   time.Time
	IsDir     bool
}

// FSFetcher lists one directory per fetch. Node ids are absolute paths.
type FSFetcher struct {
	showHidden bool
	pageSize   int
	exclusions map[string]struct{}
}

type FSOption func(*FSFetcher)

func WithShowHidden(show bool) FSOption {
	return func(fetcher *FSFetcher) {
		fetcher.showHidden = show
	}
}

func WithPageSize(size int) FSOption {
	return func(fetcher *FSFetcher) {
		if size > 0 {
			fetcher.pageSize = size
		}
	}
}

func NewFSFetcher(options ...FSOption) *FSFetcher {
	fetcher := &FSFetcher{
		pageSize: DefaultPageSize,
		exclusions: map[string]struct{}{
			".git":         {},
			"node_modules": {},
			".cache":       {},
		},
	}
	for _, option := range options {
		option(fetcher)
	}
	return fetcher
}

// RootPath normalizes a root path the way node ids are built.
func RootPath(path string) string {
	return cleanPath(path)
}

func (fetcher *FSFetcher) Fetch(ctx context.Context, req FetchRequest) (domain.FetchResult, error) {
	if req.Node == nil {
		return domain.FetchResult{}, ErrUnsupportedNode
	}
	if err := ctx.Err(); err != nil {
		return domain.FetchResult{}, err
	}
	dir := cleanPath(req.Node.ID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("list %s: %w", dir, err)
	}

	search := strings.ToLower(req.Filters.SearchOrEmpty())
	nodes := make([]domain.Node, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !fetcher.showHidden && (isHidden(name) || fetcher.isExcluded(name)) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(name), search) {
			continue
		}
		path := filepath.Join(dir, name)
		meta := FileEntry{Path: path, IsDir: entry.IsDir()}
		if info, infoErr := entry.Info(); infoErr == nil {
			meta.ModTime = info.ModTime()
			if !info.IsDir() {
				meta.SizeBytes = info.Size()
			}
		}
		node := domain.Node{
			ID:       path,
			Label:    name,
			Value:    path,
			Type:     domain.NodeFile,
			Metadata: meta,
		}
		if meta.IsDir {
			node.Type = domain.NodeFolder
		}
		nodes = append(nodes, node)
	}

	sortEntries(nodes, domain.SortMode(req.Filters.SortOrEmpty()))
	page, pagination := paginate(nodes, req.Filters.PageOrZero(), fetcher.pageSize)
	return domain.FetchResult{Data: page, Pagination: &pagination}, nil
}

func (fetcher *FSFetcher) isExcluded(name string) bool {
	_, excluded := fetcher.exclusions[name]
	return excluded
}

// sortEntries puts folders first, then orders by mode. Name is the default.
func sortEntries(nodes []domain.Node, mode domain.SortMode) {
	field, order := splitSort(string(mode))
	less := func(i, j int) bool {
		left, right := entryOf(nodes[i]), entryOf(nodes[j])
		if left.IsDir != right.IsDir {
			return left.IsDir
		}
		switch domain.SortMode(field) {
		case domain.SortBySize:
			if left.SizeBytes != right.SizeBytes {
				return left.SizeBytes > right.SizeBytes
			}
		case domain.SortByMod:
			if !left.ModTime.Equal(right.ModTime) {
				return left.ModTime.After(right.ModTime)
			}
		}
		return nodes[i].Label < nodes[j].Label
	}
	sort.SliceStable(nodes, less)
	if order == "desc" {
		reverseWithinKind(nodes)
	}
}

// reverseWithinKind reverses folders and files separately so folders stay first.
func reverseWithinKind(nodes []domain.Node) {
	split := 0
	for split < len(nodes) && entryOf(nodes[split]).IsDir {
		split++
	}
	reverse(nodes[:split])
	reverse(nodes[split:])
}

func reverse(nodes []domain.Node) {
	for left, right := 0, len(nodes)-1; left < right; left, right = left+1, right-1 {
		nodes[left], nodes[right] = nodes[right], nodes[left]
	}
}

func entryOf(node domain.Node) FileEntry {
	entry, _ := node.Metadata.(FileEntry)
	return entry
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func isWithin(root, path string) bool {
	if root == path {
		return true
	}
	rootWithSep := strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator)
	return strings.HasPrefix(path, rootWithSep)
}

func cleanPath(path string) string {
	if path == "" {
		return path
	}
	clean := filepath.Clean(path)
	abs, err := filepath.Abs(clean)
	if err != nil {
		return clean
	}
	return abs
}
