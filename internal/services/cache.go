package services

import (
	"context"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"regtree/internal/domain"
)

const DefaultCacheSize = 256

type cacheEntry struct {
	nodeID string
	result domain.FetchResult
}

// flight is one fetch running inside the singleflight group. Invalidate marks
// it so its result is handed back but never stored.
type flight struct {
	nodeID      string
	invalidated bool
}

// CachedFetcher keeps recent listings in an LRU and collapses concurrent
// identical fetches into one call.
type CachedFetcher struct {
	next  Fetcher
	cache *lru.Cache[string, cacheEntry]
	group singleflight.Group

	mu       sync.Mutex
	inflight map[string]*flight
}

func NewCachedFetcher(next Fetcher, size int) (*CachedFetcher, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &CachedFetcher{next: next, cache: cache, inflight: make(map[string]*flight)}, nil
}

func (fetcher *CachedFetcher) Fetch(ctx context.Context, req FetchRequest) (domain.FetchResult, error) {
	key := req.cacheKey()
	if entry, ok := fetcher.cache.Get(key); ok {
		return entry.result, nil
	}
	nodeID := ""
	if req.Node != nil {
		nodeID = req.Node.ID
	}
	value, err, _ := fetcher.group.Do(key, func() (interface{}, error) {
		call := fetcher.begin(key, nodeID)
		result, err := fetcher.next.Fetch(ctx, req)
		fetcher.finish(key, call, result, err)
		if err != nil {
			return domain.FetchResult{}, err
		}
		return result, nil
	})
	if err != nil {
		return domain.FetchResult{}, err
	}
	return value.(domain.FetchResult), nil
}

func (fetcher *CachedFetcher) begin(key, nodeID string) *flight {
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	call := &flight{nodeID: nodeID}
	fetcher.inflight[key] = call
	return call
}

func (fetcher *CachedFetcher) finish(key string, call *flight, result domain.FetchResult, err error) {
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if fetcher.inflight[key] == call {
		delete(fetcher.inflight, key)
	}
	if err == nil && !call.invalidated {
		fetcher.cache.Add(key, cacheEntry{nodeID: call.nodeID, result: result})
	}
}

// Invalidate drops every listing of path and of the nodes below it. Ids are
// treated as slash separated paths. Fetches still running for those nodes
// are detached so later callers start a fresh one.
func (fetcher *CachedFetcher) Invalidate(path string) {
	fetcher.mu.Lock()
	for _, key := range fetcher.cache.Keys() {
		entry, ok := fetcher.cache.Peek(key)
		if ok && covers(path, entry.nodeID) {
			fetcher.cache.Remove(key)
		}
	}
	for key, call := range fetcher.inflight {
		if covers(path, call.nodeID) {
			call.invalidated = true
			delete(fetcher.inflight, key)
			fetcher.group.Forget(key)
		}
	}
	fetcher.mu.Unlock()

	if invalidator, ok := fetcher.next.(Invalidator); ok {
		invalidator.Invalidate(path)
	}
}

func covers(path, nodeID string) bool {
	return nodeID == path || strings.HasPrefix(nodeID, strings.TrimSuffix(path, "/")+"/") || isWithin(path, nodeID)
}

func (fetcher *CachedFetcher) Purge() {
	fetcher.cache.Purge()
}

func (fetcher *CachedFetcher) Len() int {
	return fetcher.cache.Len()
}

func (fetcher *CachedFetcher) Close() error {
	if closer, ok := fetcher.next.(Closer); ok {
		return closer.Close()
	}
	return nil
}
