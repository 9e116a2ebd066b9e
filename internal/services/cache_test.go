package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gotidy/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regtree/internal/domain"
)

type countingFetcher struct {
	calls       atomic.Int32
	release     chan struct{}
	err         error
	invalidated []string
	closed      bool
}

func (fetcher *countingFetcher) Fetch(ctx context.Context, req FetchRequest) (domain.FetchResult, error) {
	fetcher.calls.Add(1)
	if fetcher.release != nil {
		<-fetcher.release
	}
	if fetcher.err != nil {
		return domain.FetchResult{}, fetcher.err
	}
	return domain.FetchResult{Data: []domain.Node{{ID: req.Node.ID + "/child"}}}, nil
}

func (fetcher *countingFetcher) Invalidate(path string) {
	fetcher.invalidated = append(fetcher.invalidated, path)
}

func (fetcher *countingFetcher) Close() error {
	fetcher.closed = true
	return nil
}

func TestCachedFetcherHits(t *testing.T) {
	next := &countingFetcher{}
	cached, err := NewCachedFetcher(next, 8)
	require.NoError(t, err)

	request := FetchRequest{Node: folderNode("/a")}
	for range 3 {
		result, err := cached.Fetch(context.Background(), request)
		require.NoError(t, err)
		assert.Equal(t, "/a/child", result.Data[0].ID)
	}
	assert.Equal(t, int32(1), next.calls.Load())

	_, err = cached.Fetch(context.Background(), FetchRequest{Node: folderNode("/a"), Filters: domain.NodeConfig{Page: ptr.Int(1)}})
	require.NoError(t, err)
	_, err = cached.Fetch(context.Background(), FetchRequest{Node: folderNode("/a"), Filters: domain.NodeConfig{Filters: map[string]string{"packageType": "DOCKER"}}})
	require.NoError(t, err)
	assert.Equal(t, int32(3), next.calls.Load())
	assert.Equal(t, 3, cached.Len())

	cached.Purge()
	assert.Equal(t, 0, cached.Len())
}

func TestCachedFetcherInvalidate(t *testing.T) {
	next := &countingFetcher{}
	cached, err := NewCachedFetcher(next, 8)
	require.NoError(t, err)
	for _, id := range []string{"/a", "/a/b", "/ab"} {
		_, err := cached.Fetch(context.Background(), FetchRequest{Node: folderNode(id)})
		require.NoError(t, err)
	}

	cached.Invalidate("/a")
	assert.Equal(t, 1, cached.Len())
	assert.Equal(t, []string{"/a"}, next.invalidated)

	_, err = cached.Fetch(context.Background(), FetchRequest{Node: folderNode("/ab")})
	require.NoError(t, err)
	assert.Equal(t, int32(3), next.calls.Load(), "untouched sibling still cached")
}

func TestCachedFetcherDoesNotCacheErrors(t *testing.T) {
	next := &countingFetcher{err: errors.New("offline")}
	cached, err := NewCachedFetcher(next, 0)
	require.NoError(t, err)

	request := FetchRequest{Node: folderNode("/a")}
	_, err = cached.Fetch(context.Background(), request)
	assert.EqualError(t, err, "offline")
	_, err = cached.Fetch(context.Background(), request)
	assert.Error(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
	assert.Equal(t, 0, cached.Len())
}

func TestCachedFetcherCollapsesConcurrentFetches(t *testing.T) {
	next := &countingFetcher{release: make(chan struct{})}
	cached, err := NewCachedFetcher(next, 8)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cached.Fetch(context.Background(), FetchRequest{Node: folderNode("/slow")})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(next.release)
	wg.Wait()

	assert.Equal(t, int32(1), next.calls.Load())
}

// listingFetcher reads the listing when a fetch starts and returns it only
// once released, like a directory scan racing a change on disk.
type listingFetcher struct {
	version atomic.Int32
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (fetcher *listingFetcher) Fetch(ctx context.Context, req FetchRequest) (domain.FetchResult, error) {
	fetcher.calls.Add(1)
	label := fmt.Sprintf("v%d", fetcher.version.Load())
	fetcher.started <- struct{}{}
	<-fetcher.release
	return domain.FetchResult{Data: []domain.Node{{ID: req.Node.ID + "/child", Label: label}}}, nil
}

func TestCachedFetcherInvalidateDuringFetch(t *testing.T) {
	next := &listingFetcher{started: make(chan struct{}, 2), release: make(chan struct{})}
	next.version.Store(1)
	cached, err := NewCachedFetcher(next, 8)
	require.NoError(t, err)

	request := FetchRequest{Node: folderNode("/d")}
	done := make(chan domain.FetchResult, 1)
	go func() {
		result, err := cached.Fetch(context.Background(), request)
		assert.NoError(t, err)
		done <- result
	}()
	<-next.started

	next.version.Store(2)
	cached.Invalidate("/d")
	close(next.release)

	first := <-done
	assert.Equal(t, "v1", first.Data[0].Label)
	assert.Equal(t, 0, cached.Len(), "a listing invalidated mid-flight is not stored")

	second, err := cached.Fetch(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "v2", second.Data[0].Label)
	assert.Equal(t, int32(2), next.calls.Load())
	assert.Equal(t, 1, cached.Len())
}

func TestCachedFetcherClose(t *testing.T) {
	next := &countingFetcher{}
	cached, err := NewCachedFetcher(next, 1)
	require.NoError(t, err)
	require.NoError(t, cached.Close())
	assert.True(t, next.closed)
}
