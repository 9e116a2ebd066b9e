package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"regtree/internal/domain"
)

// MockFetcher serves a fixed in-memory tree keyed by parent id.
type MockFetcher struct {
	mu       sync.Mutex
	children map[string][]domain.Node
	errors   map[string]error
	calls    map[string]int
	delay    time.Duration
	pageSize int
}

func NewMockFetcher(pageSize int) *MockFetcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &MockFetcher{
		children: map[string][]domain.Node{},
		errors:   map[string]error{},
		calls:    map[string]int{},
		pageSize: pageSize,
	}
}

// NewDemoFetcher builds a deterministic tree rooted at "demo" with enough
// rows to exercise paging.
func NewDemoFetcher(pageSize int) *MockFetcher {
	mock := NewMockFetcher(pageSize)
	mock.SetDelay(250 * time.Millisecond)
	for _, team := range []string{"platform", "payments", "search", "mobile"} {
		teamID := "demo/" + team
		mock.Add("demo", domain.Node{ID: teamID, Label: team, Type: domain.NodeFolder})
		for i := 1; i <= 3; i++ {
			serviceID := fmt.Sprintf("%s/service-%02d", teamID, i)
			mock.Add(teamID, domain.Node{ID: serviceID, Label: fmt.Sprintf("service-%02d", i), Type: domain.NodeFolder})
			for build := 1; build <= 2*mock.pageSize+3; build++ {
				mock.Add(serviceID, domain.Node{
					ID:    fmt.Sprintf("%s/build-%03d", serviceID, build),
					Label: fmt.Sprintf("build-%03d", build),
					Type:  domain.NodeFile,
				})
			}
		}
	}
	mock.Add("demo", domain.Node{ID: "demo/archived", Label: "archived", Type: domain.NodeFolder})
	mock.Fail("demo/archived", fmt.Errorf("archived: %w", ErrNotFound))
	mock.Add("demo", domain.Node{ID: "demo/empty", Label: "empty", Type: domain.NodeFolder})
	mock.children["demo/empty"] = nil
	return mock
}

func (mock *MockFetcher) Add(parentID string, nodes ...domain.Node) {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	for _, node := range nodes {
		if node.Value == "" {
			node.Value = node.ID
		}
		mock.children[parentID] = append(mock.children[parentID], node)
	}
}

func (mock *MockFetcher) Fail(id string, err error) {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	if err == nil {
		delete(mock.errors, id)
		return
	}
	mock.errors[id] = err
}

func (mock *MockFetcher) SetDelay(delay time.Duration) {
	mock.mu.Lock()
	mock.delay = delay
	mock.mu.Unlock()
}

func (mock *MockFetcher) Calls(id string) int {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return mock.calls[id]
}

func (mock *MockFetcher) Fetch(ctx context.Context, req FetchRequest) (domain.FetchResult, error) {
	if req.Node == nil {
		return domain.FetchResult{}, ErrUnsupportedNode
	}
	mock.mu.Lock()
	mock.calls[req.Node.ID]++
	delay := mock.delay
	failure := mock.errors[req.Node.ID]
	nodes := append([]domain.Node(nil), mock.children[req.Node.ID]...)
	mock.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return domain.FetchResult{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if failure != nil {
		return domain.FetchResult{}, failure
	}

	if search := strings.ToLower(req.Filters.SearchOrEmpty()); search != "" {
		filtered := nodes[:0]
		for _, node := range nodes {
			if strings.Contains(strings.ToLower(node.Label), search) {
				filtered = append(filtered, node)
			}
		}
		nodes = filtered
	}
	if _, order := splitSort(req.Filters.SortOrEmpty()); order == "desc" {
		reverse(nodes)
	}
	page, pagination := paginate(nodes, req.Filters.PageOrZero(), mock.pageSize)
	return domain.FetchResult{Data: page, Pagination: &pagination}, nil
}
