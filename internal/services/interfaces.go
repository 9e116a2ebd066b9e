package services

import (
	"context"

	"regtree/internal/domain"
)

// Fetcher returns the immediate children of a node under the given filters.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (domain.FetchResult, error)
}

// Invalidator drops cached listings at or below path.
type Invalidator interface {
	Invalidate(path string)
}

// ChangeNotifier reports ids whose children may have changed.
type ChangeNotifier interface {
	Changes() <-chan string
}

// Closer is implemented by fetchers that hold resources.
type Closer interface {
	Close() error
}
