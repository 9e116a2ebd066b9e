package services

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"regtree/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnsupportedNode = errors.New("node has no children")
)

const DefaultPageSize = 50

type FetchRequest struct {
	Node    *domain.TreeNode
	Filters domain.NodeConfig
}

// cacheKey is stable for equal node ids and filters.
func (req FetchRequest) cacheKey() string {
	var builder strings.Builder
	if req.Node != nil {
		builder.WriteString(req.Node.ID)
	}
	builder.WriteString("|p=")
	builder.WriteString(strconv.Itoa(req.Filters.PageOrZero()))
	builder.WriteString("|q=")
	builder.WriteString(req.Filters.SearchOrEmpty())
	builder.WriteString("|s=")
	builder.WriteString(req.Filters.SortOrEmpty())
	names := make([]string, 0, len(req.Filters.Filters))
	for name := range req.Filters.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		builder.WriteString("|")
		builder.WriteString(name)
		builder.WriteString("=")
		builder.WriteString(req.Filters.Filters[name])
	}
	return builder.String()
}

// paginate slices one page out of items.
func paginate[T any](items []T, page, size int) ([]T, domain.Pagination) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 0 {
		page = 0
	}
	start := page * size
	if start > len(items) {
		start = len(items)
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], domain.Pagination{Page: page, HasMore: end < len(items)}
}

// splitSort parses "field,order" with order defaulting to asc.
func splitSort(value string) (string, string) {
	field, order, _ := strings.Cut(value, ",")
	field = strings.TrimSpace(strings.ToLower(field))
	order = strings.TrimSpace(strings.ToLower(order))
	if order != "desc" {
		order = "asc"
	}
	return field, order
}
