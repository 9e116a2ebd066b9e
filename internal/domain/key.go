package domain

import (
	"strconv"
	"strings"
)

// SyntheticKind tags placeholder rows. Real rows use KindReal.
type SyntheticKind int

const (
	KindReal SyntheticKind = iota
	KindLoading
	KindError
	KindEmpty
	KindLoadMore
	KindSearch
)

// Key identifies a row in every set and map. Placeholder keys carry their
// kind, so they can never equal the key of a data row even when display ids
// happen to match.
type Key struct {
	ID   string
	Kind SyntheticKind
	Page int
}

func RealKey(id string) Key {
	return Key{ID: id}
}

func (key Key) IsReal() bool {
	return key.Kind == KindReal
}

func (key Key) String() string {
	var builder strings.Builder
	builder.WriteString(key.ID)
	switch key.Kind {
	case KindLoading:
		builder.WriteString("#loading")
	case KindError:
		builder.WriteString("#error")
	case KindEmpty:
		builder.WriteString("#empty")
	case KindLoadMore:
		builder.WriteString("#loadMore:")
		builder.WriteString(strconv.Itoa(key.Page))
	case KindSearch:
		builder.WriteString("#search")
	}
	return builder.String()
}

// Suffix is the display id suffix appended to the parent id.
func (kind SyntheticKind) Suffix() string {
	switch kind {
	case KindLoading:
		return "/loading"
	case KindError:
		return "/error"
	case KindEmpty:
		return "/empty"
	case KindLoadMore:
		return "/loadMore"
	case KindSearch:
		return "/search"
	default:
		return ""
	}
}
