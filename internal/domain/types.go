package domain

import "github.com/gotidy/ptr"

type SortMode string

const (
	SortBySize SortMode = "size"
	SortByName SortMode = "name"
	SortByMod  SortMode = "mod"
)

// NodeConfig is the per-node pagination and filter state. Nil fields are unset.
type NodeConfig struct {
	SearchTerm *string
	Page       *int
	Sort       *string
	Filters    map[string]string
}

// Merge overlays the set fields of other onto config. Filters merge key by key.
func (config NodeConfig) Merge(other NodeConfig) NodeConfig {
	merged := config
	if other.SearchTerm != nil {
		merged.SearchTerm = ptr.String(*other.SearchTerm)
	}
	if other.Page != nil {
		merged.Page = ptr.Int(*other.Page)
	}
	if other.Sort != nil {
		merged.Sort = ptr.String(*other.Sort)
	}
	if len(config.Filters) > 0 || len(other.Filters) > 0 {
		merged.Filters = make(map[string]string, len(config.Filters)+len(other.Filters))
		for name, value := range config.Filters {
			merged.Filters[name] = value
		}
		for name, value := range other.Filters {
			merged.Filters[name] = value
		}
	}
	return merged
}

func (config NodeConfig) PageOrZero() int {
	if config.Page == nil {
		return 0
	}
	return *config.Page
}

func (config NodeConfig) SearchOrEmpty() string {
	if config.SearchTerm == nil {
		return ""
	}
	return *config.SearchTerm
}

func (config NodeConfig) SortOrEmpty() string {
	if config.Sort == nil {
		return ""
	}
	return *config.Sort
}

type Pagination struct {
	Page    int
	HasMore bool
}

type FetchResult struct {
	Data       []Node
	Pagination *Pagination
}
