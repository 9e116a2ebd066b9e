package ui

import (
	"github.com/atotto/clipboard"
	"github.com/gotidy/ptr"
	"github.com/sirupsen/logrus"

	"regtree/internal/domain"
)

type SortOption struct {
	Label string
	Value string
}

// GlobalSearch configures the search row above the top level.
type GlobalSearch struct {
	SearchTerm  string
	SortOptions []SortOption
	Sort        string
	OnChange    func(domain.NodeConfig)
}

// PathWatcher follows the ids of open folders.
type PathWatcher interface {
	Sync(paths []string)
}

type Options struct {
	Title   string
	Root    string
	Theme   string
	Filters domain.NodeConfig
	Search  *GlobalSearch

	RenderNodeHeader func(node *domain.TreeNode) string
	RenderNodeAction func(node *domain.TreeNode) string
	OnClick          func(node *domain.TreeNode)

	Watcher  PathWatcher
	Restore  []string
	Active   string
	Logger   logrus.FieldLogger
	KeyMap   *KeyMap
	Describe func(node *domain.TreeNode) []string
	// Clipboard receives copied node ids. Defaults to the system clipboard.
	Clipboard func(text string) error
}

func (options Options) keyMap() KeyMap {
	if options.KeyMap != nil {
		return *options.KeyMap
	}
	return DefaultKeyMap()
}

func (options Options) clipboard() func(string) error {
	if options.Clipboard != nil {
		return options.Clipboard
	}
	return clipboard.WriteAll
}

func (search *GlobalSearch) filters() domain.NodeConfig {
	var filters domain.NodeConfig
	if search == nil {
		return filters
	}
	filters.SearchTerm = ptr.String(search.SearchTerm)
	if search.Sort != "" {
		filters.Sort = ptr.String(search.Sort)
	}
	return filters
}

// nextSort advances to the sort option after the current one.
func (search *GlobalSearch) nextSort() (SortOption, bool) {
	if search == nil || len(search.SortOptions) == 0 {
		return SortOption{}, false
	}
	next := 0
	for index, option := range search.SortOptions {
		if option.Value == search.Sort {
			next = (index + 1) % len(search.SortOptions)
			break
		}
	}
	search.Sort = search.SortOptions[next].Value
	return search.SortOptions[next], true
}

func (search *GlobalSearch) sortLabel() string {
	if search == nil {
		return ""
	}
	for _, option := range search.SortOptions {
		if option.Value == search.Sort {
			return option.Label
		}
	}
	return search.Sort
}
