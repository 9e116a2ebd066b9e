package tree

import (
	"io"
	"sort"
	"strings"

	"github.com/gotidy/ptr"
	"github.com/sirupsen/logrus"

	"regtree/internal/domain"
)

type Op int

const (
	OpRoot Op = iota
	OpExpand
	OpLoadMore
	OpSearch
)

func (op Op) String() string {
	switch op {
	case OpExpand:
		return "expand"
	case OpLoadMore:
		return "loadMore"
	case OpSearch:
		return "search"
	default:
		return "root"
	}
}

// Reason says why a toggle was requested. ReasonRestore comes from replaying
// a saved session and never collapses or refetches a node.
type Reason int

const (
	ReasonUser Reason = iota
	ReasonRestore
)

// Request is a pending child fetch. The caller runs it against a fetcher and
// hands the outcome back to Resolve.
type Request struct {
	Op         Op
	Key        domain.Key
	Target     *domain.TreeNode
	Filters    domain.NodeConfig
	Generation uint64
}

// Controller owns the flat row list and its bookkeeping. It is not safe for
// concurrent use; the UI calls it from its update loop only. Every mutation
// swaps whole values so a rendered snapshot is never modified in place.
type Controller struct {
	root          *domain.TreeNode
	rows          Rows
	expanded      KeySet
	loading       KeySet
	loaded        KeySet
	stale         KeySet
	configs       map[string]domain.NodeConfig
	generations   map[domain.Key]uint64
	searchEnabled bool
	globalFilters domain.NodeConfig
	activePath    string
	focus         domain.Key
	focusIndex    int
	restore       map[string]bool
	logger        logrus.FieldLogger
}

type Option func(*Controller)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(controller *Controller) {
		if logger != nil {
			controller.logger = logger
		}
	}
}

func NewController(options ...Option) *Controller {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	controller := &Controller{
		expanded:    KeySet{},
		loading:     KeySet{},
		loaded:      KeySet{},
		stale:       KeySet{},
		configs:     make(map[string]domain.NodeConfig),
		generations: make(map[domain.Key]uint64),
		restore:     make(map[string]bool),
		logger:      quiet,
	}
	for _, option := range options {
		option(controller)
	}
	return controller
}

// Init seeds the tree for rootPath. Calling it again for the same root
// reloads the top level under the new global filters from page 0; a
// different root starts over.
func (controller *Controller) Init(rootPath string, filters domain.NodeConfig, searchEnabled bool) *Request {
	if controller.root != nil && controller.root.ID == rootPath && controller.searchEnabled == searchEnabled {
		controller.globalFilters = filters
		return controller.reloadRoot()
	}
	controller.reset(rootPath)
	controller.searchEnabled = searchEnabled
	controller.globalFilters = filters
	return controller.fetchRoot(filters.Merge(domain.NodeConfig{Page: ptr.Int(0)}))
}

func (controller *Controller) reset(rootPath string) {
	controller.root = RootNode(rootPath)
	controller.rows = Rows{}
	controller.expanded = KeySet{}
	controller.loading = KeySet{}
	controller.loaded = KeySet{}
	controller.stale = KeySet{}
	controller.configs = make(map[string]domain.NodeConfig)
	for key := range controller.generations {
		controller.generations[key]++
	}
	controller.activePath = ""
	controller.focus = domain.Key{}
	controller.focusIndex = 0
}

func (controller *Controller) fetchRoot(filters domain.NodeConfig) *Request {
	root := controller.root
	controller.expanded = controller.expanded.With(root.Key())
	if controller.searchEnabled {
		search := SearchNode(root)
		controller.setRows(Rows{search})
		return controller.searchAt(0, filters)
	}
	generation := controller.nextGeneration(root.Key())
	controller.loading = controller.loading.With(root.Key())
	controller.clearTraces(controller.allKeys())
	controller.setRows(Rows{LoadingNode(root)})
	controller.logger.WithFields(logrus.Fields{"root": root.ID, "generation": generation}).Debug("fetch root")
	return &Request{Op: OpRoot, Key: root.Key(), Target: root, Filters: filters, Generation: generation}
}

func (controller *Controller) reloadRoot() *Request {
	if controller.root == nil {
		return nil
	}
	base := controller.configs[controller.root.ID]
	base.Filters = nil
	filters := base.Merge(controller.globalFilters).Merge(domain.NodeConfig{Page: ptr.Int(0)})
	if controller.searchEnabled {
		index := controller.searchIndex()
		if index >= 0 {
			return controller.searchAt(index, filters)
		}
	}
	return controller.fetchRoot(filters)
}

func (controller *Controller) searchIndex() int {
	for index, row := range controller.rows {
		if row.TreeNodeType == domain.TreeNodeSearch && row.Parent == controller.root {
			return index
		}
	}
	return -1
}

// Expand marks the node expanded and loading, swaps any stale subtree for a
// loading row and returns the fetch to run. It returns nil for rows that
// cannot expand and while a fetch for the node is in flight.
func (controller *Controller) Expand(key domain.Key) *Request {
	index := IndexOf(controller.rows, key)
	if index < 0 {
		return nil
	}
	node := controller.rows[index]
	if !node.IsFolder() || node.Disabled || controller.loading.Has(key) {
		return nil
	}
	return controller.expandAt(index)
}

func (controller *Controller) expandAt(index int) *Request {
	node := controller.rows[index]
	key := node.Key()
	controller.expanded = controller.expanded.With(key)
	controller.loading = controller.loading.With(key)
	generation := controller.nextGeneration(key)

	rows, removed := RemoveChildren(controller.rows, index)
	controller.clearTraces(removed.Keys())
	controller.setRows(InsertAfter(rows, index, LoadingNode(node)))

	filters := controller.configs[node.ID].Merge(domain.NodeConfig{Page: ptr.Int(0)})
	controller.logger.WithFields(logrus.Fields{"node": node.ID, "generation": generation}).Debug("expand")
	return &Request{Op: OpExpand, Key: key, Target: node, Filters: filters, Generation: generation}
}

// Collapse removes the node's descendants and forgets their bookkeeping and
// the node's own. It returns the keys of the removed rows.
func (controller *Controller) Collapse(key domain.Key) KeySet {
	index := IndexOf(controller.rows, key)
	if index < 0 {
		return KeySet{}
	}
	rows, removed := RemoveChildren(controller.rows, index)
	controller.clearTraces(append(removed.Keys(), key))
	controller.setRows(rows)
	controller.logger.WithFields(logrus.Fields{"node": key.ID, "removed": len(removed)}).Debug("collapse")
	return removed
}

// Toggle expands a collapsed folder or collapses an expanded one. Files,
// headers, placeholders, disabled rows and rows with a fetch in flight are
// left alone.
func (controller *Controller) Toggle(key domain.Key, reason Reason) *Request {
	index := IndexOf(controller.rows, key)
	if index < 0 {
		return nil
	}
	node := controller.rows[index]
	if !node.IsFolder() || node.Disabled {
		return nil
	}
	if controller.loading.Has(key) {
		return nil
	}
	if reason == ReasonRestore && (controller.expanded.Has(key) || controller.loaded.Has(key)) {
		return nil
	}
	if controller.expanded.Has(key) {
		controller.Collapse(key)
		return nil
	}
	return controller.expandAt(index)
}

// LoadMore fetches the next page of the placeholder's parent. The page
// counter belongs to the parent's config.
func (controller *Controller) LoadMore(key domain.Key) *Request {
	index := IndexOf(controller.rows, key)
	if index < 0 {
		return nil
	}
	row := controller.rows[index]
	if row.TreeNodeType != domain.TreeNodeLoadMore || row.Parent == nil || controller.loading.Has(key) {
		return nil
	}
	parent := row.Parent
	config := controller.configs[parent.ID]
	filters := config.Merge(domain.NodeConfig{Page: ptr.Int(config.PageOrZero() + 1)})
	controller.loading = controller.loading.With(key)
	generation := controller.nextGeneration(key)
	controller.logger.WithFields(logrus.Fields{"node": parent.ID, "page": *filters.Page, "generation": generation}).Debug("load more")
	return &Request{Op: OpLoadMore, Key: key, Target: parent, Filters: filters, Generation: generation}
}

// Search refetches the search row's parent under filters merged into the
// parent's config, replacing every row after the search row. A newer search
// supersedes one still in flight.
func (controller *Controller) Search(key domain.Key, filters domain.NodeConfig) *Request {
	index := IndexOf(controller.rows, key)
	if index < 0 {
		return nil
	}
	row := controller.rows[index]
	if row.TreeNodeType != domain.TreeNodeSearch || row.Parent == nil {
		return nil
	}
	if filters.Page == nil {
		filters.Page = ptr.Int(0)
	}
	return controller.searchAt(index, controller.configs[row.Parent.ID].Merge(filters))
}

func (controller *Controller) searchAt(index int, filters domain.NodeConfig) *Request {
	row := controller.rows[index]
	key := row.Key()
	controller.loading = controller.loading.With(key)
	generation := controller.nextGeneration(key)

	rows, removed := RemoveNextSiblings(controller.rows, index)
	controller.clearTraces(removed.Keys())
	controller.setRows(InsertAfter(rows, index, LoadingNode(row.Parent)))
	controller.logger.WithFields(logrus.Fields{
		"node":       row.Parent.ID,
		"search":     filters.SearchOrEmpty(),
		"sort":       filters.SortOrEmpty(),
		"generation": generation,
	}).Debug("search")
	return &Request{Op: OpSearch, Key: key, Target: row.Parent, Filters: filters, Generation: generation}
}

// Refresh refetches an expanded node, or the whole top level for the root key.
// A node with a fetch in flight is marked stale instead and refetched by
// DrainRefreshes once that fetch resolves.
func (controller *Controller) Refresh(key domain.Key) *Request {
	if controller.root != nil && key == controller.root.Key() {
		return controller.reloadRoot()
	}
	index := IndexOf(controller.rows, key)
	if index < 0 || !controller.expanded.Has(key) {
		return nil
	}
	if controller.loading.Has(key) {
		controller.stale = controller.stale.With(key)
		controller.logger.WithField("node", key.ID).Debug("refresh deferred")
		return nil
	}
	return controller.expandAt(index)
}

// DrainRefreshes refetches every stale node whose earlier fetch has settled.
func (controller *Controller) DrainRefreshes() []*Request {
	if len(controller.stale) == 0 {
		return nil
	}
	var keys []domain.Key
	for _, row := range controller.rows {
		key := row.Key()
		if controller.stale.Has(key) && !controller.loading.Has(key) {
			keys = append(keys, key)
		}
	}
	controller.stale = controller.stale.Without(keys...)
	var requests []*Request
	for _, key := range keys {
		if request := controller.Refresh(key); request != nil {
			requests = append(requests, request)
		}
	}
	return requests
}

// RefreshID refreshes the row with the given real id.
func (controller *Controller) RefreshID(id string) *Request {
	return controller.Refresh(domain.RealKey(id))
}

// Resolve applies a finished fetch. Results from superseded requests are
// dropped and reported as not applied. A fetch error becomes a single error
// row under the target; it never propagates further.
func (controller *Controller) Resolve(request *Request, result domain.FetchResult, err error) bool {
	if request == nil {
		return false
	}
	fields := logrus.Fields{"op": request.Op.String(), "node": request.Key.String(), "generation": request.Generation}
	if controller.generations[request.Key] != request.Generation {
		controller.logger.WithFields(fields).Debug("drop stale result")
		return false
	}
	if err != nil {
		controller.logger.WithFields(fields).WithError(err).Warn("fetch failed")
	}

	target := request.Target
	children := controller.children(request, result, err)

	var rows Rows
	switch request.Op {
	case OpRoot:
		controller.clearTraces(controller.allKeys())
		rows = children
	case OpExpand, OpSearch:
		index := IndexOf(controller.rows, request.Key)
		if index < 0 {
			controller.logger.WithFields(fields).Debug("drop result for removed row")
			return false
		}
		var removed KeySet
		if request.Op == OpExpand {
			rows, removed = RemoveChildren(controller.rows, index)
		} else {
			rows, removed = RemoveNextSiblings(controller.rows, index)
		}
		controller.clearTraces(removed.Keys())
		rows = InsertAfter(rows, index, children...)
	case OpLoadMore:
		index := IndexOf(controller.rows, request.Key)
		if index < 0 {
			controller.logger.WithFields(fields).Debug("drop result for removed row")
			return false
		}
		var removed KeySet
		rows, removed = RemoveAt(controller.rows, index)
		controller.clearTraces(removed.Keys())
		if len(children) == 0 {
			rows = markLastSibling(rows, index-1, target.Level+1)
		}
		rows = InsertAfter(rows, index-1, children...)
	}

	if err == nil {
		controller.configs[target.ID] = controller.configs[target.ID].Merge(request.Filters)
	}
	controller.loading = controller.loading.Without(request.Key)
	if request.Op != OpLoadMore {
		controller.loaded = controller.loaded.With(request.Key)
	}
	if err := CheckPreOrder(rows, 0); err != nil {
		controller.logger.WithFields(fields).WithError(err).Error("rows out of order")
	}
	controller.setRows(rows)
	return true
}

// markLastSibling flags the nearest row at level, scanning back from index,
// as the last child.
func markLastSibling(rows Rows, index, level int) Rows {
	for ; index >= 0; index-- {
		if rows[index].Level < level {
			return rows
		}
		if rows[index].Level == level {
			last := *rows[index]
			last.IsLastChild = true
			return Replace(rows, index, &last)
		}
	}
	return rows
}

func (controller *Controller) children(request *Request, result domain.FetchResult, err error) Rows {
	target := request.Target
	if err != nil {
		return Rows{ErrorNode(target, err)}
	}
	hasMore := result.Pagination != nil && result.Pagination.HasMore
	rows := childRows(target, result.Data, hasMore)
	if len(rows) == 0 && request.Op != OpLoadMore {
		rows = append(rows, EmptyNode(target))
	}
	if hasMore {
		rows = append(rows, LoadMoreNode(target, result.Pagination.Page))
	}
	return rows
}

// Restore queues ids to re-expand as their rows show up.
func (controller *Controller) Restore(ids []string) {
	for _, id := range ids {
		controller.restore[id] = true
	}
}

// DrainRestores expands every queued row that is currently visible.
func (controller *Controller) DrainRestores() []*Request {
	if len(controller.restore) == 0 {
		return nil
	}
	var requests []*Request
	for _, row := range controller.rows {
		if row.IsPlaceholder() || !controller.restore[row.ID] {
			continue
		}
		delete(controller.restore, row.ID)
		if request := controller.Toggle(row.Key(), ReasonRestore); request != nil {
			requests = append(requests, request)
		}
	}
	return requests
}

func (controller *Controller) clearTraces(keys []domain.Key) {
	if len(keys) == 0 {
		return
	}
	controller.expanded = controller.expanded.Without(keys...)
	controller.loading = controller.loading.Without(keys...)
	controller.loaded = controller.loaded.Without(keys...)
	controller.stale = controller.stale.Without(keys...)
	for _, key := range keys {
		if _, ok := controller.generations[key]; ok {
			controller.generations[key]++
		}
	}
}

func (controller *Controller) nextGeneration(key domain.Key) uint64 {
	controller.generations[key]++
	return controller.generations[key]
}

func (controller *Controller) allKeys() []domain.Key {
	keys := make([]domain.Key, 0, len(controller.rows))
	for _, row := range controller.rows {
		keys = append(keys, row.Key())
	}
	return keys
}

func (controller *Controller) Root() *domain.TreeNode {
	return controller.root
}

// Rows returns the current snapshot. Callers must not modify it.
func (controller *Controller) Rows() Rows {
	return controller.rows
}

func (controller *Controller) Len() int {
	return len(controller.rows)
}

func (controller *Controller) Row(index int) *domain.TreeNode {
	if index < 0 || index >= len(controller.rows) {
		return nil
	}
	return controller.rows[index]
}

func (controller *Controller) IsExpanded(key domain.Key) bool {
	return controller.expanded.Has(key)
}

func (controller *Controller) IsLoading(key domain.Key) bool {
	return controller.loading.Has(key)
}

func (controller *Controller) IsLoaded(key domain.Key) bool {
	return controller.loaded.Has(key)
}

func (controller *Controller) Config(id string) domain.NodeConfig {
	return controller.configs[id]
}

// SearchConfig is the config of the parent of the root search row.
func (controller *Controller) SearchConfig() domain.NodeConfig {
	if controller.root == nil {
		return domain.NodeConfig{}
	}
	return controller.configs[controller.root.ID]
}

func (controller *Controller) SearchKey() (domain.Key, bool) {
	index := controller.searchIndex()
	if index < 0 {
		return domain.Key{}, false
	}
	return controller.rows[index].Key(), true
}

// ExpandedIDs lists expanded data rows, sorted, without the root.
func (controller *Controller) ExpandedIDs() []string {
	ids := []string{}
	for key := range controller.expanded {
		if !key.IsReal() || (controller.root != nil && key.ID == controller.root.ID) {
			continue
		}
		ids = append(ids, key.ID)
	}
	sort.Strings(ids)
	return ids
}

func (controller *Controller) SetActive(id string) {
	controller.activePath = id
}

func (controller *Controller) ActivePath() string {
	return controller.activePath
}

func (controller *Controller) IsActive(id string) bool {
	return controller.activePath != "" && controller.activePath == id
}

// IsOpen reports whether the active path runs through the row.
func (controller *Controller) IsOpen(id string) bool {
	if controller.activePath == "" || id == "" {
		return false
	}
	return controller.activePath == id || strings.HasPrefix(controller.activePath, strings.TrimSuffix(id, "/")+"/")
}
