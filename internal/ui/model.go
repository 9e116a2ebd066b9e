package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gotidy/ptr"
	"github.com/sirupsen/logrus"

	"regtree/internal/config"
	"regtree/internal/domain"
	"regtree/internal/logging"
	"regtree/internal/services"
	"regtree/internal/tree"
)

type Model struct {
	controller  *tree.Controller
	fetcher     services.Fetcher
	invalid     services.Invalidator
	changes     services.ChangeNotifier
	options     Options
	keys        KeyMap
	logger      logrus.FieldLogger
	spinner     spinner.Model
	search      textinput.Model
	searching   bool
	showHelp    bool
	status      string
	initial     *tree.Request
	focusActive string
	ctx         context.Context
	cancel      context.CancelFunc
	width       int
	height      int
	viewTop     int
}

// SessionProvider is implemented by models that can describe what to restore
// on the next run.
type SessionProvider interface {
	SessionSnapshot() config.Session
}

func NewModel(controller *tree.Controller, fetcher services.Fetcher, options Options) Model {
	ctx, cancel := context.WithCancel(context.Background())
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = "search"
	if options.Search != nil {
		input.SetValue(options.Search.SearchTerm)
	}

	model := Model{
		controller:  controller,
		fetcher:     fetcher,
		invalid:     invalidator(fetcher),
		changes:     changeNotifier(fetcher),
		options:     options,
		keys:        options.keyMap(),
		logger:      logger,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		search:      input,
		status:      "Loading...",
		focusActive: options.Active,
		ctx:         ctx,
		cancel:      cancel,
		width:       100,
		height:      30,
	}

	controller.Restore(options.Restore)
	if options.Active != "" {
		controller.SetActive(options.Active)
	}
	model.initial = controller.Init(options.Root, options.Filters, options.Search != nil)
	if options.Search != nil {
		if searchKey, ok := controller.SearchKey(); ok {
			model.initial = controller.Search(searchKey, options.Search.filters())
		}
	}
	return model
}

// WithChanges sets the source of change notifications when the fetcher is
// not one itself.
func (model Model) WithChanges(changes services.ChangeNotifier) Model {
	model.changes = changes
	return model
}

func (model Model) WithStatus(message string) Model {
	if message != "" {
		model.status = message
	}
	return model
}

func (model Model) Controller() *tree.Controller {
	return model.controller
}

func (model Model) SessionSnapshot() config.Session {
	session := config.Session{
		Expanded: model.controller.ExpandedIDs(),
		Active:   model.controller.ActivePath(),
	}
	if root := model.controller.Root(); root != nil {
		session.Root = root.ID
	}
	if model.options.Search != nil {
		session.Sort = model.options.Search.Sort
	}
	return session
}

func (model Model) Init() tea.Cmd {
	return tea.Batch(model.spinner.Tick, model.fetchCmd(model.initial), model.waitForChange())
}

func (model Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if model.searching {
			return model.handleSearchInput(typed)
		}
		return model.handleKey(typed)
	case tea.WindowSizeMsg:
		model.width = typed.Width
		model.height = typed.Height
		model.ensureCursorVisible()
		return model, nil
	case fetchResultMsg:
		return model.applyResult(typed)
	case changeMsg:
		if model.invalid != nil {
			model.invalid.Invalidate(typed.path)
		}
		request := model.refreshPath(typed.path)
		if request != nil {
			model.logger.WithField("path", typed.path).Debug("refresh changed folder")
		}
		return model, tea.Batch(model.fetchCmd(request), model.waitForChange())
	case spinner.TickMsg:
		var cmd tea.Cmd
		model.spinner, cmd = model.spinner.Update(typed)
		return model, cmd
	default:
		if model.searching {
			var cmd tea.Cmd
			model.search, cmd = model.search.Update(msg)
			return model, cmd
		}
		return model, nil
	}
}

func (model Model) applyResult(msg fetchResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil && errors.Is(msg.err, context.Canceled) {
		return model, nil
	}
	if !model.controller.Resolve(msg.request, msg.result, msg.err) {
		return model, nil
	}
	if msg.err != nil {
		model.status = fmt.Sprintf("Fetch error: %v", msg.err)
	} else {
		model.status = fmt.Sprintf("%d rows", model.controller.Len())
	}
	requests := append(model.controller.DrainRestores(), model.controller.DrainRefreshes()...)
	if model.focusActive != "" && model.controller.FocusKey(domain.RealKey(model.focusActive)) {
		model.focusActive = ""
	}
	model.syncWatcher()
	model.ensureCursorVisible()
	return model, model.fetchCmd(requests...)
}

func (model Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	controller := model.controller
	switch {
	case key.Matches(msg, model.keys.Quit):
		model.cancelFetches()
		return model, tea.Quit
	case key.Matches(msg, model.keys.Help):
		model.showHelp = !model.showHelp
		return model, nil
	case model.showHelp && key.Matches(msg, model.keys.Cancel):
		model.showHelp = false
		return model, nil
	case key.Matches(msg, model.keys.Up):
		controller.MoveFocus(-1)
	case key.Matches(msg, model.keys.Down):
		controller.MoveFocus(1)
	case key.Matches(msg, model.keys.PageUp):
		controller.PageFocus(-1, model.listHeight())
	case key.Matches(msg, model.keys.PageDown):
		controller.PageFocus(1, model.listHeight())
	case key.Matches(msg, model.keys.Home):
		controller.FocusFirst()
	case key.Matches(msg, model.keys.End):
		controller.FocusLast()
	case key.Matches(msg, model.keys.Right):
		node, _ := controller.Focused()
		if node != nil && node.IsFolder() && controller.IsExpanded(node.Key()) {
			controller.MoveFocus(1)
			break
		}
		request := controller.ExpandFocused()
		model.syncWatcher()
		model.ensureCursorVisible()
		return model, model.fetchCmd(request)
	case key.Matches(msg, model.keys.Left):
		controller.CollapseFocused()
		model.syncWatcher()
	case key.Matches(msg, model.keys.Enter):
		return model.activate()
	case key.Matches(msg, model.keys.Search):
		return model.beginSearch()
	case key.Matches(msg, model.keys.Sort):
		return model.cycleSort()
	case key.Matches(msg, model.keys.Refresh):
		return model.refreshFocused()
	case key.Matches(msg, model.keys.Copy):
		model.copyFocused()
		return model, nil
	default:
		return model, nil
	}
	model.ensureCursorVisible()
	return model, nil
}

func (model Model) activate() (tea.Model, tea.Cmd) {
	activation := model.controller.Activate()
	switch activation.Kind {
	case tree.ActionSearch:
		return model.beginSearch()
	case tree.ActionClick:
		if model.options.OnClick != nil {
			model.options.OnClick(activation.Node)
		}
	case tree.ActionLoadMore:
		if activation.Request != nil {
			model.status = "Loading more..."
		}
	}
	model.syncWatcher()
	model.ensureCursorVisible()
	return model, model.fetchCmd(activation.Request)
}

func (model *Model) copyFocused() {
	node, _ := model.controller.Focused()
	if node == nil || node.IsPlaceholder() || node.Type == domain.NodeHeader {
		model.status = "Nothing to copy"
		return
	}
	if err := model.options.clipboard()(node.ID); err != nil {
		model.logger.WithError(err).WithField("id", node.ID).Warn("copy failed")
		model.status = fmt.Sprintf("Copy failed: %v", err)
		return
	}
	model.status = fmt.Sprintf("Copied %s", node.ID)
}

func (model Model) beginSearch() (tea.Model, tea.Cmd) {
	searchKey, ok := model.controller.SearchKey()
	if !ok {
		model.status = "Search is disabled"
		return model, nil
	}
	model.controller.FocusKey(searchKey)
	model.searching = true
	model.search.SetValue(model.controller.SearchConfig().SearchOrEmpty())
	model.search.CursorEnd()
	model.status = "Search: enter to apply, esc to cancel"
	model.ensureCursorVisible()
	cmd := model.search.Focus()
	return model, cmd
}

func (model Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		model.cancelFetches()
		return model, tea.Quit
	case key.Matches(msg, model.keys.Cancel):
		model.searching = false
		model.search.Blur()
		model.status = "Search cancelled"
		return model, nil
	case msg.Type == tea.KeyEnter:
		model.searching = false
		model.search.Blur()
		if model.options.Search != nil {
			model.options.Search.SearchTerm = model.search.Value()
		}
		return model.applySearch()
	}
	var cmd tea.Cmd
	model.search, cmd = model.search.Update(msg)
	return model, cmd
}

func (model Model) applySearch() (tea.Model, tea.Cmd) {
	searchKey, ok := model.controller.SearchKey()
	if !ok || model.options.Search == nil {
		return model, nil
	}
	filters := model.options.Search.filters()
	if model.options.Search.OnChange != nil {
		model.options.Search.OnChange(filters)
	}
	request := model.controller.Search(searchKey, filters)
	model.status = fmt.Sprintf("Searching %q", filters.SearchOrEmpty())
	model.syncWatcher()
	model.ensureCursorVisible()
	return model, model.fetchCmd(request)
}

func (model Model) cycleSort() (tea.Model, tea.Cmd) {
	if model.options.Search != nil {
		option, ok := model.options.Search.nextSort()
		if !ok {
			model.status = "No sort options"
			return model, nil
		}
		model.status = fmt.Sprintf("Sort: %s", option.Label)
		return model.applySearch()
	}
	field, order := "name", "desc"
	if current := model.options.Filters.SortOrEmpty(); current == "name,desc" {
		order = "asc"
	}
	model.options.Filters = model.options.Filters.Merge(domain.NodeConfig{Sort: ptr.String(field + "," + order)})
	root := model.controller.Root()
	if root == nil {
		return model, nil
	}
	request := model.controller.Init(root.ID, model.options.Filters, false)
	model.status = fmt.Sprintf("Sort: %s", model.options.Filters.SortOrEmpty())
	model.syncWatcher()
	model.ensureCursorVisible()
	return model, model.fetchCmd(request)
}

// refreshFocused refetches the focused folder when it is open, otherwise the
// folder that contains it.
func (model Model) refreshFocused() (tea.Model, tea.Cmd) {
	node, _ := model.controller.Focused()
	root := model.controller.Root()
	if root == nil {
		return model, nil
	}
	target := root
	if node != nil {
		switch {
		case node.IsFolder() && model.controller.IsExpanded(node.Key()):
			target = node
		case node.Parent != nil:
			target = node.Parent
		}
	}
	if model.invalid != nil {
		model.invalid.Invalidate(target.ID)
	}
	request := model.controller.Refresh(target.Key())
	if request == nil {
		model.status = "Nothing to refresh"
		return model, nil
	}
	model.status = fmt.Sprintf("Refreshing %s", target.Label)
	model.syncWatcher()
	model.ensureCursorVisible()
	return model, model.fetchCmd(request)
}

func (model Model) refreshPath(path string) *tree.Request {
	if root := model.controller.Root(); root != nil && root.ID == path {
		return model.controller.Refresh(root.Key())
	}
	return model.controller.RefreshID(path)
}

func (model Model) fetchCmd(requests ...*tree.Request) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(requests))
	for _, request := range requests {
		if request == nil {
			continue
		}
		cmds = append(cmds, model.fetchOne(request))
	}
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	default:
		return tea.Batch(cmds...)
	}
}

func (model Model) fetchOne(request *tree.Request) tea.Cmd {
	ctx, fetcher := model.ctx, model.fetcher
	return func() tea.Msg {
		result, err := fetcher.Fetch(ctx, services.FetchRequest{Node: request.Target, Filters: request.Filters})
		return fetchResultMsg{request: request, result: result, err: err}
	}
}

func (model Model) waitForChange() tea.Cmd {
	if model.changes == nil {
		return nil
	}
	channel := model.changes.Changes()
	return func() tea.Msg {
		path, ok := <-channel
		if !ok {
			return nil
		}
		return changeMsg{path: path}
	}
}

func (model Model) syncWatcher() {
	if model.options.Watcher == nil {
		return
	}
	paths := model.controller.ExpandedIDs()
	if root := model.controller.Root(); root != nil {
		paths = append(paths, root.ID)
	}
	model.options.Watcher.Sync(paths)
}

func (model *Model) cancelFetches() {
	if model.cancel != nil {
		model.cancel()
		model.cancel = nil
	}
}

func (model *Model) ensureCursorVisible() {
	total := model.controller.Len()
	if total == 0 {
		model.viewTop = 0
		return
	}
	_, cursor := model.controller.Focused()
	listHeight := model.listHeight()
	if listHeight <= 0 {
		return
	}
	if cursor < model.viewTop {
		model.viewTop = cursor
	}
	if cursor >= model.viewTop+listHeight {
		model.viewTop = cursor - listHeight + 1
	}
	maxTop := total - listHeight
	if maxTop < 0 {
		maxTop = 0
	}
	if model.viewTop > maxTop {
		model.viewTop = maxTop
	}
}

func (model Model) listHeight() int {
	height := model.height - 6
	if height < 1 {
		return 1
	}
	return height
}

func invalidator(fetcher services.Fetcher) services.Invalidator {
	provider, _ := fetcher.(services.Invalidator)
	return provider
}

func changeNotifier(fetcher services.Fetcher) services.ChangeNotifier {
	provider, _ := fetcher.(services.ChangeNotifier)
	return provider
}
