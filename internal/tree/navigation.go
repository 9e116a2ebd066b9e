package tree

import "regtree/internal/domain"

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionClick
	ActionLoadMore
	ActionSearch
)

// Activation describes what activating the focused row did.
type Activation struct {
	Kind    ActionKind
	Node    *domain.TreeNode
	Request *Request
}

// setRows swaps in a new snapshot and keeps focus on the same row when it
// survived, or on the nearest index otherwise.
func (controller *Controller) setRows(rows Rows) {
	controller.rows = rows
	controller.settleFocus()
}

func (controller *Controller) settleFocus() {
	if len(controller.rows) == 0 {
		controller.focus = domain.Key{}
		controller.focusIndex = 0
		return
	}
	if index := IndexOf(controller.rows, controller.focus); index >= 0 {
		controller.focusIndex = index
		return
	}
	controller.focusIndex = clamp(controller.focusIndex, 0, len(controller.rows)-1)
	controller.focus = controller.rows[controller.focusIndex].Key()
}

func (controller *Controller) Focused() (*domain.TreeNode, int) {
	if len(controller.rows) == 0 {
		return nil, -1
	}
	return controller.rows[controller.focusIndex], controller.focusIndex
}

func (controller *Controller) FocusIndex(index int) {
	if len(controller.rows) == 0 {
		return
	}
	controller.focusIndex = clamp(index, 0, len(controller.rows)-1)
	controller.focus = controller.rows[controller.focusIndex].Key()
}

func (controller *Controller) FocusKey(key domain.Key) bool {
	index := IndexOf(controller.rows, key)
	if index < 0 {
		return false
	}
	controller.FocusIndex(index)
	return true
}

// MoveFocus moves focus by delta rows in tree order.
func (controller *Controller) MoveFocus(delta int) {
	controller.FocusIndex(controller.focusIndex + delta)
}

// PageFocus moves focus by whole pages of height rows.
func (controller *Controller) PageFocus(pages, height int) {
	if height < 1 {
		height = 1
	}
	controller.MoveFocus(pages * height)
}

func (controller *Controller) FocusFirst() {
	controller.FocusIndex(0)
}

func (controller *Controller) FocusLast() {
	controller.FocusIndex(len(controller.rows) - 1)
}

// FocusParent moves focus to the focused row's parent when it is visible.
func (controller *Controller) FocusParent() bool {
	node, _ := controller.Focused()
	if node == nil || node.Parent == nil || node.Parent == controller.root {
		return false
	}
	return controller.FocusKey(node.Parent.Key())
}

// ExpandFocused expands a closed folder and keeps focus on it.
func (controller *Controller) ExpandFocused() *Request {
	node, _ := controller.Focused()
	if node == nil || !node.IsFolder() || controller.expanded.Has(node.Key()) {
		return nil
	}
	key := node.Key()
	request := controller.Expand(key)
	controller.FocusKey(key)
	return request
}

// CollapseFocused collapses an open folder, or moves to the parent row
// when the focused row is not open.
func (controller *Controller) CollapseFocused() {
	node, _ := controller.Focused()
	if node == nil {
		return
	}
	if node.IsFolder() && controller.expanded.Has(node.Key()) {
		controller.Collapse(node.Key())
		return
	}
	controller.FocusParent()
}

// Activate runs the focused row's primary action.
func (controller *Controller) Activate() Activation {
	node, _ := controller.Focused()
	if node == nil {
		return Activation{}
	}
	switch node.TreeNodeType {
	case domain.TreeNodeNode:
		controller.SetActive(node.ID)
		return Activation{Kind: ActionClick, Node: node, Request: controller.Toggle(node.Key(), ReasonUser)}
	case domain.TreeNodeLoadMore:
		return Activation{Kind: ActionLoadMore, Node: node, Request: controller.LoadMore(node.Key())}
	case domain.TreeNodeSearch:
		return Activation{Kind: ActionSearch, Node: node}
	default:
		return Activation{Node: node}
	}
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
