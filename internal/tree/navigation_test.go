package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regtree/internal/domain"
)

func loadedTree(t *testing.T) (*Controller, *stubSource) {
	t.Helper()
	stub := newStub(0).folder("repo", "a", "b", "c").file("repo/a", "x", "y")
	controller := NewController()
	require.True(t, stub.run(controller, controller.Init("repo", domain.NodeConfig{}, false)))
	return controller, stub
}

func focusedID(controller *Controller) string {
	node, _ := controller.Focused()
	if node == nil {
		return ""
	}
	return node.ID
}

func TestMoveFocusClamps(t *testing.T) {
	controller, _ := loadedTree(t)

	node, index := controller.Focused()
	require.NotNil(t, node)
	assert.Equal(t, "repo/a", node.ID)
	assert.Equal(t, 0, index)

	controller.MoveFocus(1)
	assert.Equal(t, "repo/b", focusedID(controller))
	controller.MoveFocus(10)
	assert.Equal(t, "repo/c", focusedID(controller))
	controller.MoveFocus(-10)
	assert.Equal(t, "repo/a", focusedID(controller))
	controller.FocusLast()
	assert.Equal(t, "repo/c", focusedID(controller))
	controller.FocusFirst()
	assert.Equal(t, "repo/a", focusedID(controller))

	controller.PageFocus(1, 2)
	assert.Equal(t, "repo/c", focusedID(controller))
	controller.PageFocus(-1, 0)
	assert.Equal(t, "repo/b", focusedID(controller))
	controller.FocusFirst()

	assert.False(t, controller.FocusKey(key("missing")))
	assert.Equal(t, "repo/a", focusedID(controller))
}

func TestFocusFollowsRowAcrossInserts(t *testing.T) {
	controller, stub := loadedTree(t)
	require.True(t, controller.FocusKey(key("repo/c")))

	request := controller.Expand(key("repo/a"))
	_, index := controller.Focused()
	assert.Equal(t, 3, index)

	require.True(t, stub.run(controller, request))
	node, index := controller.Focused()
	assert.Equal(t, "repo/c", node.ID)
	assert.Equal(t, 4, index)
}

func TestFocusOnRemovedRowFallsBackToIndex(t *testing.T) {
	controller, stub := loadedTree(t)
	require.True(t, stub.run(controller, controller.Expand(key("repo/a"))))
	require.True(t, controller.FocusKey(key("repo/a/x")))

	controller.Collapse(key("repo/a"))
	assert.Equal(t, "repo/b", focusedID(controller))
}

func TestExpandAndCollapseFocused(t *testing.T) {
	controller, stub := loadedTree(t)

	request := controller.ExpandFocused()
	require.NotNil(t, request)
	assert.Equal(t, "repo/a", focusedID(controller))
	require.True(t, stub.run(controller, request))
	assert.Nil(t, controller.ExpandFocused(), "already open")

	controller.MoveFocus(1)
	assert.Equal(t, "repo/a/x", focusedID(controller))
	controller.CollapseFocused()
	assert.Equal(t, "repo/a", focusedID(controller), "a file moves focus to its parent")
	assert.True(t, controller.IsExpanded(key("repo/a")))

	controller.CollapseFocused()
	assert.False(t, controller.IsExpanded(key("repo/a")))
	assert.Equal(t, []string{"repo/a", "repo/b", "repo/c"}, ids(controller.Rows()))

	assert.False(t, controller.FocusParent(), "top-level rows have no visible parent")
}

func TestActivate(t *testing.T) {
	controller, stub := loadedTree(t)

	activation := controller.Activate()
	assert.Equal(t, ActionClick, activation.Kind)
	require.NotNil(t, activation.Request)
	assert.Equal(t, "repo/a", controller.ActivePath())
	require.True(t, stub.run(controller, activation.Request))

	require.True(t, controller.FocusKey(key("repo/a/x")))
	activation = controller.Activate()
	assert.Equal(t, ActionClick, activation.Kind)
	assert.Nil(t, activation.Request)
	assert.True(t, controller.IsActive("repo/a/x"))
	assert.True(t, controller.IsOpen("repo/a"))
	assert.True(t, controller.IsOpen("repo/a/x"))
	assert.False(t, controller.IsOpen("repo/b"))
	assert.False(t, controller.IsOpen("repo/a/xy"))
}

func TestActivatePlaceholders(t *testing.T) {
	stub := newStub(1).folder("repo", "a", "b")
	controller := NewController()
	require.True(t, stub.run(controller, controller.Init("repo", domain.NodeConfig{}, true)))
	assert.Equal(t, []string{"repo#search", "repo/a", "repo#loadMore:0"}, ids(controller.Rows()))

	controller.FocusFirst()
	activation := controller.Activate()
	assert.Equal(t, ActionSearch, activation.Kind)
	assert.Nil(t, activation.Request)

	controller.FocusLast()
	activation = controller.Activate()
	assert.Equal(t, ActionLoadMore, activation.Kind)
	require.NotNil(t, activation.Request)
	assert.Equal(t, OpLoadMore, activation.Request.Op)

	require.True(t, controller.FocusKey(key("repo/a")))
	controller.ExpandFocused()
	controller.MoveFocus(1)
	activation = controller.Activate()
	assert.Equal(t, ActionNone, activation.Kind)
	assert.Equal(t, domain.TreeNodeLoading, activation.Node.TreeNodeType)
}
