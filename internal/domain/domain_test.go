package domain

import (
	"testing"

	"github.com/gotidy/ptr"
	"github.com/stretchr/testify/assert"
)

func TestNodeConfigMerge(t *testing.T) {
	base := NodeConfig{
		SearchTerm: ptr.String("old"),
		Page:       ptr.Int(3),
		Filters:    map[string]string{"packageType": "DOCKER", "owner": "me"},
	}
	merged := base.Merge(NodeConfig{Page: ptr.Int(0), Sort: ptr.String("name,desc"), Filters: map[string]string{"owner": "you"}})

	assert.Equal(t, "old", merged.SearchOrEmpty())
	assert.Equal(t, 0, merged.PageOrZero())
	assert.Equal(t, "name,desc", merged.SortOrEmpty())
	assert.Equal(t, map[string]string{"packageType": "DOCKER", "owner": "you"}, merged.Filters)

	assert.Equal(t, 3, base.PageOrZero(), "merge leaves the receiver alone")
	assert.Equal(t, "me", base.Filters["owner"])

	var empty NodeConfig
	assert.Equal(t, 0, empty.PageOrZero())
	assert.Equal(t, "", empty.SearchOrEmpty())
	assert.Nil(t, empty.Merge(NodeConfig{}).Filters)
}

func TestKeys(t *testing.T) {
	parent := &TreeNode{Node: Node{ID: "repo/a"}}
	loadMore := &TreeNode{Node: Node{ID: "repo/a/loadMore/2"}, Kind: KindLoadMore, Page: 2, Parent: parent}

	assert.Equal(t, Key{ID: "repo/a", Kind: KindLoadMore, Page: 2}, loadMore.Key())
	assert.Equal(t, "repo/a#loadMore:2", loadMore.Key().String())
	assert.True(t, loadMore.IsPlaceholder())
	assert.False(t, loadMore.IsFolder())

	plain := &TreeNode{Node: Node{ID: "repo/a/loadMore/2", Type: NodeFolder}}
	assert.NotEqual(t, plain.Key(), loadMore.Key())
	assert.True(t, plain.Key().IsReal())
	assert.True(t, plain.IsFolder())
	assert.Equal(t, "repo/a/loadMore/2", plain.Key().String())
	assert.Nil(t, plain.Err())
}
