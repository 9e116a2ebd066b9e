package tree

import (
	"strconv"

	"regtree/internal/domain"
)

// RootNode is the synthetic parent of the top-level rows. It never appears in
// Rows itself.
func RootNode(path string) *domain.TreeNode {
	return &domain.TreeNode{
		Node: domain.Node{
			ID:    path,
			Label: path,
			Value: path,
			Type:  domain.NodeFolder,
		},
		Level:        0,
		TreeNodeType: domain.TreeNodeNode,
		IsLastChild:  true,
	}
}

func LoadingNode(parent *domain.TreeNode) *domain.TreeNode {
	return placeholder(parent, domain.KindLoading, domain.TreeNodeLoading, 0, nil)
}

func ErrorNode(parent *domain.TreeNode, err error) *domain.TreeNode {
	node := placeholder(parent, domain.KindError, domain.TreeNodeError, 0, err)
	if err != nil {
		node.Label = err.Error()
	}
	return node
}

func EmptyNode(parent *domain.TreeNode) *domain.TreeNode {
	return placeholder(parent, domain.KindEmpty, domain.TreeNodeEmpty, 0, nil)
}

func LoadMoreNode(parent *domain.TreeNode, page int) *domain.TreeNode {
	return placeholder(parent, domain.KindLoadMore, domain.TreeNodeLoadMore, page, nil)
}

func SearchNode(parent *domain.TreeNode) *domain.TreeNode {
	node := placeholder(parent, domain.KindSearch, domain.TreeNodeSearch, 0, nil)
	node.IsLastChild = false
	return node
}

func placeholder(parent *domain.TreeNode, kind domain.SyntheticKind, role domain.TreeNodeType, page int, metadata any) *domain.TreeNode {
	id := parent.ID + kind.Suffix()
	if kind == domain.KindLoadMore {
		id += "/" + strconv.Itoa(page)
	}
	return &domain.TreeNode{
		Node: domain.Node{
			ID:       id,
			Value:    id,
			Type:     domain.NodeFile,
			Disabled: kind != domain.KindLoadMore && kind != domain.KindSearch,
			Metadata: metadata,
		},
		Level:        parent.Level + 1,
		TreeNodeType: role,
		IsLastChild:  true,
		Kind:         kind,
		Page:         page,
		Parent:       parent,
	}
}

// childRows maps fetched nodes to rows under parent. The last data row is
// only marked last when no further page follows.
func childRows(parent *domain.TreeNode, data []domain.Node, hasMore bool) Rows {
	rows := make(Rows, 0, len(data)+1)
	for index, node := range data {
		role := domain.TreeNodeNode
		if node.Type == domain.NodeHeader {
			role = domain.TreeNodeHeader
		}
		rows = append(rows, &domain.TreeNode{
			Node:         node,
			Level:        parent.Level + 1,
			TreeNodeType: role,
			IsLastChild:  index == len(data)-1 && !hasMore,
			Parent:       parent,
		})
	}
	return rows
}
