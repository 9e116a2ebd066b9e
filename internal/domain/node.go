package domain

type NodeType int

const (
	NodeFile NodeType = iota
	NodeFolder
	NodeHeader
)

func (nodeType NodeType) String() string {
	switch nodeType {
	case NodeFolder:
		return "folder"
	case NodeHeader:
		return "header"
	default:
		return "file"
	}
}

// TreeNodeType is the rendering role of a row, independent of the node's NodeType.
type TreeNodeType int

const (
	TreeNodeNode TreeNodeType = iota
	TreeNodeLoading
	TreeNodeError
	TreeNodeEmpty
	TreeNodeLoadMore
	TreeNodeHeader
	TreeNodeSearch
)

func (treeNodeType TreeNodeType) String() string {
	switch treeNodeType {
	case TreeNodeLoading:
		return "loading"
	case TreeNodeError:
		return "error"
	case TreeNodeEmpty:
		return "empty"
	case TreeNodeLoadMore:
		return "loadMore"
	case TreeNodeHeader:
		return "header"
	case TreeNodeSearch:
		return "search"
	default:
		return "node"
	}
}

type Node struct {
	ID       string
	Label    string
	Value    string
	Type     NodeType
	Disabled bool
	Metadata any
}

type TreeNode struct {
	Node
	Level        int
	TreeNodeType TreeNodeType
	IsLastChild  bool
	Kind         SyntheticKind
	Page         int
	// Parent is never owned by the row; it is used for upward lookups only.
	Parent *TreeNode
}

func (node *TreeNode) Key() Key {
	if node.Kind == KindReal {
		return Key{ID: node.ID}
	}
	parentID := ""
	if node.Parent != nil {
		parentID = node.Parent.ID
	}
	return Key{ID: parentID, Kind: node.Kind, Page: node.Page}
}

func (node *TreeNode) IsPlaceholder() bool {
	return node.Kind != KindReal
}

func (node *TreeNode) IsFolder() bool {
	return node.Kind == KindReal && node.Type == NodeFolder && node.TreeNodeType == TreeNodeNode
}

// Err returns the failure carried by an Error row.
func (node *TreeNode) Err() error {
	if node.TreeNodeType != TreeNodeError {
		return nil
	}
	err, _ := node.Metadata.(error)
	return err
}
