package tree

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"regtree/internal/domain"
)

const generatedPageSize = 2

// generatedChildren describes an endless but deterministic tree three levels deep.
func generatedChildren(id string) []domain.Node {
	depth := strings.Count(id, "/")
	if depth >= 3 {
		return nil
	}
	count := 1 + (len(id)*7+depth)%4
	nodes := make([]domain.Node, 0, count)
	for index := 0; index < count; index++ {
		name := strconv.Itoa(index)
		nodeType := domain.NodeFolder
		if index%2 == 1 {
			nodeType = domain.NodeFile
		}
		nodes = append(nodes, domain.Node{ID: id + "/" + name, Label: name, Type: nodeType})
	}
	return nodes
}

func generatedResult(request *Request) domain.FetchResult {
	all := generatedChildren(request.Target.ID)
	if term := request.Filters.SearchOrEmpty(); term != "" {
		filtered := []domain.Node{}
		for _, node := range all {
			if strings.Contains(node.Label, term) {
				filtered = append(filtered, node)
			}
		}
		all = filtered
	}
	page := request.Filters.PageOrZero()
	start := min(page*generatedPageSize, len(all))
	end := min(start+generatedPageSize, len(all))
	return domain.FetchResult{
		Data:       all[start:end],
		Pagination: &domain.Pagination{Page: page, HasMore: end < len(all)},
	}
}

func checkInvariants(t *rapid.T, controller *Controller) {
	rows := controller.Rows()
	if err := CheckPreOrder(rows, 0); err != nil {
		t.Fatalf("pre-order: %v", err)
	}
	for index, row := range rows {
		for next := index + 1; next < len(rows) && rows[next].Level > row.Level; next++ {
			if !strings.HasPrefix(rows[next].ID, row.ID+"/") {
				t.Fatalf("%s sits under %s", rows[next].ID, row.ID)
			}
		}
		if row.IsPlaceholder() {
			continue
		}
		if index+1 < len(rows) && rows[index+1].Level > row.Level && !controller.IsExpanded(row.Key()) {
			t.Fatalf("%s has children but is not expanded", row.ID)
		}
	}
	present := map[domain.Key]bool{controller.Root().Key(): true}
	for _, row := range rows {
		present[row.Key()] = true
	}
	for _, set := range []KeySet{controller.expanded, controller.loading, controller.loaded} {
		for key := range set {
			if !present[key] {
				t.Fatalf("bookkeeping for %s outlived its row", key)
			}
		}
	}
}

func TestControllerInvariantsHold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		search := rapid.Bool().Draw(t, "search")
		controller := NewController()
		pending := []*Request{controller.Init("r", domain.NodeConfig{}, search)}

		pickRow := func(t *rapid.T, label string) *domain.TreeNode {
			if controller.Len() == 0 {
				return nil
			}
			return controller.Row(rapid.IntRange(0, controller.Len()-1).Draw(t, label))
		}
		queue := func(request *Request) {
			if request != nil {
				pending = append(pending, request)
			}
		}

		t.Repeat(map[string]func(*rapid.T){
			"expand": func(t *rapid.T) {
				if row := pickRow(t, "expand"); row != nil {
					queue(controller.Expand(row.Key()))
				}
			},
			"toggle": func(t *rapid.T) {
				if row := pickRow(t, "toggle"); row != nil {
					queue(controller.Toggle(row.Key(), ReasonUser))
				}
			},
			"collapse": func(t *rapid.T) {
				if row := pickRow(t, "collapse"); row != nil {
					controller.Collapse(row.Key())
				}
			},
			"refresh": func(t *rapid.T) {
				if row := pickRow(t, "refresh"); row != nil {
					queue(controller.Refresh(row.Key()))
				}
			},
			"loadMore": func(t *rapid.T) {
				markers := []*domain.TreeNode{}
				for _, row := range controller.Rows() {
					if row.TreeNodeType == domain.TreeNodeLoadMore {
						markers = append(markers, row)
					}
				}
				if len(markers) == 0 {
					t.Skip("no load more rows")
				}
				marker := rapid.SampledFrom(markers).Draw(t, "marker")
				queue(controller.LoadMore(marker.Key()))
			},
			"search": func(t *rapid.T) {
				searchKey, ok := controller.SearchKey()
				if !ok {
					t.Skip("search disabled")
				}
				term := rapid.SampledFrom([]string{"", "1", "2"}).Draw(t, "term")
				queue(controller.Search(searchKey, domain.NodeConfig{SearchTerm: &term}))
			},
			"resolve": func(t *rapid.T) {
				if len(pending) == 0 {
					t.Skip("nothing pending")
				}
				index := rapid.IntRange(0, len(pending)-1).Draw(t, "pending")
				request := pending[index]
				pending = append(pending[:index], pending[index+1:]...)
				var err error
				if rapid.IntRange(0, 9).Draw(t, "failure") == 0 {
					err = errors.New("generated failure")
				}
				controller.Resolve(request, generatedResult(request), err)
			},
			"": func(t *rapid.T) {
				checkInvariants(t, controller)
			},
		})
	})
}
