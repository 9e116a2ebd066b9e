package tree

import (
	"strings"

	"regtree/internal/domain"
)

// stubSource answers requests from a fixed parent -> children table.
type stubSource struct {
	children map[string][]domain.Node
	errs     map[string]error
	pageSize int
	calls    map[string]int
}

func newStub(pageSize int) *stubSource {
	return &stubSource{
		children: map[string][]domain.Node{},
		errs:     map[string]error{},
		pageSize: pageSize,
		calls:    map[string]int{},
	}
}

func (stub *stubSource) folder(parent string, names ...string) *stubSource {
	for _, name := range names {
		id := parent + "/" + name
		stub.children[parent] = append(stub.children[parent], domain.Node{ID: id, Label: name, Type: domain.NodeFolder})
	}
	if _, ok := stub.children[parent]; !ok {
		stub.children[parent] = nil
	}
	return stub
}

func (stub *stubSource) file(parent string, names ...string) *stubSource {
	for _, name := range names {
		id := parent + "/" + name
		stub.children[parent] = append(stub.children[parent], domain.Node{ID: id, Label: name, Type: domain.NodeFile})
	}
	return stub
}

func (stub *stubSource) fetch(request *Request) (domain.FetchResult, error) {
	id := request.Target.ID
	stub.calls[id]++
	if err := stub.errs[id]; err != nil {
		return domain.FetchResult{}, err
	}
	all := stub.children[id]
	if term := request.Filters.SearchOrEmpty(); term != "" {
		filtered := []domain.Node{}
		for _, node := range all {
			if strings.Contains(node.Label, term) {
				filtered = append(filtered, node)
			}
		}
		all = filtered
	}
	size := stub.pageSize
	if size <= 0 {
		size = len(all) + 1
	}
	page := request.Filters.PageOrZero()
	start := page * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return domain.FetchResult{
		Data:       all[start:end],
		Pagination: &domain.Pagination{Page: page, HasMore: end < len(all)},
	}, nil
}

// run fetches and resolves request, reporting whether it was applied.
func (stub *stubSource) run(controller *Controller, request *Request) bool {
	if request == nil {
		return false
	}
	result, err := stub.fetch(request)
	return controller.Resolve(request, result, err)
}
