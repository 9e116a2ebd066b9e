package ui

import (
	"regtree/internal/domain"
	"regtree/internal/tree"
)

type fetchResultMsg struct {
	request *tree.Request
	result  domain.FetchResult
	err     error
}

type changeMsg struct {
	path string
}
