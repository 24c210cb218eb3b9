package access

import (
	"fmt"
	"net/http"
)

// Operation is one of the six CRUD capability kinds a grant row can allow.
type Operation string

const (
	OpList          Operation = "list"
	OpCreate        Operation = "create"
	OpRetrieve      Operation = "retrieve"
	OpUpdate        Operation = "update"
	OpPartialUpdate Operation = "partial_update"
	OpDelete        Operation = "delete"
)

// Operations lists every capability kind.
func Operations() []Operation {
	return []Operation{OpList, OpCreate, OpRetrieve, OpUpdate, OpPartialUpdate, OpDelete}
}

// Valid reports whether op is a defined capability kind.
func (op Operation) Valid() bool {
	switch op {
	case OpList, OpCreate, OpRetrieve, OpUpdate, OpPartialUpdate, OpDelete:
		return true
	}
	return false
}

// OperationForMethod maps an HTTP verb onto a capability kind. GET is
// ambiguous and splits on whether the route addresses a single item or a
// collection.
func OperationForMethod(method string, item bool) (Operation, error) {
	switch method {
	case http.MethodGet, http.MethodHead:
		if item {
			return OpRetrieve, nil
		}
		return OpList, nil
	case http.MethodPost:
		return OpCreate, nil
	case http.MethodPut:
		return OpUpdate, nil
	case http.MethodPatch:
		return OpPartialUpdate, nil
	case http.MethodDelete:
		return OpDelete, nil
	}
	return "", fmt.Errorf("access: no operation for method %s", method)
}
