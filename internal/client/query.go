package client

import "encoding/json"

type query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

func (q query) String() string {
	b, _ := json.Marshal(q)
	return string(b)
}

// OrderDesc sorts by attribute, newest/largest first.
func OrderDesc(attribute string) string {
	return query{Method: "orderDesc", Attribute: attribute}.String()
}

// OrderAsc sorts by attribute, oldest/smallest first.
func OrderAsc(attribute string) string {
	return query{Method: "orderAsc", Attribute: attribute}.String()
}

// Limit caps the number of returned documents.
func Limit(n int) string {
	return query{Method: "limit", Values: []any{n}}.String()
}
