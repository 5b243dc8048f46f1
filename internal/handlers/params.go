package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"public-chat/internal/repositories"
)

const (
	uniqueIDPlaceholder = "unique()"
	defaultListLimit    = 25
	maxListLimit        = 100
)

var (
	idPattern        = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,35}$`)
	attributePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,63}$`)

	errInvalidID    = errors.New("invalid id: up to 36 chars of a-z, A-Z, 0-9, period, hyphen and underscore, not starting with a special char")
	errInvalidQuery = errors.New("invalid query")
)

// resolveID returns id, or a fresh one when id is the unique() placeholder.
func resolveID(id string) (string, error) {
	if id == uniqueIDPlaceholder {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:20], nil
	}
	if !idPattern.MatchString(id) {
		return "", errInvalidID
	}
	return id, nil
}

func validID(id string) bool {
	return idPattern.MatchString(id)
}

type listQuery struct {
	Method    string            `json:"method"`
	Attribute string            `json:"attribute"`
	Values    []json.RawMessage `json:"values"`
}

// parseListQueries turns queries[] parameters into list options.
func parseListQueries(raw []string) (repositories.ListOptions, error) {
	opts := repositories.ListOptions{Limit: defaultListLimit}
	for _, r := range raw {
		var q listQuery
		if err := json.Unmarshal([]byte(r), &q); err != nil {
			return opts, fmt.Errorf("%w: %s", errInvalidQuery, r)
		}
		switch q.Method {
		case "orderAsc", "orderDesc":
			if !validAttribute(q.Attribute) {
				return opts, fmt.Errorf("%w: attribute %q", errInvalidQuery, q.Attribute)
			}
			opts.OrderBy = q.Attribute
			opts.Desc = q.Method == "orderDesc"
		case "limit":
			if len(q.Values) != 1 {
				return opts, fmt.Errorf("%w: limit takes one value", errInvalidQuery)
			}
			var n int
			if err := json.Unmarshal(q.Values[0], &n); err != nil || n < 1 || n > maxListLimit {
				return opts, fmt.Errorf("%w: limit must be between 1 and %d", errInvalidQuery, maxListLimit)
			}
			opts.Limit = n
		default:
			return opts, fmt.Errorf("%w: unsupported method %q", errInvalidQuery, q.Method)
		}
	}
	return opts, nil
}

func validAttribute(attr string) bool {
	switch attr {
	case "$id", "$createdAt", "$updatedAt":
		return true
	}
	return attributePattern.MatchString(attr)
}
