package employee

import (
	"sort"
	"strings"

	"identity-service/internal/apperr"
)

// Operator names follow the query-string convention `field:op=value`.
// A bare field key means equality.
type Operator string

const (
	OpEquals   Operator = "eq"
	OpContains Operator = "like"
	OpGreater  Operator = "gt"
	OpLess     Operator = "lt"
)

// Filter is one field/operator/value conjunct of a listing query.
type Filter struct {
	Field string
	Op    Operator
	Value string
}

// Sort is one ordering key of a listing query.
type Sort struct {
	Field      string
	Descending bool
}

// Reserved query-string keys that are never treated as filter fields.
var reservedKeys = map[string]bool{
	"offset": true,
	"limit":  true,
	"sort":   true,
}

// queryableFields maps the external field names clients may filter and
// sort on to their storage columns. A closed allow-list, checked at
// translation time, so internal-only columns never become filterable.
var queryableFields = map[string]string{
	"employeeCode": "employee_code",
	"firstName":    "first_name",
	"lastName":     "last_name",
	"email":        "email",
	"employeeType": "employee_type",
	"managerCode":  "manager_code",
}

// Translate turns raw query-string parameters and a raw sort expression
// into normalized filter and sort descriptors. Pure transformation: no
// I/O, deterministic, side-effect-free.
//
// Filter keys are `field` or `field:op` with op one of eq, like, gt, lt.
// The sort expression is comma-separated; an `asc` or `desc` token binds
// to the field that precedes it, and direction defaults to ascending.
func Translate(params map[string]string, rawSort string) ([]Filter, []Sort, error) {
	filters, err := translateFilters(params)
	if err != nil {
		return nil, nil, err
	}

	sorts, err := translateSort(rawSort)
	if err != nil {
		return nil, nil, err
	}

	return filters, sorts, nil
}

func translateFilters(params map[string]string) ([]Filter, error) {
	// Map iteration order is random; sort keys so the output order is
	// stable for identical input.
	keys := make([]string, 0, len(params))
	for k := range params {
		if reservedKeys[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filters := make([]Filter, 0, len(keys))
	for _, key := range keys {
		field := key
		op := OpEquals

		if i := strings.IndexByte(key, ':'); i >= 0 {
			field = key[:i]
			switch Operator(key[i+1:]) {
			case OpEquals:
				op = OpEquals
			case OpContains:
				op = OpContains
			case OpGreater:
				op = OpGreater
			case OpLess:
				op = OpLess
			default:
				return nil, apperr.Newf(apperr.KindInvalidFilter,
					"unknown filter operator %q on field %q", key[i+1:], field)
			}
		}

		if _, ok := queryableFields[field]; !ok {
			return nil, apperr.Newf(apperr.KindInvalidFilter,
				"field %q is not filterable", field)
		}

		filters = append(filters, Filter{Field: field, Op: op, Value: params[key]})
	}

	return filters, nil
}

func translateSort(rawSort string) ([]Sort, error) {
	rawSort = strings.TrimSpace(rawSort)
	if rawSort == "" {
		return nil, nil
	}

	var sorts []Sort
	for _, token := range strings.Split(rawSort, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		switch strings.ToLower(token) {
		case "asc", "desc":
			if len(sorts) == 0 {
				return nil, apperr.Newf(apperr.KindInvalidSort,
					"sort direction %q has no preceding field", token)
			}
			sorts[len(sorts)-1].Descending = strings.EqualFold(token, "desc")
		default:
			if _, ok := queryableFields[token]; !ok {
				return nil, apperr.Newf(apperr.KindInvalidSort,
					"field %q is not sortable", token)
			}
			sorts = append(sorts, Sort{Field: token})
		}
	}

	return sorts, nil
}

// Column resolves an external field name to its storage column. Only
// valid for fields that passed translation.
func Column(field string) string {
	return queryableFields[field]
}
