package cache

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/assetinventory-backend/pkg/types"
	"github.com/google/uuid"
)

// Entity prefixes. Every key starts with one of these, so "<entity>:*"
// matches all cached results for that entity across tenants.
const (
	EntityAsset      = "asset"
	EntityAllocation = "assetAllocation"
)

// Scope labels.
const (
	ScopeList   = "list"
	ScopeDetail = "detail"
	ScopeReport = "report"
	ScopeDue    = "due"
)

// Filters holds the scalar parameters that distinguish one cached query from another.
type Filters map[string]any

// fieldOrder fixes where known filter fields appear in a key. Fields not listed
// here follow in lexical order.
var fieldOrder = []string{
	"tenant_id",
	"asset_id",
	"asset_allocation_id",
	"reference_type",
	"reference_id",
	"status",
	"page",
	"limit",
	"start_date",
	"end_date",
	"days",
}

var fieldRank = func() map[string]int {
	out := make(map[string]int, len(fieldOrder))
	for i, f := range fieldOrder {
		out[f] = i
	}
	return out
}()

// BuildKey renders entity:scope followed by field:value pairs for every present filter.
func BuildKey(entity, scope string, filters Filters) string {
	parts := []string{entity, scope}

	for _, field := range orderedFields(filters) {
		value, ok := formatValue(filters[field])
		if !ok {
			continue
		}
		parts = append(parts, field+":"+value)
	}
	return strings.Join(parts, ":")
}

// Pattern returns the glob matching every key of entity.
func Pattern(entity string) string {
	return entity + ":*"
}

func orderedFields(filters Filters) []string {
	fields := make([]string, 0, len(filters))
	for f := range filters {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		ri, iKnown := fieldRank[fields[i]]
		rj, jKnown := fieldRank[fields[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return fields[i] < fields[j]
		}
	})
	return fields
}

// formatValue reports false for values that should be left out of the key.
func formatValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case uuid.UUID:
		return val.String(), val != uuid.Nil
	case types.Date:
		s := val.String()
		return s, s != ""
	case time.Time:
		if val.IsZero() {
			return "", false
		}
		return val.UTC().Format(types.DateLayout), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	case fmt.Stringer:
		if isNilPointer(val) {
			return "", false
		}
		s := val.String()
		return s, s != ""
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		return formatValue(rv.Elem().Interface())
	}
	s := fmt.Sprint(v)
	return s, s != ""
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
