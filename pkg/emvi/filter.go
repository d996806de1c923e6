package emvi

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"unicode/utf8"
)

// Filter holds the query parameters of a search request: flags, limits and
// other entity-specific fields. The "query" key is always set by the client.
type Filter map[string]any

// buildFilter validates the arguments of a search call and returns a new
// filter with query injected. The caller's filter is left untouched.
func buildFilter(query string, filter Filter) (Filter, error) {
	if !utf8.ValidString(query) {
		return nil, &ValidationError{Field: "query", Message: "query must be of type string"}
	}

	out := make(Filter, len(filter)+1)
	for k, v := range filter {
		if !isParamValue(v) {
			return nil, &ValidationError{
				Field:   k,
				Message: fmt.Sprintf("filter must be of type object: unsupported value %T for %q", v, k),
			}
		}
		out[k] = v
	}
	out["query"] = query
	return out, nil
}

// defaultAllFilter is used by FindAll when the caller gives no filter.
// A limit of 0 leaves the number of results per entity to the API.
func defaultAllFilter(query string) Filter {
	return Filter{
		"articles":       true,
		"lists":          true,
		"tags":           true,
		"articles_limit": 0,
		"lists_limit":    0,
		"tags_limit":     0,
		"query":          query,
	}
}

func isParamValue(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		fmt.Stringer, []string:
		return true
	}
	return false
}

// Values encodes the filter as URL query parameters. Nil values, typed nil
// pointers included, are skipped and string slices become repeated keys.
func (f Filter) Values() url.Values {
	values := make(url.Values, len(f))
	for k, v := range f {
		if isNilPointer(v) {
			continue
		}
		switch x := v.(type) {
		case nil:
		case []string:
			for _, s := range x {
				values.Add(k, s)
			}
		default:
			values.Set(k, formatParam(x))
		}
	}
	return values
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func formatParam(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
