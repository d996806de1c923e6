package cli

import (
	"strconv"
	"strings"

	"github.com/dmitrijs2005/emvi-client/pkg/emvi"
)

// parseSearchArgs splits REPL arguments into the query and the filter.
// Words of the form key=value go to the filter, everything else makes up
// the query. "true"/"false" become booleans and integers become ints;
// a key given more than once becomes a list of strings.
//
//	golang tips limit=5 archived=false  ->  "golang tips", {limit: 5, archived: false}
func parseSearchArgs(args []string) (string, emvi.Filter) {
	var words []string
	var filter emvi.Filter

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			words = append(words, arg)
			continue
		}
		if filter == nil {
			filter = emvi.Filter{}
		}

		if prev, seen := filter[key]; seen {
			filter[key] = append(asStrings(prev), value)
		} else {
			filter[key] = filterValue(value)
		}
	}
	return strings.Join(words, " "), filter
}

func filterValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

func asStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case string:
		return []string{x}
	case bool:
		return []string{strconv.FormatBool(x)}
	case int:
		return []string{strconv.Itoa(x)}
	}
	return nil
}
