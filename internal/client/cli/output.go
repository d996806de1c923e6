package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/emvi-client/internal/client/services"
	"github.com/dmitrijs2005/emvi-client/pkg/emvi"
)

func printSearchResult(w io.Writer, res *emvi.SearchResult) {
	fmt.Fprintf(w, "%d of %d result(s)\n", len(res.Results), res.Count)
	if len(res.Results) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, item := range res.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, itemLabel(item), itemField(item, "id"))
	}
	_ = tw.Flush()
}

// itemLabel picks the human readable name of a hit.
func itemLabel(item emvi.Item) string {
	for _, key := range []string{"title", "name"} {
		if s := itemField(item, key); s != "" {
			return s
		}
	}
	return "(untitled)"
}

func itemField(item map[string]any, key string) string {
	v, ok := item[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTokenInfo(w io.Writer, info services.TokenInfo, now time.Time) {
	fmt.Fprintf(w, "Client:       %s\n", info.ClientID)
	fmt.Fprintf(w, "Organization: %s\n", info.Organization)
	if !info.Authenticated {
		fmt.Fprintln(w, "Token:        none")
		return
	}
	fmt.Fprintf(w, "Token type:   %s\n", info.TokenType)
	fmt.Fprintf(w, "Expires in:   %ds (as issued)\n", info.ExpiresIn)
	if info.Subject != "" {
		fmt.Fprintf(w, "Subject:      %s\n", info.Subject)
	}
	if !info.Expiry.IsZero() {
		state := "valid"
		if !info.Expiry.After(now) {
			state = "expired"
		}
		fmt.Fprintf(w, "Expiry:       %s (%s)\n", info.Expiry.Format(time.RFC3339), state)
	}
}

func printStoredClients(w io.Writer, names []string) {
	if len(names) == 0 {
		fmt.Fprintln(w, "Stored:       none")
		return
	}
	fmt.Fprintf(w, "Stored:       %s\n", strings.Join(names, ", "))
}
