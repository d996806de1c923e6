package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/emvi-client/internal/client/services"
	"github.com/dmitrijs2005/emvi-client/pkg/emvi"
)

// Search runs a single-entity search and prints the hits.
func (a *App) Search(ctx context.Context, kind services.Kind, args []string) error {
	query, filter := parseSearchArgs(args)

	res, err := a.searchService.Search(ctx, kind, query, filter)
	if err != nil {
		a.report(ctx, err)
		return err
	}
	printSearchResult(a.out, res)
	return nil
}

// All runs a combined search and prints the response as JSON.
func (a *App) All(ctx context.Context, args []string) error {
	query, filter := parseSearchArgs(args)

	res, err := a.searchService.All(ctx, query, filter)
	if err != nil {
		a.report(ctx, err)
		return err
	}
	return printJSON(a.out, res)
}

// Token prints the current session and the clients with a token in the
// database. The access token itself is never shown.
func (a *App) Token(ctx context.Context) error {
	printTokenInfo(a.out, a.authService.Status(), time.Now())

	names, err := a.authService.StoredClients(ctx)
	if err != nil {
		a.report(ctx, err)
		return err
	}
	printStoredClients(a.out, names)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	info, err := a.authService.Refresh(ctx)
	if err != nil {
		a.report(ctx, err)
		return err
	}
	fmt.Fprintln(a.out, "Token refreshed.")
	printTokenInfo(a.out, info, time.Now())
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		a.report(ctx, err)
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// report prints err in user terms and logs the details.
func (a *App) report(ctx context.Context, err error) {
	a.log.Debug(ctx, "command failed", "error", err)

	var apiErr *emvi.APIError
	var valErr *emvi.ValidationError
	switch {
	case errors.As(err, &valErr):
		fmt.Fprintln(a.out, "Invalid search:", valErr.Message)
	case errors.Is(err, emvi.ErrUnauthorized):
		fmt.Fprintln(a.out, "Not authorized: check the client ID, secret and organization.")
	case errors.As(err, &apiErr):
		fmt.Fprintf(a.out, "Request failed: %s %s\n", apiErr.Method, apiErr.Status)
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintln(a.out, "Request timed out.")
	default:
		fmt.Fprintln(a.out, "Error:", err)
	}
}
