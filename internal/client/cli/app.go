package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"

	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/emvi-client/internal/client/config"
	"github.com/dmitrijs2005/emvi-client/internal/client/services"
	"github.com/dmitrijs2005/emvi-client/internal/client/storage"
	"github.com/dmitrijs2005/emvi-client/internal/logging"
	"github.com/dmitrijs2005/emvi-client/pkg/emvi"
)

type App struct {
	config        *config.Config
	authService   services.AuthService
	searchService services.SearchService
	db            io.Closer
	reader        *bufio.Reader
	out           io.Writer
	log           logging.Logger
}

// NewApp asks for missing credentials, opens the token database and builds
// the services.
func NewApp(ctx context.Context, c *config.Config, logger *slog.Logger) (*App, error) {
	reader := bufio.NewReader(os.Stdin)
	if err := promptCredentials(c, reader, os.Stdout); err != nil {
		return nil, err
	}

	db, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, err
	}

	client, err := emvi.New(ctx, c.ClientID, c.ClientSecret, c.Organization, clientOptions(c, db, logger)...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	log := logging.NewSlogLogger(logger)
	return &App{
		config:        c,
		authService:   services.NewAuthService(client.Session(), db.Metadata, log),
		searchService: services.NewSearchService(client, log),
		db:            db,
		reader:        reader,
		out:           os.Stdout,
		log:           log,
	}, nil
}

func clientOptions(c *config.Config, db *storage.Database, logger *slog.Logger) []emvi.Option {
	opts := []emvi.Option{
		emvi.WithAuthHost(c.AuthHost),
		emvi.WithAPIHost(c.APIHost),
		emvi.WithHTTPClient(&http.Client{Timeout: c.Timeout}),
		emvi.WithStore(db.Metadata),
		emvi.WithLogger(logger),
	}
	if c.RateLimit > 0 {
		burst := int(math.Ceil(c.RateLimit))
		opts = append(opts, emvi.WithRateLimit(rate.Limit(c.RateLimit), burst))
	}
	return opts
}

// promptCredentials asks for every credential the configuration lacks.
// The secret is read without echo.
func promptCredentials(c *config.Config, reader *bufio.Reader, w io.Writer) error {
	var err error
	if c.ClientID == "" {
		if c.ClientID, err = GetSimpleText(reader, "Client ID", w); err != nil {
			return err
		}
	}
	if c.Organization == "" {
		if c.Organization, err = GetSimpleText(reader, "Organization", w); err != nil {
			return err
		}
	}
	if c.ClientSecret == "" {
		if c.ClientSecret, err = GetSecret("Client secret", w); err != nil {
			return err
		}
	}
	if c.ClientID == "" || c.ClientSecret == "" || c.Organization == "" {
		return fmt.Errorf("client ID, client secret and organization are required")
	}
	return nil
}

// Run starts the REPL and blocks until the user exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Emvi search (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
}

func (a *App) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.log.Error(context.Background(), "failed to close database", "error", err)
	}
	a.db = nil
}

func (a *App) isAuthenticated() bool {
	return a.authService.Status().Authenticated
}

func (a *App) status() string {
	info := a.authService.Status()
	s := info.ClientID + "@" + info.Organization
	if !info.Authenticated {
		s += ", no token"
	}
	return "(" + s + ")"
}
