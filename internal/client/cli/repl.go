package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/emvi-client/internal/client/services"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. *App satisfies it.
type execIface interface {
	isAuthenticated() bool
	Search(ctx context.Context, kind services.Kind, args []string) error
	All(ctx context.Context, args []string) error
	Token(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
}

const usage = `Available commands:
  articles <query> [key=value ...]   search articles
  lists <query> [key=value ...]      search lists
  tags <query> [key=value ...]       search tags
  all <query> [key=value ...]        search articles, lists and tags
  token                              show the current session
  refresh                            fetch a new token
  logout                             forget the stored token
  exit                               leave the program`

// runREPL reads commands from scanner until EOF, "exit" or "quit" and
// dispatches them to a. Handlers report their own errors, so the loop
// ignores them.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("emvi %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help", "?":
			printlnFn(usage)
			if !a.isAuthenticated() {
				printlnFn("No token yet: the first search or 'refresh' obtains one.")
			}

		case "articles", "article", "lists", "list", "tags", "tag":
			if len(args) == 0 {
				printlnFn(fmt.Sprintf("Usage: %s <query> [key=value ...]", cmd))
				continue
			}
			kind, _ := services.ParseKind(cmd)
			_ = a.Search(ctx, kind, args)

		case "all":
			if len(args) == 0 {
				printlnFn("Usage: all <query> [key=value ...]")
				continue
			}
			_ = a.All(ctx, args)

		case "token":
			_ = a.Token(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
