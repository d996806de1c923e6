// Package cli provides the interactive emvi search client.
//
// It wires configuration, the local token database, the search services
// and a small REPL. Typical flow: ask for any missing credentials, open the
// database, then execute user commands until "exit".
//
// Commands:
//   - articles|lists|tags <query> [key=value ...]  search one entity
//   - all <query> [key=value ...]                  search everything at once
//   - token                                        show the current session
//   - refresh                                      fetch a new token
//   - logout                                       forget the stored token
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
