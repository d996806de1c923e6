// Package metadata stores small opaque values, such as the session token,
// in the local SQLite database.
package metadata

import "context"

// Repository is a byte-valued key/value table. Get returns (nil, nil) for
// a missing key. List returns the entries under a key prefix.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}
