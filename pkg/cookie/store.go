package cookie

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/keboola/go-ajax/pkg/cookie/boltstore"
	"github.com/keboola/go-ajax/pkg/cookie/memstore"
	"github.com/keboola/go-ajax/pkg/cookie/sqlitestore"
)

// Store persists rendered cookie strings by key.
// Entries past their expiration must not be returned by Lookup.
type Store interface {
	Put(ctx context.Context, key, cookie string, expires time.Time) error
	Lookup(ctx context.Context, key string) (cookie string, found bool, err error)
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	StoreMemory = "memory"
	StoreBBolt  = "bbolt"
	StoreSQLite = "sqlite"
)

// OpenStore creates the configured store backend.
func OpenStore(typ, path string) (Store, error) {
	switch strings.TrimSpace(strings.ToLower(typ)) {
	case "", StoreMemory:
		return memstore.New(), nil
	case StoreBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt cookie store requires a path")
		}
		return boltstore.Open(path)
	case StoreSQLite:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("sqlite cookie store requires a path")
		}
		return sqlitestore.Open(path)
	default:
		return nil, fmt.Errorf("unsupported cookie store type %q", typ)
	}
}
