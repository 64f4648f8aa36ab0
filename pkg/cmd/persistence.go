package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/persistence/file"
	"github.com/dukex/autoflow/pkg/persistence/postgresql"
)

// NewPersistence opens the store named by databaseURL: postgres:// and
// postgresql:// URLs select PostgreSQL, file://<dir> or a bare path the
// JSON file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider, location := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres persistence: %w", err)
		}

		return p, nil
	case "file":
		if location == "" {
			return nil, fmt.Errorf("file persistence needs a directory: %q", databaseURL)
		}

		return file.NewPersistence(location), nil
	default:
		return nil, fmt.Errorf("unsupported persistence provider %q", provider)
	}
}

func parsePersistenceProvider(databaseURL string) (string, string) {
	provider, rest, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file", databaseURL
	}

	return provider, rest
}
