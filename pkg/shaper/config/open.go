package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/store"
	"github.com/cognicore/shaper/pkg/shaper/store/boltstore"
	"github.com/cognicore/shaper/pkg/shaper/store/memstore"
	"github.com/cognicore/shaper/pkg/shaper/store/sqlite"
)

// OpenStore opens the configured store.
func OpenStore(ctx context.Context, sc StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case DriverSQLite:
		return sqlite.OpenSQLite(ctx, sc.Path)
	case DriverBolt:
		return boltstore.Open(sc.Path)
	case DriverMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q: %w", sc.Driver, internalerr.ErrInvalidConfig)
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q: %w", name, internalerr.ErrInvalidConfig)
	}
}

// NewLogger builds a logger writing to w.
func NewLogger(w io.Writer, lc Log) (*slog.Logger, error) {
	level, err := ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
