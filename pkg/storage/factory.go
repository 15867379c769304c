package storage

import (
	"context"
	"fmt"

	"github.com/platinummonkey/stackpulse/pkg/clock"
)

// New creates the backend selected by cfg.Type
func New(ctx context.Context, cfg Config, clk clock.Clock) (ObjectStore, error) {
	switch cfg.Type {
	case BackendS3:
		return NewS3Store(ctx, cfg)
	case BackendFilesystem, "":
		return NewFileSystemStore(cfg.FilesystemRoot)
	case BackendMemory:
		return NewMemoryStore(clk), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
