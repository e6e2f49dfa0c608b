package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/basekick-labs/flightdata/internal/storage"
	"github.com/basekick-labs/flightdata/pkg/models"
)

// LoadRocketConfig reads a rocket configuration (JSON) from the backend and
// validates it. Unknown fields are ignored.
func LoadRocketConfig(ctx context.Context, backend storage.Backend, path string) (*models.RocketConfig, error) {
	rc, err := backend.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rocket config %s: %w", path, err)
	}
	defer rc.Close()

	cfg, err := DecodeRocketConfig(rc)
	if err != nil {
		return nil, fmt.Errorf("rocket config %s: %w", path, err)
	}
	return cfg, nil
}

// DecodeRocketConfig decodes and validates a rocket configuration
func DecodeRocketConfig(r io.Reader) (*models.RocketConfig, error) {
	var cfg models.RocketConfig
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
