package database

import (
	"context"

	"github.com/benvon/manasmitra/internal/models"
)

// CorsConfigStore is the read/write surface used by the CORS reloader and the
// configure CLI.
type CorsConfigStore interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
	Set(ctx context.Context, c *models.CorsConfig) error
}

// RatelimitConfigStore is the read/write surface used by the rate limit
// reloader and the configure CLI.
type RatelimitConfigStore interface {
	List(ctx context.Context) ([]models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

var (
	_ CorsConfigStore      = (*CorsConfigRepository)(nil)
	_ RatelimitConfigStore = (*RatelimitConfigRepository)(nil)
)
