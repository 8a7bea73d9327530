package telemetry

import (
	"context"
	"testing"

	"github.com/benvon/manasmitra/internal/config"
)

func TestInitTracing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{name: "disabled", cfg: config.Config{}},
		{name: "enabled without endpoint", cfg: config.Config{OTELEnabled: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := tt.cfg
			shutdown, err := InitTracing(context.Background(), &cfg, "test")
			if (err != nil) != tt.wantErr {
				t.Fatalf("InitTracing() error = %v, wantErr %v", err, tt.wantErr)
			}
			if shutdown == nil {
				t.Fatal("InitTracing() returned nil shutdown")
			}
			if err := shutdown(context.Background()); err != nil {
				t.Errorf("shutdown() error = %v", err)
			}
		})
	}
}
