package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benvon/manasmitra/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := New(ctx, DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestNew_UnsupportedDriver(t *testing.T) {
	t.Parallel()
	if _, err := New(context.Background(), "mysql", "dsn"); err == nil {
		t.Error("New(mysql) should fail")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestProfileStoreRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewProfileStoreRepository(newTestDB(t))

	got, err := repo.Get(ctx, "p1", "checkins")
	if err != nil || got != nil {
		t.Fatalf("Get() on missing key = %q, %v, want nil, nil", got, err)
	}

	if err := repo.Put(ctx, "p1", "checkins", []byte(`[1]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := repo.Put(ctx, "p1", "checkins", []byte(`[1,2]`)); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}
	if err := repo.Put(ctx, "p2", "checkins", []byte(`[9]`)); err != nil {
		t.Fatalf("Put() other profile error = %v", err)
	}

	got, err = repo.Get(ctx, "p1", "checkins")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `[1,2]` {
		t.Errorf("Get() = %s, want [1,2]", got)
	}

	if err := repo.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestParseOrigins(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{name: "empty", raw: ""},
		{name: "single", raw: "https://app.manasmitra.example", want: []string{"https://app.manasmitra.example"}},
		{name: "trimmed and deduplicated", raw: " https://a.com , https://A.com/, http://localhost:3000", want: []string{"https://a.com", "http://localhost:3000"}},
		{name: "wildcard", raw: "*", want: []string{"*"}},
		{name: "path rejected", raw: "https://a.com/app", wantErr: true},
		{name: "scheme required", raw: "a.com", wantErr: true},
		{name: "websocket scheme rejected", raw: "ws://a.com", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseOrigins(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOrigins(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ParseOrigins(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCorsConfigRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewCorsConfigRepository(newTestDB(t))

	c, err := repo.Get(ctx)
	if err != nil || c != nil {
		t.Fatalf("Get() before Set = %v, %v, want nil, nil", c, err)
	}

	for name, bad := range map[string]*models.CorsConfig{
		"no origins":       {},
		"invalid origin":   {AllowedOrigins: []string{"not an origin"}},
		"negative max age": {AllowedOrigins: []string{"https://a.com"}, MaxAge: -1},
	} {
		if err := repo.Set(ctx, bad); err == nil {
			t.Errorf("Set(%s) should fail", name)
		}
	}

	want := &models.CorsConfig{AllowedOrigins: []string{"https://A.com/", "https://b.com"}, AllowCredentials: true, MaxAge: 600}
	if err := repo.Set(ctx, want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	c, err = repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if strings.Join(c.AllowedOrigins, ",") != "https://a.com,https://b.com" || !c.AllowCredentials || c.MaxAge != 600 {
		t.Errorf("Get() = %+v", c)
	}
	if c.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestRatelimitConfigRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewRatelimitConfigRepository(newTestDB(t))

	if err := repo.Set(ctx, &models.RatelimitConfig{Rate: "  "}); err == nil {
		t.Error("Set() with blank rate should fail")
	}
	if err := repo.Set(ctx, &models.RatelimitConfig{Scope: "todos", Rate: "5-S"}); err == nil {
		t.Error("Set() with unknown scope should fail")
	}

	if err := repo.Set(ctx, &models.RatelimitConfig{Rate: "10-M"}); err != nil {
		t.Fatalf("Set(default) error = %v", err)
	}
	if err := repo.Set(ctx, &models.RatelimitConfig{Scope: models.RateLimitScopeAffirmation, Rate: "30-H"}); err != nil {
		t.Fatalf("Set(affirmation) error = %v", err)
	}
	if err := repo.Set(ctx, &models.RatelimitConfig{Scope: models.RateLimitScopeAffirmation, Rate: "20-H"}); err != nil {
		t.Fatalf("Set(affirmation) overwrite error = %v", err)
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() = %+v, want 2 scopes", got)
	}
	if got[0].Scope != models.RateLimitScopeAffirmation || got[0].Rate != "20-H" {
		t.Errorf("List()[0] = %+v, want affirmation 20-H", got[0])
	}
	if got[1].Scope != models.RateLimitScopeDefault || got[1].Rate != "10-M" {
		t.Errorf("List()[1] = %+v, want default 10-M", got[1])
	}
}
