package database

import (
	"testing"

	"github.com/ARahim900/muscatbay-sub004/config/toml"
)

func TestDialectorFor(t *testing.T) {
	cfg := toml.DatabaseConfig{Host: "db", User: "u", Password: "p", DbName: "water", Port: 5432, SslMode: "disable"}

	for driver, want := range map[string]string{"": "postgres", "postgres": "postgres", "mysql": "mysql"} {
		cfg.Driver = driver
		d, err := dialectorFor(cfg)
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if d.Name() != want {
			t.Errorf("driver %q: expected %s dialector, got %s", driver, want, d.Name())
		}
	}

	cfg.Driver = "sqlite"
	if _, err := dialectorFor(cfg); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
