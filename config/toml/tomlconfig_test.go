package toml

import "testing"

func TestGetConfigDefaults(t *testing.T) {
	t.Setenv("IMPORT_BATCHSIZE", "25")

	cfg := GetConfig()
	if cfg.Import.Batchsize != 25 {
		t.Fatalf("expected env override of batch size, got %d", cfg.Import.Batchsize)
	}
	if cfg.Database.Driver != "postgres" || cfg.Import.Cronspec != "@every 1m" || cfg.Aggregate.L1zeropolicy != "fallback" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Storage.Prefix != "water" || cfg.Server.Addr != ":8080" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}
