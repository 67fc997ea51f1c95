package backend

import (
	"context"
	"path/filepath"
	"testing"

	"litfunds/internal/config"
	"litfunds/internal/memory"
	sheetsmem "litfunds/internal/sheets/memory"
	"litfunds/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", GoogleSheetName: "Tx"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.GoogleSheetName != "Tx" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if _, ok := res.Store.(*memory.Store); !ok {
			t.Fatalf("unexpected store %T", res.Store)
		}
		if res.Publisher != nil {
			t.Fatal("publisher should be nil without AMQP")
		}
		if err := res.Ping(ctx); err != nil {
			t.Fatalf("Ping: %v", err)
		}
		if err := res.Cleanup(); err != nil {
			t.Fatalf("Cleanup: %v", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "db", "litfunds.db")
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		defer res.Cleanup()
		if _, ok := res.Store.(*storage.SQLiteRepository); !ok {
			t.Fatalf("unexpected store %T", res.Store)
		}
		if err := res.Ping(ctx); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})

	t.Run("sqlite without path", func(t *testing.T) {
		if _, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend}); err == nil {
			t.Fatal("expected validation error")
		}
	})
}

func TestCreateMirrorDefaultsToMemory(t *testing.T) {
	res, err := NewFactory(nil).CreateMirror(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateMirror: %v", err)
	}
	if _, ok := res.Mirror.(*sheetsmem.Mirror); !ok || res.Remote {
		t.Fatalf("unexpected mirror %T remote=%v", res.Mirror, res.Remote)
	}
}
