package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	schema := `
		CREATE TABLE device_control (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device TEXT NOT NULL UNIQUE,
			mode TEXT NOT NULL DEFAULT 'auto',
			status TEXT NOT NULL DEFAULT 'off',
			manual_override TEXT NOT NULL DEFAULT 'off',
			last_updated TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%S', 'now'))
		)`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	repo := NewSQLiteRepository(db)
	if err := repo.Seed(context.Background()); err != nil {
		t.Fatalf("seeding fleet: %v", err)
	}
	return repo
}

func TestSeed_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Second seed must not duplicate or reset rows.
	if err := repo.UpdateStatus(ctx, Lighting, "ON"); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if err := repo.Seed(ctx); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("List() returned %d records, want 4", len(records))
	}

	rec, err := repo.GetByID(ctx, Lighting)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if rec.Status != "ON" {
		t.Errorf("status = %q after re-seed, want %q", rec.Status, "ON")
	}
}

func TestGetByID_Unknown(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), "toaster")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestUpdateStatus_Unknown(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.UpdateStatus(context.Background(), "toaster", "ON")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("UpdateStatus() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestUpdateStatusAndOverride(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpdateStatusAndOverride(ctx, WaterHeater, "ON", OverrideOn); err != nil {
		t.Fatalf("UpdateStatusAndOverride() error = %v", err)
	}

	rec, err := repo.GetByID(ctx, WaterHeater)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if rec.Status != "ON" || rec.ManualOverride != OverrideOn {
		t.Errorf("record = {status: %q, manual_override: %q}, want {ON, on}", rec.Status, rec.ManualOverride)
	}
	if rec.LastUpdated == "" {
		t.Error("last_updated not stamped")
	}
}

func TestSetOverrideAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SetOverrideAll(ctx, OverrideOn); err != nil {
		t.Fatalf("SetOverrideAll() error = %v", err)
	}

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, rec := range records {
		if rec.ManualOverride != OverrideOn {
			t.Errorf("device %s manual_override = %q, want %q", rec.Device, rec.ManualOverride, OverrideOn)
		}
	}
}
