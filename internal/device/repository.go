package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository defines the interface for device state persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device record by its identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Record, error)

	// List retrieves all device records in seed order.
	List(ctx context.Context) ([]Record, error)

	// UpdateStatus updates only the status of a device.
	UpdateStatus(ctx context.Context, id string, status string) error

	// UpdateMode updates only the mode of a device.
	UpdateMode(ctx context.Context, id string, mode string) error

	// UpdateStatusAndOverride updates status and manual_override in one
	// statement so a failure leaves no partial mutation visible.
	UpdateStatusAndOverride(ctx context.Context, id string, status, override string) error

	// SetOverrideAll sets manual_override for every device in the fleet.
	SetOverrideAll(ctx context.Context, override string) error

	// Seed inserts the fleet rows if missing. Existing rows are untouched.
	Seed(ctx context.Context) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a device record by its identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, device, mode, status, manual_override, last_updated
		FROM device_control
		WHERE device = ?`

	var rec Record
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Device, &rec.Mode, &rec.Status, &rec.ManualOverride, &rec.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return &rec, nil
}

// List retrieves all device records in seed order.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	query := `
		SELECT id, device, mode, status, manual_override, last_updated
		FROM device_control
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Device, &rec.Mode, &rec.Status, &rec.ManualOverride, &rec.LastUpdated); err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return records, nil
}

// UpdateStatus updates only the status of a device.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	return r.exec(ctx,
		`UPDATE device_control SET status = ?, last_updated = ? WHERE device = ?`,
		status, Now(), id,
	)
}

// UpdateMode updates only the mode of a device.
func (r *SQLiteRepository) UpdateMode(ctx context.Context, id string, mode string) error {
	return r.exec(ctx,
		`UPDATE device_control SET mode = ?, last_updated = ? WHERE device = ?`,
		mode, Now(), id,
	)
}

// UpdateStatusAndOverride updates status and manual_override in one statement.
func (r *SQLiteRepository) UpdateStatusAndOverride(ctx context.Context, id string, status, override string) error {
	return r.exec(ctx,
		`UPDATE device_control SET status = ?, manual_override = ?, last_updated = ? WHERE device = ?`,
		status, override, Now(), id,
	)
}

// SetOverrideAll sets manual_override for every device in the fleet.
func (r *SQLiteRepository) SetOverrideAll(ctx context.Context, override string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE device_control SET manual_override = ?, last_updated = ?`,
		override, Now(),
	)
	if err != nil {
		return fmt.Errorf("updating override for fleet: %w", err)
	}
	return nil
}

// Seed inserts the fleet rows if missing.
func (r *SQLiteRepository) Seed(ctx context.Context) error {
	for _, id := range All() {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO device_control (device, mode, status, manual_override, last_updated)
			 VALUES (?, ?, ?, ?, ?)`,
			id, ModeAuto, "off", OverrideOff, Now(),
		)
		if err != nil {
			return fmt.Errorf("seeding device %s: %w", id, err)
		}
	}
	return nil
}

// exec runs a single-row UPDATE and maps zero affected rows to ErrDeviceNotFound.
func (r *SQLiteRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}
