package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/devcoord/devco/internal/log"
	"github.com/devcoord/devco/internal/model"
	"github.com/devcoord/devco/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.DeviceRepository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// DB returns the underlying database handle so other repositories (e.g. the
// journal recorder) can share the same file.
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateDevice creates a new device in the repository.
func (r *Repository) CreateDevice(ctx context.Context, d model.Device) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid device: %w", err)
	}

	var suspendedAt *int64
	if d.SuspendedAt != nil {
		u := d.SuspendedAt.Unix()
		suspendedAt = &u
	}

	query := `
		INSERT INTO devices (
			id, name, state, driver,
			parent_id, proxy_id, host_id,
			created_at, suspended_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		d.ID,
		d.Name,
		d.State,
		d.Driver,
		d.ParentID,
		d.ProxyID,
		d.HostID,
		d.CreatedAt.Unix(),
		suspendedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: devices.") {
			return fmt.Errorf("device already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert device: %w", err)
	}

	r.logger.Debugf("Created device in repository: %s", d.ID)
	return nil
}

// GetDevice retrieves a device by ID.
func (r *Repository) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	row := r.db.QueryRowContext(ctx, selectDevices+` WHERE id = ?`, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query device: %w", err)
	}

	return d, nil
}

// GetDeviceByName retrieves a device by name.
func (r *Repository) GetDeviceByName(ctx context.Context, name string) (*model.Device, error) {
	row := r.db.QueryRowContext(ctx, selectDevices+` WHERE name = ?`, name)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device with name %s: %w", name, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query device: %w", err)
	}

	return d, nil
}

// ListDevices returns all devices in insertion order.
func (r *Repository) ListDevices(ctx context.Context) ([]model.Device, error) {
	rows, err := r.db.QueryContext(ctx, selectDevices+` ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("could not query devices: %w", err)
	}
	defer rows.Close()

	devices := []model.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate devices: %w", err)
	}

	return devices, nil
}

// UpdateDevice updates an existing device.
func (r *Repository) UpdateDevice(ctx context.Context, d model.Device) error {
	var suspendedAt *int64
	if d.SuspendedAt != nil {
		u := d.SuspendedAt.Unix()
		suspendedAt = &u
	}

	query := `
		UPDATE devices
		SET name = ?, state = ?, driver = ?, parent_id = ?, proxy_id = ?, host_id = ?, suspended_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, d.Name, d.State, d.Driver, d.ParentID, d.ProxyID, d.HostID, suspendedAt, d.ID)
	if err != nil {
		return fmt.Errorf("could not update device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("device %s: %w", d.ID, model.ErrNotFound)
	}

	r.logger.Debugf("Updated device in repository: %s", d.ID)
	return nil
}

// DeleteDevice deletes a device.
func (r *Repository) DeleteDevice(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("device %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted device from repository: %s", id)
	return nil
}

const selectDevices = `
	SELECT id, name, state, driver, parent_id, proxy_id, host_id, created_at, suspended_at
	FROM devices
`

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*model.Device, error) {
	var d model.Device
	var createdAt int64
	var suspendedAt *int64

	err := s.Scan(
		&d.ID,
		&d.Name,
		&d.State,
		&d.Driver,
		&d.ParentID,
		&d.ProxyID,
		&d.HostID,
		&createdAt,
		&suspendedAt,
	)
	if err != nil {
		return nil, err
	}

	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	if suspendedAt != nil {
		t := time.Unix(*suspendedAt, 0).UTC()
		d.SuspendedAt = &t
	}

	return &d, nil
}
