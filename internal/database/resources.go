package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"
)

func (db *DB) UpsertResource(ctx context.Context, resource *models.Resource) error {
	query := `INSERT INTO resources (id, display_name, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  display_name = excluded.display_name,
                  is_active = excluded.is_active,
                  updated_at = excluded.updated_at`
	now := db.now().UTC()
	_, err := db.db.ExecContext(ctx, query, resource.ID, resource.DisplayName, resource.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert resource %s: %w", resource.ID, err)
	}
	return nil
}

func (db *DB) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	query := `SELECT id, display_name, is_active FROM resources WHERE id = ?`
	var r models.Resource
	err := db.db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.DisplayName, &r.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, id)
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return &r, nil
}

func (db *DB) ListActiveResources(ctx context.Context) ([]*models.Resource, error) {
	query := `SELECT id, display_name, is_active FROM resources WHERE is_active = 1 ORDER BY display_name`
	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var resources []*models.Resource
	for rows.Next() {
		r := &models.Resource{}
		if err := rows.Scan(&r.ID, &r.DisplayName, &r.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

func (db *DB) UpsertService(ctx context.Context, service *models.Service) error {
	query := `INSERT INTO services (id, name, duration_minutes, price, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  duration_minutes = excluded.duration_minutes,
                  price = excluded.price,
                  is_active = excluded.is_active,
                  updated_at = excluded.updated_at`
	now := db.now().UTC()
	_, err := db.db.ExecContext(ctx, query,
		service.ID, service.Name, service.DurationMinutes, service.Price, service.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert service %s: %w", service.ID, err)
	}
	return nil
}

func (db *DB) GetService(ctx context.Context, id string) (*models.Service, error) {
	query := `SELECT id, name, duration_minutes, price, is_active FROM services WHERE id = ?`
	var s models.Service
	err := db.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("service not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &s, nil
}

// SeedCatalog loads the configured resource/service catalog at startup.
func (db *DB) SeedCatalog(ctx context.Context, resources []models.Resource, services []models.Service) error {
	for i := range resources {
		if err := db.UpsertResource(ctx, &resources[i]); err != nil {
			return err
		}
	}
	for i := range services {
		if err := db.UpsertService(ctx, &services[i]); err != nil {
			return err
		}
	}
	return nil
}
