package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"

	"github.com/google/uuid"
)

// blockingStatuses are the booking states that occupy a slot for overlap
// purposes. Cancelled and no-show bookings free the interval.
const blockingStatuses = `'pending', 'confirmed', 'in_progress'`

// CreateBookingWithLock atomically reserves the booking's interval. Inside a
// single transaction it re-checks the slot is not in the past, takes an
// exclusive lock on the resource row (the per-resource serialization point),
// re-checks overlap against every blocking booking, and inserts. Two racing
// calls for overlapping intervals on one resource are totally ordered by the
// lock: exactly one commits, the other sees ErrSlotConflict.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	now := db.now()

	// Duplicated from the advisory validator on purpose: time may have
	// passed between presenting the slot and the user's tap.
	if booking.StartAt.Before(now) {
		return ErrPastSlot
	}
	if !booking.EndAt.After(booking.StartAt) {
		return fmt.Errorf("booking end %s is not after start %s", booking.EndAt, booking.StartAt)
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Lock the resource row. The UPDATE is the SELECT ... FOR UPDATE
	// equivalent: SQLite promotes this transaction to the exclusive writer
	// here, and on row-locking stores the same statement takes the row lock.
	res, err := tx.ExecContext(ctx,
		`UPDATE resources SET lock_version = lock_version + 1, updated_at = ? WHERE id = ? AND is_active = 1`,
		now.UTC(), booking.ResourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to lock resource %s: %w", booking.ResourceID, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s", ErrResourceNotFound, booking.ResourceID)
	}

	// 2. Overlap re-check under the lock. start < newEnd AND end > newStart
	// covers a booking starting inside the new interval, ending inside it,
	// or fully containing it.
	var conflicts int
	queryOverlap := `SELECT COUNT(*) FROM bookings
                     WHERE resource_id = ?
                       AND status IN (` + blockingStatuses + `)
                       AND start_ts < ? AND end_ts > ?`
	err = tx.QueryRowContext(ctx, queryOverlap,
		booking.ResourceID, booking.EndAt.UTC(), booking.StartAt.UTC(),
	).Scan(&conflicts)
	if err != nil {
		return fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	if conflicts > 0 {
		return ErrSlotConflict
	}

	// 3. Insert and commit, releasing the lock.
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.Code == "" {
		booking.Code = confirmationCode(booking.ID)
	}
	if booking.Status == "" {
		booking.Status = models.StatusPending
	}

	queryInsert := `INSERT INTO bookings (
				id, resource_id, service_id, start_ts, end_ts,
				status, customer_ref, code, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryInsert,
		booking.ID,
		booking.ResourceID,
		booking.ServiceID,
		booking.StartAt.UTC(),
		booking.EndAt.UTC(),
		booking.Status,
		booking.CustomerRef,
		booking.Code,
		now.UTC(),
		now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return tx.Commit()
}

// confirmationCode derives the human-shareable code from the booking id, so
// re-running the same insert never mints a second code.
func confirmationCode(id string) string {
	compact := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(compact) > 6 {
		compact = compact[:6]
	}
	return compact
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT id, resource_id, service_id, start_ts, end_ts,
	                 status, customer_ref, code, created_at, updated_at
              FROM bookings WHERE id = ?`

	var b models.Booking
	err := db.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.ResourceID, &b.ServiceID, &b.StartAt, &b.EndAt,
		&b.Status, &b.CustomerRef, &b.Code, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &b, nil
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id string, status string) error {
	query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`
	res, err := db.db.ExecContext(ctx, query, status, db.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	return nil
}

// GetBookingsInRange returns blocking bookings for a resource whose interval
// intersects [from, to), ordered by start.
func (db *DB) GetBookingsInRange(ctx context.Context, resourceID string, from, to time.Time) ([]*models.Booking, error) {
	query := `SELECT id, resource_id, service_id, start_ts, end_ts,
	                 status, customer_ref, code, created_at, updated_at
              FROM bookings
              WHERE resource_id = ?
                AND status IN (` + blockingStatuses + `)
                AND start_ts < ? AND end_ts > ?
              ORDER BY start_ts ASC`

	rows, err := db.db.QueryContext(ctx, query, resourceID, to.UTC(), from.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings in range: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b := &models.Booking{}
		err := rows.Scan(
			&b.ID, &b.ResourceID, &b.ServiceID, &b.StartAt, &b.EndAt,
			&b.Status, &b.CustomerRef, &b.Code, &b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// CountActiveForResource counts blocking bookings from now on.
func (db *DB) CountActiveForResource(ctx context.Context, resourceID string) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE resource_id = ? AND status IN (` + blockingStatuses + `) AND end_ts > ?`
	var count int
	err := db.db.QueryRowContext(ctx, query, resourceID, db.now().UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return count, nil
}
