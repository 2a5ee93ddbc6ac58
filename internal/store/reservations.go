package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trop-dev/trop/internal/model"
)

const timeLayout = time.RFC3339Nano

// InsertReservation inserts a new reservation row. A duplicate (path, tag)
// or a port already claimed by the UNIQUE constraint surfaces as
// KindPortUnavailable rather than a raw SQL error.
func InsertReservation(ctx context.Context, tx *Tx, r model.Reservation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (path, tag, port, project, task, group_id, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Key.Path, r.Key.TagOrEmpty(), r.Port.Int(),
		nullString(r.Project), nullString(r.Task), nullGroupID(r.GroupID),
		r.CreatedAt.UTC().Format(timeLayout), r.LastUsedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.WrapTropError(model.KindPortUnavailable,
				fmt.Sprintf("reservation already exists for %s or port %s is already reserved", r.Key.String(), r.Port), err)
		}
		return model.WrapTropError(model.KindInternal, "inserting reservation", err)
	}
	return nil
}

// DeleteReservation removes the reservation at key, reporting whether a
// row was actually deleted.
func DeleteReservation(ctx context.Context, tx *Tx, key model.ReservationKey) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE path = ? AND tag = ?`, key.Path, key.TagOrEmpty())
	if err != nil {
		return false, model.WrapTropError(model.KindInternal, "deleting reservation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, model.WrapTropError(model.KindInternal, "reading delete result", err)
	}
	return n > 0, nil
}

// TouchReservation advances last_used_at to now, never moving it backward
// (model.Reservation.Touch's invariant, enforced here too since this is
// the only path that mutates last_used_at after creation).
func TouchReservation(ctx context.Context, tx *Tx, key model.ReservationKey, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE reservations SET last_used_at = ? WHERE path = ? AND tag = ? AND last_used_at < ?`,
		now.UTC().Format(timeLayout), key.Path, key.TagOrEmpty(), now.UTC().Format(timeLayout))
	if err != nil {
		return model.WrapTropError(model.KindInternal, "touching reservation", err)
	}
	return nil
}

// RetagReservation moves a reservation to a new path/tag key, used by
// migrate (spec.md §4.8).
func RetagReservation(ctx context.Context, tx *Tx, oldKey, newKey model.ReservationKey) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE reservations SET path = ?, tag = ? WHERE path = ? AND tag = ?`,
		newKey.Path, newKey.TagOrEmpty(), oldKey.Path, oldKey.TagOrEmpty())
	if err != nil {
		if isUniqueViolation(err) {
			return model.WrapTropError(model.KindSemanticFailure,
				fmt.Sprintf("migration target %s already has a reservation", newKey.String()), err)
		}
		return model.WrapTropError(model.KindInternal, "retagging reservation", err)
	}
	return nil
}

// UpdateProjectTask overwrites the sticky project/task fields (allowed
// only when the caller has already checked allow_change_project /
// allow_change_task — this helper does not re-check them).
func UpdateProjectTask(ctx context.Context, tx *Tx, key model.ReservationKey, project, task *string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE reservations SET project = ?, task = ? WHERE path = ? AND tag = ?`,
		nullString(project), nullString(task), key.Path, key.TagOrEmpty())
	if err != nil {
		return model.WrapTropError(model.KindInternal, "updating reservation project/task", err)
	}
	return nil
}

// GetByKey returns the reservation at key, or nil if none exists.
func GetByKey(ctx context.Context, q Queryable, key model.ReservationKey) (*model.Reservation, error) {
	row := q.QueryRowContext(ctx, selectColumns+` WHERE path = ? AND tag = ?`, key.Path, key.TagOrEmpty())
	return scanOptional(row)
}

// GetByPort returns the reservation holding port, or nil if the port is
// unreserved.
func GetByPort(ctx context.Context, q Queryable, port model.Port) (*model.Reservation, error) {
	row := q.QueryRowContext(ctx, selectColumns+` WHERE port = ?`, port.Int())
	return scanOptional(row)
}

// IsPortReserved reports whether any reservation currently holds port.
func IsPortReserved(ctx context.Context, q Queryable, port model.Port) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM reservations WHERE port = ?)`, port.Int()).Scan(&exists)
	if err != nil {
		return false, model.WrapTropError(model.KindInternal, "checking port reservation", err)
	}
	return exists == 1, nil
}

// ReservedPortsInRange returns every reserved port within r, ascending.
func ReservedPortsInRange(ctx context.Context, q Queryable, r model.PortRange) ([]model.Port, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT port FROM reservations WHERE port >= ? AND port <= ? ORDER BY port ASC`, r.Min.Int(), r.Max.Int())
	if err != nil {
		return nil, model.WrapTropError(model.KindInternal, "listing reserved ports", err)
	}
	defer rows.Close()

	var ports []model.Port
	for rows.Next() {
		var raw int
		if err := rows.Scan(&raw); err != nil {
			return nil, model.WrapTropError(model.KindInternal, "scanning reserved port", err)
		}
		p, err := model.NewPort(raw)
		if err != nil {
			return nil, err
		}
		ports = append(ports, p)
	}
	return ports, rows.Err()
}

// ListFilter narrows List to reservations matching all set fields.
type ListFilter struct {
	Project    *string
	PathPrefix string
}

// List returns reservations matching filter, ordered by path then tag.
func List(ctx context.Context, q Queryable, filter ListFilter) ([]model.Reservation, error) {
	query := selectColumns + ` WHERE 1=1`
	var args []any
	if filter.Project != nil {
		query += ` AND project = ?`
		args = append(args, *filter.Project)
	}
	if filter.PathPrefix != "" {
		query += ` AND (path = ? OR path LIKE ?)`
		args = append(args, filter.PathPrefix, filter.PathPrefix+string('/')+"%")
	}
	query += ` ORDER BY path ASC, tag ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.WrapTropError(model.KindInternal, "listing reservations", err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListProjects returns the distinct, non-empty project names in use.
func ListProjects(ctx context.Context, q Queryable) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT project FROM reservations WHERE project IS NOT NULL AND project != '' ORDER BY project ASC`)
	if err != nil {
		return nil, model.WrapTropError(model.KindInternal, "listing projects", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, model.WrapTropError(model.KindInternal, "scanning project", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AnyExpired reports whether any reservation's last_used_at is strictly
// older than cutoff. This backs the allocator's cleanup_suggested signal
// (see the last_used_at-only decision in DESIGN.md) — it deliberately does
// not check path existence, which would require a filesystem stat per row.
func AnyExpired(ctx context.Context, q Queryable, cutoff time.Time) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reservations WHERE last_used_at < ?)`, cutoff.UTC().Format(timeLayout)).Scan(&exists)
	if err != nil {
		return false, model.WrapTropError(model.KindInternal, "checking for expired reservations", err)
	}
	return exists == 1, nil
}

// ExpiredBefore returns every reservation whose last_used_at is strictly
// older than cutoff, used by the expire/autoclean operations.
func ExpiredBefore(ctx context.Context, q Queryable, cutoff time.Time) ([]model.Reservation, error) {
	rows, err := q.QueryContext(ctx, selectColumns+` WHERE last_used_at < ? ORDER BY last_used_at ASC`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return nil, model.WrapTropError(model.KindInternal, "listing expired reservations", err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// All returns every reservation, used by prune to filesystem-check paths.
func All(ctx context.Context, q Queryable) ([]model.Reservation, error) {
	return List(ctx, q, ListFilter{})
}

const selectColumns = `SELECT path, tag, port, project, task, group_id, created_at, last_used_at FROM reservations`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(s rowScanner) (model.Reservation, error) {
	var (
		path, tag, createdAt, lastUsedAt string
		port                             int
		project, task, groupID          sql.NullString
	)
	if err := s.Scan(&path, &tag, &port, &project, &task, &groupID, &createdAt, &lastUsedAt); err != nil {
		return model.Reservation{}, model.WrapTropError(model.KindInternal, "scanning reservation row", err)
	}

	key, err := buildKey(path, tag)
	if err != nil {
		return model.Reservation{}, err
	}
	p, err := model.NewPort(port)
	if err != nil {
		return model.Reservation{}, err
	}
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return model.Reservation{}, model.WrapTropError(model.KindInternal, "parsing created_at", err)
	}
	lastUsed, err := time.Parse(timeLayout, lastUsedAt)
	if err != nil {
		return model.Reservation{}, model.WrapTropError(model.KindInternal, "parsing last_used_at", err)
	}

	r := model.Reservation{
		Key:        key,
		Port:       p,
		Project:    stringOrNil(project),
		Task:       stringOrNil(task),
		CreatedAt:  created,
		LastUsedAt: lastUsed,
	}
	if groupID.Valid && groupID.String != "" {
		id, err := uuid.Parse(groupID.String)
		if err != nil {
			return model.Reservation{}, model.WrapTropError(model.KindInternal, "parsing group_id", err)
		}
		r.GroupID = &id
	}
	return r, nil
}

func scanOptional(row *sql.Row) (*model.Reservation, error) {
	r, err := scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func buildKey(path, tag string) (model.ReservationKey, error) {
	var tagPtr *string
	if tag != "" {
		tagPtr = &tag
	}
	return model.NewReservationKey(path, tagPtr)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringOrNil(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullGroupID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
