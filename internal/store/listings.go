package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"jobscout-engine/internal/domain"
)

const listingColumns = `id, source, fingerprint, title, employer, location, salary,
       description, url, status, created_at, updated_at, applied_at`

// InsertIfNew inserts the listing unless a row with the same
// (source, fingerprint) already exists. The application-level duplicate
// filter runs first; OR IGNORE here closes the race window between a
// concurrent read and write for the same source.
func (s *Store) InsertIfNew(ctx context.Context, l domain.Listing) (bool, error) {
	var appliedAt any
	if l.AppliedAt != nil {
		appliedAt = l.AppliedAt.UTC().Format(time.RFC3339)
	}

	res, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO listings
  (id, source, fingerprint, title, employer, location, salary, description, url, status, created_at, updated_at, applied_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		l.ID, string(l.Source), l.Fingerprint, l.Title, l.Employer, l.Location,
		l.Salary, l.Description, l.URL, string(l.Status),
		l.CreatedAt.UTC().Format(time.RFC3339), l.UpdatedAt.UTC().Format(time.RFC3339),
		appliedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert listing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Exists reports whether a listing with the given fingerprint already
// exists for the source. Read-only.
func (s *Store) Exists(ctx context.Context, source domain.Source, fingerprint string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM listings WHERE source = ? AND fingerprint = ? LIMIT 1;`,
		string(source), fingerprint,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}

// ExistsBatch returns the subset of fingerprints that already exist for
// the source, in a single query. Read-only.
func (s *Store) ExistsBatch(ctx context.Context, source domain.Source, fingerprints []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(fingerprints) == 0 {
		return existing, nil
	}

	placeholders := strings.Repeat("?,", len(fingerprints))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(fingerprints)+1)
	args = append(args, string(source))
	for _, fp := range fingerprints {
		args = append(args, fp)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint FROM listings WHERE source = ? AND fingerprint IN (`+placeholders+`);`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("exists batch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		existing[fp] = struct{}{}
	}
	return existing, rows.Err()
}

// ListBySourceAndStatuses returns every listing for the source whose
// status is in statuses.
func (s *Store) ListBySourceAndStatuses(ctx context.Context, source domain.Source, statuses []domain.Status) ([]domain.Listing, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(statuses))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(statuses)+1)
	args = append(args, string(source))
	for _, st := range statuses {
		args = append(args, string(st))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE source = ? AND status IN (`+placeholders+`);`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list by source/status: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// UpdateStatusBatch moves every listing in ids to status in one
// transaction, bumping updated_at. All-or-nothing: a failure rolls the
// whole batch back.
func (s *Store) UpdateStatusBatch(ctx context.Context, ids []string, status domain.Status, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(ids)+2)
	args = append(args, string(status), now.UTC().Format(time.RFC3339))
	for _, id := range ids {
		args = append(args, id)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE listings SET status = ?, updated_at = ? WHERE id IN (`+placeholders+`);`,
		args...,
	); err != nil {
		return fmt.Errorf("update status batch: %w", err)
	}

	return tx.Commit()
}

// ListOpts filters the listings read endpoint.
type ListOpts struct {
	Source string
	Status string
	Limit  int
}

// List returns listings for the read API, newest first.
func (s *Store) List(ctx context.Context, opts ListOpts) ([]domain.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings`
	var where []string
	var args []any
	if opts.Source != "" {
		where = append(where, "source = ?")
		args = append(args, opts.Source)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q+";", args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// Get returns a single listing by id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*domain.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ? LIMIT 1;`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ls, err := scanListings(rows)
	if err != nil {
		return nil, err
	}
	if len(ls) == 0 {
		return nil, ErrNotFound
	}
	return &ls[0], nil
}

// SaveTransition persists a status change already applied to l via
// domain.Transition (status, updated_at and applied_at).
func (s *Store) SaveTransition(ctx context.Context, l *domain.Listing) error {
	var appliedAt any
	if l.AppliedAt != nil {
		appliedAt = l.AppliedAt.UTC().Format(time.RFC3339)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET status = ?, updated_at = ?, applied_at = ? WHERE id = ?;`,
		string(l.Status), l.UpdatedAt.UTC().Format(time.RFC3339), appliedAt, l.ID,
	)
	if err != nil {
		return fmt.Errorf("save transition: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanListings(rows *sql.Rows) ([]domain.Listing, error) {
	var out []domain.Listing
	for rows.Next() {
		var (
			l                    domain.Listing
			source, status       string
			createdAt, updatedAt string
			appliedAt            sql.NullString
		)
		if err := rows.Scan(
			&l.ID, &source, &l.Fingerprint, &l.Title, &l.Employer, &l.Location,
			&l.Salary, &l.Description, &l.URL, &status, &createdAt, &updatedAt, &appliedAt,
		); err != nil {
			return nil, err
		}
		l.Source = domain.Source(source)
		l.Status = domain.Status(status)

		var err error
		if l.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("bad created_at for %s: %w", l.ID, err)
		}
		if l.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("bad updated_at for %s: %w", l.ID, err)
		}
		if appliedAt.Valid && appliedAt.String != "" {
			at, err := time.Parse(time.RFC3339, appliedAt.String)
			if err != nil {
				return nil, fmt.Errorf("bad applied_at for %s: %w", l.ID, err)
			}
			l.AppliedAt = &at
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
