package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const deliveryColumns = `id, invocation_id, outcome, unparsed, branch, ref, repository,
	commit_hash, pid, error_message, received_at`

// RecordDelivery stores a delivery. ReceivedAt defaults to now.
func (s *Store) RecordDelivery(ctx context.Context, d *Delivery) (int64, error) {
	if d.ReceivedAt.IsZero() {
		d.ReceivedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries
		(invocation_id, outcome, unparsed, branch, ref, repository,
		 commit_hash, pid, error_message, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.InvocationID,
		d.Outcome,
		d.Unparsed,
		d.Branch,
		d.Ref,
		d.Repository,
		d.CommitHash,
		d.PID,
		d.ErrorMessage,
		d.ReceivedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert delivery: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	d.ID = id

	return id, nil
}

// LatestDelivery returns the most recent delivery, or nil when there is none.
func (s *Store) LatestDelivery(ctx context.Context) (*Delivery, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deliveryColumns+`
		FROM deliveries ORDER BY id DESC LIMIT 1`)

	d, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest delivery: %w", err)
	}

	return d, nil
}

// RecentDeliveries returns up to limit deliveries, newest first.
func (s *Store) RecentDeliveries(ctx context.Context, limit int) ([]Delivery, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+deliveryColumns+`
		FROM deliveries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := []Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return deliveries, nil
}

func scanDelivery(s scanner) (*Delivery, error) {
	var d Delivery
	var receivedAt string
	var pid sql.NullInt64

	err := s.Scan(
		&d.ID,
		&d.InvocationID,
		&d.Outcome,
		&d.Unparsed,
		&d.Branch,
		&d.Ref,
		&d.Repository,
		&d.CommitHash,
		&pid,
		&d.ErrorMessage,
		&receivedAt,
	)
	if err != nil {
		return nil, err
	}

	if pid.Valid {
		v := int(pid.Int64)
		d.PID = &v
	}

	d.ReceivedAt, err = time.Parse(time.RFC3339, receivedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse received_at timestamp: %w", err)
	}

	return &d, nil
}
