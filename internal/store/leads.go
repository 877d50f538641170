package store

import (
	"context"
	"fmt"
	"time"
)

// createdAtLayout is fixed-width so created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

const leadColumns = `id, kind, name, email, phone, company, message, monthly_volume,
	utm_source, utm_medium, utm_campaign, ip, user_agent, created_at`

// CreateLead inserts a lead. The caller assigns the ID; CreatedAt defaults
// to now.
func (s *Store) CreateLead(ctx context.Context, l *Lead) error {
	if l.ID == "" {
		return fmt.Errorf("lead ID is required")
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		l.ID,
		l.Kind,
		l.Name,
		l.Email,
		l.Phone,
		l.Company,
		l.Message,
		l.MonthlyVolume,
		l.UTMSource,
		l.UTMMedium,
		l.UTMCampaign,
		l.IP,
		l.UserAgent,
		l.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	return nil
}

// ListLeads returns up to limit leads of the given kind, newest first. An
// empty kind lists every kind.
func (s *Store) ListLeads(ctx context.Context, kind string, limit int) ([]Lead, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+leadColumns+`
		FROM leads
		WHERE ? = '' OR kind = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, kind, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	leads := []Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return leads, nil
}

// CountLeads counts leads of the given kind, or all leads when kind is empty.
func (s *Store) CountLeads(ctx context.Context, kind string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads WHERE ? = '' OR kind = ?`, kind, kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

func scanLead(s scanner) (*Lead, error) {
	var l Lead
	var createdAt string

	err := s.Scan(
		&l.ID,
		&l.Kind,
		&l.Name,
		&l.Email,
		&l.Phone,
		&l.Company,
		&l.Message,
		&l.MonthlyVolume,
		&l.UTMSource,
		&l.UTMMedium,
		&l.UTMCampaign,
		&l.IP,
		&l.UserAgent,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	l.CreatedAt, err = time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}

	return &l, nil
}
