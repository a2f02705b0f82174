package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fcf_valuation/pkg/core/analysis"
)

// ErrNoPool is returned when a repository is used without a database.
var ErrNoPool = errors.New("database pool not initialized")

// ReportRepo keeps the history of valuation reports.
type ReportRepo struct {
	pool *pgxpool.Pool
}

// NewReportRepo creates a repository. A nil pool uses the shared pool from
// InitDB.
func NewReportRepo(p *pgxpool.Pool) *ReportRepo {
	if p == nil {
		p = GetPool()
	}
	return &ReportRepo{pool: p}
}

// Save persists a report and returns its id.
func (r *ReportRepo) Save(ctx context.Context, report *analysis.Report) (uuid.UUID, error) {
	if r.pool == nil {
		return uuid.Nil, ErrNoPool
	}
	data, err := json.Marshal(report)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	id := uuid.New()
	query := `
		INSERT INTO valuation_reports (id, ticker, dataset_key, fcf_type, report_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query, id, strings.ToUpper(report.Ticker), report.DatasetKey, string(report.FCFType), data, report.GeneratedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save report: %w", err)
	}
	return id, nil
}

// Latest returns the most recent report for ticker, or nil, nil if none.
func (r *ReportRepo) Latest(ctx context.Context, ticker string) (*analysis.Report, error) {
	if r.pool == nil {
		return nil, ErrNoPool
	}
	query := `
		SELECT report_json
		FROM valuation_reports
		WHERE ticker = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var data []byte
	err := r.pool.QueryRow(ctx, query, strings.ToUpper(ticker)).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	var report analysis.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
