package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"CANSpectra/internal/config"
	"CANSpectra/internal/export"
)

// DetectionSummary aggregates the stored detection metrics for one
// identifier/attack pair.
type DetectionSummary struct {
	Identifier     string  `json:"identifier"`
	AttackType     string  `json:"attack_type"`
	PeakCusum      float64 `json:"peak_cusum"`
	FlaggedSamples uint64  `json:"flagged_samples"`
	Samples        uint64  `json:"samples"`
}

// RunPoint is one stored sample of a comparison run.
type RunPoint struct {
	EventTime  float64 `json:"event_time"`
	Offset     float64 `json:"offset"`
	IdentError float64 `json:"ident_error"`
	Cusum      float64 `json:"cusum"`
	Flagged    bool    `json:"flagged"`
}

// Querier defines the interface for querying stored detection metrics.
type Querier interface {
	AggregateDetections(ctx context.Context, identifier string) ([]DetectionSummary, error)
	TraceRun(ctx context.Context, identifier, attackType string) ([]RunPoint, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := export.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

// AggregateDetections builds and executes a dynamic aggregation query over
// the stored detection metrics.
func (q *clickhouseQuerier) AggregateDetections(ctx context.Context, identifier string) ([]DetectionSummary, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			Identifier,
			AttackType,
			max(abs(Cusum)) AS PeakCusum,
			sum(Flagged) AS FlaggedSamples,
			count(*) AS Samples
		FROM detection_metrics
	`)

	args := []interface{}{}
	if identifier != "" {
		queryBuilder.WriteString(" WHERE Identifier = ?")
		args = append(args, identifier)
	}
	queryBuilder.WriteString(" GROUP BY Identifier, AttackType ORDER BY Identifier, AttackType")

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var summaries []DetectionSummary
	for rows.Next() {
		var s DetectionSummary
		if err := rows.Scan(&s.Identifier, &s.AttackType, &s.PeakCusum, &s.FlaggedSamples, &s.Samples); err != nil {
			return nil, fmt.Errorf("failed to scan aggregation result: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, nil
}

// TraceRun fetches the stored curve of a single identifier/attack comparison.
func (q *clickhouseQuerier) TraceRun(ctx context.Context, identifier, attackType string) ([]RunPoint, error) {
	if identifier == "" || attackType == "" {
		return nil, fmt.Errorf("identifier and attack type are required to trace a run")
	}

	rows, err := q.conn.Query(ctx, `
		SELECT EventTime, Offset, IdentError, Cusum, Flagged
		FROM detection_metrics
		WHERE Identifier = ? AND AttackType = ?
		ORDER BY EventTime
	`, identifier, attackType)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var points []RunPoint
	for rows.Next() {
		var p RunPoint
		var flagged uint8
		if err := rows.Scan(&p.EventTime, &p.Offset, &p.IdentError, &p.Cusum, &flagged); err != nil {
			return nil, fmt.Errorf("failed to scan run point: %w", err)
		}
		p.Flagged = flagged != 0
		points = append(points, p)
	}

	return points, nil
}
