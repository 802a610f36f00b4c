package export

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"CANSpectra/internal/config"
	"CANSpectra/internal/factory"
	"CANSpectra/internal/model"
	"CANSpectra/internal/report"
)

func init() {
	factory.RegisterWriter("clickhouse", func(def *config.WriterDef) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse)
	})
}

const createTableStatement = `
CREATE TABLE IF NOT EXISTS detection_metrics (
    Timestamp   DateTime,
    Identifier  String,
    AttackType  String,
    EventTime   Float64,
    Offset      Float64,
    IdentError  Float64,
    Cusum       Float64,
    Threshold   Float64,
    Flagged     UInt8
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Identifier, AttackType, Timestamp);
`

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter creates a new ClickHouse writer and ensures the
// detection_metrics table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (model.Writer, error) {
	conn, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn}, nil
}

// Connect opens a ClickHouse connection and verifies it with a ping.
func Connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Write inserts every sample of every report into the detection_metrics table.
// It expects the payload to be of type []report.Report.
func (w *ClickHouseWriter) Write(payload interface{}, timestamp string) error {
	reports, ok := payload.([]report.Report)
	if !ok {
		return fmt.Errorf("invalid payload type for ClickHouse Writer: expected []report.Report, got %T", payload)
	}

	runTime, err := time.Parse("2006-01-02_15-04-05", timestamp)
	if err != nil {
		return fmt.Errorf("invalid run timestamp '%s': %w", timestamp, err)
	}

	total := 0
	for _, rep := range reports {
		total += len(rep.Curves.Times)
	}
	if total == 0 {
		return nil // Nothing to write
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO detection_metrics")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	rowCount := 0
	for _, rep := range reports {
		flagged := make(map[int]bool, len(rep.Curves.Detection.Flagged))
		for _, idx := range rep.Curves.Detection.Flagged {
			flagged[idx] = true
		}

		for i := range rep.Curves.Times {
			var isFlagged uint8
			if flagged[i] {
				isFlagged = 1
			}
			err = batch.Append(
				runTime,
				rep.Identifier,
				rep.Attack,
				rep.Curves.Times[i],
				rep.Curves.Offsets[i],
				rep.Curves.IdentError[i],
				rep.Curves.Detection.Statistic[i],
				rep.Curves.Detection.Threshold,
				isFlagged,
			)
			if err != nil {
				return fmt.Errorf("failed to append sample to batch: %w", err)
			}
			rowCount++
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d detection samples to ClickHouse for %d reports", rowCount, len(reports))
	return nil
}
