// Package publisher drains the transactional outbox into Kafka.
//
// Stores write access log entries and their outbox rows in one transaction;
// this worker polls unpublished rows and produces them to the scan topic, so
// the audit trail survives even when the broker is down at scan time.
package publisher

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Config controls the outbox polling loop.
type Config struct {
	Topic        string
	PollInterval time.Duration
	BatchSize    int
}

func (c Config) withDefaults() Config {
	if c.Topic == "" {
		c.Topic = "acredita.access-log"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

// Worker publishes outbox rows to Kafka.
type Worker struct {
	db     *sql.DB
	client *kgo.Client
	cfg    Config
	logger *slog.Logger
}

// New builds a Worker and ensures the target topic exists.
func New(ctx context.Context, db *sql.DB, client *kgo.Client, cfg Config, logger *slog.Logger) (*Worker, error) {
	cfg = cfg.withDefaults()
	if err := ensureTopic(ctx, client, cfg.Topic); err != nil {
		return nil, err
	}
	return &Worker{db: db, client: client, cfg: cfg, logger: logger}, nil
}

// ensureTopic creates the scan topic when it does not exist yet. Losing the
// race to another instance is fine.
func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	details, err := adm.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	if details.Has(topic) {
		return nil
	}
	if _, err := adm.CreateTopic(ctx, 1, -1, nil, topic); err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}

// Run polls the outbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

type outboxRow struct {
	id          uuid.UUID
	aggregateID string
	eventType   string
	payload     []byte
}

// drainOnce publishes one batch of unpublished rows. Rows are marked
// published only after the broker acknowledges, so delivery is at-least-once;
// consumers dedupe on the entry ID inside the payload.
func (w *Worker) drainOnce(ctx context.Context) error {
	rows, err := w.fetchBatch(ctx)
	if err != nil || len(rows) == 0 {
		return err
	}

	for _, row := range rows {
		record := &kgo.Record{
			Topic: w.cfg.Topic,
			Key:   []byte(row.aggregateID),
			Value: row.payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(row.eventType)},
			},
		}
		if err := w.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			return fmt.Errorf("produce outbox row %s: %w", row.id, err)
		}
		if err := w.markPublished(ctx, row.id); err != nil {
			return err
		}
	}
	w.logger.DebugContext(ctx, "outbox batch published", "count", len(rows))
	return nil
}

func (w *Worker) fetchBatch(ctx context.Context) ([]outboxRow, error) {
	const query = `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	res, err := w.db.QueryContext(ctx, query, w.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer res.Close()

	var rows []outboxRow
	for res.Next() {
		var row outboxRow
		if err := res.Scan(&row.id, &row.aggregateID, &row.eventType, &row.payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, res.Err()
}

func (w *Worker) markPublished(ctx context.Context, rowID uuid.UUID) error {
	_, err := w.db.ExecContext(ctx,
		`UPDATE outbox SET published_at = $1 WHERE id = $2`, time.Now(), rowID,
	)
	if err != nil {
		return fmt.Errorf("mark outbox row published: %w", err)
	}
	return nil
}
