package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/flashbots/aquanet/protocol"
)

// PostgresEventStore persists coordinator events to PostgreSQL. It
// implements coordinator.EventSink.
type PostgresEventStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresEventStore creates a new PostgreSQL-backed event store.
func NewPostgresEventStore(config *PostgresConfig) (*PostgresEventStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresEventStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresEventStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS allocation_events (
		seq BIGINT PRIMARY KEY,
		event_type VARCHAR(64) NOT NULL,
		occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
		region_id BIGINT NOT NULL,
		period_id BIGINT NOT NULL,
		correlation VARCHAR(128) NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_events_period ON allocation_events(period_id);
	CREATE INDEX IF NOT EXISTS idx_events_type ON allocation_events(event_type);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Append persists a single event. Duplicate sequence numbers are ignored
// so replays after restarts stay idempotent.
func (s *PostgresEventStore) Append(event protocol.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO allocation_events
		(seq, event_type, occurred_at, region_id, period_id, correlation)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (seq) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		int64(event.Seq),
		string(event.Type),
		event.Timestamp,
		int64(event.Region),
		int64(event.Period),
		string(event.Correlation),
	)
	return err
}

// LoadEvents returns all stored events in sequence order, optionally
// filtered to a single period (0 means all periods).
func (s *PostgresEventStore) LoadEvents(ctx context.Context, period protocol.PeriodID) ([]protocol.Event, error) {
	query := `
	SELECT seq, event_type, occurred_at, region_id, period_id, correlation
	FROM allocation_events
	WHERE ($1 = 0 OR period_id = $1)
	ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, int64(period))
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []protocol.Event
	for rows.Next() {
		var (
			seq         int64
			eventType   string
			occurredAt  time.Time
			regionID    int64
			periodID    int64
			correlation string
		)
		if err := rows.Scan(&seq, &eventType, &occurredAt, &regionID, &periodID, &correlation); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, protocol.Event{
			Seq:         uint64(seq),
			Type:        protocol.EventType(eventType),
			Timestamp:   occurredAt,
			Region:      protocol.RegionID(regionID),
			Period:      protocol.PeriodID(periodID),
			Correlation: protocol.CorrelationID(correlation),
		})
	}
	return events, rows.Err()
}

// Close closes the database connection.
func (s *PostgresEventStore) Close() error {
	return s.db.Close()
}

// InMemoryEventStore keeps events in memory, for tests and the demo.
type InMemoryEventStore struct {
	mu     sync.Mutex
	events []protocol.Event
}

// NewInMemoryEventStore creates an empty in-memory store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{}
}

// Append records an event.
func (s *InMemoryEventStore) Append(event protocol.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// LoadEvents returns stored events, optionally filtered by period.
func (s *InMemoryEventStore) LoadEvents(_ context.Context, period protocol.PeriodID) ([]protocol.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]protocol.Event, 0, len(s.events))
	for _, ev := range s.events {
		if period != 0 && ev.Period != period {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
