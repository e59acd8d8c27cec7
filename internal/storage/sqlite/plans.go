package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yegors/flightdesk/internal/flights"
	"github.com/yegors/flightdesk/pkg/logger"
	_ "modernc.org/sqlite"
)

// PlanStorage is a SQLite-backed cache of accepted flight plans. It lets a
// restarted server rebuild plan-only records before the feed resends them.
type PlanStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewPlanStorage opens (or creates) the plan cache at dbPath
func NewPlanStorage(dbPath string, log *logger.Logger) (*PlanStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite plan cache",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := initPlanSchema(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &PlanStorage{db: db, logger: storageLogger}, nil
}

func initPlanSchema(db *sql.DB, log *logger.Logger) error {
	log.Debug("Initializing plan cache schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS flight_plans (
			namespace TEXT NOT NULL,
			player_name TEXT NOT NULL,
			payload TEXT NOT NULL,      -- plan event as received, JSON
			filed_at INTEGER NOT NULL,  -- unix nanoseconds, UTC
			PRIMARY KEY (namespace, player_name)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flight_plans table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_flight_plans_filed_at ON flight_plans(filed_at)`); err != nil {
		return fmt.Errorf("failed to create flight_plans index: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *PlanStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePlan stores the latest plan of a player, replacing an earlier one
func (s *PlanStorage) SavePlan(ctx context.Context, ns flights.Namespace, ev flights.PlanEvent, filedAt time.Time) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flight_plans (namespace, player_name, payload, filed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, player_name) DO UPDATE SET
			payload = excluded.payload,
			filed_at = excluded.filed_at
	`, string(ns), ev.PlayerName, string(payload), filedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

// DeletePlan removes the cached plan of a player
func (s *PlanStorage) DeletePlan(ctx context.Context, ns flights.Namespace, playerName string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM flight_plans WHERE namespace = ? AND player_name = ?`,
		string(ns), playerName)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return nil
}

// LoadPlans returns every plan filed at or after since, oldest first
func (s *PlanStorage) LoadPlans(ctx context.Context, since time.Time) ([]flights.CachedPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT namespace, payload, filed_at
		FROM flight_plans
		WHERE filed_at >= ?
		ORDER BY filed_at ASC
	`, since.UTC().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []flights.CachedPlan
	for rows.Next() {
		var (
			ns      string
			payload string
			filedAt int64
		)
		if err := rows.Scan(&ns, &payload, &filedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}

		var ev flights.PlanEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			s.logger.Warn("Skipping unreadable cached plan", logger.String("namespace", ns), logger.Error(err))
			continue
		}

		plans = append(plans, flights.CachedPlan{
			Namespace: flights.Namespace(ns),
			Event:     ev,
			FiledAt:   time.Unix(0, filedAt).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plans: %w", err)
	}
	return plans, nil
}

// PurgeBefore deletes plans filed before cutoff and returns how many were removed
func (s *PlanStorage) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flight_plans WHERE filed_at < ?`, cutoff.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge plans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("Purged expired cached plans", logger.Int64("count", n))
	}
	return n, nil
}
