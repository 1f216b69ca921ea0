// Package persistence implements the idempotent trades table the DB
// processor writes matched trades into.
package persistence

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
)

// Store wraps a Postgres connection holding the trades table.
type Store struct {
	db *sql.DB
}

// Open connects to databaseURL ("postgres://...").
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id   BIGINT PRIMARY KEY,
	market     VARCHAR(16),
	buyer_id   VARCHAR(44),
	seller_id  VARCHAR(44),
	price      BIGINT,
	quantity   BIGINT,
	timestamp  BIGINT
)`

// EnsureSchema creates the trades table if it does not already exist.
func (s *Store) EnsureSchema() error {
	_, err := s.db.Exec(schemaDDL)
	return err
}

const insertTradeSQL = `
INSERT INTO trades (trade_id, market, buyer_id, seller_id, price, quantity, timestamp)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (trade_id) DO NOTHING`

// InsertTrade idempotently records a matched trade; a duplicate trade_id
// (e.g. from a re-delivered queue message) is silently ignored.
func (s *Store) InsertTrade(m domain.MatchResult, buyerB58, sellerB58 string, timestamp int64) error {
	_, err := s.db.Exec(insertTradeSQL,
		int64(m.TradeID), m.Market.String(), buyerB58, sellerB58,
		int64(m.Price), int64(m.Quantity), timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert trade %d: %w", m.TradeID, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }
