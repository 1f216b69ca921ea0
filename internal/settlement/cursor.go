package settlement

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
)

// NonceCursor tracks the last-known on-chain nonce per account between
// settlement worker restarts, so the worker does not need to re-scan every
// margin account on boot to resolve Open Question 1 (nonce hardcoding). It
// is an in-memory cache backed by a Pebble database for durability, the
// same pairing the reference account store uses for account state.
type NonceCursor struct {
	mu    sync.Mutex
	cache map[domain.AccountID]uint64
	db    *pebble.DB
}

// OpenNonceCursor opens (or creates) a Pebble database at dbPath to back
// the nonce cursor.
func OpenNonceCursor(dbPath string) (*NonceCursor, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open nonce cursor db at %s: %w", dbPath, err)
	}
	return &NonceCursor{cache: make(map[domain.AccountID]uint64), db: db}, nil
}

func nonceKey(owner domain.AccountID) []byte {
	key := make([]byte, 7+32)
	copy(key, "nonce/")
	copy(key[7:], owner[:])
	return key
}

// Get returns the cached nonce for owner, loading it from Pebble on first
// access and defaulting to zero for a never-seen account.
func (c *NonceCursor) Get(owner domain.AccountID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.cache[owner]; ok {
		return v
	}

	data, closer, err := c.db.Get(nonceKey(owner))
	if err != nil {
		c.cache[owner] = 0
		return 0
	}
	defer closer.Close()

	v := binary.LittleEndian.Uint64(data)
	c.cache[owner] = v
	return v
}

// Advance increments and persists the cached nonce for owner after a
// successful settlement.
func (c *NonceCursor) Advance(owner domain.AccountID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.cache[owner] + 1
	c.cache[owner] = next

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, next)
	_ = c.db.Set(nonceKey(owner), buf, pebble.Sync)
}

// Set overwrites the cached and persisted nonce for owner. Nothing in the
// settlement client calls it, so a StaleNonce rejection leaves the cursor
// unchanged.
func (c *NonceCursor) Set(owner domain.AccountID, nonce uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[owner] = nonce
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, nonce)
	_ = c.db.Set(nonceKey(owner), buf, pebble.Sync)
}

// Close closes the underlying Pebble database.
func (c *NonceCursor) Close() error {
	return c.db.Close()
}
