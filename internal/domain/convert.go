package domain

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

var ErrBadAccountID = errors.New("domain: account id must decode to exactly 32 bytes")

// ParseAccountID decodes a base58-encoded 32-byte public key, the display
// convention Solana-style account addresses use at the HTTP/JSON boundary.
func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	raw, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("decode account id: %w", err)
	}
	if len(raw) != len(id) {
		return id, ErrBadAccountID
	}
	copy(id[:], raw)
	return id, nil
}

// String renders the account id as a base58 string.
func (a AccountID) String() string {
	return base58.Encode(a[:])
}
