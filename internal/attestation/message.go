// Package attestation builds and parses the canonical trade-settlement
// message the engine signs, and the Ed25519 signature-verifier instruction
// payload that precedes a settlement instruction in an atomic bundle.
package attestation

import (
	"encoding/binary"
	"errors"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
)

// MessageLen is the fixed width of the canonical trade-settlement message:
// trade_id(8) buyer(32) seller(32) market(16) price(8) quantity(8) ts(8).
const MessageLen = 8 + 32 + 32 + domain.MarketTagLen + 8 + 8 + 8

var ErrShortMessage = errors.New("attestation: message shorter than MessageLen")

// Message is the decoded form of the 112-byte canonical settlement message.
type Message struct {
	TradeID   uint64
	Buyer     domain.AccountID
	Seller    domain.AccountID
	Market    domain.MarketTag
	Price     uint64
	Quantity  uint64
	Timestamp int64
}

// FromMatch builds the canonical message for a matched trade at the given
// settlement timestamp (Unix seconds).
func FromMatch(m domain.MatchResult, timestamp int64) Message {
	return Message{
		TradeID:   m.TradeID,
		Buyer:     m.BuyerID,
		Seller:    m.SellerID,
		Market:    m.Market,
		Price:     m.Price,
		Quantity:  m.Quantity,
		Timestamp: timestamp,
	}
}

// Encode serializes the message into its canonical 112-byte little-endian
// wire form.
func (m Message) Encode() []byte {
	buf := make([]byte, MessageLen)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], m.TradeID)
	off += 8
	copy(buf[off:], m.Buyer[:])
	off += 32
	copy(buf[off:], m.Seller[:])
	off += 32
	copy(buf[off:], m.Market[:])
	off += domain.MarketTagLen
	binary.LittleEndian.PutUint64(buf[off:], m.Price)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], m.Quantity)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(m.Timestamp))
	return buf
}

// Decode parses a canonical message from its 112-byte wire form.
func Decode(buf []byte) (Message, error) {
	if len(buf) < MessageLen {
		return Message{}, ErrShortMessage
	}
	var m Message
	off := 0
	m.TradeID = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	copy(m.Buyer[:], buf[off:off+32])
	off += 32
	copy(m.Seller[:], buf[off:off+32])
	off += 32
	copy(m.Market[:], buf[off:off+domain.MarketTagLen])
	off += domain.MarketTagLen
	m.Price = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	m.Quantity = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	m.Timestamp = int64(binary.LittleEndian.Uint64(buf[off:]))
	return m, nil
}
