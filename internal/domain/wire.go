package domain

import "encoding/json"

// WireOrder is the JSON envelope pushed onto ORDER_QUEUE: user-facing
// decimal strings, plus the base58 user id, exactly as the original
// pipeline's common-utils::Order serializes.
type WireOrder struct {
	UserID   string `json:"user_id"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Side     string `json:"side"`
}

// WireMatchResult is the JSON envelope pushed onto DB_QUEUE and
// SETTLEMENT_QUEUE after a trade, decimal-string prices/quantities and
// base58 account ids at the wire boundary.
type WireMatchResult struct {
	TradeID  uint64 `json:"trade_id"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	BuyerID  string `json:"buyer_id"`
	SellerID string `json:"seller_id"`
}

// Marshal renders a WireMatchResult to its JSON queue payload.
func (w WireMatchResult) Marshal() ([]byte, error) { return json.Marshal(w) }

// UnmarshalWireMatchResult parses a DB_QUEUE/SETTLEMENT_QUEUE payload.
func UnmarshalWireMatchResult(b []byte) (WireMatchResult, error) {
	var w WireMatchResult
	err := json.Unmarshal(b, &w)
	return w, err
}
