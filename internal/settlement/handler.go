// Package settlement simulates the on-chain settlement handler: signature
// introspection, per-account nonce replay protection, and applying a fill
// to both sides of a trade via the margin package.
package settlement

import (
	"errors"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/attestation"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/margin"
)

var (
	ErrMissingSignature        = errors.New("settlement: no preceding instruction to verify against")
	ErrInvalidSignatureProgram = errors.New("settlement: preceding instruction is not the signature verifier")
	ErrStaleNonce              = errors.New("settlement: supplied nonce does not match account nonce")
	ErrBadSignature            = errors.New("settlement: attestation signature does not verify")
	ErrTradeMessageMismatch    = errors.New("settlement: verified message does not match settlement arguments")
)

// InstructionBundle is the minimal shape of an atomic instruction bundle
// this handler inspects: the index of the instruction currently executing,
// and the program id of the instruction immediately preceding it.
type InstructionBundle struct {
	CurrentIndex       int
	PrecedingProgramID string
	VerifyPayload      []byte // raw Ed25519SigVerify instruction data, if PrecedingProgramID matches
}

// Ed25519ProgramID is the simulated well-known program id of the
// signature-verifier precompile, mirroring solana_program::ed25519_program::ID.
const Ed25519ProgramID = "Ed25519SigVerify111111111111111111111111111"

// SettleArgs are the instruction arguments passed to SettleTrade.
type SettleArgs struct {
	TradeID    uint64
	Market     domain.MarketTag
	Price      uint64
	Quantity   uint64
	BuyerNonce uint64
	SellNonce  uint64
}

// EngineConfig mirrors the on-chain engine_config PDA: the authority and the
// trusted Ed25519 key allowed to attest trades.
type EngineConfig struct {
	Authority   domain.AccountID
	EngineSigner ed25519.PublicKey
}

// SettleTrade applies a fully-verified trade to the buyer's and seller's
// margin accounts, in the exact check order the on-chain handler uses:
// introspection, replay guard, fill application, nonce advance.
func SettleTrade(cfg EngineConfig, bundle InstructionBundle, buyer, seller *margin.Account, args SettleArgs) error {
	if bundle.CurrentIndex <= 0 {
		return ErrMissingSignature
	}
	if bundle.PrecedingProgramID != Ed25519ProgramID {
		return ErrInvalidSignatureProgram
	}

	pubkey, sig, msg, err := attestation.ParseVerifyInstruction(bundle.VerifyPayload)
	if err != nil {
		return err
	}
	if !ed25519PubkeyEqual(pubkey, cfg.EngineSigner) {
		return ErrBadSignature
	}
	if !ed25519.Verify(pubkey, msg, sig) {
		return ErrBadSignature
	}

	decoded, err := attestation.Decode(msg)
	if err != nil {
		return err
	}
	if decoded.TradeID != args.TradeID || decoded.Price != args.Price || decoded.Quantity != args.Quantity {
		return ErrTradeMessageMismatch
	}

	if args.BuyerNonce != buyer.Nonce {
		return ErrStaleNonce
	}
	if args.SellNonce != seller.Nonce {
		return ErrStaleNonce
	}

	qty := int64(args.Quantity)
	if err := buyer.ApplyFill(args.Market, qty, args.Price); err != nil {
		return err
	}
	if err := seller.ApplyFill(args.Market, -qty, args.Price); err != nil {
		return err
	}

	buyer.Nonce++
	seller.Nonce++
	return nil
}

func ed25519PubkeyEqual(a, b ed25519.PublicKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
