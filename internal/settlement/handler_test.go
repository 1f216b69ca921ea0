package settlement

import (
	"testing"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/attestation"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/margin"
)

func buildBundle(t *testing.T, signer *EngineSigner, msg attestation.Message) InstructionBundle {
	t.Helper()
	encoded := msg.Encode()
	sig := signer.Sign(encoded)
	payload := attestation.BuildVerifyInstructionData(signer.PublicKey(), sig, encoded)
	return InstructionBundle{
		CurrentIndex:       1,
		PrecedingProgramID: Ed25519ProgramID,
		VerifyPayload:      payload,
	}
}

func newTestSigner(t *testing.T) *EngineSigner {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return NewEngineSigner(priv)
}

func TestSettleTrade_Succeeds(t *testing.T) {
	signer := newTestSigner(t)
	market := domain.NewMarketTag("SOL-PERP")

	var buyerID, sellerID domain.AccountID
	buyerID[0], sellerID[0] = 1, 2

	buyer := margin.NewAccount(buyerID, 1_000_000_000)
	seller := margin.NewAccount(sellerID, 1_000_000_000)

	args := SettleArgs{TradeID: 1, Market: market, Price: 100_000_000, Quantity: 1_000_000}
	msg := attestation.FromMatch(domain.MatchResult{
		TradeID:  args.TradeID,
		Market:   market,
		Price:    args.Price,
		Quantity: args.Quantity,
		BuyerID:  buyerID,
		SellerID: sellerID,
	}, 1_700_000_000)
	bundle := buildBundle(t, signer, msg)

	cfg := EngineConfig{EngineSigner: signer.PublicKey()}

	if err := SettleTrade(cfg, bundle, buyer, seller, args); err != nil {
		t.Fatalf("settle trade: %v", err)
	}

	if buyer.Nonce != 1 || seller.Nonce != 1 {
		t.Fatalf("expected both nonces to advance to 1, got buyer=%d seller=%d", buyer.Nonce, seller.Nonce)
	}
	if buyer.Positions[0].Size != 1_000_000 {
		t.Fatalf("expected buyer long 1 unit, got %d", buyer.Positions[0].Size)
	}
	if seller.Positions[0].Size != -1_000_000 {
		t.Fatalf("expected seller short 1 unit, got %d", seller.Positions[0].Size)
	}
}

func TestSettleTrade_RejectsNonceReplay(t *testing.T) {
	signer := newTestSigner(t)
	market := domain.NewMarketTag("SOL-PERP")

	var buyerID, sellerID domain.AccountID
	buyerID[0], sellerID[0] = 1, 2

	buyer := margin.NewAccount(buyerID, 1_000_000_000)
	seller := margin.NewAccount(sellerID, 1_000_000_000)
	buyer.Nonce = 5
	seller.Nonce = 7

	cfg := EngineConfig{EngineSigner: signer.PublicKey()}

	firstArgs := SettleArgs{TradeID: 1, Market: market, Price: 100_000_000, Quantity: 1_000_000, BuyerNonce: 5, SellNonce: 7}
	firstMsg := attestation.FromMatch(domain.MatchResult{
		TradeID: firstArgs.TradeID, Market: market, Price: firstArgs.Price, Quantity: firstArgs.Quantity,
		BuyerID: buyerID, SellerID: sellerID,
	}, 1)
	if err := SettleTrade(cfg, buildBundle(t, signer, firstMsg), buyer, seller, firstArgs); err != nil {
		t.Fatalf("first settlement should succeed: %v", err)
	}
	if buyer.Nonce != 6 || seller.Nonce != 8 {
		t.Fatalf("expected nonces 6,8 after first settlement, got %d,%d", buyer.Nonce, seller.Nonce)
	}

	// Replay with the stale buyer nonce (5) but the already-consumed seller
	// nonce's successor (8): must be rejected as StaleNonce on the buyer leg.
	replayArgs := SettleArgs{TradeID: 2, Market: market, Price: 100_000_000, Quantity: 1_000_000, BuyerNonce: 5, SellNonce: 8}
	replayMsg := attestation.FromMatch(domain.MatchResult{
		TradeID: replayArgs.TradeID, Market: market, Price: replayArgs.Price, Quantity: replayArgs.Quantity,
		BuyerID: buyerID, SellerID: sellerID,
	}, 2)
	err := SettleTrade(cfg, buildBundle(t, signer, replayMsg), buyer, seller, replayArgs)
	if err != ErrStaleNonce {
		t.Fatalf("expected ErrStaleNonce, got %v", err)
	}
	if buyer.Nonce != 6 || seller.Nonce != 8 {
		t.Fatalf("rejected replay must not advance nonces, got %d,%d", buyer.Nonce, seller.Nonce)
	}
}

func TestSettleTrade_RequiresPrecedingSignatureVerifier(t *testing.T) {
	signer := newTestSigner(t)
	market := domain.NewMarketTag("SOL-PERP")

	var buyerID, sellerID domain.AccountID
	buyer := margin.NewAccount(buyerID, 1_000_000_000)
	seller := margin.NewAccount(sellerID, 1_000_000_000)

	cfg := EngineConfig{EngineSigner: signer.PublicKey()}
	args := SettleArgs{TradeID: 1, Market: market, Price: 100, Quantity: 1}

	if err := SettleTrade(cfg, InstructionBundle{CurrentIndex: 0}, buyer, seller, args); err != ErrMissingSignature {
		t.Fatalf("expected ErrMissingSignature when current_index == 0, got %v", err)
	}

	bundle := InstructionBundle{CurrentIndex: 1, PrecedingProgramID: "SomeOtherProgram1111111111111111111111111"}
	if err := SettleTrade(cfg, bundle, buyer, seller, args); err != ErrInvalidSignatureProgram {
		t.Fatalf("expected ErrInvalidSignatureProgram, got %v", err)
	}
}
