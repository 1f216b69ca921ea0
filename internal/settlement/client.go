package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/attestation"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
)

// Seeds for the two PDAs this program derives, matching the Anchor program's
// #[account(seeds = ...)] constraints exactly.
var (
	engineConfigSeed  = []byte("engine_config")
	marginAccountSeed = []byte("margin_account")
)

// DeriveEngineConfigPDA returns the engine's singleton config account address.
func DeriveEngineConfigPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{engineConfigSeed}, programID)
}

// DeriveMarginAccountPDA returns the per-owner margin account address.
func DeriveMarginAccountPDA(owner, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{marginAccountSeed, owner.Bytes()}, programID)
}

// settleTradeDiscriminator is the Anchor instruction discriminator for
// "settle_trade", computed the same way the on-chain program exposes it.
var settleTradeDiscriminator = anchorDiscriminator("settle_trade")

func anchorDiscriminator(name string) [8]byte {
	h := sha256Sum([]byte("global:" + name))
	var out [8]byte
	copy(out[:], h[:8])
	return out
}

// Client drives the off-chain settlement of a single matched trade: it
// derives the participant PDAs, builds the signed attestation, composes the
// [verify, settle] atomic bundle, and submits it via RPC.
type Client struct {
	RPC           *rpc.Client
	ProgramID     solana.PublicKey
	RelayerSigner solana.PrivateKey
	Signer        *EngineSigner
	Nonces        *NonceCursor
}

// SettleTrade builds and submits the atomic settlement bundle for a single
// matched trade, threading the buyer/seller nonces from the local cursor
// store (see Open Question 1: nonce hardcoding).
func (c *Client) SettleTrade(ctx context.Context, m domain.MatchResult) (solana.Signature, error) {
	buyerPub := solana.PublicKeyFromBytes(m.BuyerID[:])
	sellerPub := solana.PublicKeyFromBytes(m.SellerID[:])

	configPDA, _, err := DeriveEngineConfigPDA(c.ProgramID)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("derive config pda: %w", err)
	}
	buyerPDA, _, err := DeriveMarginAccountPDA(buyerPub, c.ProgramID)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("derive buyer margin pda: %w", err)
	}
	sellerPDA, _, err := DeriveMarginAccountPDA(sellerPub, c.ProgramID)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("derive seller margin pda: %w", err)
	}

	buyerNonce, sellerNonce := c.Nonces.Get(m.BuyerID), c.Nonces.Get(m.SellerID)

	msg := attestation.FromMatch(m, time.Now().Unix()).Encode()
	sig := c.Signer.Sign(msg)

	verifyIx := solana.NewInstruction(
		solana.MustPublicKeyFromBase58(Ed25519ProgramPubkey),
		solana.AccountMetaSlice{},
		attestation.BuildVerifyInstructionData(c.Signer.PublicKey(), sig, msg),
	)

	settleIx := c.buildSettleInstruction(configPDA, buyerPDA, sellerPDA, m, buyerNonce, sellerNonce)

	recent, err := c.RPC.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{verifyIx, settleIx},
		recent.Value.Blockhash,
		solana.TransactionPayer(c.RelayerSigner.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if c.RelayerSigner.PublicKey().Equals(key) {
			return &c.RelayerSigner
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}

	txSig, err := c.RPC.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{SkipPreflight: false})
	if err != nil {
		return solana.Signature{}, err
	}

	c.Nonces.Advance(m.BuyerID)
	c.Nonces.Advance(m.SellerID)
	return txSig, nil
}

func (c *Client) buildSettleInstruction(config, buyer, seller solana.PublicKey, m domain.MatchResult, buyerNonce, sellerNonce uint64) solana.Instruction {
	data := make([]byte, 8+8+8+8+8+8)
	copy(data[0:8], settleTradeDiscriminator[:])
	putU64(data[8:16], m.TradeID)
	putU64(data[16:24], m.Price)
	putU64(data[24:32], m.Quantity)
	putU64(data[32:40], buyerNonce)
	putU64(data[40:48], sellerNonce)

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(config, false, false),
		solana.NewAccountMeta(buyer, true, false),
		solana.NewAccountMeta(seller, true, false),
		solana.NewAccountMeta(solana.SysVarInstructionsPubkey, false, false),
	}

	return solana.NewInstruction(c.ProgramID, accounts, data)
}

// Ed25519ProgramPubkey is the well-known base58 address of Solana's
// signature-verifier precompile.
const Ed25519ProgramPubkey = "Ed25519SigVerify111111111111111111111111111"
