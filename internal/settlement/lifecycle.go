package settlement

import (
	"errors"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/margin"
)

var (
	ErrAlreadyInitialized  = errors.New("settlement: engine config already initialized")
	ErrAccountAlreadyExists = errors.New("settlement: margin account already exists for owner")
	ErrDepositNotPositive   = errors.New("settlement: deposit amount must be positive")
)

// Registry holds the engine-wide config and the set of margin accounts,
// mirroring the on-chain program's account space without requiring a chain:
// Initialize, CreateMarginAccount, and Deposit all operate against it, the
// same three lifecycle instructions the original settlement program
// exposes alongside SettleTrade.
type Registry struct {
	config   *EngineConfig
	accounts map[domain.AccountID]*margin.Account
}

// NewRegistry returns an empty registry with no engine config.
// CreateMarginAccount does not require Initialize to have run.
func NewRegistry() *Registry {
	return &Registry{accounts: make(map[domain.AccountID]*margin.Account)}
}

// Initialize sets the engine-wide config (authority and trusted attestation
// key), the analogue of the on-chain Initialize instruction.
func (r *Registry) Initialize(authority domain.AccountID, engineSigner ed25519.PublicKey) error {
	if r.config != nil {
		return ErrAlreadyInitialized
	}
	r.config = &EngineConfig{Authority: authority, EngineSigner: engineSigner}
	return nil
}

// Config returns the engine config, or nil if Initialize has not run yet.
func (r *Registry) Config() *EngineConfig { return r.config }

// CreateMarginAccount opens a zero-collateral, zero-nonce margin account
// for owner, the analogue of the on-chain CreateMarginAccount instruction.
func (r *Registry) CreateMarginAccount(owner domain.AccountID) (*margin.Account, error) {
	if _, exists := r.accounts[owner]; exists {
		return nil, ErrAccountAlreadyExists
	}
	acc := margin.NewAccount(owner, 0)
	r.accounts[owner] = acc
	return acc, nil
}

// Account returns owner's margin account, or nil if none exists.
func (r *Registry) Account(owner domain.AccountID) *margin.Account {
	return r.accounts[owner]
}

// Deposit credits collateral to owner's margin account, the analogue of the
// on-chain Deposit instruction (a simplified balance top-up with no actual
// token transfer, since token custody is out of scope here).
func (r *Registry) Deposit(owner domain.AccountID, amount uint64) error {
	if amount == 0 {
		return ErrDepositNotPositive
	}
	acc, exists := r.accounts[owner]
	if !exists {
		return errors.New("settlement: margin account not found")
	}
	acc.Collateral += amount
	return nil
}
