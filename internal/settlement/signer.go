package settlement

import (
	"encoding/hex"
	"errors"
	"os"

	"github.com/cloudflare/circl/sign/ed25519"
)

var (
	ErrMissingSigningKey = errors.New("settlement: ENGINE_SIGNING_KEY not set")
	ErrInvalidSigningKey = errors.New("settlement: ENGINE_SIGNING_KEY is not a valid ed25519 private key")
)

// EngineSigner holds the exchange's Ed25519 attestation keypair.
type EngineSigner struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// EngineSignerFromEnv loads the engine signing key from ENGINE_SIGNING_KEY,
// a hex-encoded ed25519 private key.
func EngineSignerFromEnv() (*EngineSigner, error) {
	hexKey := os.Getenv("ENGINE_SIGNING_KEY")
	if hexKey == "" {
		return nil, ErrMissingSigningKey
	}
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != ed25519.PrivateKeySize {
		return nil, ErrInvalidSigningKey
	}
	priv := ed25519.PrivateKey(raw)
	return &EngineSigner{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// NewEngineSigner wraps an already-loaded private key, for use in tests and
// local tooling.
func NewEngineSigner(priv ed25519.PrivateKey) *EngineSigner {
	return &EngineSigner{priv: priv, pub: priv.Public().(ed25519.PublicKey)}
}

// PublicKey returns the engine's Ed25519 public key.
func (s *EngineSigner) PublicKey() ed25519.PublicKey { return s.pub }

// Sign signs the canonical settlement message bytes.
func (s *EngineSigner) Sign(msg []byte) []byte {
	return ed25519.Sign(s.priv, msg)
}
