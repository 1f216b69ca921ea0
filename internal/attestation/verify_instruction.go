package attestation

import (
	"encoding/binary"
	"errors"

	"github.com/cloudflare/circl/sign/ed25519"
)

// verifyHeaderLen is the fixed 16-byte Ed25519SigVerify instruction header
// that precedes the pubkey/signature/message payload.
const verifyHeaderLen = 16

var (
	ErrShortVerifyInstruction = errors.New("attestation: verify instruction shorter than header")
	ErrSignatureMismatch      = errors.New("attestation: embedded offsets do not point at the expected layout")
)

// BuildVerifyInstructionData builds the byte payload for a single-signature
// Ed25519 signature-verifier instruction: a 16-byte offsets header followed
// by the 32-byte pubkey at offset 48, the 64-byte signature at offset 112,
// and the message at offset 176.
func BuildVerifyInstructionData(pubkey ed25519.PublicKey, sig []byte, msg []byte) []byte {
	const (
		pubkeyOffset = 48
		sigOffset    = 112
		msgOffset    = 176
	)

	data := make([]byte, msgOffset+len(msg))

	data[0] = 1 // num_signatures
	data[1] = 0 // padding
	binary.LittleEndian.PutUint16(data[2:], sigOffset)
	binary.LittleEndian.PutUint16(data[4:], 0xFFFF) // sig_instruction_index
	binary.LittleEndian.PutUint16(data[6:], pubkeyOffset)
	binary.LittleEndian.PutUint16(data[8:], 0xFFFF) // pubkey_instruction_index
	binary.LittleEndian.PutUint16(data[10:], msgOffset)
	binary.LittleEndian.PutUint16(data[12:], uint16(len(msg)))
	binary.LittleEndian.PutUint16(data[14:], 0xFFFF) // msg_instruction_index

	copy(data[pubkeyOffset:pubkeyOffset+32], pubkey)
	copy(data[sigOffset:sigOffset+64], sig)
	copy(data[msgOffset:], msg)

	return data
}

// ParseVerifyInstruction extracts the embedded pubkey, signature, and
// message from a verifier instruction payload built by
// BuildVerifyInstructionData, validating that the embedded offsets match
// the fixed single-signature layout this system always produces.
func ParseVerifyInstruction(data []byte) (pubkey ed25519.PublicKey, sig, msg []byte, err error) {
	if len(data) < verifyHeaderLen {
		return nil, nil, nil, ErrShortVerifyInstruction
	}
	sigOffset := binary.LittleEndian.Uint16(data[2:])
	pubkeyOffset := binary.LittleEndian.Uint16(data[6:])
	msgOffset := binary.LittleEndian.Uint16(data[10:])
	msgLen := binary.LittleEndian.Uint16(data[12:])

	if sigOffset != 112 || pubkeyOffset != 48 || msgOffset != 176 {
		return nil, nil, nil, ErrSignatureMismatch
	}
	if len(data) < int(msgOffset)+int(msgLen) {
		return nil, nil, nil, ErrShortVerifyInstruction
	}

	pubkey = append(ed25519.PublicKey(nil), data[pubkeyOffset:pubkeyOffset+32]...)
	sig = append([]byte(nil), data[sigOffset:sigOffset+64]...)
	msg = append([]byte(nil), data[msgOffset:int(msgOffset)+int(msgLen)]...)
	return pubkey, sig, msg, nil
}
