package attestation

import (
	"bytes"
	"testing"

	"github.com/cloudflare/circl/sign/ed25519"
)

func TestBuildAndParseVerifyInstruction_RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	msg := []byte("a 112-byte settlement message stand-in for this test")
	sig := ed25519.Sign(priv, msg)

	data := BuildVerifyInstructionData(pub, sig, msg)
	if len(data) != 176+len(msg) {
		t.Fatalf("expected total length 176+len(msg)=%d, got %d", 176+len(msg), len(data))
	}

	gotPub, gotSig, gotMsg, err := ParseVerifyInstruction(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !bytes.Equal(gotPub, pub) {
		t.Fatalf("pubkey mismatch")
	}
	if !bytes.Equal(gotSig, sig) {
		t.Fatalf("signature mismatch")
	}
	if !bytes.Equal(gotMsg, msg) {
		t.Fatalf("message mismatch")
	}
	if !ed25519.Verify(gotPub, gotMsg, gotSig) {
		t.Fatal("recovered signature does not verify")
	}
}

func TestParseVerifyInstruction_RejectsShortPayload(t *testing.T) {
	if _, _, _, err := ParseVerifyInstruction(make([]byte, 4)); err != ErrShortVerifyInstruction {
		t.Fatalf("expected ErrShortVerifyInstruction, got %v", err)
	}
}
