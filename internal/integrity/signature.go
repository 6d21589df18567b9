package integrity

import (
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/ed25519"
)

// ErrInvalidPublicKey is returned when the supplied public key does not
// decode to exactly ed25519.PublicKeySize bytes.
var ErrInvalidPublicKey = errors.New("integrity: invalid public key")

// ErrInvalidSignature is returned when the supplied signature does not
// decode to exactly ed25519.SignatureSize bytes.
var ErrInvalidSignature = errors.New("integrity: invalid signature")

// ErrVerificationFailed is returned when the signature does not verify
// against the given data under the given public key.
var ErrVerificationFailed = errors.New("integrity: signature verification failed")

// VerifyEd25519 verifies an ed25519 signature over data. publicKeyB64 and
// signatureB64 are standard (non-URL) base64, decoding to 32 and 64 bytes
// respectively. ed25519.Verify already rejects non-canonical (malleable)
// signature encodings, so no additional strictness is layered on here.
func VerifyEd25519(publicKeyB64, signatureB64 string, data []byte) error {
	pub, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, ed25519.PublicKeySize, len(pub))
	}

	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, ed25519.SignatureSize, len(sig))
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), data, sig) {
		return ErrVerificationFailed
	}
	return nil
}
