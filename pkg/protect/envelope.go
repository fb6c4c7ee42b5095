package protect

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
)

const (
	// signatureHexLen is the length of a hex-encoded 65-byte recoverable
	// signature without the 0x prefix. With the prefix it is 132.
	signatureHexLen = 130
	// publicKeyHexLen is an uncompressed secp256k1 point without the 04
	// prefix, hex encoded.
	publicKeyHexLen = 128
)

// SignKid signs keccak256(kid) with the sender key and returns the hex
// signature with Ethereum-style V (27/28). The signature authenticates
// the kid, never the key material, so it cannot be replayed against a
// different asset.
func SignKid(kid string, priv *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(crypto.Keccak256([]byte(kid)), priv)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return hex.EncodeToString(sig), nil
}

// SplitEnvelope separates an envelope into its recoverable signature
// and the serialized ciphertext. Accepts an optional 0x prefix on the
// whole envelope.
func SplitEnvelope(envelope string) (sig []byte, cipher []byte, err error) {
	raw := strings.TrimPrefix(envelope, "0x")
	if len(raw) <= signatureHexLen {
		return nil, nil, errors.New("envelope shorter than a signature")
	}
	sig, err = hex.DecodeString(raw[:signatureHexLen])
	if err != nil {
		return nil, nil, fmt.Errorf("malformed envelope signature: %w", err)
	}
	cipher, err = hex.DecodeString(raw[signatureHexLen:])
	if err != nil {
		return nil, nil, fmt.Errorf("malformed envelope ciphertext: %w", err)
	}
	return sig, cipher, nil
}

// RecoverSigner recovers the lowercase address that signed
// keccak256(kid). Both raw (0/1) and Ethereum (27/28) V values are
// accepted.
func RecoverSigner(kid string, sig []byte) (string, error) {
	if len(sig) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := crypto.SigToPub(crypto.Keccak256([]byte(kid)), normalized)
	if err != nil {
		return "", err
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// Decrypt opens an ECIES ciphertext with the holder's key.
func Decrypt(priv *ecdsa.PrivateKey, cipher []byte) ([]byte, error) {
	return ecies.ImportECDSA(priv).Decrypt(cipher, nil, nil)
}

// NormalizePublicKey brings a hex public key to the canonical
// 128-char uncompressed point. Oversized keys are truncated keeping the
// TRAILING segment; changing this breaks interop with the consuming
// player, so treat it as a wire constant.
func NormalizePublicKey(pubHex string) (string, error) {
	raw := strings.TrimPrefix(pubHex, "0x")
	if len(raw) > publicKeyHexLen {
		raw = raw[len(raw)-publicKeyHexLen:]
	}
	if len(raw) != publicKeyHexLen {
		return "", fmt.Errorf("public key must be %d hex chars, got %d", publicKeyHexLen, len(raw))
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("malformed public key: %w", err)
	}
	return raw, nil
}

// ParsePublicKey parses a normalized (or normalizable) hex public key
// into an ECDSA key on the secp256k1 curve.
func ParsePublicKey(pubHex string) (*ecdsa.PublicKey, error) {
	normalized, err := NormalizePublicKey(pubHex)
	if err != nil {
		return nil, err
	}
	raw, _ := hex.DecodeString("04" + normalized)
	return crypto.UnmarshalPubkey(raw)
}

// PublicKeyHex renders an ECDSA public key as the canonical 128-char
// point without the 04 prefix.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return hex.EncodeToString(crypto.FromECDSAPub(pub)[1:])
}
