package protect

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
)

// KeyFormat selects how the content key is serialized before ECIES
// encryption.
type KeyFormat string

const (
	KeyFormatHex       KeyFormat = "hex"
	KeyFormatBase64URL KeyFormat = "base64url"
)

// EciesSystemID identifies the ECIES protection scheme in encoding
// results.
const EciesSystemID = "ECIES_SECP256K1"

// EciesEncoder wraps a content key for a recipient public key and binds
// the envelope to the kid with a recoverable signature. When a
// protection descriptor is supplied the wrapped key is also registered
// on the ledger; registration failure aborts the branch.
type EciesEncoder struct {
	privateKey *ecdsa.PrivateKey
	dialer     GatewayDialer
	format     KeyFormat
	log        *slog.Logger
}

type EciesEncoderOptions struct {
	// PrivateKey is the sender's secp256k1 key, hex encoded.
	PrivateKey string
	Dialer     GatewayDialer
	Format     KeyFormat
	Log        *slog.Logger
}

func NewEciesEncoder(ops ...EciesEncoderOptions) (*EciesEncoder, error) {
	encoder := &EciesEncoder{format: KeyFormatHex, log: slog.Default()}
	if len(ops) > 0 {
		if ops[0].PrivateKey != "" {
			priv, err := crypto.HexToECDSA(strings.TrimPrefix(ops[0].PrivateKey, "0x"))
			if err != nil {
				return nil, fmt.Errorf("bad ecies private key: %w", err)
			}
			encoder.privateKey = priv
		}
		encoder.dialer = ops[0].Dialer
		if ops[0].Format != "" {
			encoder.format = ops[0].Format
		}
		if ops[0].Log != nil {
			encoder.log = ops[0].Log
		}
	}
	if encoder.privateKey == nil {
		return nil, fmt.Errorf("ecies encoder requires a private key")
	}
	return encoder, nil
}

// Address returns the sender address for this encoder's key.
func (e *EciesEncoder) Address() string {
	return strings.ToLower(crypto.PubkeyToAddress(e.privateKey.PublicKey).Hex())
}

// Encode wraps the key for recipientPub (the encoder's own public half
// when empty) and returns the envelope plus scheme metadata. protection
// may be nil; when present the envelope is registered through the
// authority gateway and a registration failure fails the whole call.
func (e *EciesEncoder) Encode(ctx context.Context, kid, key string, protection *ProtectionInput, recipientPub string) (EncodingResult, error) {
	if recipientPub == "" {
		recipientPub = PublicKeyHex(&e.privateKey.PublicKey)
	}
	pub, err := ParsePublicKey(recipientPub)
	if err != nil {
		return EncodingResult{}, err
	}
	pubHex := PublicKeyHex(pub)

	signature, err := SignKid(kid, e.privateKey)
	if err != nil {
		return EncodingResult{}, err
	}

	plaintext, err := formatKey(key, e.format)
	if err != nil {
		return EncodingResult{}, err
	}
	cipher, err := ecies.Encrypt(rand.Reader, ecies.ImportECDSAPublic(pub), plaintext, nil, nil)
	if err != nil {
		return EncodingResult{}, fmt.Errorf("ecies encrypt: %w", err)
	}
	keystore := signature + hex.EncodeToString(cipher)

	protectionData := map[string]any{
		"publicKey": pubHex,
		"format":    string(e.format),
	}
	if protection != nil {
		protectionData["protection"] = *protection
		if err := e.register(ctx, *protection, kid, keystore); err != nil {
			return EncodingResult{}, err
		}
	}

	return EncodingResult{
		Keystore:       keystore,
		SystemID:       EciesSystemID,
		ProtectionData: protectionData,
	}, nil
}

func (e *EciesEncoder) register(ctx context.Context, protection ProtectionInput, kid, keystore string) error {
	if e.dialer == nil {
		return fmt.Errorf("no gateway dialer configured for ledger registration")
	}
	gateway, err := e.dialer.Dial(protection)
	if err != nil {
		e.log.Error("authority gateway dial failed", "ledger", protection.Ledger, "error", err)
		return fmt.Errorf("dial authority gateway: %w", err)
	}
	receipt, err := gateway.RegisterIPWithKey(ctx, protection.Ledger, "0x"+kid, keystore)
	if err != nil {
		e.log.Error("ledger registration failed", "kid", kid, "ledger", protection.Ledger, "error", err)
		return fmt.Errorf("register key on ledger: %w", err)
	}
	e.log.Info("wrapped key registered", "kid", kid, "receipt", receipt)
	return nil
}

func formatKey(key string, format KeyFormat) ([]byte, error) {
	switch format {
	case KeyFormatHex, "":
		return []byte(key), nil
	case KeyFormatBase64URL:
		raw, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("key is not hex: %w", err)
		}
		return []byte(base64.RawURLEncoding.EncodeToString(raw)), nil
	default:
		return nil, fmt.Errorf("unknown key format %q", format)
	}
}

// ParseKey reverses formatKey: whatever transport format was used, the
// stable hex form of the content key comes back.
func ParseKey(plaintext []byte) (string, error) {
	s := string(plaintext)
	if _, err := hex.DecodeString(s); err == nil {
		return strings.ToLower(s), nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("key is neither hex nor base64url")
	}
	return hex.EncodeToString(raw), nil
}
