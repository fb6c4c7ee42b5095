package access

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/drmkeys/backend-go/pkg/keys"
	"github.com/drmkeys/backend-go/pkg/protect"
)

const (
	guardianKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	strangerKey = "8a1f9a8f95be41cd7ccb6168179afb4504aefe388d1e14474d32c45c72ce7b7a"
)

func addressOf(t *testing.T, hexkey string) string {
	t.Helper()
	priv, err := crypto.HexToECDSA(hexkey)
	if err != nil {
		t.Fatal(err)
	}
	return strings.ToLower(crypto.PubkeyToAddress(priv.PublicKey).Hex())
}

func testProvider(t *testing.T) *Provider {
	t.Helper()
	provider, err := NewProvider(ProviderOptions{
		Processors: map[string]string{
			addressOf(t, guardianKey): guardianKey,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return provider
}

func wrap(t *testing.T, senderKey, kid, key string) string {
	t.Helper()
	encoder, err := protect.NewEciesEncoder(protect.EciesEncoderOptions{PrivateKey: senderKey})
	if err != nil {
		t.Fatal(err)
	}
	result, err := encoder.Encode(context.Background(), kid, key, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	return result.Keystore
}

func TestNewProviderRejectsMismatchedKey(t *testing.T) {
	_, err := NewProvider(ProviderOptions{
		Processors: map[string]string{
			addressOf(t, strangerKey): guardianKey,
		},
	})
	if err == nil {
		t.Error("key controlling a different address accepted")
	}
}

func TestUnwrap(t *testing.T) {
	pair, err := keys.Derive("content-42")
	if err != nil {
		t.Fatal(err)
	}
	provider := testProvider(t)
	envelope := wrap(t, guardianKey, pair.Kid, pair.Key)

	result, err := provider.Unwrap(pair.Kid, envelope)
	if err != nil {
		t.Fatal(err)
	}
	if result.Key != pair.Key {
		t.Errorf("unwrapped %q, want %q", result.Key, pair.Key)
	}
	if result.Guardian != addressOf(t, guardianKey) {
		t.Errorf("guardian %q", result.Guardian)
	}
	if result.Kid != pair.Kid {
		t.Errorf("kid %q", result.Kid)
	}
}

func TestUnwrapUnknownGuardian(t *testing.T) {
	pair, err := keys.Derive("content-42")
	if err != nil {
		t.Fatal(err)
	}
	provider := testProvider(t)
	envelope := wrap(t, strangerKey, pair.Kid, pair.Key)

	_, err = provider.Unwrap(pair.Kid, envelope)
	if !errors.Is(err, ErrUnauthorizedProcessor) {
		t.Errorf("got %v, want ErrUnauthorizedProcessor", err)
	}
}

func TestUnwrapWrongKid(t *testing.T) {
	pair, err := keys.Derive("content-42")
	if err != nil {
		t.Fatal(err)
	}
	provider := testProvider(t)
	envelope := wrap(t, guardianKey, pair.Kid, pair.Key)

	// the signature binds the kid; a different kid recovers a different
	// (unknown) signer
	_, err = provider.Unwrap("cafebabecafebabecafebabecafebabe", envelope)
	if !errors.Is(err, ErrUnauthorizedProcessor) {
		t.Errorf("got %v, want ErrUnauthorizedProcessor", err)
	}
}

func TestUnwrapMalformedEnvelope(t *testing.T) {
	provider := testProvider(t)
	if _, err := provider.Unwrap("deadbeefdeadbeefdeadbeefdeadbeef", "tooshort"); err == nil {
		t.Error("malformed envelope accepted")
	}
}

func TestTransfer(t *testing.T) {
	pair, err := keys.Derive("content-42")
	if err != nil {
		t.Fatal(err)
	}
	provider := testProvider(t)
	envelope := wrap(t, guardianKey, pair.Kid, pair.Key)

	recipient, err := crypto.HexToECDSA(strangerKey)
	if err != nil {
		t.Fatal(err)
	}
	recipientPub := protect.PublicKeyHex(&recipient.PublicKey)

	result, err := provider.Transfer(context.Background(), pair.Kid, envelope, recipientPub)
	if err != nil {
		t.Fatal(err)
	}
	if result.PubKey != recipientPub {
		t.Errorf("pubKey %q", result.PubKey)
	}
	if len(result.Sig) != 130 {
		t.Errorf("sig length %d", len(result.Sig))
	}

	// the fresh envelope opens with the recipient key and is signed by
	// the guardian
	sig, cipher, err := protect.SplitEnvelope(result.Raw)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := protect.RecoverSigner(pair.Kid, sig)
	if err != nil {
		t.Fatal(err)
	}
	if signer != addressOf(t, guardianKey) {
		t.Errorf("new envelope signed by %s", signer)
	}
	plain, err := protect.Decrypt(recipient, cipher)
	if err != nil {
		t.Fatal(err)
	}
	key, err := protect.ParseKey(plain)
	if err != nil {
		t.Fatal(err)
	}
	if key != pair.Key {
		t.Errorf("transferred key %q, want %q", key, pair.Key)
	}
}

func TestTransferUnauthorized(t *testing.T) {
	pair, err := keys.Derive("content-42")
	if err != nil {
		t.Fatal(err)
	}
	provider := testProvider(t)
	envelope := wrap(t, strangerKey, pair.Kid, pair.Key)

	recipient, _ := crypto.HexToECDSA(strangerKey)
	_, err = provider.Transfer(context.Background(), pair.Kid, envelope, protect.PublicKeyHex(&recipient.PublicKey))
	if !errors.Is(err, ErrUnauthorizedProcessor) {
		t.Errorf("got %v, want ErrUnauthorizedProcessor", err)
	}
}
