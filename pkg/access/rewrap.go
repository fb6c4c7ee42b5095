package access

import (
	"context"
	"fmt"

	"github.com/drmkeys/backend-go/pkg/protect"
)

type UnwrapResult struct {
	Kid      string `json:"kid"`
	Key      string `json:"key"`
	Guardian string `json:"guardian"`
}

type TransferResult struct {
	Kid    string `json:"kid"`
	PubKey string `json:"pubKey"`
	Sig    string `json:"sig"`
	Raw    string `json:"raw"`
}

type TransferOptions struct {
	// Format overrides the provider default transport format for the
	// re-encoded key.
	Format protect.KeyFormat
}

// Unwrap opens an envelope. The signature is recovered against
// keccak256(kid); the recovered address must be a registered processor
// and its key must open the ciphertext. The plaintext key exists only
// in the returned value, never at rest.
func (p *Provider) Unwrap(kid, envelope string) (*UnwrapResult, error) {
	sig, cipher, err := protect.SplitEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	guardian, err := protect.RecoverSigner(kid, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorizedProcessor, err)
	}
	priv, ok := p.processors[guardian]
	if !ok {
		p.log.Warn("unwrap attempt by unknown guardian", "kid", kid, "guardian", guardian)
		return nil, ErrUnauthorizedProcessor
	}
	plaintext, err := protect.Decrypt(priv, cipher)
	if err != nil {
		return nil, fmt.Errorf("open envelope: %w", err)
	}
	key, err := protect.ParseKey(plaintext)
	if err != nil {
		return nil, err
	}
	return &UnwrapResult{Kid: kid, Key: key, Guardian: guardian}, nil
}

// Transfer unwraps an envelope and re-encrypts the key for
// newPublicKey, signing with the guardian's registered key. The
// unwrapped key lives only for the duration of the call.
func (p *Provider) Transfer(ctx context.Context, kid, envelope, newPublicKey string, ops ...TransferOptions) (*TransferResult, error) {
	unwrapped, err := p.Unwrap(kid, envelope)
	if err != nil {
		return nil, err
	}
	format := p.format
	if len(ops) > 0 && ops[0].Format != "" {
		format = ops[0].Format
	}
	encoder, err := protect.NewEciesEncoder(protect.EciesEncoderOptions{
		PrivateKey: privateKeyHex(p.processors[unwrapped.Guardian]),
		Format:     format,
		Log:        p.log,
	})
	if err != nil {
		return nil, err
	}
	pubKey, err := protect.NormalizePublicKey(newPublicKey)
	if err != nil {
		return nil, err
	}
	result, err := encoder.Encode(ctx, kid, unwrapped.Key, nil, pubKey)
	if err != nil {
		return nil, err
	}
	sig, _, err := protect.SplitEnvelope(result.Keystore)
	if err != nil {
		return nil, err
	}
	return &TransferResult{
		Kid:    kid,
		PubKey: pubKey,
		Sig:    fmt.Sprintf("%x", sig),
		Raw:    result.Keystore,
	}, nil
}
