// Package access gates who may unwrap a wrapped content key or
// transfer it to a new recipient. Authorization is signature based: the
// envelope signature is recovered against keccak256(kid) and the signer
// must be a registered processor.
package access

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/drmkeys/backend-go/pkg/protect"
)

// ErrUnauthorizedProcessor means the recovered signer is not in the
// processor set. Surfaced to callers as a 401; never retried.
var ErrUnauthorizedProcessor = errors.New("unauthorized processor")

// Provider holds the authorized-processor table. The table is built
// once at startup and read-only afterwards, so concurrent unwrap and
// transfer calls need no locking.
type Provider struct {
	processors map[string]*ecdsa.PrivateKey
	format     protect.KeyFormat
	log        *slog.Logger
}

type ProviderOptions struct {
	// Processors maps addresses to hex private keys. Addresses are
	// lower-cased; each key must actually control its address.
	Processors map[string]string
	Format     protect.KeyFormat
	Log        *slog.Logger
}

func NewProvider(ops ProviderOptions) (*Provider, error) {
	provider := &Provider{
		processors: make(map[string]*ecdsa.PrivateKey, len(ops.Processors)),
		format:     ops.Format,
		log:        ops.Log,
	}
	if provider.format == "" {
		provider.format = protect.KeyFormatHex
	}
	if provider.log == nil {
		provider.log = slog.Default()
	}
	for address, secret := range ops.Processors {
		priv, err := crypto.HexToECDSA(strings.TrimPrefix(secret, "0x"))
		if err != nil {
			return nil, fmt.Errorf("processor %s: bad private key: %w", address, err)
		}
		derived := crypto.PubkeyToAddress(priv.PublicKey)
		if !strings.EqualFold(derived.Hex(), address) {
			return nil, fmt.Errorf("processor %s: key controls %s", address, derived.Hex())
		}
		provider.processors[strings.ToLower(address)] = priv
	}
	return provider, nil
}

func privateKeyHex(priv *ecdsa.PrivateKey) string {
	return hex.EncodeToString(crypto.FromECDSA(priv))
}

// Processors returns the registered addresses, lower-cased.
func (p *Provider) Processors() []string {
	out := make([]string, 0, len(p.processors))
	for address := range p.processors {
		out = append(out, address)
	}
	return out
}
