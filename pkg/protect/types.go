// Package protect wraps a content encryption key under multiple
// independent protection schemes and orchestrates them against one key.
package protect

import (
	"context"
	"errors"
	"fmt"

	"github.com/drmkeys/backend-go/pkg/conditions"
)

// ProtectionInput describes where and how a key may be asserted
// on-chain. Passed by value into every encoder; encoders never mutate
// it.
type ProtectionInput struct {
	Authority   string `json:"authority"`
	Ledger      string `json:"ledger"`
	ChainID     int    `json:"chainId"`
	RPC         string `json:"rpc,omitempty"`
	KeystoreURL string `json:"keystoreUrl,omitempty"`
}

// EncodingResult is the output of one encoder. Immutable once returned.
type EncodingResult struct {
	Keystore       string         `json:"keystore"`
	SystemID       string         `json:"systemId,omitempty"`
	ProtectionData map[string]any `json:"protectionData,omitempty"`
}

var (
	// ErrNoEncodingPerformed means every encoder branch failed.
	ErrNoEncodingPerformed = errors.New("no encoding performed")
	// ErrProtectionRequired means an encoder that needs a protection
	// descriptor was called without one.
	ErrProtectionRequired = errors.New("protection input required")
)

// UnsupportedSchemeError signals that an encoder's authority probe
// failed or returned false. The orchestrator treats it as "skip this
// branch", not as a hard failure.
type UnsupportedSchemeError struct {
	SystemID string
	Err      error
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("scheme %s unsupported, should be skipped", e.SystemID)
}

func (e *UnsupportedSchemeError) Unwrap() error { return e.Err }

// Encryptor is the threshold-encryption provider boundary. Connection
// lifecycle is owned by the embedding service.
type Encryptor interface {
	Encrypt(ctx context.Context, conds conditions.Node, plaintextB64 string) (ciphertext string, dataHash string, err error)
}

// AuthorityGateway is the blockchain read/write boundary.
type AuthorityGateway interface {
	SupportsLitProtocol(ctx context.Context) (bool, error)
	RegisterIPWithKey(ctx context.Context, ledger, contentID, wrappedKey string) (receipt string, err error)
}

// GatewayDialer opens a gateway for the rpc/authority named by one
// protection descriptor.
type GatewayDialer interface {
	Dial(protection ProtectionInput) (AuthorityGateway, error)
}

// Notifier observes keystore creation. Implementations must not block
// the orchestration result on their own failures.
type Notifier interface {
	KeystoreCreated(ctx context.Context, kid string, results []EncodingResult)
}
