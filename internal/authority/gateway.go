// Package authority talks to the on-chain authority contract: a
// read-only capability probe and the wrapped-key registration call.
package authority

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/drmkeys/backend-go/pkg/protect"
)

const gatewayABIJSON = `[
	{"type":"function","name":"supportsLitProtocol","stateMutability":"view","inputs":[],"outputs":[{"type":"bool"}]},
	{"type":"function","name":"registerIPWithKey","stateMutability":"nonpayable","inputs":[{"name":"ledger","type":"string"},{"name":"contentId","type":"string"},{"name":"wrappedKey","type":"string"}],"outputs":[]}
]`

var gatewayABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(gatewayABIJSON))
	if err != nil {
		panic(err)
	}
	gatewayABI = parsed
}

// Dialer opens a Gateway per protection descriptor. Implements
// protect.GatewayDialer.
type Dialer struct {
	// PrivateKey signs registration transactions. Probe-only gateways
	// may leave it empty.
	PrivateKey string
}

func (d *Dialer) Dial(protection protect.ProtectionInput) (protect.AuthorityGateway, error) {
	if protection.RPC == "" {
		return nil, errors.New("protection input carries no rpc endpoint")
	}
	if protection.Authority == "" {
		return nil, errors.New("protection input carries no authority contract")
	}
	client, err := ethclient.Dial(protection.RPC)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", protection.RPC, err)
	}
	gateway := &Gateway{
		client:    client,
		authority: common.HexToAddress(protection.Authority),
		chainID:   big.NewInt(int64(protection.ChainID)),
	}
	if d.PrivateKey != "" {
		signer, err := crypto.HexToECDSA(strings.TrimPrefix(d.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("bad gateway signer key: %w", err)
		}
		gateway.signer = signer
	}
	return gateway, nil
}

// Gateway is bound to one rpc endpoint and one authority contract.
type Gateway struct {
	client    *ethclient.Client
	authority common.Address
	chainID   *big.Int
	signer    *ecdsa.PrivateKey
}

// SupportsLitProtocol probes the authority contract for scheme support.
func (g *Gateway) SupportsLitProtocol(ctx context.Context) (bool, error) {
	data, err := gatewayABI.Pack("supportsLitProtocol")
	if err != nil {
		return false, err
	}
	out, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &g.authority, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("supportsLitProtocol call: %w", err)
	}
	values, err := gatewayABI.Unpack("supportsLitProtocol", out)
	if err != nil {
		return false, fmt.Errorf("supportsLitProtocol result: %w", err)
	}
	supported, ok := values[0].(bool)
	if !ok {
		return false, errors.New("supportsLitProtocol returned a non-bool")
	}
	return supported, nil
}

// RegisterIPWithKey submits the wrapped key to the ledger and returns
// the transaction hash. Confirmation is not awaited; callers decide
// whether to watch the receipt.
func (g *Gateway) RegisterIPWithKey(ctx context.Context, ledger, contentID, wrappedKey string) (string, error) {
	if g.signer == nil {
		return "", errors.New("gateway has no signing key for registration")
	}
	data, err := gatewayABI.Pack("registerIPWithKey", ledger, contentID, wrappedKey)
	if err != nil {
		return "", err
	}
	from := crypto.PubkeyToAddress(g.signer.PublicKey)
	nonce, err := g.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}
	gasLimit, err := g.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &g.authority,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}
	tx := types.NewTransaction(nonce, g.authority, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.signer)
	if err != nil {
		return "", err
	}
	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send registration tx: %w", err)
	}
	return signed.Hash().Hex(), nil
}
