package protect

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/drmkeys/backend-go/pkg/conditions"
)

// Profile fixes the identity of one access-controlled protection
// scheme: which script must be executing and which script proves the
// caller's capability. The EOA and smart-account variants differ only
// here.
type Profile struct {
	SystemID            string
	ProtectionType      string
	ScriptID            string
	AccessCheckScriptID string
}

var (
	EOAProfile = Profile{
		SystemID:            "LIT_PROTOCOL",
		ProtectionType:      "address",
		ScriptID:            "QmYgbQYLvnuhZDxhuDyVosrWZband9rD3PAIRYPrvRJdVF",
		AccessCheckScriptID: "QmcJPeXqLyqq87Jrfbp351PyQnQBrpx7TfuLbSKWbTfPPd",
	}
	SmartAccountProfile = Profile{
		SystemID:            "LIT_PROTOCOL_SMART_ACCOUNT",
		ProtectionType:      "smartAccount",
		ScriptID:            "QmS4ghgMgPXR6fYW5tP4Y8Q22hF57kFnUJ9y4DgUJz1234",
		AccessCheckScriptID: "QmQtm1YzrappYsmFH6xSvSSk5XuqcsWXGWHXMSCHle9z6x",
	}
)

// schemeVariant marks the condition format sent to the provider.
const schemeVariant = "unifiedAccessControlConditions"

// AccessEncoder wraps a content key behind threshold-encryption access
// conditions. One implementation serves every profile.
type AccessEncoder struct {
	profile   Profile
	encryptor Encryptor
	dialer    GatewayDialer
	network   string
	template  conditions.Node
	log       *slog.Logger
}

type AccessEncoderOptions struct {
	Profile   Profile
	Encryptor Encryptor
	Dialer    GatewayDialer
	// Network is the provider network label included in protection
	// metadata.
	Network string
	Log     *slog.Logger
}

func NewAccessEncoder(ops AccessEncoderOptions) (*AccessEncoder, error) {
	if ops.Encryptor == nil {
		return nil, fmt.Errorf("access encoder requires an encryptor")
	}
	if ops.Profile.SystemID == "" || ops.Profile.ScriptID == "" || ops.Profile.AccessCheckScriptID == "" {
		return nil, fmt.Errorf("access encoder profile is incomplete")
	}
	encoder := &AccessEncoder{
		profile:   ops.Profile,
		encryptor: ops.Encryptor,
		dialer:    ops.Dialer,
		network:   ops.Network,
		log:       ops.Log,
	}
	if encoder.network == "" {
		encoder.network = "datil"
	}
	if encoder.log == nil {
		encoder.log = slog.Default()
	}
	encoder.template = buildTemplate(ops.Profile)
	return encoder, nil
}

// buildTemplate constructs the two AND-joined condition branches for a
// profile. :chain, :kid, :authority and :rpc are substituted per call;
// :userAddress and :currentActionIpfsId are resolved by the provider at
// decryption time and must survive substitution untouched.
func buildTemplate(p Profile) conditions.Node {
	selfCondition := conditions.Object{
		"contractAddress":      conditions.String(""),
		"standardContractType": conditions.String(""),
		"chain":                conditions.String(":chain"),
		"method":               conditions.String(""),
		"parameters":           conditions.List{conditions.String(":currentActionIpfsId")},
		"returnValueTest": conditions.Object{
			"comparator": conditions.String("="),
			"value":      conditions.String(p.ScriptID),
		},
	}
	checkCondition := conditions.Object{
		"contractAddress":      conditions.String("ipfs://" + p.AccessCheckScriptID),
		"standardContractType": conditions.String("LitAction"),
		"chain":                conditions.String(":chain"),
		"method":               conditions.String("go"),
		"parameters": conditions.List{
			conditions.String(":userAddress"),
			conditions.String(":kid"),
			conditions.String(":authority"),
			conditions.String(":rpc"),
		},
		"returnValueTest": conditions.Object{
			"comparator": conditions.String("="),
			"value":      conditions.String("true"),
		},
	}
	return conditions.List{
		selfCondition,
		conditions.Object{"operator": conditions.String("and")},
		checkCondition,
	}
}

// Profile returns the encoder's scheme profile.
func (e *AccessEncoder) Profile() Profile { return e.profile }

// Encode materializes the access conditions for kid and asks the
// threshold-encryption provider to encrypt the key under them. A failed
// or negative authority capability probe yields UnsupportedSchemeError
// so the orchestrator can skip the scheme.
func (e *AccessEncoder) Encode(ctx context.Context, kid, key string, protection *ProtectionInput) (EncodingResult, error) {
	if protection == nil {
		return EncodingResult{}, ErrProtectionRequired
	}
	if protection.Authority != "" && protection.RPC != "" {
		gateway, err := e.dialerDial(*protection)
		if err != nil {
			return EncodingResult{}, &UnsupportedSchemeError{SystemID: e.profile.SystemID, Err: err}
		}
		supported, err := gateway.SupportsLitProtocol(ctx)
		if err != nil {
			return EncodingResult{}, &UnsupportedSchemeError{SystemID: e.profile.SystemID, Err: err}
		}
		if !supported {
			return EncodingResult{}, &UnsupportedSchemeError{SystemID: e.profile.SystemID}
		}
	}

	chain := ChainName(protection.ChainID)
	raw := map[string]any{
		"chain":     chain,
		"kid":       "0x" + kid,
		"authority": protection.Authority,
	}
	if protection.RPC != "" {
		raw["rpc"] = protection.RPC
	}
	params, err := conditions.Validate(raw)
	if err != nil {
		return EncodingResult{}, err
	}
	if _, ok := params["rpc"]; !ok {
		// No endpoint supplied; the capability script receives an empty
		// argument rather than a dangling placeholder.
		params["rpc"] = ""
	}
	materialized := conditions.Substitute(e.template, params)

	plaintext := base64.StdEncoding.EncodeToString([]byte(key))
	ciphertext, dataHash, err := e.encryptor.Encrypt(ctx, materialized, plaintext)
	if err != nil {
		e.log.Error("threshold encryption failed", "systemId", e.profile.SystemID, "kid", kid, "error", err)
		return EncodingResult{}, fmt.Errorf("threshold encrypt: %w", err)
	}

	return EncodingResult{
		Keystore: ciphertext,
		SystemID: e.profile.SystemID,
		ProtectionData: map[string]any{
			"network":                        e.network,
			"protectionType":                 e.profile.ProtectionType,
			"variant":                        schemeVariant,
			"unifiedAccessControlConditions": materialized,
			"ciphertext":                     ciphertext,
			"dataToEncryptHash":              dataHash,
			"authority":                      protection.Authority,
			"rpc":                            protection.RPC,
			"chain":                          chain,
		},
	}, nil
}

func (e *AccessEncoder) dialerDial(protection ProtectionInput) (AuthorityGateway, error) {
	if e.dialer == nil {
		return nil, fmt.Errorf("no gateway dialer configured")
	}
	return e.dialer.Dial(protection)
}
