package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/drmkeys/backend-go/pkg/access"
	"github.com/drmkeys/backend-go/pkg/conditions"
	"github.com/drmkeys/backend-go/pkg/keys"
	"github.com/drmkeys/backend-go/pkg/protect"
)

const (
	guardianKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	strangerKey = "8a1f9a8f95be41cd7ccb6168179afb4504aefe388d1e14474d32c45c72ce7b7a"
)

type okEncryptor struct{}

func (okEncryptor) Encrypt(_ context.Context, _ conditions.Node, plaintextB64 string) (string, string, error) {
	return base64.StdEncoding.EncodeToString([]byte(plaintextB64)), "0ff1ce", nil
}

type okGateway struct{}

func (okGateway) SupportsLitProtocol(context.Context) (bool, error) { return true, nil }

func (okGateway) RegisterIPWithKey(context.Context, string, string, string) (string, error) {
	return "0xreceipt", nil
}

type okDialer struct{}

func (okDialer) Dial(protect.ProtectionInput) (protect.AuthorityGateway, error) {
	return okGateway{}, nil
}

func guardianAddress(t *testing.T) string {
	t.Helper()
	priv, err := crypto.HexToECDSA(guardianKey)
	if err != nil {
		t.Fatal(err)
	}
	return strings.ToLower(crypto.PubkeyToAddress(priv.PublicKey).Hex())
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	ecies, err := protect.NewEciesEncoder(protect.EciesEncoderOptions{
		PrivateKey: guardianKey,
		Dialer:     okDialer{},
	})
	if err != nil {
		t.Fatal(err)
	}
	var encoders []*protect.AccessEncoder
	for _, profile := range []protect.Profile{protect.EOAProfile, protect.SmartAccountProfile} {
		encoder, err := protect.NewAccessEncoder(protect.AccessEncoderOptions{
			Profile:   profile,
			Encryptor: okEncryptor{},
		})
		if err != nil {
			t.Fatal(err)
		}
		encoders = append(encoders, encoder)
	}
	creator := &protect.Creator{Ecies: ecies, Encoders: encoders}
	provider, err := access.NewProvider(access.ProviderOptions{
		Processors: map[string]string{guardianAddress(t): guardianKey},
	})
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(LoadKeyRoutes(creator, provider))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestDeriveRoute(t *testing.T) {
	server := testServer(t)
	resp := postJSON(t, server.URL+"/derive", map[string]string{"salt": "content-42"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var pair keys.Pair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		t.Fatal(err)
	}
	if len(pair.Kid) != 32 || len(pair.Key) != 32 {
		t.Errorf("pair %+v", pair)
	}
}

func TestCreateRoute(t *testing.T) {
	server := testServer(t)
	resp := postJSON(t, server.URL+"/", map[string]any{
		"salt": "content-42",
		"protection": map[string]any{
			"authority": "0x1234567890123456789012345678901234567890",
			"ledger":    "ledger-1",
			"chainId":   137,
		},
	})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var result protect.CreateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 3 {
		t.Errorf("got %d results", len(result.Results))
	}
}

func TestCreateRouteNoEncodingPerformed(t *testing.T) {
	provider, err := access.NewProvider(access.ProviderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(LoadKeyRoutes(&protect.Creator{}, provider))
	defer server.Close()

	resp := postJSON(t, server.URL+"/", map[string]any{"salt": "content-42"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "NO_ENCODING_PERFORMED") {
		t.Errorf("body %q", body)
	}
}

func TestUnwrapRoute(t *testing.T) {
	server := testServer(t)

	// wrap without protection so no gateway is involved
	resp := postJSON(t, server.URL+"/", map[string]any{"salt": "content-42"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	var created protect.CreateResult
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	var envelope string
	for _, r := range created.Results {
		if r.SystemID == protect.EciesSystemID {
			envelope = r.Keystore
		}
	}
	if envelope == "" {
		t.Fatal("no ecies result")
	}

	resp = postJSON(t, server.URL+"/unwrap", map[string]string{
		"kid":      created.Kid,
		"envelope": envelope,
	})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("unwrap status %d: %s", resp.StatusCode, body)
	}
	var unwrapped access.UnwrapResult
	if err := json.NewDecoder(resp.Body).Decode(&unwrapped); err != nil {
		t.Fatal(err)
	}
	if unwrapped.Key != created.Key {
		t.Errorf("unwrapped %q, want %q", unwrapped.Key, created.Key)
	}
	if unwrapped.Guardian != guardianAddress(t) {
		t.Errorf("guardian %q", unwrapped.Guardian)
	}
}

func TestUnwrapRouteUnauthorized(t *testing.T) {
	server := testServer(t)

	pair, err := keys.Derive("content-42")
	if err != nil {
		t.Fatal(err)
	}
	// envelope signed by a key outside the processor table
	stranger, err := protect.NewEciesEncoder(protect.EciesEncoderOptions{PrivateKey: strangerKey})
	if err != nil {
		t.Fatal(err)
	}
	result, err := stranger.Encode(context.Background(), pair.Kid, pair.Key, nil, "")
	if err != nil {
		t.Fatal(err)
	}

	resp := postJSON(t, server.URL+"/unwrap", map[string]string{
		"kid":      pair.Kid,
		"envelope": result.Keystore,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "UNAUTHORIZED_PROCESSOR") {
		t.Errorf("body %q", body)
	}
}

func TestTransferRoute(t *testing.T) {
	server := testServer(t)

	pair, err := keys.Derive("content-42")
	if err != nil {
		t.Fatal(err)
	}
	guardian, err := protect.NewEciesEncoder(protect.EciesEncoderOptions{PrivateKey: guardianKey})
	if err != nil {
		t.Fatal(err)
	}
	wrapped, err := guardian.Encode(context.Background(), pair.Kid, pair.Key, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	recipient, err := crypto.HexToECDSA(strangerKey)
	if err != nil {
		t.Fatal(err)
	}

	resp := postJSON(t, server.URL+"/transfer", map[string]string{
		"kid":          pair.Kid,
		"envelope":     wrapped.Keystore,
		"newPublicKey": protect.PublicKeyHex(&recipient.PublicKey),
	})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var transferred access.TransferResult
	if err := json.NewDecoder(resp.Body).Decode(&transferred); err != nil {
		t.Fatal(err)
	}
	_, cipher, err := protect.SplitEnvelope(transferred.Raw)
	if err != nil {
		t.Fatal(err)
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
