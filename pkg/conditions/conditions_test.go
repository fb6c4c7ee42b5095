package conditions

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestValidateAccepts(t *testing.T) {
	params := map[string]any{
		"chain":     "ethereum",
		"authority": "0x1234567890123456789012345678901234567890",
		"kid":       "0xdeadbeefdeadbeefdeadbeefdeadbeef",
		"rpc":       "https://rpc.example.com",
	}
	out, err := Validate(params)
	if err != nil {
		t.Fatal(err)
	}
	if out["chain"] != "ethereum" {
		t.Errorf("chain = %q", out["chain"])
	}
}

func TestValidateRejects(t *testing.T) {
	bad := []map[string]any{
		{"chain": "eth-1!"},
		{"chain": "1ethereum"},
		{"authority": "0x1234"},
		{"kid": "deadbeef"},
		{"rpc": "ftp://rpc.example.com"},
		{"note": `it's`},
		{"note": `say "hi"`},
		{"note": `back\slash`},
		{"bad key": "x"},
		{"1key": "x"},
	}
	for _, params := range bad {
		if _, err := Validate(params); err == nil {
			t.Errorf("Validate(%v) should fail", params)
		} else {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Validate(%v) returned %T, want *ValidationError", params, err)
			}
		}
	}
}

func TestValidateNumbers(t *testing.T) {
	out, err := Validate(map[string]any{"chainId": 137})
	if err != nil {
		t.Fatal(err)
	}
	if out["chainId"] != "137" {
		t.Errorf("chainId = %q", out["chainId"])
	}
}

func TestSubstitute(t *testing.T) {
	template := Object{
		"chain":  String(":chain"),
		"method": String("balanceOf"),
		"parameters": List{
			String(":userAddress"),
			String("latest"),
		},
		"returnValueTest": Object{
			"comparator": String("="),
			"value":      String("true"),
		},
		"version": Number(1),
		"enabled": Bool(true),
	}
	params, err := Validate(map[string]any{
		"chain":       "polygon",
		"userAddress": "0x1234567890123456789012345678901234567890",
	})
	if err != nil {
		t.Fatal(err)
	}
	got := Substitute(template, params)

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	s := string(raw)
	if strings.Contains(s, ":chain") || strings.Contains(s, ":userAddress") {
		t.Errorf("placeholder leaked: %s", s)
	}
	if !strings.Contains(s, `"polygon"`) {
		t.Errorf("chain not substituted: %s", s)
	}
	if !strings.Contains(s, `"0x1234567890123456789012345678901234567890"`) {
		t.Errorf("userAddress not substituted: %s", s)
	}

	// template itself must be untouched
	if template["chain"].(String) != ":chain" {
		t.Error("template mutated by Substitute")
	}
	if template["parameters"].(List)[0].(String) != ":userAddress" {
		t.Error("template list mutated by Substitute")
	}
}

func TestSubstituteLeavesUnknownLeaves(t *testing.T) {
	got := Substitute(Number(42), map[string]string{"x": "y"})
	if got.(Number) != 42 {
		t.Errorf("got %v", got)
	}
}
