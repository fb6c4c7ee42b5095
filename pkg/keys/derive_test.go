package keys

import (
	"regexp"
	"testing"
)

var hex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

func TestDerive(t *testing.T) {
	pair, err := Derive("content-42")
	if err != nil {
		t.Fatal(err)
	}
	if !hex32.MatchString(pair.Kid) {
		t.Errorf("kid %q is not 32 hex chars", pair.Kid)
	}
	if !hex32.MatchString(pair.Key) {
		t.Errorf("key %q is not 32 hex chars", pair.Key)
	}
	if pair.Kid == pair.Key {
		t.Error("kid and key must differ")
	}
}

func TestDeriveWithSeedDeterministic(t *testing.T) {
	seed := [16]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	a := DeriveWithSeed("content-42", seed)
	b := DeriveWithSeed("content-42", seed)
	if a != b {
		t.Errorf("same (salt, seed) produced %v and %v", a, b)
	}
	c := DeriveWithSeed("content-43", seed)
	if c.Key == a.Key {
		t.Error("distinct salts produced the same key")
	}
	if c.Kid != a.Kid {
		t.Error("kid must depend on the seed only")
	}
}

func TestDeriveDistinctSeeds(t *testing.T) {
	a, err := Derive("content-42")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Derive("content-42")
	if err != nil {
		t.Fatal(err)
	}
	if a.Key == b.Key {
		t.Error("distinct seeds produced the same key")
	}
}

func TestSanitize(t *testing.T) {
	in := "DEAD-BEEF-0123"
	once := Sanitize(in)
	if once != "deadbeef0123" {
		t.Errorf("got %q", once)
	}
	if Sanitize(once) != once {
		t.Error("sanitize is not idempotent")
	}
}
