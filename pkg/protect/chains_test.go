package protect

import "testing"

func TestChainName(t *testing.T) {
	cases := []struct {
		id   int
		want string
	}{
		{1, "ethereum"},
		{137, "polygon"},
		{11155111, "sepolia"},
		{999999, "ethereum"},
		{0, "ethereum"},
		{-5, "ethereum"},
	}
	for _, c := range cases {
		if got := ChainName(c.id); got != c.want {
			t.Errorf("ChainName(%d) = %q, want %q", c.id, got, c.want)
		}
	}
}
