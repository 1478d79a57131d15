package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		hrp  string
		msat uint64
	}{
		{"lnbc", 0},
		{"lnbc2500u", 250000000},
		{"lnbc1m", 100000000},
		{"lnbcrt1000n", 100000},
	}

	for _, c := range cases {
		got, err := parseAmount(c.hrp)
		require.NoError(t, err)
		require.EqualValues(t, c.msat, got)
	}
}

func TestDecodeInvalidInvoice(t *testing.T) {
	t.Parallel()

	_, err := Bolt11Codec{}.Decode("not an invoice")
	require.ErrorIs(t, err, ErrInvalidInvoice)
}
