package chainreg

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

// TestInvoicePrefixes checks the prefix of every known network in both lookup
// directions.
func TestInvoicePrefixes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		chain  ChainCode
		segwit string
	}{
		{"mainnet", "bc", BitcoinChain, "bc"},
		{"testnet", "tb", BitcoinChain, "tb"},
		{"signet", "tbs", BitcoinChain, "tb"},
		{"regtest", "bcrt", BitcoinChain, "bcrt"},
		{"simnet", "sb", BitcoinChain, "sb"},
		{"litecoin", "ltc", LitecoinChain, "ltc"},
		{"litecoin-testnet", "tltc", LitecoinChain, "tltc"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			byName, err := ByName(test.name)
			require.NoError(t, err)
			require.Equal(t, test.prefix, byName.InvoicePrefix)
			require.Equal(t, test.chain, byName.Chain)
			require.Equal(t, test.segwit, byName.Bech32HRPSegwit)

			byPrefix, err := ByInvoicePrefix(test.prefix)
			require.NoError(t, err)
			require.Same(t, byName, byPrefix)

			require.Equal(t, test.prefix, InvoicePrefix(byName.Params))
		})
	}
}

func TestUnknownNetwork(t *testing.T) {
	t.Parallel()

	_, err := ByName("dogecoin")
	require.ErrorIs(t, err, ErrUnknownNetwork)

	_, err = ByInvoicePrefix("xyz")
	require.ErrorIs(t, err, ErrUnknownNetwork)

	// Prefixes are matched exactly, never by their leading characters.
	_, err = ByInvoicePrefix("t")
	require.ErrorIs(t, err, ErrUnknownNetwork)
}

// TestCustomSignetPrefix asserts that a signet with a custom challenge still
// uses the signet invoice prefix.
func TestCustomSignetPrefix(t *testing.T) {
	t.Parallel()

	custom := chaincfg.CustomSignetParams([]byte{0x51}, nil)
	require.Equal(t, "tbs", InvoicePrefix(&custom))
}

// TestLitecoinAddresses checks that the converted Litecoin parameters can be
// used to decode and encode Litecoin addresses.
func TestLitecoinAddresses(t *testing.T) {
	t.Parallel()

	addrs := []string{
		"LKes97HFbh3dxrvhiMohYXyzYJPTK37n7u",
		"MLy36ApB4YZb2cBtTc1uYJhYsP2JkYokaf",
		"ltc1qw508d6qejxtdg4y5r3zarvary0c5xw7kgmn4n9",
		"ltc1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qmu8tk5",
	}

	for _, addr := range addrs {
		decoded, err := btcutil.DecodeAddress(
			addr, LitecoinMainNetParams.Params,
		)
		require.NoError(t, err, addr)
		require.Equal(t, addr, decoded.EncodeAddress())
		require.True(t, decoded.IsForNet(LitecoinMainNetParams.Params))
	}
}

func TestNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{
		"litecoin", "litecoin-testnet", "mainnet", "regtest", "signet",
		"simnet", "testnet",
	}, Names())
}
