package chainreg

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	litecoinCfg "github.com/ltcsuite/ltcd/chaincfg"
)

// ChainCode is an enum-like structure for keeping track of the chains
// currently supported within lninvoice.
type ChainCode uint32

const (
	// BitcoinChain is Bitcoin's chain.
	BitcoinChain ChainCode = iota

	// LitecoinChain is Litecoin's chain.
	LitecoinChain
)

// String returns a string representation of the target ChainCode.
func (c ChainCode) String() string {
	switch c {
	case BitcoinChain:
		return "bitcoin"
	case LitecoinChain:
		return "litecoin"
	default:
		return "kekcoin"
	}
}

// ErrUnknownNetwork is returned when a network name or invoice prefix does
// not belong to any known network.
var ErrUnknownNetwork = errors.New("unknown network")

// NetParams couples the chain parameters of a network with the currency
// prefix that identifies it in a bolt11 invoice.
type NetParams struct {
	*chaincfg.Params

	// Chain is the chain the network belongs to.
	Chain ChainCode

	// InvoicePrefix is the currency prefix following "ln" in the human
	// readable part of an invoice.
	InvoicePrefix string
}

// BitcoinMainNetParams contains parameters specific to the current Bitcoin
// mainnet.
var BitcoinMainNetParams = NetParams{
	Params:        &chaincfg.MainNetParams,
	Chain:         BitcoinChain,
	InvoicePrefix: "bc",
}

// BitcoinTestNetParams contains parameters specific to the 3rd version of the
// test network.
var BitcoinTestNetParams = NetParams{
	Params:        &chaincfg.TestNet3Params,
	Chain:         BitcoinChain,
	InvoicePrefix: "tb",
}

// BitcoinSigNetParams contains parameters specific to the default signet
// test network. Signet shares its segwit prefix with testnet, so invoices
// carry an extra "s".
var BitcoinSigNetParams = NetParams{
	Params:        &chaincfg.SigNetParams,
	Chain:         BitcoinChain,
	InvoicePrefix: "tbs",
}

// BitcoinRegTestNetParams contains parameters specific to a local bitcoin
// regtest network.
var BitcoinRegTestNetParams = NetParams{
	Params:        &chaincfg.RegressionNetParams,
	Chain:         BitcoinChain,
	InvoicePrefix: "bcrt",
}

// BitcoinSimNetParams contains parameters specific to the simulation test
// network.
var BitcoinSimNetParams = NetParams{
	Params:        &chaincfg.SimNetParams,
	Chain:         BitcoinChain,
	InvoicePrefix: "sb",
}

// LitecoinMainNetParams contains the parameters specific to the current
// Litecoin mainnet.
var LitecoinMainNetParams = NetParams{
	Params:        applyLitecoinParams(&litecoinCfg.MainNetParams),
	Chain:         LitecoinChain,
	InvoicePrefix: "ltc",
}

// LitecoinTestNetParams contains parameters specific to the 4th version of
// the Litecoin test network.
var LitecoinTestNetParams = NetParams{
	Params:        applyLitecoinParams(&litecoinCfg.TestNet4Params),
	Chain:         LitecoinChain,
	InvoicePrefix: "tltc",
}

// networks maps the user facing network names to their parameters.
var networks = map[string]*NetParams{
	"mainnet":          &BitcoinMainNetParams,
	"testnet":          &BitcoinTestNetParams,
	"signet":           &BitcoinSigNetParams,
	"regtest":          &BitcoinRegTestNetParams,
	"simnet":           &BitcoinSimNetParams,
	"litecoin":         &LitecoinMainNetParams,
	"litecoin-testnet": &LitecoinTestNetParams,
}

func init() {
	// Registering the converted Litecoin parameters lets btcutil decode
	// their segwit addresses.
	for _, params := range []*NetParams{
		&LitecoinMainNetParams, &LitecoinTestNetParams,
	} {
		err := chaincfg.Register(params.Params)
		if err != nil && !errors.Is(err, chaincfg.ErrDuplicateNet) {
			panic(fmt.Sprintf("unable to register %v: %v",
				params.Name, err))
		}
	}
}

// applyLitecoinParams converts the relevant chain configuration parameters of
// a litecoin network to the chain parameters typed for btcsuite derivation.
// The result is a fresh copy, the btcd globals are left untouched.
func applyLitecoinParams(ltcParams *litecoinCfg.Params) *chaincfg.Params {
	params := &chaincfg.Params{
		Name:        ltcParams.Name,
		Net:         wire.BitcoinNet(ltcParams.Net),
		DefaultPort: ltcParams.DefaultPort,

		// Address encoding magics.
		PubKeyHashAddrID:        ltcParams.PubKeyHashAddrID,
		ScriptHashAddrID:        ltcParams.ScriptHashAddrID,
		PrivateKeyID:            ltcParams.PrivateKeyID,
		WitnessPubKeyHashAddrID: ltcParams.WitnessPubKeyHashAddrID,
		WitnessScriptHashAddrID: ltcParams.WitnessScriptHashAddrID,
		Bech32HRPSegwit:         ltcParams.Bech32HRPSegwit,

		HDCoinType: ltcParams.HDCoinType,
	}

	var genesisHash chainhash.Hash
	copy(genesisHash[:], ltcParams.GenesisHash[:])
	params.GenesisHash = &genesisHash

	copy(params.HDPrivateKeyID[:], ltcParams.HDPrivateKeyID[:])
	copy(params.HDPublicKeyID[:], ltcParams.HDPublicKeyID[:])

	checkPoints := make([]chaincfg.Checkpoint, len(ltcParams.Checkpoints))
	for i, checkpoint := range ltcParams.Checkpoints {
		var chainHash chainhash.Hash
		copy(chainHash[:], checkpoint.Hash[:])

		checkPoints[i] = chaincfg.Checkpoint{
			Height: checkpoint.Height,
			Hash:   &chainHash,
		}
	}
	params.Checkpoints = checkPoints

	return params
}

// ByName returns the network registered under the given user facing name.
func ByName(name string) (*NetParams, error) {
	params, ok := networks[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}

	return params, nil
}

// ByInvoicePrefix returns the network whose invoice currency prefix is
// exactly currency.
func ByInvoicePrefix(currency string) (*NetParams, error) {
	for _, params := range networks {
		if params.InvoicePrefix == currency {
			return params, nil
		}
	}

	log.Debugf("No network for invoice currency prefix %q", currency)

	return nil, fmt.Errorf("%w: invoice prefix %q", ErrUnknownNetwork,
		currency)
}

// ByParams returns the network entry for a set of chain parameters, matched
// by network magic and name.
func ByParams(params *chaincfg.Params) (*NetParams, error) {
	for _, netParams := range networks {
		if netParams.Net == params.Net &&
			netParams.Name == params.Name {

			return netParams, nil
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrUnknownNetwork, params.Name)
}

// InvoicePrefix returns the currency prefix to use in invoices for the given
// chain parameters. Unlisted networks fall back to their segwit prefix,
// except custom signets which always use "tbs".
func InvoicePrefix(params *chaincfg.Params) string {
	if netParams, err := ByParams(params); err == nil {
		return netParams.InvoicePrefix
	}

	if params.Name == chaincfg.SigNetParams.Name {
		return BitcoinSigNetParams.InvoicePrefix
	}

	return params.Bech32HRPSegwit
}

// Names returns the user facing names of all known networks, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(networks))
}
