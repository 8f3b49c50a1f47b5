package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lninvoice/feature"
	"github.com/lightningnetwork/lninvoice/lnutils"
	"github.com/lightningnetwork/lninvoice/lnwire"
	"github.com/lightningnetwork/lninvoice/zpay32"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli"
)

var errMissingArg = errors.New("argument missing")

var decodeInvoiceCommand = cli.Command{
	Name:     "decodeinvoice",
	Category: "Invoices",
	Usage:    "Decode an invoice.",
	Description: "Decode the passed invoice revealing the payee, " +
		"payment hash, amount and all other fields. The payee is " +
		"either recovered from the signature or, if the invoice " +
		"names it, verified against the signature.",
	ArgsUsage: "invoice",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "table",
			Usage: "Print tables instead of JSON.",
		},
	},
	Action: decodeInvoice,
}

func decodeInvoice(ctx *cli.Context) error {
	invoice, err := decodeArg(ctx)
	if err != nil {
		return err
	}

	resp := newDecodedInvoice(invoice)
	if ctx.Bool("table") {
		printTable(ctx.App.Writer, resp)
		return nil
	}

	return printJSON(ctx.App.Writer, resp)
}

// decodeArg decodes the invoice given as first argument on the configured
// network.
func decodeArg(ctx *cli.Context) (*zpay32.Invoice, error) {
	if !ctx.Args().Present() {
		return nil, fmt.Errorf("invoice %w", errMissingArg)
	}

	cfg := getConfig(ctx)
	netParams, err := cfg.NetParams()
	if err != nil {
		return nil, err
	}

	// A nil network makes the decoder take it from the invoice.
	var params *chaincfg.Params
	if netParams != nil {
		params = netParams.Params
	}

	invoice, err := zpay32.Decode(
		stripPrefix(ctx.Args().First()), params,
		cfg.Invoices.DecodeOptions()...,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to decode invoice: %w", err)
	}

	log.Debugf("Decoded invoice %v", lnutils.SpewLogClosure(invoice))

	return invoice, nil
}

// stripPrefix removes a "lightning:" URI prefix.
func stripPrefix(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 && strings.EqualFold(s[:10], "lightning:") {
		return s[10:]
	}

	return s
}

var encodeInvoiceCommand = cli.Command{
	Name:     "encodeinvoice",
	Category: "Invoices",
	Usage:    "Create and sign an invoice.",
	Description: "Assemble an invoice from the given fields and sign " +
		"it with the given private key. Expiry and final CLTV " +
		"delta default to the invoices section of the config.",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "privkey",
			Usage: "The hex encoded private key of the payee.",
		},
		cli.StringFlag{
			Name:  "payment_hash",
			Usage: "The hex encoded payment hash.",
		},
		cli.StringFlag{
			Name:  "payment_addr",
			Usage: "The hex encoded payment secret.",
		},
		cli.Uint64Flag{
			Name:  "amt_msat",
			Usage: "The amount in millisatoshis.",
		},
		cli.StringFlag{
			Name: "amt",
			Usage: "The amount in coins as a decimal, e.g. " +
				"0.0025.",
		},
		cli.StringFlag{
			Name:  "memo",
			Usage: "A description of the payment.",
		},
		cli.StringFlag{
			Name:  "description_hash",
			Usage: "The hex encoded hash of a long description.",
		},
		cli.StringFlag{
			Name:  "hash_description",
			Usage: "A long description to commit to by its hash.",
		},
		cli.Int64Flag{
			Name: "expiry",
			Usage: "The expiry in seconds, 0 leaves the field " +
				"out.",
		},
		cli.Uint64Flag{
			Name: "cltv_expiry",
			Usage: "The final CLTV delta, 0 leaves the field " +
				"out.",
		},
		cli.StringSliceFlag{
			Name:  "fallback_addr",
			Usage: "An on-chain fallback address, may be repeated.",
		},
		cli.StringSliceFlag{
			Name: "route_hint",
			Usage: "A route hint as comma separated hops of the " +
				"form node:chan_id:fee_base_msat:fee_ppm:" +
				"cltv_delta, may be repeated.",
		},
		cli.StringSliceFlag{
			Name:  "feature",
			Usage: "A feature bit to set along with the " +
				"features it depends on, may be repeated.",
		},
		cli.StringFlag{
			Name:  "metadata",
			Usage: "The hex encoded payment metadata.",
		},
		cli.Int64Flag{
			Name:  "timestamp",
			Usage: "The unix creation time, now if not set.",
		},
		cli.BoolFlag{
			Name: "node_id",
			Usage: "Include the payee key so payers verify " +
				"instead of recover it.",
		},
	},
	Action: encodeInvoice,
}

type encodedInvoice struct {
	Invoice     string `json:"invoice"`
	Payee       string `json:"payee"`
	PayeeSource string `json:"payee_source"`
}

func encodeInvoice(ctx *cli.Context) error {
	cfg := getConfig(ctx)
	netParams, err := cfg.NetParams()
	if err != nil {
		return err
	}
	if netParams == nil {
		return fmt.Errorf("invoices cannot be encoded with network " +
			"auto")
	}

	privKeyBytes, err := hexFlag(ctx, "privkey", true)
	if err != nil {
		return err
	}
	if len(privKeyBytes) != btcec.PrivKeyBytesLen {
		return fmt.Errorf("invalid privkey: expected %d bytes, got %d",
			btcec.PrivKeyBytesLen, len(privKeyBytes))
	}
	privKey, pubKey := btcec.PrivKeyFromBytes(privKeyBytes)

	paymentHash, err := hash32Flag(ctx, "payment_hash", true)
	if err != nil {
		return err
	}

	// Flags override the configured defaults.
	invoiceCfg := *cfg.Invoices
	if ctx.IsSet("expiry") {
		invoiceCfg.Expiry = time.Duration(ctx.Int64("expiry")) *
			time.Second
	}
	if ctx.IsSet("cltv_expiry") {
		invoiceCfg.CLTVDelta = ctx.Uint64("cltv_expiry")
	}
	opts := invoiceCfg.EncodeOptions()

	if ctx.IsSet("payment_addr") {
		addr, err := hash32Flag(ctx, "payment_addr", true)
		if err != nil {
			return err
		}
		opts = append(opts, zpay32.PaymentAddr(addr))
	}

	switch {
	case ctx.IsSet("amt_msat") && ctx.IsSet("amt"):
		return fmt.Errorf("either amt_msat or amt should be set, " +
			"but not both")

	case ctx.IsSet("amt_msat"):
		msat := lnwire.MilliSatoshi(ctx.Uint64("amt_msat"))
		opts = append(opts, zpay32.Amount(msat))

	case ctx.IsSet("amt"):
		amount, err := decimal.NewFromString(ctx.String("amt"))
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		msat, err := zpay32.AmountToMSat(amount)
		if err != nil {
			return err
		}
		opts = append(opts, zpay32.Amount(msat))
	}

	if ctx.IsSet("memo") {
		opts = append(opts, zpay32.Description(ctx.String("memo")))
	}

	if ctx.IsSet("description_hash") {
		h, err := hash32Flag(ctx, "description_hash", true)
		if err != nil {
			return err
		}
		opts = append(opts, zpay32.DescriptionHash(h))
	}

	if ctx.IsSet("hash_description") {
		opts = append(opts, zpay32.HashedDescription(
			ctx.String("hash_description"),
		))
	}

	for _, a := range ctx.StringSlice("fallback_addr") {
		addr, err := btcutil.DecodeAddress(a, netParams.Params)
		if err != nil {
			return fmt.Errorf("invalid fallback address %v: %w", a,
				err)
		}
		opts = append(opts, zpay32.FallbackAddr(addr))
	}

	for _, h := range ctx.StringSlice("route_hint") {
		hint, err := parseRouteHint(h)
		if err != nil {
			return err
		}
		opts = append(opts, zpay32.RouteHint(hint))
	}

	if bits := ctx.StringSlice("feature"); len(bits) > 0 {
		fv, err := parseFeatureBits(bits)
		if err != nil {
			return err
		}
		opts = append(opts, zpay32.Features(fv))
	}

	if ctx.IsSet("metadata") {
		metadata, err := hexFlag(ctx, "metadata", true)
		if err != nil {
			return err
		}
		opts = append(opts, zpay32.Metadata(metadata))
	}

	if ctx.Bool("node_id") {
		opts = append(opts, zpay32.Destination(pubKey))
	}

	var timestamp time.Time
	if ctx.IsSet("timestamp") {
		timestamp = time.Unix(ctx.Int64("timestamp"), 0)
	}

	invoice, err := zpay32.NewInvoice(
		netParams.Params, paymentHash, timestamp, opts...,
	)
	if err != nil {
		return err
	}

	encoded, err := invoice.Encode(zpay32.NewPrivKeySigner(privKey))
	if err != nil {
		return fmt.Errorf("unable to encode invoice: %w", err)
	}

	return printJSON(ctx.App.Writer, &encodedInvoice{
		Invoice: encoded,
		Payee: hex.EncodeToString(
			invoice.Destination.SerializeCompressed(),
		),
		PayeeSource: invoice.DestinationSource.String(),
	})
}

// hexFlag decodes a hex encoded string flag.
func hexFlag(ctx *cli.Context, name string, required bool) ([]byte, error) {
	if !ctx.IsSet(name) {
		if required {
			return nil, fmt.Errorf("%v %w", name, errMissingArg)
		}

		return nil, nil
	}

	b, err := hex.DecodeString(ctx.String(name))
	if err != nil {
		return nil, fmt.Errorf("invalid %v: %w", name, err)
	}

	return b, nil
}

// hash32Flag decodes a hex encoded 32 byte flag.
func hash32Flag(ctx *cli.Context, name string, required bool) ([32]byte,
	error) {

	var h [32]byte
	b, err := hexFlag(ctx, name, required)
	if err != nil {
		return h, err
	}
	if len(b) != chainhash.HashSize {
		return h, fmt.Errorf("invalid %v: expected %d bytes, got %d",
			name, chainhash.HashSize, len(b))
	}
	copy(h[:], b)

	return h, nil
}

// parseRouteHint parses a route hint of comma separated hops, each of the
// form node:chan_id:fee_base_msat:fee_ppm:cltv_delta. The channel id may be
// given as an integer or in BxTxO form.
func parseRouteHint(s string) ([]zpay32.HopHint, error) {
	var hint []zpay32.HopHint
	for _, hop := range strings.Split(s, ",") {
		parts := strings.Split(hop, ":")
		if len(parts) != 5 {
			return nil, fmt.Errorf("invalid hop hint %q: expected "+
				"5 colon separated parts", hop)
		}

		nodeBytes, err := hex.DecodeString(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid hop node %q: %w",
				parts[0], err)
		}
		nodeID, err := btcec.ParsePubKey(nodeBytes)
		if err != nil {
			return nil, fmt.Errorf("invalid hop node %q: %w",
				parts[0], err)
		}

		chanID, err := lnwire.ParseShortChannelID(parts[1])
		if err != nil {
			return nil, err
		}

		var nums [3]uint64
		for i, bitSize := range []int{32, 32, 16} {
			nums[i], err = strconv.ParseUint(parts[i+2], 10, bitSize)
			if err != nil {
				return nil, fmt.Errorf("invalid hop hint %q: %w",
					hop, err)
			}
		}

		hint = append(hint, zpay32.HopHint{
			NodeID:                    nodeID,
			ChannelID:                 chanID.ToUint64(),
			FeeBaseMSat:               uint32(nums[0]),
			FeeProportionalMillionths: uint32(nums[1]),
			CLTVExpiryDelta:           uint16(nums[2]),
		})
	}

	return hint, nil
}

// parseFeatureBits builds a feature vector from decimal bit numbers. Every
// bit is set with its dependencies, so a required bit pulls in required
// dependencies. Naming both bits of a pair is an error.
func parseFeatureBits(bits []string) (*lnwire.FeatureVector, error) {
	fv := lnwire.NewFeatureVector(nil, lnwire.Features)
	named := make(map[lnwire.FeatureBit]struct{}, len(bits))
	for _, b := range bits {
		n, err := strconv.ParseUint(b, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid feature bit %q: %w", b,
				err)
		}

		bit := lnwire.FeatureBit(n)
		if _, ok := named[bit^1]; ok {
			return nil, fmt.Errorf("invalid feature bit %v: %w",
				bit, lnwire.ErrFeaturePairExists)
		}
		named[bit] = struct{}{}

		fv = feature.SetBit(fv, bit)
	}

	return fv, nil
}

var compareFeaturesCommand = cli.Command{
	Name:     "comparefeatures",
	Category: "Invoices",
	Usage:    "Check that an invoice can be paid with our features.",
	Description: "Decode the invoice and compare its features with " +
		"the given feature bits we require. Bits without a meaning " +
		"in invoices are ignored. On success the negotiated " +
		"features are printed.",
	ArgsUsage: "invoice [bit...]",
	Action:    compareFeatures,
}

type comparedFeatures struct {
	Features map[uint16]featureInfo `json:"features"`
}

func compareFeatures(ctx *cli.Context) error {
	invoice, err := decodeArg(ctx)
	if err != nil {
		return err
	}

	ours, err := parseFeatureBits(ctx.Args().Tail())
	if err != nil {
		return err
	}

	negotiated, err := invoice.ValidateAndCompareFeatures(
		ours.RawFeatureVector,
	)
	if err != nil {
		return err
	}

	resp := &comparedFeatures{
		Features: make(map[uint16]featureInfo),
	}
	for _, bit := range negotiated.Bits() {
		resp.Features[uint16(bit)] = featureInfo{
			Name:       negotiated.Name(bit),
			IsRequired: bit.IsRequired(),
			IsKnown:    negotiated.IsKnown(bit),
		}
	}

	return printJSON(ctx.App.Writer, resp)
}

var shortenCommand = cli.Command{
	Name:      "shorten",
	Category:  "Amounts",
	Usage:     "Render an amount in coins the way invoices do.",
	ArgsUsage: "amount",
	Action:    shorten,
}

type shortenedAmount struct {
	Amount    string `json:"amount"`
	Shortened string `json:"shortened"`
	NumMsat   uint64 `json:"num_msat"`
}

func shorten(ctx *cli.Context) error {
	if !ctx.Args().Present() {
		return fmt.Errorf("amount %w", errMissingArg)
	}

	amount, err := decimal.NewFromString(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	shortened, err := zpay32.ShortenAmount(amount)
	if err != nil {
		return err
	}

	return printAmount(ctx, amount, shortened)
}

var unshortenCommand = cli.Command{
	Name:      "unshorten",
	Category:  "Amounts",
	Usage:     "Parse an amount in invoice notation, e.g. 2500u.",
	ArgsUsage: "amount",
	Action:    unshorten,
}

func unshorten(ctx *cli.Context) error {
	if !ctx.Args().Present() {
		return fmt.Errorf("amount %w", errMissingArg)
	}

	amount, err := zpay32.UnshortenAmount(ctx.Args().First())
	if err != nil {
		return err
	}

	shortened, err := zpay32.ShortenAmount(amount)
	if err != nil {
		return err
	}

	return printAmount(ctx, amount, shortened)
}

func printAmount(ctx *cli.Context, amount decimal.Decimal,
	shortened string) error {

	msat, err := zpay32.AmountToMSat(amount)
	if err != nil {
		return err
	}

	return printJSON(ctx.App.Writer, &shortenedAmount{
		Amount:    amount.String(),
		Shortened: shortened,
		NumMsat:   uint64(msat),
	})
}
