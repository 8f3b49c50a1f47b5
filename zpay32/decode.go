package zpay32

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lninvoice/chainreg"
	"github.com/lightningnetwork/lninvoice/feature"
	"github.com/lightningnetwork/lninvoice/lnutils"
	"github.com/lightningnetwork/lninvoice/lnwire"
)

// decodeOptions holds the set of Decode options.
type decodeOptions struct {
	knownFeatures map[lnwire.FeatureBit]string
	maxLength     int
}

// defaultDecodeOptions returns the options used when Decode is called
// without any.
func defaultDecodeOptions() *decodeOptions {
	return &decodeOptions{
		knownFeatures: lnwire.Features,
	}
}

// DecodeOption is a type that can be used to supply functional options to
// the Decode function.
type DecodeOption func(*decodeOptions)

// WithKnownFeatureBits is a functional option that overwrites the set of
// known feature bits. If not set, then lnwire.Features is used. Even bits
// outside of this set make Decode fail.
func WithKnownFeatureBits(features map[lnwire.FeatureBit]string) DecodeOption {
	return func(options *decodeOptions) {
		options.knownFeatures = features
	}
}

// WithMaxInvoiceLength makes Decode reject invoices longer than maxLength
// characters with ErrInvoiceTooLarge. By default the length is not limited,
// as routing hints can make invoices arbitrarily long.
func WithMaxInvoiceLength(maxLength int) DecodeOption {
	return func(options *decodeOptions) {
		options.maxLength = maxLength
	}
}

// Decode parses the provided encoded invoice and returns a decoded Invoice if
// it is valid by BOLT-0011 and matches the provided active network. A nil net
// accepts any known network and infers it from the invoice prefix.
func Decode(invoice string, net *chaincfg.Params,
	opts ...DecodeOption) (*Invoice, error) {

	options := defaultDecodeOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.maxLength > 0 && len(invoice) > options.maxLength {
		return nil, fmt.Errorf("%w: %d characters, limit is %d",
			ErrInvoiceTooLarge, len(invoice), options.maxLength)
	}

	decodedInvoice := Invoice{}

	// Decode the invoice using the modified bech32 decoder.
	hrp, data, err := decodeBech32(invoice)
	if err != nil {
		return nil, err
	}

	// We expect the human-readable part to at least have ln + one char
	// encoding the network.
	if len(hrp) < 3 || !strings.HasPrefix(hrp, "ln") {
		return nil, fmt.Errorf("%w: prefix %q does not start with ln",
			ErrMalformedInvoice, hrp)
	}

	currency, amount := splitHRP(hrp[2:])
	decodedInvoice.Net, err = resolveNet(currency, net)
	if err != nil {
		return nil, err
	}

	// Optionally, if there's anything left of the HRP after ln + the
	// segwit prefix, we try to decode this as the payment amount.
	if len(amount) > 0 {
		msat, err := decodeAmount(amount)
		if err != nil {
			return nil, err
		}
		decodedInvoice.MilliSat = &msat
	}

	// Everything except the signature goes into the message to sign. The
	// signature itself is never handed to the field parser.
	if len(data) < timestampBase32Len+signatureBase32Len {
		return nil, fmt.Errorf("%w: data part of %d groups is too short",
			ErrMalformedInvoice, len(data))
	}
	invoiceData := data[:len(data)-signatureBase32Len]
	sigBase32 := data[len(data)-signatureBase32Len:]

	if err := parseData(&decodedInvoice, invoiceData, options); err != nil {
		return nil, err
	}

	// The signature is over the single SHA-256 hash of the hrp + the
	// tagged fields encoded in base256.
	taggedDataBytes, err := bech32.ConvertBits(invoiceData, 5, 8, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInvoice, err)
	}
	toSign := append([]byte(hrp), taggedDataBytes...)
	hash := chainhash.HashB(toSign)

	if err := resolveDestination(&decodedInvoice, sigBase32, hash); err != nil {
		return nil, err
	}

	// Only an invoice carrying feature bits is checked for unknown
	// required bits and missing dependencies.
	if firstOf[FeaturesField](&decodedInvoice).IsSome() {
		if err := feature.Validate(decodedInvoice.Features); err != nil {
			return nil, err
		}
	}

	log.Tracef("Decoded invoice: %v", lnutils.SpewLogClosure(
		&decodedInvoice,
	))

	return &decodedInvoice, nil
}

// decodeBech32 decodes the invoice without the length limit of the bech32
// standard. A checksum failure is reported as ErrChecksumMismatch.
func decodeBech32(invoice string) (string, []byte, error) {
	hrp, data, err := bech32.DecodeNoLimit(invoice)

	var checksumErr bech32.ErrInvalidChecksum
	switch {
	case errors.As(err, &checksumErr):
		return "", nil, fmt.Errorf("%w: %v", ErrChecksumMismatch, err)

	case err != nil:
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedInvoice, err)
	}

	// DecodeNoLimit accepts bech32m checksums as well and does not tell
	// which one it found. Invoices only use the original bech32 constant,
	// so the string must be what Encode produces for the same data.
	reencoded, err := bech32.Encode(hrp, data)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedInvoice, err)
	}
	if !strings.EqualFold(reencoded, invoice) {
		return "", nil, fmt.Errorf("%w: bech32m checksum",
			ErrChecksumMismatch)
	}

	return strings.ToLower(hrp), data, nil
}

// splitHRP splits the part of the human readable part following "ln" into
// the currency prefix and the amount. The currency prefix never contains a
// digit while an amount always starts with one.
func splitHRP(s string) (string, string) {
	i := strings.IndexFunc(s, func(r rune) bool {
		return r >= '0' && r <= '9'
	})
	if i < 0 {
		return s, ""
	}

	return s[:i], s[i:]
}

// resolveNet returns the network of an invoice with the given currency
// prefix. If net is set the prefix must be the one of net, otherwise the
// network is looked up by its prefix.
func resolveNet(currency string, net *chaincfg.Params) (*chaincfg.Params,
	error) {

	if net == nil {
		netParams, err := chainreg.ByInvoicePrefix(currency)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInvoice, err)
		}

		return netParams.Params, nil
	}

	if expected := chainreg.InvoicePrefix(net); currency != expected {
		return nil, fmt.Errorf("%w: invoice prefix %q, expected %q",
			ErrWrongNetwork, currency, expected)
	}

	return net, nil
}

// parseData parses the data part of the invoice. It expects base32 data
// returned from the bech32.Decode method, except signature.
func parseData(invoice *Invoice, data []byte, options *decodeOptions) error {
	// It must contain the timestamp, encoded using 35 bits (7 groups).
	if len(data) < timestampBase32Len {
		return fmt.Errorf("%w: data too short: %d", ErrMalformedInvoice,
			len(data))
	}

	t, err := base32ToUint64(data[:timestampBase32Len])
	if err != nil {
		return err
	}
	invoice.Timestamp = time.Unix(int64(t), 0)

	rawFields, err := parseTaggedFields(data[timestampBase32Len:])
	if err != nil {
		return err
	}

	var (
		paymentHash fn.Option[[32]byte]
		features    fn.Option[FeaturesField]
	)
	for _, raw := range rawFields {
		field, err := parseField(raw, invoice.Net)
		if err != nil {
			return err
		}

		switch f := field.(type) {
		case nil:
			log.Tracef("Skipping field %q with %d groups",
				bech32Char(raw.typ), len(raw.data))

		case unknownField:
			log.Tracef("Skipping unknown field type %d with %d "+
				"groups", raw.typ, len(raw.data))

		// Only the first payment hash and payment address are used,
		// they never end up in the generic fields.
		case paymentHashField:
			paymentHash = paymentHash.Alt(fn.Some([32]byte(f)))

		case paymentAddrField:
			invoice.PaymentAddr = invoice.PaymentAddr.Alt(
				fn.Some([32]byte(f)),
			)

		case FeaturesField:
			features = features.Alt(fn.Some(f))
			invoice.Fields = append(invoice.Fields, f)

		default:
			invoice.Fields = append(invoice.Fields, f)
		}
	}

	invoice.PaymentHash, err = paymentHash.UnwrapOrErr(fmt.Errorf(
		"%w: no payment hash found", ErrMalformedInvoice,
	))
	if err != nil {
		return err
	}

	// If no feature vector was decoded, populate an empty one.
	invoice.Features = lnwire.NewFeatureVector(nil, options.knownFeatures)
	features.WhenSome(func(f FeaturesField) {
		invoice.Features = lnwire.NewFeatureVector(
			f.Clone(), options.knownFeatures,
		)
	})

	return nil
}

// resolveDestination reads the signature and sets the payee of the invoice.
// With an explicit node id the signature is verified against it. Without
// one the key is recovered from the signature.
func resolveDestination(invoice *Invoice, sigBase32 []byte,
	hash []byte) error {

	sigBytes, err := bech32.ConvertBits(sigBase32, 5, 8, false)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInvoice, err)
	}
	sig, err := signatureFromBytes(sigBytes)
	if err != nil {
		return err
	}
	invoice.Signature = fn.Some(sig)

	nodeID := invoice.NodeID()
	if nodeID.IsSome() {
		pubKey := nodeID.UnwrapOr(nil)
		if err := sig.Verify(hash, pubKey); err != nil {
			return err
		}

		invoice.Destination = pubKey
		invoice.DestinationSource = DestinationVerified

		return nil
	}

	pubKey, err := sig.Recover(hash)
	if err != nil {
		return err
	}

	invoice.Destination = pubKey
	invoice.DestinationSource = DestinationRecovered

	log.Debugf("Recovered payee %v", lnutils.LogPubKey(pubKey))

	return nil
}
