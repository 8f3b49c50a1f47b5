package zpay32

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lninvoice/feature"
	"github.com/lightningnetwork/lninvoice/lnwire"
)

// defaultClock stamps invoices created without a timestamp.
var defaultClock = clock.NewDefaultClock()

const (
	// mSatPerBtc is the number of millisatoshis in 1 BTC.
	mSatPerBtc = 100000000000

	// signatureBase32Len is the number of 5-bit groups needed to encode
	// the 512 bit signature + 8 bit recovery ID.
	signatureBase32Len = 104

	// timestampBase32Len is the number of 5-bit groups needed to encode
	// the 35-bit timestamp.
	timestampBase32Len = 7

	// maxTimestamp is the largest timestamp that fits in 35 bits.
	maxTimestamp = 1<<35 - 1

	// MaxInvoiceLength is the anti-DoS length limit lnd nodes apply to the
	// invoices they decode. Decode only enforces a limit when asked to
	// with WithMaxInvoiceLength.
	MaxInvoiceLength = 7089

	// DefaultInvoiceExpiry is the default expiry duration from the
	// creation timestamp if expiry is set to zero.
	DefaultInvoiceExpiry = time.Hour

	// DefaultFinalCLTVDelta is the minimum CLTV delta of the final hop to
	// assume when an invoice carries no 'c' field.
	DefaultFinalCLTVDelta = 18
)

// MessageSigner is passed to the Encode method to provide a signature
// corresponding to the node's pubkey.
type MessageSigner struct {
	// SignCompact signs the hash of the passed msg with the node's privkey.
	// The returned signature should be 65 bytes, where the last 64 bytes
	// are the compact signature, and the first one is a header byte. This
	// is the format returned by ecdsa.SignCompact.
	SignCompact func(msg []byte) ([]byte, error)
}

// DestinationSource tells how the payee of a decoded invoice was resolved.
type DestinationSource uint8

const (
	// DestinationUnknown means the invoice was neither signed nor decoded.
	DestinationUnknown DestinationSource = iota

	// DestinationRecovered means the payee key was recovered from the
	// signature. A corrupted signature still recovers some key, so this
	// only says which key signed the invoice.
	DestinationRecovered

	// DestinationVerified means the invoice carried an explicit node id
	// and the signature was verified against it.
	DestinationVerified
)

// String returns a human-readable name of the source.
func (s DestinationSource) String() string {
	switch s {
	case DestinationRecovered:
		return "recovered"
	case DestinationVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// Invoice represents a decoded invoice, or to-be-encoded invoice. Some of the
// fields are optional, and will only be non-nil if the invoice this was
// parsed from contains that field. When encoding, only the non-nil fields
// will be added to the encoded invoice.
type Invoice struct {
	// Net specifies what network this Lightning invoice is meant for.
	Net *chaincfg.Params

	// MilliSat specifies the amount of this invoice in millisatoshi.
	// Optional.
	MilliSat *lnwire.MilliSatoshi

	// Timestamp specifies the time this invoice was created.
	// Mandatory
	Timestamp time.Time

	// PaymentHash is the payment hash to be used for a payment to this
	// invoice. It is always the first field of an encoded invoice.
	PaymentHash [32]byte

	// PaymentAddr is the payment address to be used by payments to prevent
	// probing of the destination. It is encoded right after the payment
	// hash when set.
	PaymentAddr fn.Option[[32]byte]

	// Fields holds the remaining fields in the order they are encoded or
	// were decoded. Fields of an unknown type are dropped on decode.
	Fields []TaggedField

	// Features represents an optional field used to signal optional or
	// required support for features by the receiver. When not empty it
	// replaces the first FeaturesField on encode, or is appended as the
	// last field. A decoded invoice always has it set, with the bits of
	// the first FeaturesField.
	Features *lnwire.FeatureVector

	// Destination is the public key of the payee. It is set by Encode and
	// Decode, and DestinationSource tells how it was obtained.
	Destination *btcec.PublicKey

	// DestinationSource tells whether Destination was recovered from the
	// signature or verified against an explicit node id.
	DestinationSource DestinationSource

	// Signature is the signature over the invoice. It is set by Encode
	// and Decode.
	Signature fn.Option[Signature]
}

// Amount is a functional option that allows callers of NewInvoice to set the
// amount in millisatoshis that the Invoice should encode.
func Amount(milliSat lnwire.MilliSatoshi) func(*Invoice) {
	return func(i *Invoice) {
		i.MilliSat = &milliSat
	}
}

// PaymentAddr is a functional option that allows callers of NewInvoice to set
// the desired payment address that is advertised on the invoice.
func PaymentAddr(addr [32]byte) func(*Invoice) {
	return func(i *Invoice) {
		i.PaymentAddr = fn.Some(addr)
	}
}

// Description is a functional option that allows callers of NewInvoice to
// add a short description field.
func Description(description string) func(*Invoice) {
	return func(i *Invoice) {
		i.Fields = append(i.Fields, DescriptionField(description))
	}
}

// DescriptionHash is a functional option that allows callers of NewInvoice to
// add an already computed description hash.
func DescriptionHash(descriptionHash [32]byte) func(*Invoice) {
	return func(i *Invoice) {
		i.Fields = append(
			i.Fields, DescriptionHashField(descriptionHash),
		)
	}
}

// HashedDescription is a functional option that allows callers of NewInvoice
// to commit to a long description. Only its SHA-256 hash is encoded.
func HashedDescription(description string) func(*Invoice) {
	return func(i *Invoice) {
		i.Fields = append(i.Fields, HashedDescriptionField(description))
	}
}

// Destination is a functional option that allows callers of NewInvoice to
// explicitly set the pubkey of the Invoice's destination node. Decoders will
// then verify the signature against it.
func Destination(destination *btcec.PublicKey) func(*Invoice) {
	return func(i *Invoice) {
		i.Fields = append(i.Fields, NodeIDField{PubKey: destination})
	}
}

// Expiry is a functional option that allows callers of NewInvoice to set the
// expiry of the created Invoice. If not set, a default expiry of 60 min will
// be implied.
func Expiry(expiry time.Duration) func(*Invoice) {
	return func(i *Invoice) {
		i.Fields = append(i.Fields, ExpiryField(expiry))
	}
}

// CLTVExpiry is an optional value which allows the receiver of the payment to
// specify the delta between the current height and the HTLC extended to the
// receiver.
func CLTVExpiry(delta uint64) func(*Invoice) {
	return func(i *Invoice) {
		i.Fields = append(i.Fields, MinFinalCLTVField(delta))
	}
}

// FallbackAddr is a functional option that allows callers of NewInvoice to
// add an on-chain fallback address. It can be given several times.
func FallbackAddr(fallbackAddr btcutil.Address) func(*Invoice) {
	return func(i *Invoice) {
		i.Fields = append(i.Fields, FallbackAddrField{Addr: fallbackAddr})
	}
}

// RouteHint is a functional option that allows callers of NewInvoice to add
// one or more hop hints in order to assist the payer in reaching the payee
// through private channels.
func RouteHint(routeHint []HopHint) func(*Invoice) {
	return func(i *Invoice) {
		i.Fields = append(i.Fields, RouteHintField(routeHint))
	}
}

// Features is a functional option that allows callers of NewInvoice to set
// the desired feature bits that are advertised on the invoice.
func Features(features *lnwire.FeatureVector) func(*Invoice) {
	return func(i *Invoice) {
		i.Features = features
	}
}

// Metadata is a functional option that allows callers of NewInvoice to set
// the desired payment Metadata that is advertised on the invoice.
func Metadata(metadata []byte) func(*Invoice) {
	return func(i *Invoice) {
		i.Fields = append(i.Fields, MetadataField(metadata))
	}
}

// Clock is a functional option that allows callers of NewInvoice to set the
// clock a zero timestamp is taken from.
func Clock(c clock.Clock) func(*Invoice) {
	return func(i *Invoice) {
		if i.Timestamp.IsZero() {
			i.Timestamp = c.Now()
		}
	}
}

// NewInvoice creates a new Invoice object. The last parameter is a set of
// variadic arguments for setting optional fields of the invoice. A zero
// timestamp is replaced by the current time of the Clock option, or of the
// system clock without one.
//
// NOTE: Use this method to create invoices that are going to be encoded and
// sent to a payer.
func NewInvoice(net *chaincfg.Params, paymentHash [32]byte,
	timestamp time.Time, options ...func(*Invoice)) (*Invoice, error) {

	invoice := &Invoice{
		Net:         net,
		PaymentHash: paymentHash,
		Timestamp:   timestamp,
	}

	for _, option := range options {
		option(invoice)
	}

	if invoice.Timestamp.IsZero() {
		invoice.Timestamp = defaultClock.Now()
	}

	if err := validateInvoice(invoice); err != nil {
		return nil, err
	}

	return invoice, nil
}

// validateInvoice does a sanity check of the provided Invoice, making sure it
// can be encoded.
func validateInvoice(invoice *Invoice) error {
	// The net must be set.
	if invoice.Net == nil {
		return fmt.Errorf("net params not set")
	}

	ts := invoice.Timestamp.Unix()
	if ts < 0 || ts > maxTimestamp {
		return fmt.Errorf("timestamp %d does not fit in 35 bits", ts)
	}

	if invoice.MilliSat != nil && *invoice.MilliSat > lnwire.MaxMilliSatoshi {
		return fmt.Errorf("%w: %v", ErrAmountNotRepresentable,
			*invoice.MilliSat)
	}

	for i, field := range invoice.Fields {
		switch f := field.(type) {
		case nil:
			return fmt.Errorf("field %d is nil", i)

		case DescriptionField:
			if !utf8.ValidString(string(f)) {
				return fmt.Errorf("field %d: description is "+
					"not valid UTF-8", i)
			}
		}
	}

	return nil
}

// fieldsOf returns the fields of the given variant, in order.
func fieldsOf[T TaggedField](invoice *Invoice) []T {
	var fields []T
	for _, field := range invoice.Fields {
		if f, ok := field.(T); ok {
			fields = append(fields, f)
		}
	}

	return fields
}

// firstOf returns the first field of the given variant.
func firstOf[T TaggedField](invoice *Invoice) fn.Option[T] {
	for _, field := range invoice.Fields {
		if f, ok := field.(T); ok {
			return fn.Some(f)
		}
	}

	return fn.None[T]()
}

// Description returns the first short description of the invoice.
func (invoice *Invoice) Description() fn.Option[string] {
	return fn.MapOption(func(d DescriptionField) string {
		return string(d)
	})(firstOf[DescriptionField](invoice))
}

// DescriptionHash returns the first description hash of the invoice. A
// HashedDescriptionField is hashed on the fly.
func (invoice *Invoice) DescriptionHash() fn.Option[[32]byte] {
	for _, field := range invoice.Fields {
		switch f := field.(type) {
		case DescriptionHashField:
			return fn.Some([32]byte(f))

		case HashedDescriptionField:
			return fn.Some([32]byte(chainhash.HashH([]byte(f))))
		}
	}

	return fn.None[[32]byte]()
}

// Expiry returns the expiry time for this invoice. If expiry time is not
// set explicitly, the default 3600 second expiry will be returned.
func (invoice *Invoice) Expiry() time.Duration {
	expiry := firstOf[ExpiryField](invoice)

	return time.Duration(expiry.UnwrapOr(ExpiryField(DefaultInvoiceExpiry)))
}

// MinFinalCLTVExpiry returns the minimum final CLTV expiry delta as specified
// by the creator of the invoice. This value specifies the delta between the
// current height and the expiry height of the HTLC extended in the last hop.
// Without a 'c' field the default of 18 blocks applies.
func (invoice *Invoice) MinFinalCLTVExpiry() uint64 {
	delta := firstOf[MinFinalCLTVField](invoice)

	return uint64(delta.UnwrapOr(DefaultFinalCLTVDelta))
}

// FallbackAddrs returns every fallback address of the invoice, in order.
func (invoice *Invoice) FallbackAddrs() []btcutil.Address {
	var addrs []btcutil.Address
	for _, f := range fieldsOf[FallbackAddrField](invoice) {
		addrs = append(addrs, f.Addr)
	}

	return addrs
}

// RouteHints returns every routing hint of the invoice, in order.
func (invoice *Invoice) RouteHints() [][]HopHint {
	var hints [][]HopHint
	for _, f := range fieldsOf[RouteHintField](invoice) {
		hints = append(hints, []HopHint(f))
	}

	return hints
}

// Metadata returns the first payment metadata of the invoice.
func (invoice *Invoice) Metadata() fn.Option[[]byte] {
	return fn.MapOption(func(m MetadataField) []byte {
		return []byte(m)
	})(firstOf[MetadataField](invoice))
}

// NodeID returns the explicitly claimed payee key, if the invoice has one.
func (invoice *Invoice) NodeID() fn.Option[*btcec.PublicKey] {
	return fn.MapOption(func(n NodeIDField) *btcec.PublicKey {
		return n.PubKey
	})(firstOf[NodeIDField](invoice))
}

// features returns the features the invoice advertises: the Features
// attribute when set, the first FeaturesField otherwise.
func (invoice *Invoice) features() *lnwire.FeatureVector {
	if invoice.Features != nil && !invoice.Features.IsEmpty() {
		return invoice.Features
	}

	raw := fn.MapOption(func(f FeaturesField) *lnwire.RawFeatureVector {
		return f.RawFeatureVector
	})(firstOf[FeaturesField](invoice)).UnwrapOr(nil)

	return lnwire.NewFeatureVector(raw, lnwire.Features)
}

// ValidateAndCompareFeatures checks that the features we require, restricted
// to the ones that have a meaning in an invoice, are compatible with the
// features of the invoice. The negotiated feature vector is returned.
func (invoice *Invoice) ValidateAndCompareFeatures(
	required *lnwire.RawFeatureVector) (*lnwire.FeatureVector, error) {

	ours := feature.ForInvoice(
		lnwire.NewFeatureVector(required, lnwire.Features),
	)

	return feature.Compare(ours, invoice.features())
}
