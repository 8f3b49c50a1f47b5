package zpay32

import (
	"bytes"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lninvoice/lnwire"
)

const (
	// The following constants are the field type numbers of the tagged
	// fields, i.e. the value of the bech32 character naming the field.

	// fieldTypeP is the field containing the payment hash.
	fieldTypeP = 1

	// fieldTypeD contains a short description of the payment.
	fieldTypeD = 13

	// fieldTypeM contains the payment metadata.
	fieldTypeM = 27

	// fieldTypeN contains the pubkey of the target node.
	fieldTypeN = 19

	// fieldTypeH contains the hash of a description of the payment.
	fieldTypeH = 23

	// fieldTypeX contains the expiry in seconds of the invoice.
	fieldTypeX = 6

	// fieldTypeF contains a fallback on-chain address.
	fieldTypeF = 9

	// fieldTypeR contains extra routing information.
	fieldTypeR = 3

	// fieldTypeC contains an optional requested final CLTV delta.
	fieldTypeC = 24

	// fieldType9 contains one or more bytes for signaling features
	// supported or required by the receiver.
	fieldType9 = 5

	// fieldTypeS contains a 32-byte payment address, which is a nonce
	// included in the final hop's payload to prevent intermediaries from
	// probing the recipient.
	fieldTypeS = 16
)

// bech32Charset is the alphabet of the data part, indexed by group value.
const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

const (
	// hashBase32Len is the number of 5-bit groups needed to encode a
	// 32-byte hash. Because 256 is not divisible by 5, the last group is
	// padded with zeroes.
	hashBase32Len = 52

	// pubKeyBase32Len is the number of 5-bit groups needed to encode a
	// 33-byte compressed pubkey.
	pubKeyBase32Len = 53

	// fallbackVersionPubkeyHash is the fallback version for a P2PKH
	// address.
	fallbackVersionPubkeyHash = 17

	// fallbackVersionScriptHash is the fallback version for a P2SH
	// address.
	fallbackVersionScriptHash = 18
)

// TaggedField is one of the optional fields of an invoice's data part. The
// set of implementations is closed: DescriptionField, DescriptionHashField,
// HashedDescriptionField, NodeIDField, ExpiryField, MinFinalCLTVField,
// FallbackAddrField, RouteHintField, FeaturesField and MetadataField.
type TaggedField interface {
	// Type returns the field type number.
	Type() byte

	// encode returns the payload of the field as 5-bit groups.
	encode() ([]byte, error)
}

// DescriptionField is a short UTF-8 description of the purpose of the
// payment.
type DescriptionField string

// Type returns the field type number of a description.
func (f DescriptionField) Type() byte { return fieldTypeD }

func (f DescriptionField) encode() ([]byte, error) {
	return bech32.ConvertBits([]byte(f), 8, 5, true)
}

// DescriptionHashField is the SHA-256 hash of a description that is too long
// to be carried by the invoice.
type DescriptionHashField [32]byte

// Type returns the field type number of a description hash.
func (f DescriptionHashField) Type() byte { return fieldTypeH }

func (f DescriptionHashField) encode() ([]byte, error) {
	return bech32.ConvertBits(f[:], 8, 5, true)
}

// HashedDescriptionField holds the full text of a description that is only
// committed to by its hash. The text itself never leaves the encoder: it is
// hashed with SHA-256 over its raw bytes and emitted as a description hash.
// Decoding yields a DescriptionHashField.
type HashedDescriptionField string

// Type returns the field type number of a description hash.
func (f HashedDescriptionField) Type() byte { return fieldTypeH }

func (f HashedDescriptionField) encode() ([]byte, error) {
	return DescriptionHashField(chainhash.HashH([]byte(f))).encode()
}

// NodeIDField is an explicit claim of the payee's public key. When present,
// decoding verifies the signature against it instead of recovering the key.
type NodeIDField struct {
	PubKey *btcec.PublicKey
}

// Type returns the field type number of a node id.
func (f NodeIDField) Type() byte { return fieldTypeN }

func (f NodeIDField) encode() ([]byte, error) {
	if f.PubKey == nil {
		return nil, fmt.Errorf("node id field without a public key")
	}

	return bech32.ConvertBits(f.PubKey.SerializeCompressed(), 8, 5, true)
}

// ExpiryField is the time after the invoice timestamp at which the invoice
// expires. Only whole seconds are encoded.
type ExpiryField time.Duration

// Type returns the field type number of an expiry.
func (f ExpiryField) Type() byte { return fieldTypeX }

func (f ExpiryField) encode() ([]byte, error) {
	if f < 0 {
		return nil, fmt.Errorf("negative expiry %v", time.Duration(f))
	}

	return uint64ToBase32(uint64(time.Duration(f) / time.Second)), nil
}

// MinFinalCLTVField is the minimum CLTV delta to use for the final hop.
type MinFinalCLTVField uint64

// Type returns the field type number of a min final CLTV delta.
func (f MinFinalCLTVField) Type() byte { return fieldTypeC }

func (f MinFinalCLTVField) encode() ([]byte, error) {
	return uint64ToBase32(uint64(f)), nil
}

// FallbackAddrField is an on-chain address to pay to if the payment cannot
// be made over the network.
type FallbackAddrField struct {
	Addr btcutil.Address
}

// Type returns the field type number of a fallback address.
func (f FallbackAddrField) Type() byte { return fieldTypeF }

func (f FallbackAddrField) encode() ([]byte, error) {
	var version byte
	switch addr := f.Addr.(type) {
	case *btcutil.AddressPubKeyHash:
		version = fallbackVersionPubkeyHash
	case *btcutil.AddressScriptHash:
		version = fallbackVersionScriptHash
	case *btcutil.AddressWitnessPubKeyHash:
		version = addr.WitnessVersion()
	case *btcutil.AddressWitnessScriptHash:
		version = addr.WitnessVersion()
	case *btcutil.AddressTaproot:
		version = addr.WitnessVersion()
	default:
		return nil, fmt.Errorf("unknown fallback address type %T",
			f.Addr)
	}

	base32Addr, err := bech32.ConvertBits(
		f.Addr.ScriptAddress(), 8, 5, true,
	)
	if err != nil {
		return nil, err
	}

	return append([]byte{version}, base32Addr...), nil
}

// RouteHintField is a single route through private channels, each hop given
// as a HopHint. An invoice may carry several of them.
type RouteHintField []HopHint

// Type returns the field type number of a routing hint.
func (f RouteHintField) Type() byte { return fieldTypeR }

func (f RouteHintField) encode() ([]byte, error) {
	b, err := serializeHopHints(f)
	if err != nil {
		return nil, err
	}

	return bech32.ConvertBits(b, 8, 5, true)
}

// FeaturesField holds the feature bits of the invoice.
type FeaturesField struct {
	*lnwire.RawFeatureVector
}

// Type returns the field type number of a feature vector.
func (f FeaturesField) Type() byte { return fieldType9 }

func (f FeaturesField) encode() ([]byte, error) {
	if f.RawFeatureVector == nil {
		return nil, nil
	}

	var b bytes.Buffer
	if err := f.EncodeBase32(&b); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// MetadataField is opaque data the payee wants to be handed back with the
// payment.
type MetadataField []byte

// Type returns the field type number of the payment metadata.
func (f MetadataField) Type() byte { return fieldTypeM }

func (f MetadataField) encode() ([]byte, error) {
	return bech32.ConvertBits(f, 8, 5, true)
}

// paymentHashField is the payment hash as found on the wire. It is lifted
// into Invoice.PaymentHash on decode.
type paymentHashField [32]byte

func (f paymentHashField) Type() byte { return fieldTypeP }

func (f paymentHashField) encode() ([]byte, error) {
	return bech32.ConvertBits(f[:], 8, 5, true)
}

// paymentAddrField is the payment secret as found on the wire. It is lifted
// into Invoice.PaymentAddr on decode.
type paymentAddrField [32]byte

func (f paymentAddrField) Type() byte { return fieldTypeS }

func (f paymentAddrField) encode() ([]byte, error) {
	return bech32.ConvertBits(f[:], 8, 5, true)
}

// unknownField is a field whose type we don't understand. It is only kept
// long enough to be skipped.
type unknownField struct {
	typ  byte
	data []byte
}

func (f unknownField) Type() byte { return f.typ }

func (f unknownField) encode() ([]byte, error) {
	return f.data, nil
}

// fieldParser interprets the 5-bit group payload of a field. A nil field
// with a nil error means the field must be skipped.
type fieldParser func(data []byte, net *chaincfg.Params) (TaggedField, error)

// fieldParsers maps every known field type to its parser.
var fieldParsers = map[byte]fieldParser{
	fieldTypeP: parsePaymentHash,
	fieldTypeS: parsePaymentAddr,
	fieldTypeD: parseDescription,
	fieldTypeH: parseDescriptionHash,
	fieldTypeN: parseNodeID,
	fieldTypeX: parseExpiry,
	fieldTypeC: parseMinFinalCLTV,
	fieldTypeF: parseFallbackAddr,
	fieldTypeR: parseRouteHint,
	fieldType9: parseFeatures,
	fieldTypeM: parseMetadata,
}

// parseField dispatches a raw field to the parser of its type. Fields of an
// unknown type are returned as unknownField.
func parseField(raw rawField, net *chaincfg.Params) (TaggedField, error) {
	parse, ok := fieldParsers[raw.typ]
	if !ok {
		return unknownField{typ: raw.typ, data: raw.data}, nil
	}

	field, err := parse(raw.data, net)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", bech32Char(raw.typ), err)
	}

	return field, nil
}

// bech32Char returns the character naming a field type.
func bech32Char(typ byte) byte {
	return bech32Charset[typ&31]
}

// base32ToBytes converts a payload of 5-bit groups into bytes, failing if the
// padding of the last group is not zero.
func base32ToBytes(data []byte) ([]byte, error) {
	b, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInvoice, err)
	}

	return b, nil
}

// parse32Bytes converts a 52 group payload into a 32-byte array. Payloads of
// any other length are not an error, they must be skipped.
func parse32Bytes(data []byte) (*[32]byte, error) {
	if len(data) != hashBase32Len {
		return nil, nil
	}

	b, err := base32ToBytes(data)
	if err != nil {
		return nil, err
	}

	var hash [32]byte
	copy(hash[:], b)

	return &hash, nil
}

func parsePaymentHash(data []byte, _ *chaincfg.Params) (TaggedField, error) {
	hash, err := parse32Bytes(data)
	if err != nil || hash == nil {
		return nil, err
	}

	return paymentHashField(*hash), nil
}

func parsePaymentAddr(data []byte, _ *chaincfg.Params) (TaggedField, error) {
	addr, err := parse32Bytes(data)
	if err != nil || addr == nil {
		return nil, err
	}

	return paymentAddrField(*addr), nil
}

func parseDescriptionHash(data []byte, _ *chaincfg.Params) (TaggedField,
	error) {

	hash, err := parse32Bytes(data)
	if err != nil || hash == nil {
		return nil, err
	}

	return DescriptionHashField(*hash), nil
}

func parseDescription(data []byte, _ *chaincfg.Params) (TaggedField, error) {
	b, err := base32ToBytes(data)
	if err != nil {
		return nil, err
	}

	if !utf8.Valid(b) {
		return nil, fmt.Errorf("%w: description is not valid UTF-8",
			ErrMalformedInvoice)
	}

	return DescriptionField(b), nil
}

func parseMetadata(data []byte, _ *chaincfg.Params) (TaggedField, error) {
	b, err := base32ToBytes(data)
	if err != nil {
		return nil, err
	}

	return MetadataField(b), nil
}

// parseNodeID converts a 53 group payload into a public key. Payloads of any
// other length must be skipped.
func parseNodeID(data []byte, _ *chaincfg.Params) (TaggedField, error) {
	if len(data) != pubKeyBase32Len {
		return nil, nil
	}

	b, err := base32ToBytes(data)
	if err != nil {
		return nil, err
	}

	pubKey, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInvoice, err)
	}

	return NodeIDField{PubKey: pubKey}, nil
}

func parseExpiry(data []byte, _ *chaincfg.Params) (TaggedField, error) {
	seconds, err := base32ToUint64(data)
	if err != nil {
		return nil, err
	}

	if seconds > math.MaxInt64/uint64(time.Second) {
		return nil, fmt.Errorf("%w: expiry of %d seconds overflows",
			ErrMalformedInvoice, seconds)
	}

	return ExpiryField(time.Duration(seconds) * time.Second), nil
}

func parseMinFinalCLTV(data []byte, _ *chaincfg.Params) (TaggedField,
	error) {

	delta, err := base32ToUint64(data)
	if err != nil {
		return nil, err
	}

	return MinFinalCLTVField(delta), nil
}

// parseFallbackAddr converts a version group followed by the address program
// into an address for the given network. Unknown versions are skipped.
func parseFallbackAddr(data []byte, net *chaincfg.Params) (TaggedField,
	error) {

	// Checks if the data is empty or contains a version without an
	// address.
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: empty fallback address field",
			ErrMalformedInvoice)
	}

	version := data[0]
	switch version {
	case 0, 1, fallbackVersionPubkeyHash, fallbackVersionScriptHash:
	default:
		log.Debugf("Skipping fallback address with unknown version %d",
			version)

		return nil, nil
	}

	program, err := base32ToBytes(data[1:])
	if err != nil {
		return nil, err
	}

	var addr btcutil.Address
	switch {
	case version == 0 && len(program) == 20:
		addr, err = btcutil.NewAddressWitnessPubKeyHash(program, net)

	case version == 0 && len(program) == 32:
		addr, err = btcutil.NewAddressWitnessScriptHash(program, net)

	case version == 0:
		return nil, fmt.Errorf("%w: unknown witness program length %d",
			ErrMalformedInvoice, len(program))

	case version == 1 && len(program) == 32:
		addr, err = btcutil.NewAddressTaproot(program, net)

	case version == 1:
		log.Debugf("Skipping version 1 fallback address with a %d "+
			"byte program", len(program))

		return nil, nil

	case version == fallbackVersionPubkeyHash:
		addr, err = btcutil.NewAddressPubKeyHash(program, net)

	case version == fallbackVersionScriptHash:
		addr, err = btcutil.NewAddressScriptHashFromHash(program, net)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInvoice, err)
	}

	return FallbackAddrField{Addr: addr}, nil
}

func parseRouteHint(data []byte, _ *chaincfg.Params) (TaggedField, error) {
	b, err := base32ToBytes(data)
	if err != nil {
		return nil, err
	}

	hops, err := parseHopHints(b)
	if err != nil {
		return nil, err
	}

	return RouteHintField(hops), nil
}

func parseFeatures(data []byte, _ *chaincfg.Params) (TaggedField, error) {
	rawFeatures := lnwire.NewRawFeatureVector()
	err := rawFeatures.DecodeBase32(bytes.NewReader(data), len(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInvoice, err)
	}

	return FeaturesField{RawFeatureVector: rawFeatures}, nil
}
