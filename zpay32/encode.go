package zpay32

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lninvoice/chainreg"
	"github.com/lightningnetwork/lninvoice/lnutils"
)

// Encode takes the given MessageSigner and returns a string encoding this
// invoice signed by the node key of the signer. On success the Signature,
// Destination and DestinationSource of the invoice are set. On failure no
// text is returned and the invoice is left untouched.
func (invoice *Invoice) Encode(signer MessageSigner) (string, error) {
	// First check that this invoice is valid before starting the encoding.
	if err := validateInvoice(invoice); err != nil {
		return "", err
	}

	hrp, err := invoice.hrp()
	if err != nil {
		return "", err
	}

	// The buffer will encoded the invoice data using 5-bit groups (base32).
	var bufferBase32 bytes.Buffer

	// The timestamp is always written as 7 groups, with leading zero
	// groups if it fits into fewer.
	timestampBase32 := uint64ToBase32(uint64(invoice.Timestamp.Unix()))
	zeroes := make([]byte, timestampBase32Len-len(timestampBase32))
	bufferBase32.Write(zeroes)
	bufferBase32.Write(timestampBase32)

	// We now write the tagged fields to the buffer, which will fill the
	// rest of the data part before the signature.
	fields := invoice.canonicalFields()
	for _, field := range fields {
		data, err := field.encode()
		if err != nil {
			return "", fmt.Errorf("unable to encode field %q: %w",
				bech32Char(field.Type()), err)
		}

		err = writeTaggedField(&bufferBase32, field.Type(), data)
		if err != nil {
			return "", err
		}
	}

	// The signature is over the single SHA-256 hash of the hrp + the
	// tagged fields encoded in base256.
	taggedFieldsBytes, err := bech32.ConvertBits(
		bufferBase32.Bytes(), 5, 8, true,
	)
	if err != nil {
		return "", err
	}

	toSign := append([]byte(hrp), taggedFieldsBytes...)
	hash := chainhash.HashB(toSign)

	// We use compact signature format, and also encoded the recovery ID
	// such that a reader of the invoice can recover our pubkey from the
	// signature.
	compact, err := signer.SignCompact(toSign)
	if err != nil {
		return "", err
	}
	sig, err := signatureFromCompact(compact)
	if err != nil {
		return "", err
	}

	signerKey, err := sig.Recover(hash)
	if err != nil {
		return "", err
	}

	// If a pubkey field was explicitly set, it must be the pubkey used to
	// create the signature.
	source := DestinationRecovered
	for _, nodeID := range fieldsOf[NodeIDField](invoice) {
		if err := sig.Verify(hash, nodeID.PubKey); err != nil {
			return "", err
		}
		source = DestinationVerified
	}

	// Convert the signature to base32 before writing it to the buffer.
	signBase32, err := bech32.ConvertBits(sig.bytes(), 8, 5, true)
	if err != nil {
		return "", err
	}
	bufferBase32.Write(signBase32)

	// Now we can create the bech32 encoded string from the base32 buffer.
	b32, err := bech32.Encode(hrp, bufferBase32.Bytes())
	if err != nil {
		return "", err
	}

	invoice.Signature = fn.Some(sig)
	invoice.Destination = signerKey
	invoice.DestinationSource = source

	log.Debugf("Encoded invoice with %d fields for %v (%v)", len(fields),
		lnutils.LogPubKey(signerKey), source)

	return b32, nil
}

// hrp returns the human readable part of the invoice: "ln", the currency
// prefix of the network and the optional amount.
func (invoice *Invoice) hrp() (string, error) {
	hrp := "ln" + chainreg.InvoicePrefix(invoice.Net)
	if invoice.MilliSat != nil {
		// Encode the amount using the fewest possible characters.
		am, err := encodeAmount(*invoice.MilliSat)
		if err != nil {
			return "", err
		}
		hrp += am
	}

	return hrp, nil
}

// canonicalFields returns the fields in the order they are encoded: the
// payment hash, the payment address if set, then the fields of the invoice.
// A non-empty Features attribute replaces the first FeaturesField or is
// appended.
func (invoice *Invoice) canonicalFields() []TaggedField {
	fields := make([]TaggedField, 0, len(invoice.Fields)+3)
	fields = append(fields, paymentHashField(invoice.PaymentHash))
	invoice.PaymentAddr.WhenSome(func(addr [32]byte) {
		fields = append(fields, paymentAddrField(addr))
	})

	var override *FeaturesField
	if invoice.Features != nil && !invoice.Features.IsEmpty() {
		override = &FeaturesField{
			RawFeatureVector: invoice.Features.RawFeatureVector,
		}
	}

	for _, field := range invoice.Fields {
		if _, ok := field.(FeaturesField); ok && override != nil {
			field = *override
			override = nil
		}
		fields = append(fields, field)
	}

	if override != nil {
		fields = append(fields, *override)
	}

	return fields
}
