package zpay32

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInvoice is the root of every structural decoding
	// failure: a broken checksum, unexpected field lengths, a truncated
	// signature or an unknown network prefix.
	ErrMalformedInvoice = errors.New("malformed invoice")

	// ErrChecksumMismatch is returned when the bech32 checksum of an
	// invoice does not match its content. It matches ErrMalformedInvoice
	// as well.
	ErrChecksumMismatch = fmt.Errorf("%w: checksum mismatch",
		ErrMalformedInvoice)

	// ErrWrongNetwork is returned when the currency prefix of an invoice
	// does not belong to the network the caller expects.
	ErrWrongNetwork = fmt.Errorf("%w: invoice not for expected network",
		ErrMalformedInvoice)

	// ErrAmountNotRepresentable is returned when an amount cannot be
	// expressed with millisatoshi precision by any multiplier, or does
	// not fit into 64 bits of millisatoshis.
	ErrAmountNotRepresentable = errors.New("amount not representable")

	// ErrSignatureVerificationFailed is returned when the signature of an
	// invoice does not match the node id it claims in its n field.
	ErrSignatureVerificationFailed = errors.New("signature verification " +
		"failed")

	// ErrFieldTooLong is returned when a tagged field does not fit into
	// the 10-bit length of the field header.
	ErrFieldTooLong = errors.New("tagged field too long")

	// ErrInvoiceTooLarge is returned when a decoded invoice exceeds the
	// length limit configured with WithMaxInvoiceLength.
	ErrInvoiceTooLarge = errors.New("invoice is too large")

	// ErrInvalidFieldLength is returned when a tagged field was specified
	// with a length larger than the left over groups of the data part.
	ErrInvalidFieldLength = fmt.Errorf("%w: invalid field length",
		ErrMalformedInvoice)

	// ErrBrokenTaggedField is returned when the last tagged field is
	// incorrectly formatted and doesn't have enough groups to be read.
	ErrBrokenTaggedField = fmt.Errorf("%w: last tagged field is broken",
		ErrMalformedInvoice)
)
