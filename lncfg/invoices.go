package lncfg

import (
	"fmt"
	"time"

	"github.com/lightningnetwork/lninvoice/zpay32"
)

// Invoices holds the configuration options for encoding and decoding
// invoices.
//
//nolint:lll
type Invoices struct {
	Expiry    time.Duration `long:"expiry" description:"The expiry written into encoded invoices. Zero leaves the field out, which means one hour to the payer."`
	CLTVDelta uint64        `long:"cltvdelta" description:"The final CLTV delta written into encoded invoices. Zero leaves the field out, which means 18 blocks to the payer."`
	MaxLength int           `long:"maxlength" description:"Refuse to decode invoices longer than this many characters. Zero disables the limit."`
}

// DefaultInvoices returns the default invoice options. Decoding applies the
// same length limit lnd nodes do.
func DefaultInvoices() *Invoices {
	return &Invoices{
		MaxLength: zpay32.MaxInvoiceLength,
	}
}

// Validate checks that the invoice options are sane.
//
// NOTE: this is part of the Validator interface.
func (i *Invoices) Validate() error {
	if i.Expiry < 0 {
		return fmt.Errorf("invoice expiry must not be negative: %v",
			i.Expiry)
	}

	// Expiries are encoded in whole seconds.
	if i.Expiry%time.Second != 0 {
		log.Warnf("Invoice expiry %v will be truncated to %v",
			i.Expiry, i.Expiry.Truncate(time.Second))
	}

	if i.CLTVDelta != 0 && i.CLTVDelta < zpay32.DefaultFinalCLTVDelta {
		log.Warnf("Invoice CLTV delta %d is below the default of "+
			"%d blocks payers assume", i.CLTVDelta,
			zpay32.DefaultFinalCLTVDelta)
	}

	if i.MaxLength < 0 {
		return fmt.Errorf("maximum invoice length must not be "+
			"negative: %d", i.MaxLength)
	}

	return nil
}

// DecodeOptions returns the decode options the config translates to.
func (i *Invoices) DecodeOptions() []zpay32.DecodeOption {
	if i.MaxLength == 0 {
		return nil
	}

	return []zpay32.DecodeOption{zpay32.WithMaxInvoiceLength(i.MaxLength)}
}

// EncodeOptions returns the NewInvoice options the config translates to.
func (i *Invoices) EncodeOptions() []func(*zpay32.Invoice) {
	var opts []func(*zpay32.Invoice)
	if i.Expiry > 0 {
		opts = append(opts, zpay32.Expiry(i.Expiry))
	}
	if i.CLTVDelta > 0 {
		opts = append(opts, zpay32.CLTVExpiry(i.CLTVDelta))
	}

	return opts
}
