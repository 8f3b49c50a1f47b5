package feature

import (
	"testing"

	"github.com/lightningnetwork/lninvoice/lnwire"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestValidateDeps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		bits   []lnwire.FeatureBit
		expErr error
	}{
		{
			name: "empty",
		},
		{
			name: "metadata has no deps",
			bits: []lnwire.FeatureBit{lnwire.PaymentMetadataRequired},
		},
		{
			name: "payment addr with optional tlv",
			bits: []lnwire.FeatureBit{
				lnwire.TLVOnionPayloadOptional,
				lnwire.PaymentAddrRequired,
			},
		},
		{
			name: "required payment addr without tlv",
			bits: []lnwire.FeatureBit{lnwire.PaymentAddrRequired},
			expErr: ErrMissingFeatureDep{
				Bit: lnwire.PaymentAddrOptional,
				Dep: lnwire.TLVOnionPayloadOptional,
			},
		},
		{
			name: "mpp and amp share payment addr",
			bits: []lnwire.FeatureBit{
				lnwire.TLVOnionPayloadRequired,
				lnwire.PaymentAddrOptional,
				lnwire.MPPOptional,
				lnwire.AMPRequired,
			},
		},
		{
			name: "mpp with the lower dep missing",
			bits: []lnwire.FeatureBit{
				lnwire.PaymentAddrOptional,
				lnwire.MPPOptional,
			},
			expErr: ErrMissingFeatureDep{
				Bit: lnwire.PaymentAddrOptional,
				Dep: lnwire.TLVOnionPayloadOptional,
			},
		},
		{
			name: "amp without payment addr",
			bits: []lnwire.FeatureBit{
				lnwire.TLVOnionPayloadRequired,
				lnwire.AMPOptional,
			},
			expErr: ErrMissingFeatureDep{
				Bit: lnwire.AMPOptional,
				Dep: lnwire.PaymentAddrOptional,
			},
		},
		{
			name: "blinded paths chain",
			bits: []lnwire.FeatureBit{
				lnwire.TLVOnionPayloadOptional,
				lnwire.RouteBlindingRequired,
				lnwire.Bolt11BlindedPathsOptional,
			},
		},
		{
			name: "blinded paths without route blinding",
			bits: []lnwire.FeatureBit{
				lnwire.TLVOnionPayloadOptional,
				lnwire.Bolt11BlindedPathsRequired,
			},
			expErr: ErrMissingFeatureDep{
				Bit: lnwire.Bolt11BlindedPathsOptional,
				Dep: lnwire.RouteBlindingOptional,
			},
		},
		{
			name: "route blinding without tlv",
			bits: []lnwire.FeatureBit{
				lnwire.RouteBlindingOptional,
				lnwire.Bolt11BlindedPathsOptional,
			},
			expErr: ErrMissingFeatureDep{
				Bit: lnwire.RouteBlindingOptional,
				Dep: lnwire.TLVOnionPayloadOptional,
			},
		},
		{
			// Channel features mean nothing in an invoice, so
			// their dependencies are not checked.
			name: "channel feature",
			bits: []lnwire.FeatureBit{lnwire.AnchorsOptional},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateDeps(newVector(test.bits...))
			if test.expErr == nil {
				require.NoError(t, err)
				return
			}

			require.Equal(t, test.expErr, err)
		})
	}
}

func TestSetBit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		start    []lnwire.FeatureBit
		bit      lnwire.FeatureBit
		expected []lnwire.FeatureBit
	}{
		{
			name:     "no deps",
			bit:      lnwire.PaymentMetadataOptional,
			expected: []lnwire.FeatureBit{49},
		},
		{
			name:     "optional pulls optional deps",
			bit:      lnwire.MPPOptional,
			expected: []lnwire.FeatureBit{9, 15, 17},
		},
		{
			name:     "required pulls required deps",
			bit:      lnwire.MPPRequired,
			expected: []lnwire.FeatureBit{8, 14, 16},
		},
		{
			name:     "required upgrades optional deps",
			start:    []lnwire.FeatureBit{9, 15},
			bit:      lnwire.AMPRequired,
			expected: []lnwire.FeatureBit{8, 14, 30},
		},
		{
			name:     "optional keeps required deps",
			start:    []lnwire.FeatureBit{8},
			bit:      lnwire.RouteBlindingOptional,
			expected: []lnwire.FeatureBit{8, 25},
		},
		{
			name:     "optional keeps a required pair",
			start:    []lnwire.FeatureBit{8, 14},
			bit:      lnwire.PaymentAddrOptional,
			expected: []lnwire.FeatureBit{8, 14},
		},
		{
			name:     "blinded paths chain",
			bit:      lnwire.Bolt11BlindedPathsRequired,
			expected: []lnwire.FeatureBit{8, 24, 262},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			start := newVector(test.start...)
			fv := SetBit(start, test.bit)
			require.Equal(t, test.expected, fv.Bits())
			require.NoError(t, ValidateDeps(fv))

			// The input vector is left alone.
			require.Equal(t, newVector(test.start...).Bits(),
				start.Bits())
		})
	}
}

// TestSetBitValid asserts that any sequence of SetBit calls over the invoice
// features yields a vector that passes ValidateDeps and never sets both bits
// of a pair.
func TestSetBitValid(t *testing.T) {
	t.Parallel()

	invoiceBits := make([]lnwire.FeatureBit, 0, len(InvoiceSet))
	for bit := range InvoiceSet {
		invoiceBits = append(invoiceBits, bit)
	}

	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.SliceOf(
			rapid.SampledFrom(invoiceBits),
		).Draw(t, "bits")

		fv := newVector()
		for _, bit := range bits {
			fv = SetBit(fv, bit)
			require.True(t, fv.HasFeature(bit))
		}

		require.NoError(t, ValidateDeps(fv))
		for _, bit := range fv.Bits() {
			require.False(t, fv.IsSet(bit^1), "pair %d set twice",
				bit)
		}
	})
}
