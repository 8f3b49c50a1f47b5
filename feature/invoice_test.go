package feature

import (
	"testing"

	"github.com/lightningnetwork/lninvoice/lnwire"
	"github.com/stretchr/testify/require"
)

func newVector(bits ...lnwire.FeatureBit) *lnwire.FeatureVector {
	return lnwire.NewFeatureVector(
		lnwire.NewRawFeatureVector(bits...), lnwire.Features,
	)
}

// TestValidate asserts that unknown even bits are rejected, unknown odd bits
// are tolerated and dependencies are enforced.
func TestValidate(t *testing.T) {
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
			name: "known optional",
			bits: []lnwire.FeatureBit{9, 15},
		},
		{
			name: "unknown odd",
			bits: []lnwire.FeatureBit{9, 15, 99},
		},
		{
			name: "unknown even",
			bits: []lnwire.FeatureBit{9, 15, 99, 100},
			expErr: ErrUnknownRequiredFeature{
				Bits: []lnwire.FeatureBit{100},
			},
		},
		{
			name: "several unknown even",
			bits: []lnwire.FeatureBit{9, 15, 102, 100},
			expErr: ErrUnknownRequiredFeature{
				Bits: []lnwire.FeatureBit{100, 102},
			},
		},
		{
			name: "missing dependency",
			bits: []lnwire.FeatureBit{15},
			expErr: ErrMissingFeatureDep{
				Bit: lnwire.PaymentAddrOptional,
				Dep: lnwire.TLVOnionPayloadOptional,
			},
		},
		{
			name: "required dependency satisfied by required bit",
			bits: []lnwire.FeatureBit{8, 14, 17},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(newVector(test.bits...))
			if test.expErr == nil {
				require.NoError(t, err)
				return
			}

			require.Equal(t, test.expErr, err)
		})
	}
}

// TestCompare exercises the feature negotiation between a local requirement
// and the bits carried by an invoice.
func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ours       []lnwire.FeatureBit
		theirs     []lnwire.FeatureBit
		negotiated []lnwire.FeatureBit
		expErr     error
	}{
		{
			name:       "identical",
			ours:       []lnwire.FeatureBit{8, 14, 15},
			theirs:     []lnwire.FeatureBit{8, 14, 15},
			negotiated: []lnwire.FeatureBit{8, 9, 14, 15},
		},
		{
			name:       "optional on their side satisfies required",
			ours:       []lnwire.FeatureBit{8, 14, 15},
			theirs:     []lnwire.FeatureBit{9, 15, 99},
			negotiated: []lnwire.FeatureBit{8, 9, 14, 15},
		},
		{
			name:   "we require what they lack",
			ours:   []lnwire.FeatureBit{8, 14, 16},
			theirs: []lnwire.FeatureBit{8, 14, 15},
			expErr: ErrIncompatibleFeatures{Bit: 16},
		},
		{
			name:   "they require what we lack",
			ours:   []lnwire.FeatureBit{9, 15},
			theirs: []lnwire.FeatureBit{9, 15, 16},
			expErr: ErrIncompatibleFeatures{
				Bit:    16,
				Remote: true,
			},
		},
		{
			name:       "our optional bit they lack is dropped",
			ours:       []lnwire.FeatureBit{9, 15, 17},
			theirs:     []lnwire.FeatureBit{9, 15},
			negotiated: []lnwire.FeatureBit{9, 15},
		},
		{
			name:       "their unknown odd bit is ignored",
			ours:       []lnwire.FeatureBit{9},
			theirs:     []lnwire.FeatureBit{9, 101},
			negotiated: []lnwire.FeatureBit{9},
		},
		{
			name:       "both empty",
			negotiated: []lnwire.FeatureBit{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			negotiated, err := Compare(
				newVector(test.ours...),
				newVector(test.theirs...),
			)
			if test.expErr != nil {
				require.Equal(t, test.expErr, err)
				require.Nil(t, negotiated)

				return
			}

			require.NoError(t, err)
			require.Equal(t, test.negotiated, negotiated.Bits())
		})
	}
}

// TestForInvoice checks that only bits with an invoice meaning survive the
// filter.
func TestForInvoice(t *testing.T) {
	t.Parallel()

	fv := newVector(
		lnwire.DataLossProtectOptional,
		lnwire.TLVOnionPayloadRequired,
		lnwire.StaticRemoteKeyRequired,
		lnwire.PaymentAddrOptional,
		lnwire.MPPOptional,
		lnwire.KeysendOptional,
	)

	filtered := ForInvoice(fv)
	require.Equal(t, []lnwire.FeatureBit{
		lnwire.TLVOnionPayloadRequired,
		lnwire.PaymentAddrOptional,
		lnwire.MPPOptional,
	}, filtered.Bits())

	// The input must not be modified.
	require.True(t, fv.IsSet(lnwire.KeysendOptional))
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	require.EqualError(t, ErrIncompatibleFeatures{Bit: 16},
		"incompatible features: we require feature bit 16")
	require.EqualError(t, ErrIncompatibleFeatures{Bit: 16, Remote: true},
		"incompatible features: they require feature bit 16")
	require.EqualError(t,
		ErrUnknownRequiredFeature{Bits: []lnwire.FeatureBit{100}},
		"invoice requires unknown feature bits: [100]")
}
