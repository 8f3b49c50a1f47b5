package lnwire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

var testFeatureNames = map[FeatureBit]string{
	0: "feature1",
	3: "feature2",
	4: "feature3",
	5: "feature3",
}

func TestFeatureVectorSetUnset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bits             []FeatureBit
		expectedFeatures []bool
	}{
		// No features are enabled if no bits are set.
		{
			bits:             nil,
			expectedFeatures: []bool{false, false, false, false, false, false, false, false},
		},
		// Test setting an even bit for an even-only bit feature. The
		// corresponding odd bit should not be seen as set.
		{
			bits:             []FeatureBit{0},
			expectedFeatures: []bool{true, false, false, false, false, false, false, false},
		},
		// Test setting an odd bit for an even-only bit feature. The
		// corresponding even bit should not be seen as set.
		{
			bits:             []FeatureBit{1},
			expectedFeatures: []bool{false, true, false, false, false, false, false, false},
		},
		// Test setting an odd bit for an odd-only bit feature. The
		// corresponding even bit should not be seen as set.
		{
			bits:             []FeatureBit{3},
			expectedFeatures: []bool{false, false, false, true, false, false, false, false},
		},
		// Test setting an even bit for an odd-only bit feature. The bit
		// should be seen as set and the odd bit should not.
		{
			bits:             []FeatureBit{2},
			expectedFeatures: []bool{false, false, true, false, false, false, false, false},
		},
		// Test setting an even bit for a paired bit feature. Both bits
		// in the pair should be seen as set.
		{
			bits:             []FeatureBit{4},
			expectedFeatures: []bool{false, false, false, false, true, true, false, false},
		},
		// Test setting an odd bit for a paired bit feature. Both bits
		// in the pair should be seen as set.
		{
			bits:             []FeatureBit{5},
			expectedFeatures: []bool{false, false, false, false, true, true, false, false},
		},
		// Test setting an even bit for an unknown feature. The bit
		// should be seen as set and the odd bit should not.
		{
			bits:             []FeatureBit{6},
			expectedFeatures: []bool{false, false, false, false, false, false, true, false},
		},
		// Test setting an odd bit for an unknown feature. The bit
		// should be seen as set and the even bit should not.
		{
			bits:             []FeatureBit{7},
			expectedFeatures: []bool{false, false, false, false, false, false, false, true},
		},
	}

	fv := NewFeatureVector(nil, testFeatureNames)
	for i, test := range tests {
		for _, bit := range test.bits {
			fv.Set(bit)
		}

		for j, expectedSet := range test.expectedFeatures {
			require.Equalf(t, expectedSet, fv.HasFeature(FeatureBit(j)),
				"test %d, bit %d", i, j)
		}

		for _, bit := range test.bits {
			fv.Unset(bit)
		}
	}
}

func TestFeatureVectorBase32RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bits    []FeatureBit
		encoded []byte
	}{
		{
			name:    "empty",
			encoded: []byte{},
		},
		{
			name:    "tlv onion and payment addr",
			bits:    []FeatureBit{9, 15},
			encoded: []byte{1, 0, 16, 0},
		},
		{
			name:    "bit zero",
			bits:    []FeatureBit{0},
			encoded: []byte{1},
		},
		{
			name:    "group boundary",
			bits:    []FeatureBit{4, 5},
			encoded: []byte{1, 16},
		},
		{
			name: "high unknown bit",
			bits: []FeatureBit{99},
			encoded: []byte{
				16, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
				0, 0, 0, 0, 0,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			fv := NewRawFeatureVector(test.bits...)
			require.Equal(t, len(test.encoded), fv.SerializeSize32())

			var b bytes.Buffer
			require.NoError(t, fv.EncodeBase32(&b))
			require.Equal(t, test.encoded, b.Bytes())

			fv2 := NewRawFeatureVector()
			err := fv2.DecodeBase32(
				bytes.NewReader(test.encoded), len(test.encoded),
			)
			require.NoError(t, err)
			require.Equal(t, fv.Bits(), fv2.Bits())
		})
	}
}

// TestFeatureVectorDecodeLeadingZeros asserts that zero padding groups in
// front of the most significant group are ignored on decode.
func TestFeatureVectorDecodeLeadingZeros(t *testing.T) {
	t.Parallel()

	fv := NewRawFeatureVector()
	err := fv.DecodeBase32(bytes.NewReader([]byte{0, 0, 1, 0}), 4)
	require.NoError(t, err)
	require.Equal(t, []FeatureBit{5}, fv.Bits())
}

func TestFeatureVectorUnknownRequired(t *testing.T) {
	t.Parallel()

	fv := NewFeatureVector(
		NewRawFeatureVector(0, 1, 3, 6, 7, 100, 101), testFeatureNames,
	)
	require.Equal(t, []FeatureBit{6, 100}, fv.UnknownRequiredFeatures())

	known := NewFeatureVector(NewRawFeatureVector(0, 3), testFeatureNames)
	require.Empty(t, known.UnknownRequiredFeatures())
}

func TestFeatureNames(t *testing.T) {
	t.Parallel()

	fv := NewFeatureVector(NewRawFeatureVector(4, 9), testFeatureNames)
	require.Equal(t, "feature3", fv.Name(4))
	require.Equal(t, "feature3", fv.Name(5))
	require.Equal(t, "unknown", fv.Name(9))
	require.Equal(t, "[feature3(4) unknown(9)]", fv.String())
	require.True(t, fv.IsKnown(0))
	require.False(t, fv.IsKnown(1))
}

func TestSafeSetAndRequires(t *testing.T) {
	t.Parallel()

	fv := NewFeatureVector(nil, Features)
	require.NoError(t, fv.SafeSet(PaymentAddrRequired))
	require.ErrorIs(t, fv.SafeSet(PaymentAddrOptional), ErrFeaturePairExists)
	require.True(t, fv.HasFeature(PaymentAddrOptional))
	require.False(t, fv.HasFeature(MPPOptional))

	clone := fv.Clone()
	clone.Set(MPPOptional)
	require.False(t, fv.IsSet(MPPOptional))
	require.True(t, clone.HasFeature(MPPRequired))
}

func TestFeatureBitIsRequired(t *testing.T) {
	t.Parallel()

	require.True(t, PaymentAddrRequired.IsRequired())
	require.False(t, PaymentAddrOptional.IsRequired())
	require.True(t, FeatureBit(0).IsRequired())
}
