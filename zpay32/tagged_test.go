package zpay32

import (
	"bytes"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestWriteTaggedField(t *testing.T) {
	t.Parallel()

	var b bytes.Buffer
	require.NoError(t, writeTaggedField(&b, fieldTypeX, []byte{1, 28}))
	require.Equal(t, []byte{fieldTypeX, 0, 2, 1, 28}, b.Bytes())

	// A length of 1023 still fits in the two length groups.
	b.Reset()
	require.NoError(t, writeTaggedField(
		&b, fieldTypeD, make([]byte, maxFieldLen),
	))
	require.Equal(t, []byte{fieldTypeD, 31, 31}, b.Bytes()[:3])

	b.Reset()
	err := writeTaggedField(&b, fieldTypeD, make([]byte, maxFieldLen+1))
	require.ErrorIs(t, err, ErrFieldTooLong)
	require.Zero(t, b.Len())
}

func TestParseTaggedFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   []byte
		fields []rawField
		expErr error
	}{
		{
			name: "empty",
			data: nil,
		},
		{
			name: "two fields",
			data: []byte{
				fieldTypeX, 0, 2, 1, 28,
				fieldTypeD, 0, 0,
			},
			fields: []rawField{
				{typ: fieldTypeX, data: []byte{1, 28}},
				{typ: fieldTypeD, data: []byte{}},
			},
		},
		{
			name:   "truncated header",
			data:   []byte{fieldTypeD, 0, 0, fieldTypeX, 0},
			expErr: ErrBrokenTaggedField,
		},
		{
			name:   "single trailing group",
			data:   []byte{fieldTypeD, 0, 0, 1},
			expErr: ErrMalformedInvoice,
		},
		{
			name:   "payload overruns data",
			data:   []byte{fieldTypeX, 0, 3, 1, 28},
			expErr: ErrInvalidFieldLength,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			fields, err := parseTaggedFields(test.data)
			if test.expErr != nil {
				require.ErrorIs(t, err, test.expErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, test.fields, fields)
		})
	}
}

func TestUint64Base32(t *testing.T) {
	t.Parallel()

	require.Equal(t, []byte{0}, uint64ToBase32(0))
	require.Equal(t, []byte{1, 28}, uint64ToBase32(60))
	require.Equal(t, []byte{15, 31, 31, 31, 31, 31, 31, 31, 31, 31, 31, 31,
		31}, uint64ToBase32(^uint64(0)))

	_, err := base32ToUint64(make([]byte, 14))
	require.ErrorIs(t, err, ErrMalformedInvoice)

	overflow := uint64ToBase32(^uint64(0))
	overflow[0] = 16
	_, err = base32ToUint64(overflow)
	require.ErrorIs(t, err, ErrMalformedInvoice)
}

// TestTaggedFieldRoundTrip checks that any sequence of tagged fields written
// to a buffer is read back unchanged.
func TestTaggedFieldRoundTrip(t *testing.T) {
	t.Parallel()

	group := rapid.ByteRange(0, 31)
	fieldGen := rapid.Custom(func(t *rapid.T) rawField {
		return rawField{
			typ: group.Draw(t, "type"),
			data: rapid.SliceOfN(
				group, 0, maxFieldLen,
			).Draw(t, "data"),
		}
	})

	rapid.Check(t, func(t *rapid.T) {
		fields := rapid.SliceOfN(fieldGen, 0, 8).Draw(t, "fields")

		var b bytes.Buffer
		for _, f := range fields {
			require.NoError(t, writeTaggedField(&b, f.typ, f.data))
		}

		parsed, err := parseTaggedFields(b.Bytes())
		require.NoError(t, err)
		require.Len(t, parsed, len(fields))
		for i, f := range fields {
			require.Equal(t, f.typ, parsed[i].typ)
			require.Equal(t, len(f.data), len(parsed[i].data))
			if len(f.data) > 0 {
				require.Equal(t, f.data, parsed[i].data)
			}
		}

		n := rapid.Uint64().Draw(t, "n")
		decoded, err := base32ToUint64(uint64ToBase32(n))
		require.NoError(t, err)
		require.Equal(t, n, decoded)
	})
}

// TestDescriptionUTF8 checks that descriptions must be valid UTF-8 on both
// sides of the codec.
func TestDescriptionUTF8(t *testing.T) {
	t.Parallel()

	toGroups := func(b []byte) []byte {
		groups, err := bech32.ConvertBits(b, 8, 5, true)
		require.NoError(t, err)

		return groups
	}

	field, err := parseDescription(toGroups([]byte("caf\xc3\xa9")), nil)
	require.NoError(t, err)
	require.Equal(t, DescriptionField("café"), field)

	_, err = parseDescription(toGroups([]byte{0xff, 0xfe, 'a', 'b', 'c'}),
		nil)
	require.ErrorIs(t, err, ErrMalformedInvoice)

	_, err = NewInvoice(
		&chaincfg.MainNetParams, testPaymentHash, time.Unix(1, 0),
		Description("\xff\xfe"),
	)
	require.Error(t, err)
}
