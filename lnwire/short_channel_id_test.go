package lnwire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortChannelIDEncoding(t *testing.T) {
	t.Parallel()

	var testCases = []ShortChannelID{
		{
			BlockHeight: (1 << 24) - 1,
			TxIndex:     (1 << 24) - 1,
			TxPosition:  (1 << 16) - 1,
		},
		{
			BlockHeight: 2304934,
			TxIndex:     2345,
			TxPosition:  5,
		},
		{
			BlockHeight: 9304934,
			TxIndex:     2345,
			TxPosition:  5233,
		},
	}

	for _, testCase := range testCases {
		chanInt := testCase.ToUint64()

		newChanID := NewShortChanIDFromInt(chanInt)
		require.Equal(t, testCase, newChanID)

		parsed, err := ParseShortChannelID(testCase.AltString())
		require.NoError(t, err)
		require.Equal(t, testCase, parsed)
	}
}

// TestParseShortChannelID checks both accepted textual forms and the
// rejection of out of range components.
func TestParseShortChannelID(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		input  string
		expect ShortChannelID
		valid  bool
	}{
		{
			name:  "compact",
			input: "72623859790382856",
			expect: ShortChannelID{
				BlockHeight: 66051,
				TxIndex:     263430,
				TxPosition:  1800,
			},
			valid: true,
		},
		{
			name:  "alt string",
			input: "66051x263430x1800",
			expect: ShortChannelID{
				BlockHeight: 66051,
				TxIndex:     263430,
				TxPosition:  1800,
			},
			valid: true,
		},
		{
			name:  "height too large",
			input: "16777216x1x1",
		},
		{
			name:  "missing part",
			input: "1x2",
		},
		{
			name:  "garbage",
			input: "chan",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			scid, err := ParseShortChannelID(tc.input)
			if !tc.valid {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expect, scid)
		})
	}
}
