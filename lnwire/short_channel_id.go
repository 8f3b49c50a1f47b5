package lnwire

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// maxBlockHeight and maxTxIndex bound the 3 byte fields of a compact
	// channel ID.
	maxBlockHeight = 1<<24 - 1
	maxTxIndex     = 1<<24 - 1
)

// ShortChannelID represents the set of data which is needed to retrieve all
// necessary data to validate the channel existence. Route hints in invoices
// refer to channels by the compact uint64 form of this struct.
type ShortChannelID struct {
	// BlockHeight is the height of the block where funding transaction
	// located.
	//
	// NOTE: This field is limited to 3 bytes.
	BlockHeight uint32

	// TxIndex is a position of funding transaction within a block.
	//
	// NOTE: This field is limited to 3 bytes.
	TxIndex uint32

	// TxPosition indicating transaction output which pays to the channel.
	TxPosition uint16
}

// NewShortChanIDFromInt returns a new ShortChannelID which is the decoded
// version of the compact channel ID encoded within the uint64. The format of
// the compact channel ID is as follows: 3 bytes for the block height, 3 bytes
// for the transaction index, and 2 bytes for the output index.
func NewShortChanIDFromInt(chanID uint64) ShortChannelID {
	return ShortChannelID{
		BlockHeight: uint32(chanID >> 40),
		TxIndex:     uint32(chanID>>16) & 0xFFFFFF,
		TxPosition:  uint16(chanID),
	}
}

// ParseShortChannelID parses either the "BxTxO" form or the plain uint64
// form of a short channel ID.
func ParseShortChannelID(s string) (ShortChannelID, error) {
	parts := strings.Split(s, "x")
	if len(parts) == 1 {
		chanID, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return ShortChannelID{}, fmt.Errorf("invalid short "+
				"channel id %q: %w", s, err)
		}

		return NewShortChanIDFromInt(chanID), nil
	}

	if len(parts) != 3 {
		return ShortChannelID{}, fmt.Errorf("invalid short channel "+
			"id %q: expected BxTxO", s)
	}

	height, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil || height > maxBlockHeight {
		return ShortChannelID{}, fmt.Errorf("invalid block height "+
			"in %q", s)
	}
	index, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil || index > maxTxIndex {
		return ShortChannelID{}, fmt.Errorf("invalid tx index in %q",
			s)
	}
	pos, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return ShortChannelID{}, fmt.Errorf("invalid output index "+
			"in %q", s)
	}

	return ShortChannelID{
		BlockHeight: uint32(height),
		TxIndex:     uint32(index),
		TxPosition:  uint16(pos),
	}, nil
}

// ToUint64 converts the ShortChannelID into a compact format encoded within a
// uint64 (8 bytes).
func (c ShortChannelID) ToUint64() uint64 {
	return ((uint64(c.BlockHeight) << 40) | (uint64(c.TxIndex) << 16) |
		(uint64(c.TxPosition)))
}

// String generates a human-readable representation of the channel ID.
func (c ShortChannelID) String() string {
	return fmt.Sprintf("%d:%d:%d", c.BlockHeight, c.TxIndex, c.TxPosition)
}

// AltString generates a human-readable representation of the channel ID
// with 'x' as a separator.
func (c ShortChannelID) AltString() string {
	return fmt.Sprintf("%dx%dx%d", c.BlockHeight, c.TxIndex, c.TxPosition)
}

