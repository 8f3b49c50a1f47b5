package zpay32

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	// maxFieldLen is the largest payload, in 5-bit groups, that fits in
	// the 10-bit length of a tagged field.
	maxFieldLen = 1<<10 - 1

	// fieldHeaderLen is the number of groups holding the type and the
	// length of a tagged field.
	fieldHeaderLen = 3
)

// rawField is a tagged field as read from the data part, before its payload
// is interpreted.
type rawField struct {
	typ  byte
	data []byte
}

// writeTaggedField takes the type of a tagged data field, and the data of
// the tagged field (encoded in base32), and writes the type, length and data
// to the buffer.
func writeTaggedField(bufferBase32 *bytes.Buffer, dataType byte,
	data []byte) error {

	if len(data) > maxFieldLen {
		return fmt.Errorf("%w: type %d carries %d groups, max %d",
			ErrFieldTooLong, dataType, len(data), maxFieldLen)
	}

	// The length is always written as exactly two groups.
	bufferBase32.WriteByte(dataType)
	bufferBase32.WriteByte(byte(len(data) >> 5))
	bufferBase32.WriteByte(byte(len(data) & 31))
	bufferBase32.Write(data)

	return nil
}

// writeBytes8 converts the 8-bit bytes to base32 and writes them as a tagged
// field of the given type.
func writeBytes8(bufferBase32 *bytes.Buffer, dataType byte,
	b []byte) error {

	base32, err := bech32.ConvertBits(b, 8, 5, true)
	if err != nil {
		return err
	}

	return writeTaggedField(bufferBase32, dataType, base32)
}

// parseTaggedFields splits the groups between the timestamp and the signature
// into raw tagged fields, in the order they appear.
func parseTaggedFields(fields []byte) ([]rawField, error) {
	var raw []rawField

	index := 0
	for len(fields)-index > 0 {
		// If there are less than 3 groups to read, there cannot be
		// more interesting information, as we need the type (1 group)
		// and length (2 groups).
		if len(fields)-index < fieldHeaderLen {
			return nil, fmt.Errorf("%w: %d trailing groups",
				ErrBrokenTaggedField, len(fields)-index)
		}

		typ := fields[index]
		dataLength := parseFieldDataLength(fields[index+1 : index+3])

		// If we don't have enough field data left to read this length,
		// return error.
		if len(fields) < index+fieldHeaderLen+int(dataLength) {
			return nil, fmt.Errorf("%w: type %d wants %d groups, "+
				"%d left", ErrInvalidFieldLength, typ,
				dataLength, len(fields)-index-fieldHeaderLen)
		}
		base32Data := fields[index+3 : index+3+int(dataLength)]

		// Advance the index in preparation for the next iteration.
		index += fieldHeaderLen + int(dataLength)

		raw = append(raw, rawField{typ: typ, data: base32Data})
	}

	return raw, nil
}

// parseFieldDataLength converts the two byte slice into a uint16.
func parseFieldDataLength(data []byte) uint16 {
	return uint16(data[0])<<5 | uint16(data[1])
}

// uint64ToBase32 converts a uint64 to a base32 encoded integer encoded using
// as few 5-bit groups as possible.
func uint64ToBase32(num uint64) []byte {
	// Return at least one group.
	if num == 0 {
		return []byte{0}
	}

	// To fit an uint64, we need at most is ceil(64 / 5) = 13 groups.
	arr := make([]byte, 13)
	i := 13
	for num > 0 {
		i--
		arr[i] = byte(num & uint64(31)) // 0b11111 in binary
		num >>= 5
	}

	// We only return non-zero leading groups.
	return arr[i:]
}

// base32ToUint64 converts a base32 encoded number to uint64.
func base32ToUint64(data []byte) (uint64, error) {
	// Maximum that fits in uint64 is ceil(64 / 5) = 13 groups.
	if len(data) > 13 {
		return 0, fmt.Errorf("%w: cannot parse %d groups as uint64",
			ErrMalformedInvoice, len(data))
	}

	// A 13th group can only carry 4 bits.
	if len(data) == 13 && data[0] > 15 {
		return 0, fmt.Errorf("%w: integer overflows uint64",
			ErrMalformedInvoice)
	}

	val := uint64(0)
	for i := 0; i < len(data); i++ {
		val = val<<5 | uint64(data[i])
	}

	return val, nil
}
