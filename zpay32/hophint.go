package zpay32

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	// hopHintLen is the number of bytes each hop hint of a routing hint
	// takes up.
	hopHintLen = 51
)

// HopHint is a routing hint that contains the minimum information of a
// channel required for an intermediate hop in a route to forward the payment
// to the next. This should be ideally used for private channels, since they
// are not publicly advertised to the network for routing.
type HopHint struct {
	// NodeID is the public key of the node at the start of the channel.
	NodeID *btcec.PublicKey

	// ChannelID is the unique identifier of the channel.
	ChannelID uint64

	// FeeBaseMSat is the base fee of the channel in millisatoshis.
	FeeBaseMSat uint32

	// FeeProportionalMillionths is the fee rate, in millionths of a
	// satoshi, for every satoshi sent through the channel.
	FeeProportionalMillionths uint32

	// CLTVExpiryDelta is the time-lock delta of the channel.
	CLTVExpiryDelta uint16
}

// serializeHopHints packs the hops of a routing hint into consecutive 51
// byte records.
func serializeHopHints(hops []HopHint) ([]byte, error) {
	b := make([]byte, 0, hopHintLen*len(hops))
	for i, hop := range hops {
		if hop.NodeID == nil {
			return nil, fmt.Errorf("hop hint %d has no node id", i)
		}

		var record [hopHintLen]byte
		copy(record[:33], hop.NodeID.SerializeCompressed())
		binary.BigEndian.PutUint64(record[33:41], hop.ChannelID)
		binary.BigEndian.PutUint32(record[41:45], hop.FeeBaseMSat)
		binary.BigEndian.PutUint32(
			record[45:49], hop.FeeProportionalMillionths,
		)
		binary.BigEndian.PutUint16(record[49:51], hop.CLTVExpiryDelta)

		b = append(b, record[:]...)
	}

	return b, nil
}

// parseHopHints reads the 51 byte records of a routing hint.
func parseHopHints(b []byte) ([]HopHint, error) {
	if len(b)%hopHintLen != 0 {
		return nil, fmt.Errorf("%w: routing hint of %d bytes is not a "+
			"multiple of %d", ErrMalformedInvoice, len(b), hopHintLen)
	}

	hops := make([]HopHint, 0, len(b)/hopHintLen)
	for i := 0; i < len(b); i += hopHintLen {
		record := b[i : i+hopHintLen]

		pubKey, err := btcec.ParsePubKey(record[:33])
		if err != nil {
			return nil, fmt.Errorf("%w: hop hint node id: %v",
				ErrMalformedInvoice, err)
		}

		hops = append(hops, HopHint{
			NodeID:      pubKey,
			ChannelID:   binary.BigEndian.Uint64(record[33:41]),
			FeeBaseMSat: binary.BigEndian.Uint32(record[41:45]),
			FeeProportionalMillionths: binary.BigEndian.Uint32(
				record[45:49],
			),
			CLTVExpiryDelta: binary.BigEndian.Uint16(record[49:51]),
		})
	}

	return hops, nil
}
