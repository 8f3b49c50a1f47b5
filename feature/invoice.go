package feature

import (
	"fmt"

	"github.com/lightningnetwork/lninvoice/lnwire"
)

// ErrUnknownRequiredFeature is returned when a feature vector sets even bits
// that the reader does not know about.
type ErrUnknownRequiredFeature struct {
	// Bits holds every unknown even bit, in ascending order.
	Bits []lnwire.FeatureBit
}

// Error returns a human-readable description of the unknown bits.
func (e ErrUnknownRequiredFeature) Error() string {
	return fmt.Sprintf("invoice requires unknown feature bits: %v", e.Bits)
}

// ErrIncompatibleFeatures is returned when one side requires a feature the
// other side does not signal in either form.
type ErrIncompatibleFeatures struct {
	// Bit is the even bit that could not be satisfied.
	Bit lnwire.FeatureBit

	// Remote is true if the bit was required by the remote vector and
	// missing from ours.
	Remote bool
}

// Error returns a human-readable description of the incompatibility.
func (e ErrIncompatibleFeatures) Error() string {
	side := "we require"
	if e.Remote {
		side = "they require"
	}

	return fmt.Sprintf("incompatible features: %s feature bit %d", side,
		e.Bit)
}

// InvoiceSet holds the feature bits that have a meaning inside a bolt11
// invoice. Both bits of every pair are listed.
var InvoiceSet = map[lnwire.FeatureBit]struct{}{
	lnwire.TLVOnionPayloadRequired:    {},
	lnwire.TLVOnionPayloadOptional:    {},
	lnwire.PaymentAddrRequired:        {},
	lnwire.PaymentAddrOptional:        {},
	lnwire.MPPRequired:                {},
	lnwire.MPPOptional:                {},
	lnwire.RouteBlindingRequired:      {},
	lnwire.RouteBlindingOptional:      {},
	lnwire.AMPRequired:                {},
	lnwire.AMPOptional:                {},
	lnwire.PaymentMetadataRequired:    {},
	lnwire.PaymentMetadataOptional:    {},
	lnwire.Bolt11BlindedPathsRequired: {},
	lnwire.Bolt11BlindedPathsOptional: {},
}

// ForInvoice returns a copy of fv with every bit outside of InvoiceSet
// removed.
func ForInvoice(fv *lnwire.FeatureVector) *lnwire.FeatureVector {
	filtered := lnwire.NewFeatureVector(nil, lnwire.Features)
	for bit := range fv.Features() {
		if _, ok := InvoiceSet[bit]; ok {
			filtered.Set(bit)
		}
	}

	return filtered
}

// Validate checks a feature vector read from an invoice. Unknown odd bits are
// ignored, unknown even bits yield ErrUnknownRequiredFeature. The known bits
// must then carry their transitive dependencies.
func Validate(fv *lnwire.FeatureVector) error {
	if unknown := fv.UnknownRequiredFeatures(); len(unknown) > 0 {
		log.Debugf("Rejecting feature vector %v: unknown required "+
			"bits %v", fv, unknown)

		return ErrUnknownRequiredFeature{Bits: unknown}
	}

	return ValidateDeps(fv)
}

// Compare negotiates our feature vector against theirs. Each of our bits that
// they lack in both forms fails the comparison if it is even and is dropped
// if it is odd. Each of their even bits that we lack in both forms fails the
// comparison too. The negotiated vector is returned with the odd partner of
// every shared even bit set as well.
func Compare(ours, theirs *lnwire.FeatureVector) (*lnwire.FeatureVector,
	error) {

	ourBits := ours.Features()
	theirBits := theirs.Features()
	negotiated := ours.Clone()

	has := func(set map[lnwire.FeatureBit]struct{},
		bit lnwire.FeatureBit) bool {

		_, ok := set[bit]
		if !ok {
			_, ok = set[bit^1]
		}

		return ok
	}

	for _, bit := range ours.Bits() {
		if !has(theirBits, bit) {
			if bit.IsRequired() {
				return nil, ErrIncompatibleFeatures{Bit: bit}
			}
			negotiated.Unset(bit)

			continue
		}

		if bit.IsRequired() {
			negotiated.Set(bit ^ 1)
		}
	}

	for _, bit := range theirs.Bits() {
		if !has(ourBits, bit) && bit.IsRequired() {
			return nil, ErrIncompatibleFeatures{
				Bit:    bit,
				Remote: true,
			}
		}
	}

	log.Tracef("Negotiated features %v from ours=%v theirs=%v",
		negotiated, ours, theirs)

	return negotiated, nil
}
