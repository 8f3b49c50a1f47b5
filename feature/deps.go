package feature

import (
	"fmt"

	"github.com/lightningnetwork/lninvoice/lnwire"
)

// ErrMissingFeatureDep is returned when a feature vector sets a bit without
// one of the features that bit depends on.
type ErrMissingFeatureDep struct {
	// Bit is the optional form of the feature whose dependency is
	// missing.
	Bit lnwire.FeatureBit

	// Dep is the optional form of the missing dependency.
	Dep lnwire.FeatureBit
}

// Error returns a human-readable description of the missing dep error.
func (e ErrMissingFeatureDep) Error() string {
	return fmt.Sprintf("feature bit %d depends on missing feature bit %d",
		e.Bit, e.Dep)
}

// invoiceDeps maps the optional bit of an invoice feature to the optional
// bits of the features it depends on. Features that are not listed have no
// dependencies. Every bit on either side is part of InvoiceSet.
var invoiceDeps = map[lnwire.FeatureBit][]lnwire.FeatureBit{
	lnwire.PaymentAddrOptional: {
		lnwire.TLVOnionPayloadOptional,
	},
	lnwire.MPPOptional: {
		lnwire.PaymentAddrOptional,
	},
	lnwire.AMPOptional: {
		lnwire.PaymentAddrOptional,
	},
	lnwire.RouteBlindingOptional: {
		lnwire.TLVOnionPayloadOptional,
	},
	lnwire.Bolt11BlindedPathsOptional: {
		lnwire.RouteBlindingOptional,
	},
}

// ValidateDeps asserts that every feature set in fv comes with the features
// it depends on. Either bit of a pair satisfies a dependency, so a required
// feature may depend on an optional one. Checking the direct dependencies of
// every set bit covers the transitive ones too. The lowest bit with a missing
// dependency is reported.
func ValidateDeps(fv *lnwire.FeatureVector) error {
	for _, bit := range fv.Bits() {
		opt := optional(bit)
		for _, dep := range invoiceDeps[opt] {
			if fv.IsSet(dep) || fv.IsSet(required(dep)) {
				continue
			}

			return ErrMissingFeatureDep{Bit: opt, Dep: dep}
		}
	}

	return nil
}

// SetBit returns a copy of fv with bit set along with everything it depends
// on. The dependencies of a required bit are set as required. Those of an
// optional bit are set as optional unless their pair is present already. A
// pair is only ever upgraded from optional to required.
func SetBit(fv *lnwire.FeatureVector,
	bit lnwire.FeatureBit) *lnwire.FeatureVector {

	out := fv.Clone()
	setWithDeps(out, bit)

	return out
}

func setWithDeps(fv *lnwire.FeatureVector, bit lnwire.FeatureBit) {
	switch {
	case bit.IsRequired():
		fv.Unset(optional(bit))
		fv.Set(bit)

	case !fv.IsSet(required(bit)):
		fv.Set(bit)
	}

	for _, dep := range invoiceDeps[optional(bit)] {
		if bit.IsRequired() {
			dep = required(dep)
		}
		setWithDeps(fv, dep)
	}
}

// optional returns the odd bit of the pair bit belongs to.
func optional(bit lnwire.FeatureBit) lnwire.FeatureBit {
	return bit | 1
}

// required returns the even bit of the pair bit belongs to.
func required(bit lnwire.FeatureBit) lnwire.FeatureBit {
	return bit &^ 1
}
