package lnutils

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/davecgh/go-spew/spew"
)

// LogClosure is used to provide a closure over expensive logging operations so
// don't have to be performed when the logging level doesn't warrant it.
type LogClosure func() string

// String invokes the underlying function and returns the result.
func (c LogClosure) String() string {
	return c()
}

// SpewLogClosure takes an interface and returns the string of it created from
// `spew.Sdump` in a LogClosure.
func SpewLogClosure(a any) LogClosure {
	return func() string {
		return spew.Sdump(a)
	}
}

// LogPubKey returns a closure rendering the compressed public key in hex.
func LogPubKey(pubKey *btcec.PublicKey) LogClosure {
	return func() string {
		// Callers should never log a nil key, but don't panic if
		// they do.
		if pubKey == nil {
			return "<nil>"
		}

		return hex.EncodeToString(pubKey.SerializeCompressed())
	}
}
