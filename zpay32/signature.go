package zpay32

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// compactSigLen is the length of a compact signature including its
	// header byte.
	compactSigLen = 65

	// compactSigMagicOffset is added to the recovery id in the header
	// byte of a compact signature, together with compactSigCompPubKey.
	compactSigMagicOffset = 27

	// compactSigCompPubKey marks a compact signature made for a
	// compressed public key.
	compactSigCompPubKey = 4
)

// Signature is the signature of an invoice: the two 32-byte scalars and the
// recovery id that allows the payee key to be computed from them.
type Signature struct {
	R [32]byte
	S [32]byte

	// RecoveryID selects which of the candidate keys signed the invoice.
	RecoveryID byte
}

// NewPrivKeySigner returns a MessageSigner signing with the given private
// key.
func NewPrivKeySigner(privKey *btcec.PrivateKey) MessageSigner {
	return MessageSigner{
		SignCompact: func(msg []byte) ([]byte, error) {
			hash := chainhash.HashB(msg)

			return ecdsa.SignCompact(privKey, hash, true), nil
		},
	}
}

// signatureFromCompact converts the 65 byte output of a MessageSigner into a
// Signature.
func signatureFromCompact(compact []byte) (Signature, error) {
	if len(compact) != compactSigLen {
		return Signature{}, fmt.Errorf("compact signature must be %d "+
			"bytes, got %d", compactSigLen, len(compact))
	}

	header := compact[0]
	if header < compactSigMagicOffset ||
		header > compactSigMagicOffset+compactSigCompPubKey+3 {

		return Signature{}, fmt.Errorf("invalid compact signature "+
			"header %d", header)
	}

	var sig Signature
	sig.RecoveryID = (header - compactSigMagicOffset) & 3
	copy(sig.R[:], compact[1:33])
	copy(sig.S[:], compact[33:65])

	return sig, nil
}

// signatureFromBytes reads the R || S || recovery id layout found at the end
// of an invoice.
func signatureFromBytes(b []byte) (Signature, error) {
	if len(b) != compactSigLen {
		return Signature{}, fmt.Errorf("%w: signature must be %d "+
			"bytes, got %d", ErrMalformedInvoice, compactSigLen,
			len(b))
	}

	var sig Signature
	copy(sig.R[:], b[:32])
	copy(sig.S[:], b[32:64])
	sig.RecoveryID = b[64]

	return sig, nil
}

// bytes returns the R || S || recovery id layout found at the end of an
// invoice.
func (s Signature) bytes() []byte {
	b := make([]byte, 0, compactSigLen)
	b = append(b, s.R[:]...)
	b = append(b, s.S[:]...)

	return append(b, s.RecoveryID)
}

// compact returns the signature in the format expected by
// ecdsa.RecoverCompact.
func (s Signature) compact() []byte {
	b := make([]byte, 0, compactSigLen)
	b = append(b, s.RecoveryID+compactSigMagicOffset+compactSigCompPubKey)
	b = append(b, s.R[:]...)

	return append(b, s.S[:]...)
}

// toECDSA converts the scalars into an ecdsa signature. The recovery id is
// not needed to verify a signature and is ignored.
func (s Signature) toECDSA() (*ecdsa.Signature, error) {
	var r, sc btcec.ModNScalar
	if overflow := r.SetByteSlice(s.R[:]); overflow {
		return nil, fmt.Errorf("%w: signature R overflows the curve "+
			"order", ErrMalformedInvoice)
	}
	if overflow := sc.SetByteSlice(s.S[:]); overflow {
		return nil, fmt.Errorf("%w: signature S overflows the curve "+
			"order", ErrMalformedInvoice)
	}

	return ecdsa.NewSignature(&r, &sc), nil
}

// Recover computes the public key that produced the signature over the hash.
// Any well formed signature recovers some key, so the result only identifies
// the signer if the hash is known to be authentic.
func (s Signature) Recover(hash []byte) (*btcec.PublicKey, error) {
	if s.RecoveryID > 3 {
		return nil, fmt.Errorf("%w: invalid recovery id %d",
			ErrMalformedInvoice, s.RecoveryID)
	}

	pubKey, _, err := ecdsa.RecoverCompact(s.compact(), hash)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to recover pubkey: %v",
			ErrMalformedInvoice, err)
	}

	return pubKey, nil
}

// Verify checks the signature over the hash against the given public key.
func (s Signature) Verify(hash []byte, pubKey *btcec.PublicKey) error {
	sig, err := s.toECDSA()
	if err != nil {
		return err
	}

	if !sig.Verify(hash, pubKey) {
		return fmt.Errorf("%w: signature does not match %x",
			ErrSignatureVerificationFailed,
			pubKey.SerializeCompressed())
	}

	return nil
}
