package zpay32

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func TestSignatureFromCompact(t *testing.T) {
	t.Parallel()

	compact := make([]byte, compactSigLen)
	for i := 1; i < compactSigLen; i++ {
		compact[i] = byte(i)
	}

	// Both the compressed and uncompressed header ranges are accepted.
	for header := byte(27); header <= 34; header++ {
		compact[0] = header

		sig, err := signatureFromCompact(compact)
		require.NoError(t, err)
		require.Equal(t, (header-27)&3, sig.RecoveryID)
		require.Equal(t, compact[1:33], sig.R[:])
		require.Equal(t, compact[33:], sig.S[:])
	}

	for _, header := range []byte{0, 26, 35, 0xff} {
		compact[0] = header
		_, err := signatureFromCompact(compact)
		require.Error(t, err)
	}

	_, err := signatureFromCompact(compact[:64])
	require.Error(t, err)
}

func TestSignatureBytes(t *testing.T) {
	t.Parallel()

	b := bytes.Repeat([]byte{0x42}, compactSigLen)
	b[64] = 2

	sig, err := signatureFromBytes(b)
	require.NoError(t, err)
	require.Equal(t, byte(2), sig.RecoveryID)
	require.Equal(t, b, sig.bytes())

	compact := sig.compact()
	require.Equal(t, byte(2+27+4), compact[0])
	require.Equal(t, b[:64], compact[1:])

	_, err = signatureFromBytes(b[:64])
	require.ErrorIs(t, err, ErrMalformedInvoice)
}

// TestRecoverVerify checks the two ways of finding the payee of a signature.
// Recovery trusts the recovery id and yields some key for any well formed
// signature, verification pins the key and ignores the recovery id.
func TestRecoverVerify(t *testing.T) {
	t.Parallel()

	msg := []byte("lnbc" + "some signed data")
	hash := chainhash.HashB(msg)

	compact, err := testMessageSigner.SignCompact(msg)
	require.NoError(t, err)
	sig, err := signatureFromCompact(compact)
	require.NoError(t, err)

	pubKey, err := sig.Recover(hash)
	require.NoError(t, err)
	require.True(t, pubKey.IsEqual(testPubKey))
	require.NoError(t, sig.Verify(hash, testPubKey))

	// Another key does not verify.
	err = sig.Verify(hash, testHopHintPubkey1)
	require.ErrorIs(t, err, ErrSignatureVerificationFailed)

	// Another message neither, and recovers a different key.
	otherHash := chainhash.HashB([]byte("other data"))
	err = sig.Verify(otherHash, testPubKey)
	require.ErrorIs(t, err, ErrSignatureVerificationFailed)

	otherKey, err := sig.Recover(otherHash)
	require.NoError(t, err)
	require.False(t, otherKey.IsEqual(testPubKey))

	// A different recovery id recovers a different key, but the signature
	// still verifies against the signer.
	flipped := sig
	flipped.RecoveryID ^= 1

	otherKey, err = flipped.Recover(hash)
	require.NoError(t, err)
	require.False(t, otherKey.IsEqual(testPubKey))
	require.NoError(t, flipped.Verify(hash, testPubKey))

	// Recovery ids only take two bits.
	flipped.RecoveryID = 4
	_, err = flipped.Recover(hash)
	require.ErrorIs(t, err, ErrMalformedInvoice)
}

func TestVerifyOverflow(t *testing.T) {
	t.Parallel()

	hash := chainhash.HashB([]byte("data"))

	var sig Signature
	copy(sig.R[:], bytes.Repeat([]byte{0xff}, 32))
	sig.S[31] = 1

	err := sig.Verify(hash, testPubKey)
	require.ErrorIs(t, err, ErrMalformedInvoice)

	sig.R, sig.S = sig.S, sig.R
	err = sig.Verify(hash, testPubKey)
	require.ErrorIs(t, err, ErrMalformedInvoice)
}

func TestNewPrivKeySigner(t *testing.T) {
	t.Parallel()

	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	msg := []byte("message")
	compact, err := NewPrivKeySigner(privKey).SignCompact(msg)
	require.NoError(t, err)
	require.Len(t, compact, compactSigLen)

	sig, err := signatureFromCompact(compact)
	require.NoError(t, err)

	pubKey, err := sig.Recover(chainhash.HashB(msg))
	require.NoError(t, err)
	require.True(t, pubKey.IsEqual(privKey.PubKey()))
}
