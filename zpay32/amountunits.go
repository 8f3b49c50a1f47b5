package zpay32

import (
	"fmt"
	"math/big"
	"math/bits"
	"strconv"

	"github.com/lightningnetwork/lninvoice/lnwire"
	"github.com/shopspring/decimal"
)

// amountUnit is a multiplier suffix of an invoice amount together with the
// number of millisatoshis one unit is worth.
type amountUnit struct {
	suffix byte

	// msat is the value of one unit in millisatoshis. The pico unit is
	// worth a tenth of a millisatoshi and is handled separately.
	msat uint64
}

// amountUnits lists the multipliers from the smallest to the largest unit.
// Whole coins carry no suffix.
var amountUnits = []amountUnit{
	{suffix: 'p'},
	{suffix: 'n', msat: 100},
	{suffix: 'u', msat: 100000},
	{suffix: 'm', msat: 100000000},
	{suffix: 0, msat: mSatPerBtc},
}

// unitFor returns the multiplier identified by suffix.
func unitFor(suffix byte) (amountUnit, bool) {
	for _, unit := range amountUnits {
		if unit.suffix == suffix && suffix != 0 {
			return unit, true
		}
	}

	return amountUnit{}, false
}

// encodeAmount encodes the provided millisatoshi amount using the largest
// multiplier that expresses it exactly. Amounts that are not a multiple of
// 100 msat fall back to pico coins.
func encodeAmount(msat lnwire.MilliSatoshi) (string, error) {
	for i := len(amountUnits) - 1; i > 0; i-- {
		unit := amountUnits[i]
		if uint64(msat)%unit.msat != 0 {
			continue
		}

		amount := strconv.FormatUint(uint64(msat)/unit.msat, 10)
		if unit.suffix == 0 {
			return amount, nil
		}

		return amount + string(unit.suffix), nil
	}

	hi, pico := bits.Mul64(uint64(msat), 10)
	if hi != 0 {
		return "", fmt.Errorf("%w: %v does not fit in pico units",
			ErrAmountNotRepresentable, msat)
	}

	return strconv.FormatUint(pico, 10) + "p", nil
}

// decodeAmount returns the amount encoded by the provided string in
// millisatoshi.
func decodeAmount(amount string) (lnwire.MilliSatoshi, error) {
	if len(amount) < 1 {
		return 0, fmt.Errorf("%w: amount must be non-empty",
			ErrMalformedInvoice)
	}

	// A trailing digit means the amount is in whole coins.
	num := amount
	unit := amountUnits[len(amountUnits)-1]
	if last := amount[len(amount)-1]; last < '0' || last > '9' {
		var ok bool
		unit, ok = unitFor(last)
		if !ok {
			return 0, fmt.Errorf("%w: unknown multiplier %q",
				ErrMalformedInvoice, last)
		}
		num = amount[:len(amount)-1]
	}

	if len(num) < 1 {
		return 0, fmt.Errorf("%w: number must be non-empty",
			ErrMalformedInvoice)
	}
	for i := 0; i < len(num); i++ {
		if num[i] < '0' || num[i] > '9' {
			return 0, fmt.Errorf("%w: invalid amount %q",
				ErrMalformedInvoice, amount)
		}
	}

	am, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %v",
			ErrAmountNotRepresentable, amount, err)
	}

	// Pico amounts must be whole millisatoshis.
	if unit.suffix == 'p' {
		if am%10 != 0 {
			return 0, fmt.Errorf("%w: %dp is not a whole msat",
				ErrAmountNotRepresentable, am)
		}

		return lnwire.MilliSatoshi(am / 10), nil
	}

	hi, msat := bits.Mul64(am, unit.msat)
	if hi != 0 {
		return 0, fmt.Errorf("%w: amount %q overflows",
			ErrAmountNotRepresentable, amount)
	}

	return lnwire.MilliSatoshi(msat), nil
}

var (
	// msatPerCoin is mSatPerBtc as a decimal.
	msatPerCoin = decimal.NewFromInt(mSatPerBtc)

	// maxMSat bounds the amounts the decimal API accepts.
	maxMSat = decimal.NewFromBigInt(
		new(big.Int).SetUint64(uint64(lnwire.MaxMilliSatoshi)), 0,
	)
)

// ShortenAmount renders an amount given in whole coins as the amount part of
// an invoice's human readable prefix, using the largest multiplier that
// represents it exactly. The amount must be a non-negative whole number of
// millisatoshis.
func ShortenAmount(amount decimal.Decimal) (string, error) {
	msat, err := AmountToMSat(amount)
	if err != nil {
		return "", err
	}

	return encodeAmount(msat)
}

// UnshortenAmount parses the amount part of an invoice's human readable
// prefix and returns it in whole coins.
func UnshortenAmount(amount string) (decimal.Decimal, error) {
	msat, err := decodeAmount(amount)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return MSatToAmount(msat), nil
}

// AmountToMSat converts an amount in whole coins to millisatoshis, failing if
// precision would be lost.
func AmountToMSat(amount decimal.Decimal) (lnwire.MilliSatoshi, error) {
	msat := amount.Mul(msatPerCoin)
	switch {
	case amount.IsNegative():
		return 0, fmt.Errorf("%w: negative amount %v",
			ErrAmountNotRepresentable, amount)

	case !msat.IsInteger():
		return 0, fmt.Errorf("%w: %v has sub-millisatoshi precision",
			ErrAmountNotRepresentable, amount)

	case msat.GreaterThan(maxMSat):
		return 0, fmt.Errorf("%w: %v overflows",
			ErrAmountNotRepresentable, amount)
	}

	return lnwire.MilliSatoshi(msat.BigInt().Uint64()), nil
}

// MSatToAmount converts millisatoshis to an exact amount in whole coins.
func MSatToAmount(msat lnwire.MilliSatoshi) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(msat)), -11)
}
