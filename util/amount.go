package util

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// AmountUnit describes a method of converting an Amount to something other
// than the base unit of an xdag. The value of the AmountUnit is the
// decimal exponent of the unit relative to one XDAG, except for
// AmountBaseUnit, which stands for the 2^-32 XDAG base unit.
type AmountUnit int

// These constants define various units used when describing an xdag
// monetary amount.
const (
	AmountMegaXdag AmountUnit = 6
	AmountKiloXdag AmountUnit = 3
	AmountXdag     AmountUnit = 0
	AmountBaseUnit AmountUnit = -9
)

// UnitsPerXdag is the number of base units in one XDAG. Amounts are binary
// fixed point with 32 fractional bits.
const UnitsPerXdag = 1 << 32

// MaxAmount is the largest representable amount.
const MaxAmount Amount = math.MaxUint64

// String returns the unit as a string. For recognized units, the SI prefix
// is used, or "Unit" for the base unit. For all unrecognized units, "1eN
// XDAG" is returned, where N is the AmountUnit.
func (u AmountUnit) String() string {
	switch u {
	case AmountMegaXdag:
		return "MXDAG"
	case AmountKiloXdag:
		return "kXDAG"
	case AmountXdag:
		return "XDAG"
	case AmountBaseUnit:
		return "Unit"
	default:
		return "1e" + strconv.FormatInt(int64(u), 10) + " XDAG"
	}
}

// Amount represents the base xdag monetary unit. One XDAG is 2^32 base
// units: a 64-bit unsigned binary fixed-point value with 32 fractional
// bits.
type Amount uint64

// round converts a floating point number, which may or may not be
// representable as an integer, to the Amount integer type by rounding to
// the nearest integer. This is performed by adding 0.5 and relying on
// integer truncation to round the value to the nearest Amount; f is never
// negative here, since NewAmount rejects negative values.
func round(f float64) Amount {
	return Amount(f + 0.5)
}

// NewAmount creates an Amount from a floating point value representing some
// value in xdag. NewAmount errors if f is NaN or +-Infinity, but does not
// check that the amount is within the total amount of xdag producible as f
// may not refer to an amount at a single moment in time.
//
// NewAmount is for specifically for converting XDAG to base units. For
// creating a new Amount with an int64 value which denotes a quantity of
// base units, do a simple type conversion from type int64 to Amount.
func NewAmount(f float64) (Amount, error) {
	// The amount is only considered invalid if it cannot be represented
	// as an integer type. This may happen if f is NaN or +-Infinity.
	switch {
	case math.IsNaN(f):
		fallthrough
	case math.IsInf(f, 1):
		fallthrough
	case math.IsInf(f, -1):
		return 0, errors.New("invalid xdag amount")
	case f < 0:
		return 0, errors.New("negative xdag amount")
	}

	return round(f * UnitsPerXdag), nil
}

// ToUnit converts a monetary amount counted in xdag base units to a
// floating point value representing an amount of xdag.
func (a Amount) ToUnit(u AmountUnit) float64 {
	if u == AmountBaseUnit {
		return float64(a)
	}
	return float64(a) / (float64(uint64(1)<<32) * math.Pow10(int(u)))
}

// ToXdag is the equivalent of calling ToUnit with AmountXdag.
func (a Amount) ToXdag() float64 {
	return a.ToUnit(AmountXdag)
}

// Format formats a monetary amount counted in xdag base units as a string
// for a given unit. The conversion will succeed for any unit, however, known
// units will be formatted with an appended label describing the units with
// single-unit precision.
func (a Amount) Format(u AmountUnit) string {
	units := " " + u.String()
	return strconv.FormatFloat(a.ToUnit(u), 'f', -1, 64) + units
}

// String is the equivalent of calling Format with AmountXdag.
func (a Amount) String() string {
	return a.Format(AmountXdag)
}

// Add returns a+b. Addition saturates at MaxAmount rather than wrapping.
func (a Amount) Add(b Amount) Amount {
	sum := a + b
	if sum < a {
		return MaxAmount
	}
	return sum
}

// Sub returns a-b. An error is returned when b exceeds a: balances never go
// negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, errors.Errorf("amount underflow: cannot subtract %s from %s", b, a)
	}
	return a - b, nil
}
