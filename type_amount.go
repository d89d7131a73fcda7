package vaultplan

import "github.com/shopspring/decimal"

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt32(int32(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// Amount is a quantity of a token, in the token's major unit.
type Amount struct {
	value decimal.Decimal
}

func A[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Amount {
	return Amount{value: newDecimal(value)}
}

// AmountFromRaw converts an integer on-chain amount into its major unit,
// shifting by the token's reported number of decimals.
func AmountFromRaw(raw string, decimals int32) (Amount, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Amount{}, err
	}
	return Amount{value: d.Shift(-decimals)}, nil
}

func (a Amount) Equal(b Amount) bool       { return a.value.Equal(b.value) }
func (a Amount) Add(b Amount) Amount       { return Amount{value: a.value.Add(b.value)} }
func (a Amount) Sub(b Amount) Amount       { return Amount{value: a.value.Sub(b.value)} }
func (a Amount) LessThan(b Amount) bool    { return a.value.LessThan(b.value) }
func (a Amount) GreaterThan(b Amount) bool { return a.value.GreaterThan(b.value) }
func (a Amount) IsNegative() bool          { return a.value.IsNegative() }
func (a Amount) IsPositive() bool          { return a.value.IsPositive() }
func (a Amount) IsZero() bool              { return a.value.IsZero() }
func (a Amount) String() string            { return a.value.String() }

// MarshalJSON implements the json.Marshaler interface.
func (a Amount) MarshalJSON() ([]byte, error) {
	return a.value.MarshalJSON()
}
func (a *Amount) UnmarshalJSON(decimalBytes []byte) error {
	return a.value.UnmarshalJSON(decimalBytes)
}
