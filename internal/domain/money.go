package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in cents. It reads and writes JSON as a decimal number
// with two fraction digits so clients see 49.99 rather than 4999.
type Money int64

// Cents builds Money from a whole number of cents.
func Cents(c int64) Money { return Money(c) }

// Int64 returns the amount in cents.
func (m Money) Int64() int64 { return int64(m) }

// ErrAmountOverflow is returned when an amount does not fit in int64 cents.
var ErrAmountOverflow = errors.New("amount out of range")

// Times multiplies m by a quantity, failing instead of wrapping around.
func (m Money) Times(qty int) (Money, error) {
	if m == 0 || qty == 0 {
		return 0, nil
	}
	p := int64(m) * int64(qty)
	if p/int64(qty) != int64(m) || (int64(qty) == -1 && int64(m) == math.MinInt64) {
		return 0, ErrAmountOverflow
	}
	return Money(p), nil
}

// Add sums two amounts, failing instead of wrapping around.
func (m Money) Add(o Money) (Money, error) {
	s := m + o
	if (o > 0 && s < m) || (o < 0 && s > m) {
		return 0, ErrAmountOverflow
	}
	return s, nil
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMoney parses a decimal amount with at most two fraction digits.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || (hasFrac && (frac == "" || len(frac) > 2)) {
		return 0, fmt.Errorf("invalid money amount %q", s)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	var cents int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		if cents, err = strconv.ParseInt(frac, 10, 64); err != nil || cents < 0 {
			return 0, fmt.Errorf("invalid money amount %q", s)
		}
	}
	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("invalid money amount %q: %w", s, ErrAmountOverflow)
	}
	total := units*100 + cents
	if neg {
		total = -total
	}
	return Money(total), nil
}
