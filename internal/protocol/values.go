package protocol

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ToFloat converts a record scalar or a decoded number to float64.
// Numeric strings (64-bit integer columns) are parsed.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// isNumber reports whether v has a Go numeric type.
func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// ToString renders a scalar the way it is shown and grouped on: integral
// floats have no fractional part, nil is the empty string.
func ToString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

// Equal compares two scalars. Numbers of any Go type compare by value, and a
// number equals a string that parses to the same value; everything else
// compares by its string form.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNumber(a) || isNumber(b) {
		fa, okA := ToFloat(a)
		fb, okB := ToFloat(b)
		if okA && okB {
			return fa == fb
		}
		return false
	}
	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ba == bb
	}
	return ToString(a) == ToString(b)
}

// Compare orders two scalars: -1, 0 or +1. The order is total: numbers and
// numeric strings come first and compare exactly by value (decimal integer
// strings of any width included), then booleans with false before true, then
// everything else lexically by its string form. NaN and nil sort as text.
func Compare(a, b any) int {
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok && !math.IsNaN(x) && !math.IsNaN(y) {
			return cmpOrdered(x, y)
		}
	case string:
		if y, ok := b.(string); ok {
			ia, errA := strconv.ParseInt(x, 10, 64)
			ib, errB := strconv.ParseInt(y, 10, 64)
			if errA == nil && errB == nil {
				return cmpOrdered(ia, ib)
			}
		}
	}

	ra, rb := rankOf(a), rankOf(b)
	if ra != rb {
		return cmpOrdered(int64(ra), int64(rb))
	}

	switch ra {
	case rankNumber:
		na, _ := exactNumber(a)
		nb, _ := exactNumber(b)
		return na.Cmp(nb)
	case rankBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	default:
		return strings.Compare(ToString(a), ToString(b))
	}
}

const (
	rankNumber = iota
	rankBool
	rankText
)

func rankOf(v any) int {
	if _, ok := exactNumber(v); ok {
		return rankNumber
	}
	if _, ok := v.(bool); ok {
		return rankBool
	}
	return rankText
}

// exactNumber returns v as an arbitrary-precision value. Integers and decimal
// integer strings convert without rounding. NaN is not a number here.
func exactNumber(v any) (*big.Float, bool) {
	switch n := v.(type) {
	case string:
		s := strings.TrimSpace(n)
		if i, ok := new(big.Int).SetString(s, 10); ok {
			return new(big.Float).SetInt(i), true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return nil, false
		}
		return new(big.Float).SetFloat64(f), true
	case int:
		return new(big.Float).SetInt64(int64(n)), true
	case int8:
		return new(big.Float).SetInt64(int64(n)), true
	case int16:
		return new(big.Float).SetInt64(int64(n)), true
	case int32:
		return new(big.Float).SetInt64(int64(n)), true
	case int64:
		return new(big.Float).SetInt64(n), true
	case uint:
		return new(big.Float).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Float).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Float).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Float).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Float).SetUint64(n), true
	case float32:
		if math.IsNaN(float64(n)) {
			return nil, false
		}
		return new(big.Float).SetFloat64(float64(n)), true
	case float64:
		if math.IsNaN(n) {
			return nil, false
		}
		return new(big.Float).SetFloat64(n), true
	default:
		return nil, false
	}
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
