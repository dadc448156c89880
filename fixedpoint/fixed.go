// Package fixedpoint implements the deterministic sub-pixel fixed-point
// arithmetic used across the layout and rasterization layers.
//
// Three widths are used at different layer boundaries, mirroring the
// original renderer this library's design is derived from: 26.6 for
// font/glyph metrics (the FreeType convention, and the same convention
// golang.org/x/image/math/fixed.Int26_6 uses), 16.16 for layout
// coordinates, animation timestamps and the cell rasterizer's winding and
// coverage accumulation, and 18.14, which trades integer range for finer
// sub-pixel steps. Each width is its own int32-based
// type (following golang.org/x/image/math/fixed's pattern) rather than a
// single parameterised type, since Go has no value-level generics to
// carry the shift amount as a type parameter.
package fixedpoint

import "math"

// Fixed26_6 is FreeType-style 26.6 fixed point: 1 unit = 1/64.
type Fixed26_6 int32

// Fixed16_16 is used for layout coordinates and animation timestamps:
// 1 unit = 1/65536.
type Fixed16_16 int32

// Fixed18_14 trades a little integer range for finer sub-pixel
// resolution: 1 unit = 1/16384. The cell rasterizer does not use it; its
// accumulator is Fixed16_16.
type Fixed18_14 int32

const (
	shift26_6  = 6
	shift16_16 = 16
	shift18_14 = 14

	one26_6  = int32(1) << shift26_6
	one16_16 = int32(1) << shift16_16
	one18_14 = int32(1) << shift18_14
)

// --- Fixed26_6 ---

func I26_6(i int) Fixed26_6 { return Fixed26_6(int32(i) << shift26_6) }

func F26_6(f float64) Fixed26_6 { return Fixed26_6(round(f * float64(one26_6))) }

func (f Fixed26_6) Float64() float64 { return float64(f) / float64(one26_6) }
func (f Fixed26_6) Add(g Fixed26_6) Fixed26_6 { return f + g }
func (f Fixed26_6) Sub(g Fixed26_6) Fixed26_6 { return f - g }
func (f Fixed26_6) Neg() Fixed26_6            { return -f }

func (f Fixed26_6) Mul(g Fixed26_6) Fixed26_6 {
	return Fixed26_6(mulShift(int64(f), int64(g), shift26_6))
}

func (f Fixed26_6) Div(g Fixed26_6) Fixed26_6 {
	return Fixed26_6(divShift(int64(f), int64(g), shift26_6))
}

func (f Fixed26_6) Floor() int { return floorShift(int32(f), shift26_6) }
func (f Fixed26_6) Ceil() int  { return ceilShift(int32(f), shift26_6) }
func (f Fixed26_6) Round() int { return roundShift(int32(f), shift26_6) }
func (f Fixed26_6) Trunc() int { return int(int32(f) / one26_6) }
func (f Fixed26_6) Fract() Fixed26_6 {
	return f - I26_6(f.Trunc())
}
func (f Fixed26_6) Abs() Fixed26_6 {
	if f < 0 {
		return -f
	}
	return f
}

// --- Fixed16_16 ---

func I16_16(i int) Fixed16_16 { return Fixed16_16(int32(i) << shift16_16) }

func F16_16(f float64) Fixed16_16 { return Fixed16_16(round(f * float64(one16_16))) }

func (f Fixed16_16) Float64() float64 { return float64(f) / float64(one16_16) }
func (f Fixed16_16) Add(g Fixed16_16) Fixed16_16 { return f + g }
func (f Fixed16_16) Sub(g Fixed16_16) Fixed16_16 { return f - g }
func (f Fixed16_16) Neg() Fixed16_16             { return -f }

func (f Fixed16_16) Mul(g Fixed16_16) Fixed16_16 {
	return Fixed16_16(mulShift(int64(f), int64(g), shift16_16))
}

func (f Fixed16_16) Div(g Fixed16_16) Fixed16_16 {
	return Fixed16_16(divShift(int64(f), int64(g), shift16_16))
}

func (f Fixed16_16) Floor() int { return floorShift(int32(f), shift16_16) }
func (f Fixed16_16) Ceil() int  { return ceilShift(int32(f), shift16_16) }
func (f Fixed16_16) Round() int { return roundShift(int32(f), shift16_16) }
func (f Fixed16_16) Trunc() int { return int(int32(f) / one16_16) }
func (f Fixed16_16) Fract() Fixed16_16 {
	return f - I16_16(f.Trunc())
}
func (f Fixed16_16) Abs() Fixed16_16 {
	if f < 0 {
		return -f
	}
	return f
}

// --- Fixed18_14 ---

func I18_14(i int) Fixed18_14 { return Fixed18_14(int32(i) << shift18_14) }

func F18_14(f float64) Fixed18_14 { return Fixed18_14(round(f * float64(one18_14))) }

func (f Fixed18_14) Float64() float64 { return float64(f) / float64(one18_14) }
func (f Fixed18_14) Add(g Fixed18_14) Fixed18_14 { return f + g }
func (f Fixed18_14) Sub(g Fixed18_14) Fixed18_14 { return f - g }
func (f Fixed18_14) Neg() Fixed18_14             { return -f }

func (f Fixed18_14) Mul(g Fixed18_14) Fixed18_14 {
	return Fixed18_14(mulShift(int64(f), int64(g), shift18_14))
}

func (f Fixed18_14) Floor() int { return floorShift(int32(f), shift18_14) }
func (f Fixed18_14) Ceil() int  { return ceilShift(int32(f), shift18_14) }
func (f Fixed18_14) Round() int { return roundShift(int32(f), shift18_14) }
func (f Fixed18_14) Trunc() int { return int(int32(f) / one18_14) }

// --- shared helpers ---

func round(f float64) int32 {
	if f >= 0 {
		return int32(f + 0.5)
	}
	return -int32(-f + 0.5)
}

func mulShift(a, b int64, shift uint) int32 {
	prod := a * b
	half := int64(1) << (shift - 1)
	if prod >= 0 {
		prod += half
	} else {
		prod -= half
	}
	return int32(prod >> shift)
}

func divShift(a, b int64, shift uint) int32 {
	if b == 0 {
		if a >= 0 {
			return math.MaxInt32
		}
		return math.MinInt32
	}
	num := a << shift
	if (num >= 0) == (b >= 0) {
		num += b / 2
	} else {
		num -= b / 2
	}
	return int32(num / b)
}

func floorShift(v int32, shift uint) int {
	u := int32(1) << shift
	q := v / u
	if v%u != 0 && v < 0 {
		q--
	}
	return int(q)
}

func ceilShift(v int32, shift uint) int {
	u := int32(1) << shift
	q := v / u
	if v%u != 0 && v > 0 {
		q++
	}
	return int(q)
}

func roundShift(v int32, shift uint) int {
	half := int32(1) << (shift - 1)
	if v >= 0 {
		return int((v + half) >> shift)
	}
	return -int((-v + half) >> shift)
}

// CoverageToU16 quantises a coverage value in [0,1) (as produced by the
// rasterizer's exact-area accumulation) to a u16. Following spec §4.1,
// coverage is first widened to a 32-bit fixed-point fraction c = coverage
// * 2^16 (rounded to nearest), and the u16 result is (c*2^16 - c) >> 16,
// i.e. c scaled down by (2^16-1)/2^16 and floored — this guarantees
// monotonicity in
// coverage and exact endpoints (0 maps to 0, coverage >= 1 maps to
// 65535).
func CoverageToU16(coverage float64) uint16 {
	if coverage <= 0 {
		return 0
	}
	if coverage >= 1 {
		return 65535
	}
	c := int64(math.Round(coverage * 65536))
	v := (c<<16 - c) >> 16
	if v < 0 {
		v = 0
	}
	if v > 65535 {
		v = 65535
	}
	return uint16(v)
}
