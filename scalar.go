package gguf_convert

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

type (
	// GGUFBytesScalar is the scalar for bytes.
	GGUFBytesScalar uint64

	// GGUFParametersScalar is the scalar for parameters.
	GGUFParametersScalar uint64

	// GGUFBitsPerWeightScalar is the scalar for bits per weight.
	GGUFBitsPerWeightScalar float64
)

// ParseGGUFBytesScalar parses the GGUFBytesScalar from the string,
// accepting both SI and IEC unit suffixes.
func ParseGGUFBytesScalar(s string) (GGUFBytesScalar, error) {
	if s == "" {
		return 0, errors.New("invalid GGUFBytesScalar")
	}
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return GGUFBytesScalar(v), nil
}

// GGUFBytesScalarStringInMiBytes is the flag to show the GGUFBytesScalar string in MiB.
var GGUFBytesScalarStringInMiBytes bool

func (s GGUFBytesScalar) String() string {
	if s == 0 {
		return "0 B"
	}
	if GGUFBytesScalarStringInMiBytes {
		f := strconv.FormatFloat(float64(s)/(1<<20), 'f', 2, 64)
		return strings.TrimSuffix(f, ".00") + " MiB"
	}
	return humanize.IBytes(uint64(s))
}

func (s GGUFParametersScalar) String() string {
	switch {
	case s >= 1e15:
		return humanize.CommafWithDigits(float64(s)/1e15, 2) + " Q"
	case s >= 1e12:
		return humanize.CommafWithDigits(float64(s)/1e12, 2) + " T"
	case s >= 1e9:
		return humanize.CommafWithDigits(float64(s)/1e9, 2) + " B"
	case s >= 1e6:
		return humanize.CommafWithDigits(float64(s)/1e6, 2) + " M"
	case s >= 1e3:
		return humanize.CommafWithDigits(float64(s)/1e3, 2) + " K"
	default:
		return strconv.FormatUint(uint64(s), 10)
	}
}

func (s GGUFBitsPerWeightScalar) String() string {
	if s <= 0 {
		return "0 bpw"
	}
	return strconv.FormatFloat(float64(s), 'f', 2, 64) + " bpw"
}
