package gguf_convert

import (
	"fmt"
	"strings"
)

// OptimizationLevel controls how aggressively a conversion
// reworks the tensor payloads of the output file.
type OptimizationLevel uint32

const (
	OptimizationLevelNone OptimizationLevel = iota
	OptimizationLevelBasic
	OptimizationLevelBalanced
	OptimizationLevelAggressive
	OptimizationLevelMaximum
	_OptimizationLevelCount // Unknown
)

// ParseOptimizationLevel parses the OptimizationLevel from the given string.
func ParseOptimizationLevel(s string) (OptimizationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return OptimizationLevelNone, nil
	case "basic":
		return OptimizationLevelBasic, nil
	case "balanced":
		return OptimizationLevelBalanced, nil
	case "aggressive":
		return OptimizationLevelAggressive, nil
	case "maximum":
		return OptimizationLevelMaximum, nil
	}
	return _OptimizationLevelCount, fmt.Errorf("unknown optimization level %q", s)
}

type (
	_ConvertOptions struct {
		OptimizationLevel  OptimizationLevel
		TargetQuantization *GGMLType
		PreserveMetadata   bool
		VerifyOutput       bool
		Validator          func(path string) bool
		ReadOptions        []GGUFReadOption
	}
	ConvertOption func(o *_ConvertOptions)
)

// UseOptimizationLevel selects the optimization passes applied to the output,
// default is OptimizationLevelNone.
func UseOptimizationLevel(l OptimizationLevel) ConvertOption {
	return func(o *_ConvertOptions) {
		if l >= _OptimizationLevelCount {
			return
		}
		o.OptimizationLevel = l
	}
}

// UseTargetQuantization re-encodes every tensor payload into the given
// element type after the container transform.
func UseTargetQuantization(t GGMLType) ConvertOption {
	return func(o *_ConvertOptions) {
		if t >= _GGMLTypeCount {
			return
		}
		o.TargetQuantization = &t
	}
}

// SkipMetadataPreservation drops all metadata but the "general." family
// from the output file.
func SkipMetadataPreservation() ConvertOption {
	return func(o *_ConvertOptions) {
		o.PreserveMetadata = false
	}
}

// UseVerifyOutput re-reads the written output and reports structural
// problems as warnings.
func UseVerifyOutput() ConvertOption {
	return func(o *_ConvertOptions) {
		o.VerifyOutput = true
	}
}

// UseValidator replaces the input validator called before any bytes of
// the input are read. A false return aborts the conversion.
func UseValidator(fn func(path string) bool) ConvertOption {
	return func(o *_ConvertOptions) {
		if fn == nil {
			return
		}
		o.Validator = fn
	}
}

// UseReadOptions forwards the given options to the input reader.
func UseReadOptions(opts ...GGUFReadOption) ConvertOption {
	return func(o *_ConvertOptions) {
		o.ReadOptions = append(o.ReadOptions, opts...)
	}
}
