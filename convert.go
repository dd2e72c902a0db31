package gguf_convert

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/gpustack/gguf-convert-go/util/osx"
	"github.com/gpustack/gguf-convert-go/util/stringx"
)

// ConversionResult records the outcome of one Convert call,
// it is complete once returned and never mutated afterwards.
type ConversionResult struct {
	// InputPath is the path of the source file.
	InputPath string `json:"inputPath"`
	// OutputPath is the path of the destination file.
	OutputPath string `json:"outputPath"`
	// Success indicates whether the conversion produced a usable output.
	Success bool `json:"success"`
	// InputSize is the byte size of the source file.
	InputSize GGUFBytesScalar `json:"inputSize"`
	// OutputSize is the byte size of the destination file,
	// zero when the conversion failed before writing.
	OutputSize GGUFBytesScalar `json:"outputSize"`
	// CompressionRatio is InputSize over OutputSize,
	// exactly 1.0 for a byte-for-byte copy.
	CompressionRatio float64 `json:"compressionRatio"`
	// Elapsed is the wall-clock duration of the conversion.
	Elapsed time.Duration `json:"elapsed"`
	// Warnings lists every approximation or lossy adjustment applied,
	// a successful result may still carry warnings.
	Warnings []string `json:"warnings,omitempty"`
	// Errors lists the failures, non-empty iff Success is false.
	Errors []string `json:"errors,omitempty"`
	// MetadataPreserved indicates whether the output carries
	// the complete metadata of the input.
	MetadataPreserved bool `json:"metadataPreserved"`
	// QuantizationRMSE is the mean per-tensor root-mean-square error
	// introduced by re-encoding, zero when nothing was re-encoded.
	QuantizationRMSE float64 `json:"quantizationRMSE,omitempty"`
	// OutputPayloadDigest is the BLAKE2b-256 digest of the output
	// tensor payloads, only set when output verification runs.
	OutputPayloadDigest string `json:"outputPayloadDigest,omitempty"`
}

func (r *ConversionResult) fail(err error) ConversionResult {
	r.Errors = append(r.Errors, err.Error())
	r.Success = false
	return *r
}

// Convert rewrites the model file at inputPath into outputPath,
// selecting the source and destination container layouts from the
// file extensions.
//
// The pipeline is validate, detect, load, transform, quantize, save,
// verify. Failures are returned inside the ConversionResult rather
// than as a separate error, and verification problems are downgraded
// to warnings.
func Convert(inputPath, outputPath string, opts ...ConvertOption) (res ConversionResult) {
	var o = _ConvertOptions{
		PreserveMetadata: true,
		Validator:        func(path string) bool { return osx.ExistsFile(path) },
	}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	res = ConversionResult{
		InputPath:         inputPath,
		OutputPath:        outputPath,
		MetadataPreserved: o.PreserveMetadata,
	}
	defer func() { res.Elapsed = time.Since(start) }()

	// Validate,
	// rejects the input before a single byte of it is read.
	if !o.Validator(inputPath) {
		return res.fail(fmt.Errorf("%w: input %s rejected by validator", ErrGGUFFileInvalidFormat, inputPath))
	}
	st, err := os.Stat(inputPath)
	if err != nil {
		return res.fail(err)
	}
	res.InputSize = GGUFBytesScalar(st.Size())

	// Detect.
	srcKind, err := DetectContainerKind(inputPath)
	if err != nil {
		return res.fail(err)
	}
	dstKind, err := DetectContainerKind(outputPath)
	if err != nil {
		return res.fail(err)
	}
	src, ok := LookupContainer(srcKind)
	if !ok {
		return res.fail(fmt.Errorf("%w: no %s reader", ErrUnsupportedConversion, srcKind))
	}
	dst, ok := LookupContainer(dstKind)
	if !ok {
		return res.fail(fmt.Errorf("%w: no %s writer", ErrUnsupportedConversion, dstKind))
	}

	// Short-circuit,
	// identical layouts with nothing to rework degenerate to a file copy.
	if srcKind == dstKind && o.TargetQuantization == nil && o.OptimizationLevel == OptimizationLevelNone {
		if err = copyFile(inputPath, outputPath); err != nil {
			return res.fail(err)
		}
		res.OutputSize = res.InputSize
		res.CompressionRatio = 1.0
		res.MetadataPreserved = true
		res.Success = true
		return res
	}

	// Load.
	gf, data, err := src.ReadTensorList(inputPath, o.ReadOptions...)
	if err != nil {
		return res.fail(err)
	}
	res.Warnings = append(res.Warnings, gf.Warnings...)

	// Transform.
	if !o.PreserveMetadata {
		kvs := gf.Header.MetadataKV[:0:0]
		for _, kv := range gf.Header.MetadataKV {
			if f, _, ok := stringx.CutFromLeft(kv.Key, "."); ok && f == "general" {
				kvs = append(kvs, kv)
			}
		}
		gf.Header.MetadataKV = kvs
	}
	if o.OptimizationLevel != OptimizationLevelNone {
		res.Warnings = append(res.Warnings, pruneTensors(gf, data)...)
	}

	// Quantize.
	if o.TargetQuantization != nil {
		var rmses []float64
		rmses, err = recodeTensors(gf, data, *o.TargetQuantization, &res.Warnings)
		if err != nil {
			return res.fail(err)
		}
		if len(rmses) > 0 {
			res.QuantizationRMSE = stat.Mean(rmses, nil)
		}
	}
	if o.OptimizationLevel != OptimizationLevelNone {
		res.Warnings = append(res.Warnings, trimTensors(gf, data)...)
	}

	// Save,
	// the writer stages through a sibling temp file and renames it
	// into place, so a failed write never leaves a partial output.
	if err = dst.WriteTensorList(outputPath, gf, data); err != nil {
		return res.fail(err)
	}
	if st, err := os.Stat(outputPath); err == nil {
		res.OutputSize = GGUFBytesScalar(st.Size())
	}
	if res.OutputSize > 0 {
		res.CompressionRatio = float64(res.InputSize) / float64(res.OutputSize)
	}

	// Verify.
	if o.VerifyOutput {
		verifyOutput(dst, outputPath, len(gf.TensorInfos), &res)
	}

	res.Success = true
	return res
}

// pruneTensors drops tensors whose names mark them as dead weight,
// returning one warning per removal.
func pruneTensors(gf *GGUFFile, data GGUFTensorData) (warns []string) {
	tis := gf.TensorInfos[:0:0]
	for _, ti := range gf.TensorInfos {
		if strings.Contains(ti.Name, "unused") || strings.Contains(ti.Name, "debug") {
			delete(data, ti.Name)
			warns = append(warns, fmt.Sprintf("pruned tensor %s by name denylist", ti.Name))
			continue
		}
		tis = append(tis, ti)
	}
	gf.TensorInfos = tis
	gf.Header.TensorCount = uint64(len(tis))
	return warns
}

// trimTensors strips trailing zero bytes from each payload,
// the writer restores them on serialization so the tensor bytes
// are unchanged, but the in-memory footprint shrinks.
// Non-zero trailing bytes are never removed.
func trimTensors(gf *GGUFFile, data GGUFTensorData) (warns []string) {
	for _, ti := range gf.TensorInfos {
		bs := data[ti.Name]
		ts := bytes.TrimRight(bs, "\x00")
		if len(ts) == len(bs) {
			continue
		}
		data[ti.Name] = ts
		warns = append(warns, fmt.Sprintf("trimmed %d trailing zero bytes from tensor %s", len(bs)-len(ts), ti.Name))
	}
	return warns
}

// recodeTensors re-encodes every payload into the target element type,
// updating the tensor descriptors and the file type metadata to match
// what was actually produced. It returns the per-tensor root-mean-square
// re-encoding error for tensors whose source type decodes exactly.
func recodeTensors(gf *GGUFFile, data GGUFTensorData, to GGMLType, warns *[]string) (rmses []float64, err error) {
	cm := make(map[GGMLType]int, 2)
	for i := range gf.TensorInfos {
		ti := gf.TensorInfos[i]
		elements := ti.Elements()

		var before []float32
		if ti.Type.ExactCodec() && ti.Type != to {
			before, _, _ = DequantizeToFloat32s(ti.Type, data[ti.Name], elements)
		}

		bs, at, ws, err := RecodeTensorData(ti.Type, to, data[ti.Name], elements)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", ti.Name, err)
		}
		*warns = append(*warns, ws...)
		data[ti.Name] = bs
		gf.TensorInfos[i].Type = at
		cm[at]++

		if before != nil && at == to {
			after, _, err := DequantizeToFloat32s(at, bs, elements)
			if err != nil {
				return nil, fmt.Errorf("tensor %s: %w", ti.Name, err)
			}
			sq := make([]float64, len(before))
			for j := range before {
				d := float64(after[j]) - float64(before[j])
				sq[j] = d * d
			}
			rmses = append(rmses, math.Sqrt(stat.Mean(sq, nil)))
		}
	}

	if len(cm) > 0 {
		for i := range gf.Header.MetadataKV {
			if gf.Header.MetadataKV[i].Key != "general.file_type" {
				continue
			}
			// Re-encode in whatever width the container stored it as.
			ft := GetFileType(cm)
			switch gf.Header.MetadataKV[i].ValueType {
			case GGUFMetadataValueTypeInt32:
				gf.Header.MetadataKV[i].Value = int32(ft)
			case GGUFMetadataValueTypeUint64:
				gf.Header.MetadataKV[i].Value = uint64(ft)
			case GGUFMetadataValueTypeInt64:
				gf.Header.MetadataKV[i].Value = int64(ft)
			default:
				gf.Header.MetadataKV[i].Value = uint32(ft)
			}
			break
		}
	}
	return rmses, nil
}

// verifyOutput re-reads the written file and reports structural
// problems as warnings on the result, a failed verification never
// fails the conversion.
func verifyOutput(c TensorContainer, path string, wantTensors int, res *ConversionResult) {
	gf, data, err := c.ReadTensorList(path)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("output verification failed: %v", err))
		return
	}
	if len(gf.TensorInfos) != wantTensors {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("output verification failed: %d tensors, want %d", len(gf.TensorInfos), wantTensors))
	}
	digest := stringx.SumBytesByBLAKE2b(nil)
	if len(gf.TensorInfos) > 0 {
		bss := make([][]byte, 0, len(gf.TensorInfos))
		for _, ti := range gf.TensorInfos {
			bss = append(bss, data[ti.Name])
		}
		digest = stringx.SumBytesByBLAKE2b(bss[0], bss[1:]...)
	}
	res.OutputPayloadDigest = digest
}

// BatchConvert converts every regular file in inputDir whose base name
// matches the given glob pattern, writing the outputs under outputDir.
// A failing file does not stop the batch, its failure is recorded in
// the corresponding result. Results follow the lexical order of the
// directory listing, and the returned count is the number of successes.
func BatchConvert(inputDir, outputDir, pattern string, opts ...ConvertOption) (ress []ConversionResult, succeeded int, err error) {
	var o _ConvertOptions
	for _, opt := range opts {
		opt(&o)
	}

	des, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, 0, fmt.Errorf("read input dir: %w", err)
	}
	if err = os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, 0, fmt.Errorf("create output dir: %w", err)
	}

	for _, de := range des {
		if de.IsDir() {
			continue
		}
		matched, err := filepath.Match(pattern, de.Name())
		if err != nil {
			return nil, 0, fmt.Errorf("match pattern: %w", err)
		}
		if !matched {
			continue
		}

		on := de.Name()
		if o.TargetQuantization != nil {
			on = QuantizedFilename(on, *o.TargetQuantization)
		}
		res := Convert(filepath.Join(inputDir, de.Name()), filepath.Join(outputDir, on), opts...)
		if res.Success {
			succeeded++
		}
		ress = append(ress, res)
	}
	return ress, succeeded, nil
}

// copyFile copies src to dst byte for byte,
// staging through a sibling temp file renamed into place.
func copyFile(src, dst string) (err error) {
	sf, err := osx.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer osx.Close(sf)

	if dir := filepath.Dir(dst); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	tf, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			osx.Close(tf)
			_ = os.Remove(tf.Name())
		}
	}()

	if _, err = io.Copy(tf, sf); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err = tf.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tf.Name(), dst); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
