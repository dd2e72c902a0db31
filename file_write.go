package gguf_convert

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// GGUFTensorData maps a tensor name to its on-disk payload bytes.
type GGUFTensorData map[string][]byte

// WriteGGUFFile serializes the given GGUFFile and tensor payloads to path.
//
// The file is staged next to the target and renamed into place,
// so a failed write never leaves a partial container behind.
func WriteGGUFFile(path string, gf *GGUFFile, data GGUFTensorData) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tf, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tf.Close()
			_ = os.Remove(tf.Name())
		}
	}()

	if err = WriteGGUF(tf, gf, data); err != nil {
		return err
	}
	if err = tf.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tf.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// WriteGGUF serializes the given GGUFFile and tensor payloads to w,
// always in little-endian byte order and the version 3 layout.
//
// Tensor descriptor offsets are recomputed from the payload sizes,
// each payload is placed at the next alignment boundary,
// so stale offsets on the input descriptors are ignored.
func WriteGGUF(w io.Writer, gf *GGUFFile, data GGUFTensorData) error {
	ag := uint64(GGUFDefaultAlignment)
	if v, ok := gf.Header.MetadataKV.Get("general.alignment"); ok {
		if x := ValueNumeric[uint64](v); x != 0 && x%8 == 0 {
			ag = x
		}
	}

	// Lay out tensor payloads before anything hits the wire.
	tis := make(GGUFTensorInfos, len(gf.TensorInfos))
	copy(tis, gf.TensorInfos)
	var offset uint64
	for i := range tis {
		tb, err := tis[i].Type.PayloadBytes(tis[i].Dimensions)
		if err != nil {
			return fmt.Errorf("tensor %s: %w", tis[i].Name, err)
		}
		bs, ok := data[tis[i].Name]
		if !ok {
			return fmt.Errorf("tensor %s: missing payload", tis[i].Name)
		}
		if uint64(len(bs)) > tb {
			return fmt.Errorf("tensor %s: payload is %d bytes, want at most %d", tis[i].Name, len(bs), tb)
		}
		offset = GGMLPadding(offset, ag)
		tis[i].Offset = offset
		offset += tb
	}

	wr := _GGUFWriter{w: w, bo: binary.LittleEndian}

	// magic, version
	if err := wr.WriteUint32(uint32(GGUFMagicGGUFLe)); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := wr.WriteUint32(uint32(GGUFVersionV3)); err != nil {
		return fmt.Errorf("write version: %w", err)
	}

	// tensor count, metadata kv count
	if err := wr.WriteUint64(uint64(len(tis))); err != nil {
		return fmt.Errorf("write tensor count: %w", err)
	}
	if err := wr.WriteUint64(uint64(len(gf.Header.MetadataKV))); err != nil {
		return fmt.Errorf("write metadata kv count: %w", err)
	}

	// metadata kv
	for i := range gf.Header.MetadataKV {
		kv := gf.Header.MetadataKV[i]
		if err := wr.WriteString(kv.Key); err != nil {
			return fmt.Errorf("write metadata kv %d key: %w", i, err)
		}
		if err := wr.WriteUint32(uint32(kv.ValueType)); err != nil {
			return fmt.Errorf("write metadata kv %d value type: %w", i, err)
		}
		if err := wr.WriteValue(kv.ValueType, kv.Value); err != nil {
			return fmt.Errorf("write %s value: %w", kv.Key, err)
		}
	}

	// tensor infos
	for i := range tis {
		if err := wr.WriteString(tis[i].Name); err != nil {
			return fmt.Errorf("write tensor %s name: %w", tis[i].Name, err)
		}
		if err := wr.WriteUint32(uint32(len(tis[i].Dimensions))); err != nil {
			return fmt.Errorf("write tensor %s n dimensions: %w", tis[i].Name, err)
		}
		for _, d := range tis[i].Dimensions {
			if err := wr.WriteUint64(d); err != nil {
				return fmt.Errorf("write tensor %s dimension: %w", tis[i].Name, err)
			}
		}
		if err := wr.WriteUint32(uint32(tis[i].Type)); err != nil {
			return fmt.Errorf("write tensor %s type: %w", tis[i].Name, err)
		}
		if err := wr.WriteUint64(tis[i].Offset); err != nil {
			return fmt.Errorf("write tensor %s offset: %w", tis[i].Name, err)
		}
	}

	// padding
	if err := wr.WritePadding(ag); err != nil {
		return fmt.Errorf("write padding: %w", err)
	}

	// tensor data,
	// payloads shorter than the descriptor length are zero-filled to it.
	for i := range tis {
		if err := wr.WritePadding(ag); err != nil {
			return fmt.Errorf("write tensor %s padding: %w", tis[i].Name, err)
		}
		bs := data[tis[i].Name]
		if err := wr.WriteBytes(bs); err != nil {
			return fmt.Errorf("write tensor %s data: %w", tis[i].Name, err)
		}
		tb, _ := tis[i].Type.PayloadBytes(tis[i].Dimensions)
		if fill := tb - uint64(len(bs)); fill > 0 {
			if err := wr.WriteBytes(make([]byte, fill)); err != nil {
				return fmt.Errorf("write tensor %s data: %w", tis[i].Name, err)
			}
		}
	}

	return nil
}

type _GGUFWriter struct {
	w  io.Writer
	n  uint64 // Bytes written so far.
	bo binary.ByteOrder
}

func (wr *_GGUFWriter) WriteBytes(bs []byte) error {
	n, err := wr.w.Write(bs)
	wr.n += uint64(n)
	if err != nil {
		return fmt.Errorf("write bytes: %w", err)
	}
	return nil
}

func (wr *_GGUFWriter) WriteUint8(v uint8) error {
	return wr.WriteBytes([]byte{v})
}

func (wr *_GGUFWriter) WriteUint16(v uint16) error {
	var bs [2]byte
	wr.bo.PutUint16(bs[:], v)
	return wr.WriteBytes(bs[:])
}

func (wr *_GGUFWriter) WriteUint32(v uint32) error {
	var bs [4]byte
	wr.bo.PutUint32(bs[:], v)
	return wr.WriteBytes(bs[:])
}

func (wr *_GGUFWriter) WriteUint64(v uint64) error {
	var bs [8]byte
	wr.bo.PutUint64(bs[:], v)
	return wr.WriteBytes(bs[:])
}

func (wr *_GGUFWriter) WriteString(v string) error {
	if !utf8.ValidString(v) {
		return fmt.Errorf("%w: string is not valid UTF-8", ErrGGUFFileInvalidFormat)
	}
	if err := wr.WriteUint64(uint64(len(v))); err != nil {
		return fmt.Errorf("write string length: %w", err)
	}
	return wr.WriteBytes([]byte(v))
}

// WritePadding writes zero bytes until the writer sits on an align boundary.
func (wr *_GGUFWriter) WritePadding(align uint64) error {
	pad := GGMLPadding(wr.n, align) - wr.n
	if pad == 0 {
		return nil
	}
	return wr.WriteBytes(make([]byte, pad))
}

func (wr *_GGUFWriter) WriteValue(vt GGUFMetadataValueType, v any) error {
	switch vt {
	case GGUFMetadataValueTypeUint8:
		x, ok := v.(uint8)
		if !ok {
			return fmt.Errorf("value is %T, want uint8", v)
		}
		return wr.WriteUint8(x)
	case GGUFMetadataValueTypeInt8:
		x, ok := v.(int8)
		if !ok {
			return fmt.Errorf("value is %T, want int8", v)
		}
		return wr.WriteUint8(uint8(x))
	case GGUFMetadataValueTypeUint16:
		x, ok := v.(uint16)
		if !ok {
			return fmt.Errorf("value is %T, want uint16", v)
		}
		return wr.WriteUint16(x)
	case GGUFMetadataValueTypeInt16:
		x, ok := v.(int16)
		if !ok {
			return fmt.Errorf("value is %T, want int16", v)
		}
		return wr.WriteUint16(uint16(x))
	case GGUFMetadataValueTypeUint32:
		x, ok := v.(uint32)
		if !ok {
			return fmt.Errorf("value is %T, want uint32", v)
		}
		return wr.WriteUint32(x)
	case GGUFMetadataValueTypeInt32:
		x, ok := v.(int32)
		if !ok {
			return fmt.Errorf("value is %T, want int32", v)
		}
		return wr.WriteUint32(uint32(x))
	case GGUFMetadataValueTypeFloat32:
		x, ok := v.(float32)
		if !ok {
			return fmt.Errorf("value is %T, want float32", v)
		}
		return wr.WriteUint32(math.Float32bits(x))
	case GGUFMetadataValueTypeBool:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("value is %T, want bool", v)
		}
		if x {
			return wr.WriteUint8(1)
		}
		return wr.WriteUint8(0)
	case GGUFMetadataValueTypeString:
		x, ok := v.(string)
		if !ok {
			return fmt.Errorf("value is %T, want string", v)
		}
		return wr.WriteString(x)
	case GGUFMetadataValueTypeArray:
		x, ok := v.(GGUFMetadataKVArrayValue)
		if !ok {
			return fmt.Errorf("value is %T, want GGUFMetadataKVArrayValue", v)
		}
		if err := wr.WriteUint32(uint32(x.Type)); err != nil {
			return fmt.Errorf("write array item type: %w", err)
		}
		n := uint64(len(x.Array))
		if x.Len != 0 && x.Len != n {
			return fmt.Errorf("array length %d does not match its %d elements", x.Len, n)
		}
		if err := wr.WriteUint64(n); err != nil {
			return fmt.Errorf("write array length: %w", err)
		}
		for i := range x.Array {
			if err := wr.WriteValue(x.Type, x.Array[i]); err != nil {
				return fmt.Errorf("write array item %d: %w", i, err)
			}
		}
		return nil
	case GGUFMetadataValueTypeUint64:
		x, ok := v.(uint64)
		if !ok {
			return fmt.Errorf("value is %T, want uint64", v)
		}
		return wr.WriteUint64(x)
	case GGUFMetadataValueTypeInt64:
		x, ok := v.(int64)
		if !ok {
			return fmt.Errorf("value is %T, want int64", v)
		}
		return wr.WriteUint64(uint64(x))
	case GGUFMetadataValueTypeFloat64:
		x, ok := v.(float64)
		if !ok {
			return fmt.Errorf("value is %T, want float64", v)
		}
		return wr.WriteUint64(math.Float64bits(x))
	default:
		return fmt.Errorf("invalid type: %v", vt)
	}
}
