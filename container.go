package gguf_convert

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gpustack/gguf-convert-go/util/osx"
)

// ContainerKind labels the on-disk family of a model container.
type ContainerKind uint32

// ContainerKind constants.
const (
	// ContainerKindGGUF is the GGUF tagged binary container.
	ContainerKindGGUF ContainerKind = iota
	// ContainerKindArchive is a flat tensor archive, e.g. safetensors.
	ContainerKindArchive
	// ContainerKindGraph is a serialized compute graph carrying weights, e.g. ONNX.
	ContainerKindGraph
	_ContainerKindCount // Unknown
)

var (
	ErrContainerKindUnknown  = errors.New("unknown container kind")
	ErrUnsupportedConversion = errors.New("unsupported conversion")
)

// TensorContainer reads and writes a model container of one ContainerKind.
//
// Both directions speak the GGUFFile structure,
// a non-GGUF implementation is expected to translate its own layout
// into metadata key-value pairs and tensor descriptors.
type TensorContainer interface {
	// Kind returns the kind this container handles.
	Kind() ContainerKind

	// ReadTensorList loads the container at path,
	// returning its structure and the per-tensor payload bytes.
	ReadTensorList(path string, opts ...GGUFReadOption) (*GGUFFile, GGUFTensorData, error)

	// WriteTensorList stores the structure and payloads at path.
	WriteTensorList(path string, gf *GGUFFile, data GGUFTensorData) error
}

var (
	_containersMu sync.RWMutex
	_containers   = map[ContainerKind]TensorContainer{
		ContainerKindGGUF: _GGUFContainer{},
	}
)

// RegisterContainer makes a TensorContainer implementation available to
// Convert and BatchConvert, replacing any previous one of the same kind.
func RegisterContainer(c TensorContainer) {
	_containersMu.Lock()
	defer _containersMu.Unlock()
	_containers[c.Kind()] = c
}

// LookupContainer returns the registered TensorContainer for the kind,
// and false if no implementation is registered.
func LookupContainer(kind ContainerKind) (TensorContainer, bool) {
	_containersMu.RLock()
	defer _containersMu.RUnlock()
	c, ok := _containers[kind]
	return c, ok
}

// DetectContainerKind resolves the ContainerKind from the path's extension.
func DetectContainerKind(path string) (ContainerKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gguf":
		return ContainerKindGGUF, nil
	case ".safetensors":
		return ContainerKindArchive, nil
	case ".onnx", ".pb":
		return ContainerKindGraph, nil
	default:
	}
	return _ContainerKindCount, fmt.Errorf("%w: %s", ErrContainerKindUnknown, filepath.Base(path))
}

// _GGUFContainer is the TensorContainer for GGUF files themselves.
type _GGUFContainer struct{}

func (_GGUFContainer) Kind() ContainerKind {
	return ContainerKindGGUF
}

func (_GGUFContainer) ReadTensorList(path string, opts ...GGUFReadOption) (*GGUFFile, GGUFTensorData, error) {
	gf, err := ParseGGUFFile(path, opts...)
	if err != nil {
		return nil, nil, err
	}

	f, err := osx.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	defer osx.Close(f)

	data := make(GGUFTensorData, len(gf.TensorInfos))
	for i := range gf.TensorInfos {
		data[gf.TensorInfos[i].Name], err = gf.ReadTensorData(f, gf.TensorInfos[i])
		if err != nil {
			return nil, nil, err
		}
	}
	return gf, data, nil
}

func (_GGUFContainer) WriteTensorList(path string, gf *GGUFFile, data GGUFTensorData) error {
	return WriteGGUFFile(path, gf, data)
}
