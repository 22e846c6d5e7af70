// Package snapshot captures the class registry of a VM as a CBOR image:
// every registered class and module with its superclass, included modules,
// ancestor order and method table, plus the load manager's state. Images
// are content-addressed so two VMs with the same registry produce the same
// bytes and the same hash.
package snapshot

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/rubric/vm"
)

// FormatVersion is bumped when the image layout changes.
const FormatVersion = 1

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Method kinds recorded in an image.
const (
	KindPrimitive = "primitive" // implemented in Go
	KindSource    = "source"    // defined by def
	KindProc      = "proc"      // defined by define_method
)

// Image is a captured registry.
type Image struct {
	Version    int      `cbor:"1,keyasint"`
	Hash       [32]byte `cbor:"2,keyasint"`
	Types      []Type   `cbor:"3,keyasint"`
	SearchPath []string `cbor:"4,keyasint,omitempty"`
	Loaded     []string `cbor:"5,keyasint,omitempty"`
}

// Type is one class or module.
type Type struct {
	Name             string   `cbor:"1,keyasint"`
	Module           bool     `cbor:"2,keyasint,omitempty"`
	Superclass       string   `cbor:"3,keyasint,omitempty"`
	Includes         []string `cbor:"4,keyasint,omitempty"`
	Ancestors        []string `cbor:"5,keyasint"`
	Methods          []Method `cbor:"6,keyasint,omitempty"`
	SingletonMethods []Method `cbor:"7,keyasint,omitempty"`
	Constants        []string `cbor:"8,keyasint,omitempty"`
}

// Method is one method table entry.
type Method struct {
	Name       string `cbor:"1,keyasint"`
	Visibility string `cbor:"2,keyasint"`
	Kind       string `cbor:"3,keyasint"`
	Arity      int    `cbor:"4,keyasint"`
	File       string `cbor:"5,keyasint,omitempty"`
	Line       int    `cbor:"6,keyasint,omitempty"`
}

// Capture records the registry and load state of v.
func Capture(v *vm.VM) (*Image, error) {
	img := &Image{
		Version:    FormatVersion,
		SearchPath: v.Loader.SearchPath(),
		Loaded:     v.Loader.Loaded(),
	}
	for _, c := range v.Classes.All() {
		img.Types = append(img.Types, captureType(c))
	}
	sort.Slice(img.Types, func(i, j int) bool { return img.Types[i].Name < img.Types[j].Name })

	h, err := img.contentHash()
	if err != nil {
		return nil, err
	}
	img.Hash = h
	return img, nil
}

func captureType(c *vm.Class) Type {
	t := Type{
		Name:      c.FullName(),
		Module:    c.IsModule(),
		Ancestors: names(c.Ancestors()),
		Includes:  names(c.Includes),
		Methods:   captureMethods(c),
	}
	if c.Superclass != nil {
		t.Superclass = c.Superclass.FullName()
	}
	if meta := c.Metaclass(); meta != nil {
		t.SingletonMethods = captureMethods(meta)
	}
	for name := range c.Constants {
		t.Constants = append(t.Constants, name)
	}
	sort.Strings(t.Constants)
	return t
}

func captureMethods(c *vm.Class) []Method {
	var out []Method
	for _, e := range c.LocalMethods() {
		m := Method{
			Name:       e.Name,
			Visibility: e.Visibility.String(),
			Kind:       KindPrimitive,
			Arity:      vm.MethodArity(e.Method),
		}
		switch impl := e.Method.(type) {
		case *vm.ProcMethod:
			m.Kind = KindProc
		case vm.LocatedMethod:
			m.Kind = KindSource
			m.File, m.Line = impl.Location()
		}
		out = append(out, m)
	}
	return out
}

func names(cs []*vm.Class) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.FullName()
	}
	return out
}

// contentHash hashes the canonical encoding of the image with a zero hash.
func (img *Image) contentHash() ([32]byte, error) {
	saved := img.Hash
	img.Hash = [32]byte{}
	data, err := encMode.Marshal(img)
	img.Hash = saved
	if err != nil {
		return [32]byte{}, fmt.Errorf("snapshot: hash: %w", err)
	}
	return sha256.Sum256(data), nil
}

// Verify reports whether the recorded hash matches the image contents.
func (img *Image) Verify() error {
	h, err := img.contentHash()
	if err != nil {
		return err
	}
	if h != img.Hash {
		return fmt.Errorf("snapshot: hash mismatch: recorded %x, computed %x", img.Hash[:8], h[:8])
	}
	return nil
}

// Lookup returns the type with the given full name.
func (img *Image) Lookup(name string) (*Type, bool) {
	i := sort.Search(len(img.Types), func(i int) bool { return img.Types[i].Name >= name })
	if i < len(img.Types) && img.Types[i].Name == name {
		return &img.Types[i], true
	}
	return nil, false
}

// Marshal serializes an image to canonical CBOR.
func Marshal(img *Image) ([]byte, error) {
	return encMode.Marshal(img)
}

// Unmarshal deserializes an image and checks its version and hash.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal image: %w", err)
	}
	if img.Version != FormatVersion {
		return nil, fmt.Errorf("snapshot: unsupported image version %d", img.Version)
	}
	if err := img.Verify(); err != nil {
		return nil, err
	}
	return &img, nil
}
