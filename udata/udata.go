// Package udata provides a variable-representation container for an
// uncertain scalar. A UData value carries one of six uncertainty kinds and a
// flat sequence of doubles whose layout depends on the kind.
package udata

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrOutOfRange is returned on indexing past the container size
	ErrOutOfRange = errors.New("udata index out of range")
	// ErrInvalidKind is returned when an accessor is misused for the current kind
	ErrInvalidKind = errors.New("accessor invalid for uncertainty kind")
)

// Kind is the uncertainty representation carried by a UData
type Kind int

const (
	// Point is a single deterministic value
	Point Kind = iota
	// MeanSD is a mean and standard deviation pair
	MeanSD
	// MeanCovar is a mean followed by N covariance entries
	MeanCovar
	// Percentiles is N (percentile, value) pairs
	Percentiles
	// Samples is N unweighted samples
	Samples
	// WSamples is N (sample, weight) pairs
	WSamples
)

// String implements the Stringer interface.
func (k Kind) String() string {
	switch k {
	case Point:
		return "Point"
	case MeanSD:
		return "MeanSD"
	case MeanCovar:
		return "MeanCovar"
	case Percentiles:
		return "Percentiles"
	case Samples:
		return "Samples"
	case WSamples:
		return "WSamples"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Dist is an advisory distribution tag
type Dist int

const (
	// DistUnknown means no distribution has been declared
	DistUnknown Dist = iota
	// DistGaussian tags the value as Gaussian distributed
	DistGaussian
	// DistUniform tags the value as uniformly distributed
	DistUniform
)

// Symbolic indices into the flat storage.
const (
	// Mean is the index of the mean for MeanSD and MeanCovar kinds
	Mean = 0
	// SD is the index of the standard deviation for the MeanSD kind
	SD = 1
)

// Covar returns the index of the i-th covariance entry for the MeanCovar kind
func Covar(i int) int { return 1 + i }

// Pair returns the index of the first element of the i-th pair
// for the Percentiles and WSamples kinds
func Pair(i int) int { return 2 * i }

// Sample returns the index of the i-th sample.
// For WSamples samples sit at even offsets.
func Sample(kind Kind, i int) int {
	if kind == WSamples {
		return 2 * i
	}
	return i
}

// Weight returns the index of the i-th weight for the WSamples kind
func Weight(i int) int { return 2*i + 1 }

// SizeOf returns the storage size for the given kind and npoints
func SizeOf(kind Kind, npoints int) int {
	switch kind {
	case Point:
		return 1
	case MeanSD:
		return 2
	case MeanCovar:
		return 1 + npoints
	case Percentiles, WSamples:
		return 2 * npoints
	case Samples:
		return npoints
	}
	return 0
}

// UData is an uncertain scalar. The zero value is not usable; use New.
type UData struct {
	kind    Kind
	npoints int
	data    []float64
	dist    Dist
	valid   bool
	updated int64
}

// New creates a new UData of the given kind with npoints 1
func New(kind Kind) *UData {
	u := &UData{kind: kind, npoints: 1}
	u.data = nanSlice(SizeOf(kind, 1))
	return u
}

// NewPoint creates a Point UData holding value
func NewPoint(value float64) *UData {
	u := New(Point)
	u.data[0] = value
	u.touch()
	return u
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// touch marks the container valid and bumps the update stamp to a value
// strictly greater than any prior stamp of this instance.
func (u *UData) touch() {
	u.valid = true
	now := time.Now().UnixNano()
	if now <= u.updated {
		now = u.updated + 1
	}
	u.updated = now
}

// Kind returns the current uncertainty kind
func (u *UData) Kind() Kind { return u.kind }

// SetKind changes the uncertainty kind. Setting the current kind is a no-op.
// Changing the kind preserves npoints and reshapes storage: retained cells
// keep their values, newly exposed cells read NaN.
func (u *UData) SetKind(kind Kind) {
	if kind == u.kind {
		return
	}
	u.kind = kind
	u.resize(SizeOf(kind, u.npoints))
}

// NPoints returns the current npoints
func (u *UData) NPoints() int { return u.npoints }

// SetNPoints resizes the underlying storage per the kind's size function
func (u *UData) SetNPoints(n int) {
	u.npoints = n
	u.resize(SizeOf(u.kind, n))
}

func (u *UData) resize(size int) {
	switch {
	case size < len(u.data):
		u.data = u.data[:size]
	case size > len(u.data):
		grown := nanSlice(size)
		copy(grown, u.data)
		u.data = grown
	}
}

// Size returns the current storage size
func (u *UData) Size() int { return len(u.data) }

// Dist returns the advisory distribution tag
func (u *UData) Dist() Dist { return u.dist }

// SetDist sets the advisory distribution tag
func (u *UData) SetDist(d Dist) { u.dist = d }

// Valid reports whether the container has been written at least once
func (u *UData) Valid() bool { return u.valid }

// Updated returns the update stamp in nanoseconds. Stamps are strictly
// increasing across mutations of the same instance.
func (u *UData) Updated() int64 { return u.updated }

// Get returns the value at index i
func (u *UData) Get(i int) (float64, error) {
	if i < 0 || i >= len(u.data) {
		return math.NaN(), fmt.Errorf("index %d, size %d: %w", i, len(u.data), ErrOutOfRange)
	}
	return u.data[i], nil
}

// At returns the value at index i. It panics on out of range access;
// use Get when the index is not known to be valid.
func (u *UData) At(i int) float64 {
	v, err := u.Get(i)
	if err != nil {
		panic(err)
	}
	return v
}

// Set stores v at index i
func (u *UData) Set(i int, v float64) error {
	if i < 0 || i >= len(u.data) {
		return fmt.Errorf("index %d, size %d: %w", i, len(u.data), ErrOutOfRange)
	}
	u.data[i] = v
	u.touch()
	return nil
}

// Vec returns a copy of the flat storage
func (u *UData) Vec() []float64 {
	out := make([]float64, len(u.data))
	copy(out, u.data)
	return out
}

// SetVec copies vals into the storage starting at offset.
// The values must fit within the container size.
func (u *UData) SetVec(offset int, vals []float64) error {
	if offset < 0 || offset+len(vals) > len(u.data) {
		return fmt.Errorf("offset %d length %d, size %d: %w", offset, len(vals), len(u.data), ErrOutOfRange)
	}
	copy(u.data[offset:], vals)
	u.touch()
	return nil
}

// SetAll copies vals over the whole storage. The length must equal Size.
func (u *UData) SetAll(vals []float64) error {
	if len(vals) != len(u.data) {
		return fmt.Errorf("length %d, size %d: %w", len(vals), len(u.data), ErrOutOfRange)
	}
	copy(u.data, vals)
	u.touch()
	return nil
}

// GetPair returns the i-th (first, second) pair for pair-structured kinds
func (u *UData) GetPair(i int) (float64, float64, error) {
	if u.kind != Percentiles && u.kind != WSamples && u.kind != MeanSD {
		return math.NaN(), math.NaN(), fmt.Errorf("kind %v: %w", u.kind, ErrInvalidKind)
	}
	first, err := u.Get(Pair(i))
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	second, err := u.Get(Pair(i) + 1)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return first, second, nil
}

// SetPair stores the i-th (first, second) pair for pair-structured kinds
func (u *UData) SetPair(i int, first, second float64) error {
	if u.kind != Percentiles && u.kind != WSamples && u.kind != MeanSD {
		return fmt.Errorf("kind %v: %w", u.kind, ErrInvalidKind)
	}
	if err := u.Set(Pair(i), first); err != nil {
		return err
	}
	return u.Set(Pair(i)+1, second)
}

// Samples returns the sample values for Samples and WSamples kinds
func (u *UData) Samples() ([]float64, error) {
	switch u.kind {
	case Samples:
		return u.Vec(), nil
	case WSamples:
		out := make([]float64, u.npoints)
		for i := range out {
			out[i] = u.data[Sample(WSamples, i)]
		}
		return out, nil
	}
	return nil, fmt.Errorf("kind %v: %w", u.kind, ErrInvalidKind)
}

// Weights returns the weights for the WSamples kind
func (u *UData) Weights() ([]float64, error) {
	if u.kind != WSamples {
		return nil, fmt.Errorf("kind %v: %w", u.kind, ErrInvalidKind)
	}
	out := make([]float64, u.npoints)
	for i := range out {
		out[i] = u.data[Weight(i)]
	}
	return out, nil
}

// Clone returns a deep copy of u
func (u *UData) Clone() *UData {
	c := *u
	c.data = make([]float64, len(u.data))
	copy(c.data, u.data)
	return &c
}
