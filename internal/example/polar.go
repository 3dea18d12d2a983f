// Package example supplies PolarRecord, a demonstration record type used
// only by tests to exercise the generic btree.Tree[T]. It is the polar
// coordinate record (key, angle, radius) the original implementation used
// to drive its own test suite, translated from a memcpy'd struct into
// encoding/binary fields. Nothing in the core packages imports it.
package example

import (
	"encoding/binary"
	"math"

	"diskbtree/internal/types"
)

// PolarRecord pairs a key with a point expressed in polar coordinates.
type PolarRecord struct {
	K      types.Key
	Angle  float64
	Radius float64
}

// Size is the fixed serialized length: one Key plus two float64 fields.
const Size = 8 + 8 + 8

func (r PolarRecord) Key() types.Key { return r.K }

func (r PolarRecord) Serialize() types.Data {
	buf := make(types.Data, Size)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.K))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(r.Angle))
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(r.Radius))
	return buf
}

// Deserialize unpacks a Size-byte buffer produced by Serialize. Matches
// the btree.Options.Deserialize function signature.
func Deserialize(buf types.Data) PolarRecord {
	return PolarRecord{
		K:      types.Key(int64(binary.LittleEndian.Uint64(buf[0:8]))),
		Angle:  math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16])),
		Radius: math.Float64frombits(binary.LittleEndian.Uint64(buf[16:24])),
	}
}
