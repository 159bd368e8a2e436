package serde

import "math"

// Number widening (spec §4.E): a narrower target type receives a decoded
// int64/uint64 only if it fits, else ErrNumberOutOfRange. This only depends
// on the decoded 64-bit value, never on the wire format, so it is
// implemented once here instead of once per back-end.

func Int8(d Deserializer) (int8, error)   { return widenInt[int8](d, math.MinInt8, math.MaxInt8) }
func Int16(d Deserializer) (int16, error) { return widenInt[int16](d, math.MinInt16, math.MaxInt16) }
func Int32(d Deserializer) (int32, error) { return widenInt[int32](d, math.MinInt32, math.MaxInt32) }

func Uint8(d Deserializer) (uint8, error)   { return widenUint[uint8](d, math.MaxUint8) }
func Uint16(d Deserializer) (uint16, error) { return widenUint[uint16](d, math.MaxUint16) }
func Uint32(d Deserializer) (uint32, error) { return widenUint[uint32](d, math.MaxUint32) }

func widenInt[T ~int8 | ~int16 | ~int32](d Deserializer, min, max int64) (T, error) {
	v, err := d.DeserializeInt()
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, NewError(ErrNumberOutOfRange, "int does not fit in target width")
	}
	return T(v), nil
}

func widenUint[T ~uint8 | ~uint16 | ~uint32](d Deserializer, max uint64) (T, error) {
	v, err := d.DeserializeUint()
	if err != nil {
		return 0, err
	}
	if v > max {
		return 0, NewError(ErrNumberOutOfRange, "uint does not fit in target width")
	}
	return T(v), nil
}
