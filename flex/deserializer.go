package flex

import (
	"math"

	"github.com/fogsong233/eventide-sub001/serde"
)

// Deserializer streams values from a FlexBuffers-style buffer, starting at
// the trailing root pointer (spec §4.E).
type Deserializer struct {
	buf       []byte
	cursor    int    // offset of the next value to read; -1 once the root is consumed
	root      int    // offset where the root value began, for RootConsumed checks
	poolStart uint32 // offset where the string/key pool region begins within buf
}

// NewDeserializer opens a read-only session over buf. buf is not copied and
// must outlive the Deserializer.
func NewDeserializer(buf []byte) (*Deserializer, error) {
	if len(buf) < footerSize {
		return nil, serde.NewError(serde.ErrInvalidBuffer, "buffer too small for a trailing root footer")
	}
	footer := buf[len(buf)-footerSize:]
	rootOffset := int(footer[0]) | int(footer[1])<<8 | int(footer[2])<<16 | int(footer[3])<<24
	poolStart := int(footer[4]) | int(footer[5])<<8 | int(footer[6])<<16 | int(footer[7])<<24
	rootTag := footer[8]

	body := buf[:len(buf)-footerSize]
	if rootOffset < 0 || rootOffset >= len(body) {
		return nil, serde.NewError(serde.ErrInvalidBuffer, "root offset out of range")
	}
	if body[rootOffset] != rootTag {
		return nil, serde.NewError(serde.ErrInvalidBuffer, "root tag mismatch")
	}
	if poolStart < 0 || poolStart > len(body) {
		return nil, serde.NewError(serde.ErrInvalidBuffer, "pool start out of range")
	}

	return &Deserializer{buf: body, cursor: rootOffset, root: rootOffset, poolStart: uint32(poolStart)}, nil
}

// Done reports whether the root value has been fully consumed (spec's
// "session is complete only when the root has been fully consumed").
func (d *Deserializer) Done() bool { return d.cursor < 0 }

// RootConsumed returns ErrRootNotConsumed if the root value has not yet been
// fully read. Callers call this once they believe decoding is complete.
func (d *Deserializer) RootConsumed() error {
	if !d.Done() {
		return serde.NewError(serde.ErrRootNotConsumed, "root value was not fully consumed")
	}
	return nil
}

func (d *Deserializer) peekTag() (uint8, error) {
	if d.cursor < 0 || d.cursor >= len(d.buf) {
		return 0, serde.NewError(serde.ErrInvalidBuffer, "read past end of buffer")
	}
	return d.buf[d.cursor], nil
}

// takeTag consumes and returns the tag at the cursor, requiring it to be one
// of want.
func (d *Deserializer) takeTag(want ...uint8) (uint8, error) {
	tag, err := d.peekTag()
	if err != nil {
		return 0, err
	}
	for _, w := range want {
		if tag == w {
			d.cursor++
			return tag, nil
		}
	}
	return 0, serde.NewError(serde.ErrInvalidType, "unexpected tag")
}

func (d *Deserializer) readUvarint() (uint64, error) {
	v, n, err := readUvarint(d.buf, d.cursor)
	if err != nil {
		return 0, err
	}
	d.cursor += n
	return v, nil
}

func (d *Deserializer) readStrRef() (string, error) {
	off, err := d.readUvarint()
	if err != nil {
		return "", err
	}
	return readPoolString(d.buf, d.poolStart+uint32(off))
}

func (d *Deserializer) readFloat() (float64, error) {
	if d.cursor+8 > len(d.buf) {
		return 0, serde.NewError(serde.ErrInvalidBuffer, "truncated float")
	}
	bits := uint64(d.buf[d.cursor]) | uint64(d.buf[d.cursor+1])<<8 | uint64(d.buf[d.cursor+2])<<16 |
		uint64(d.buf[d.cursor+3])<<24 | uint64(d.buf[d.cursor+4])<<32 | uint64(d.buf[d.cursor+5])<<40 |
		uint64(d.buf[d.cursor+6])<<48 | uint64(d.buf[d.cursor+7])<<56
	d.cursor += 8
	return math.Float64frombits(bits), nil
}

// finishRoot marks the root consumed once the top-level value (whatever its
// kind) has been fully read.
func (d *Deserializer) finishRoot(consumedOffset int) {
	if consumedOffset == d.root {
		d.cursor = -1
	}
}

func (d *Deserializer) DeserializeNone() (bool, error) {
	tag, err := d.peekTag()
	if err != nil {
		return false, err
	}
	return tag == tagNone, nil
}

func (d *Deserializer) DeserializeSome(decode func(serde.Deserializer) error) error {
	return decode(d)
}

func (d *Deserializer) DeserializeBool() (bool, error) {
	start := d.cursor
	tag, err := d.takeTag(tagFalse, tagTrue)
	if err != nil {
		return false, err
	}
	d.finishRoot(start)
	return tag == tagTrue, nil
}

func (d *Deserializer) DeserializeInt() (int64, error) {
	start := d.cursor
	if _, err := d.takeTag(tagInt); err != nil {
		return 0, err
	}
	v, err := d.readUvarint()
	if err != nil {
		return 0, err
	}
	d.finishRoot(start)
	return zigzagDecode(v), nil
}

func (d *Deserializer) DeserializeUint() (uint64, error) {
	start := d.cursor
	if _, err := d.takeTag(tagUint); err != nil {
		return 0, err
	}
	v, err := d.readUvarint()
	if err != nil {
		return 0, err
	}
	d.finishRoot(start)
	return v, nil
}

func (d *Deserializer) DeserializeFloat() (float64, error) {
	start := d.cursor
	tag, err := d.takeTag(tagFloat, tagNone)
	if err != nil {
		return 0, err
	}
	if tag == tagNone {
		d.finishRoot(start)
		return 0, nil
	}
	v, err := d.readFloat()
	if err != nil {
		return 0, err
	}
	d.finishRoot(start)
	return v, nil
}

func (d *Deserializer) DeserializeChar() (rune, error) {
	start := d.cursor
	if _, err := d.takeTag(tagChar); err != nil {
		return 0, err
	}
	v, err := d.readUvarint()
	if err != nil {
		return 0, err
	}
	d.finishRoot(start)
	return rune(v), nil
}

func (d *Deserializer) DeserializeStr() (string, error) {
	start := d.cursor
	if _, err := d.takeTag(tagStr); err != nil {
		return "", err
	}
	v, err := d.readStrRef()
	if err != nil {
		return "", err
	}
	d.finishRoot(start)
	return v, nil
}

func (d *Deserializer) DeserializeBytes() ([]byte, error) {
	start := d.cursor
	if _, err := d.takeTag(tagBytes); err != nil {
		return nil, err
	}
	n, err := d.readUvarint()
	if err != nil {
		return nil, err
	}
	if d.cursor+int(n) > len(d.buf) {
		return nil, serde.NewError(serde.ErrInvalidBuffer, "truncated bytes")
	}
	out := make([]byte, n)
	copy(out, d.buf[d.cursor:d.cursor+int(n)])
	d.cursor += int(n)
	d.finishRoot(start)
	return out, nil
}

func (d *Deserializer) openContainer(tag uint8) (int, error) {
	start := d.cursor
	if _, err := d.takeTag(tag); err != nil {
		return 0, err
	}
	return start, nil
}

func (d *Deserializer) DeserializeSeq() (serde.SeqDecoder, error) {
	start, err := d.openContainer(tagSeq)
	if err != nil {
		return nil, err
	}
	return &seqDecoder{d: d, kind: serde.KindSeq, root: start}, nil
}

func (d *Deserializer) DeserializeTuple(length int) (serde.TupleDecoder, error) {
	start, err := d.openContainer(tagTuple)
	if err != nil {
		return nil, err
	}
	return &seqDecoder{d: d, kind: serde.KindTuple, root: start}, nil
}

func (d *Deserializer) DeserializeMap() (serde.MapDecoder, error) {
	start, err := d.openContainer(tagMap)
	if err != nil {
		return nil, err
	}
	return &mapDecoder{d: d, root: start}, nil
}

func (d *Deserializer) DeserializeStruct(name string, length int) (serde.MapDecoder, error) {
	start := d.cursor
	if _, err := d.takeTag(tagStruct); err != nil {
		return nil, err
	}
	if _, err := d.readStrRef(); err != nil { // struct name, not matched against `name`: unknown structs round-trip too
		return nil, err
	}
	return &mapDecoder{d: d, root: start}, nil
}

func (d *Deserializer) DeserializeVariant(decode func(tag string, d serde.Deserializer) error) error {
	start := d.cursor
	if _, err := d.takeTag(tagVariant); err != nil {
		return err
	}
	tag, err := d.readStrRef()
	if err != nil {
		return err
	}
	if err := decode(tag, d); err != nil {
		return err
	}
	d.finishRoot(start)
	return nil
}

// seqDecoder implements serde.SeqDecoder over a self-terminating seq/tuple
// frame.
type seqDecoder struct {
	d    *Deserializer
	kind serde.Kind
	root int
	done bool
}

func (e *seqDecoder) HasNext() (bool, error) {
	if e.done {
		return false, nil
	}
	tag, err := e.d.peekTag()
	if err != nil {
		return false, err
	}
	return tag != tagEnd, nil
}

func (e *seqDecoder) DeserializeElement(decode func(serde.Deserializer) error) error {
	has, err := e.HasNext()
	if err != nil {
		return err
	}
	if !has {
		return serde.NewError(serde.ErrInvalidState, "no more elements in sequence")
	}
	return decode(e.d)
}

func (e *seqDecoder) SkipElement() error {
	has, err := e.HasNext()
	if err != nil {
		return err
	}
	if !has {
		return serde.NewError(serde.ErrInvalidState, "no more elements to skip")
	}
	return skipValue(e.d)
}

func (e *seqDecoder) End() error {
	if e.done {
		return nil
	}
	if _, err := e.d.takeTag(tagEnd); err != nil {
		return err
	}
	e.done = true
	e.d.finishRoot(e.root)
	return nil
}

// mapDecoder implements serde.MapDecoder over a self-terminating map/struct
// frame, yielding keys in wire order.
type mapDecoder struct {
	d         *Deserializer
	root      int
	done      bool
	pendingOK bool
}

func (e *mapDecoder) NextKey() (string, bool, error) {
	if e.done {
		return "", false, nil
	}
	tag, err := e.d.peekTag()
	if err != nil {
		return "", false, err
	}
	if tag == tagEnd {
		return "", false, nil
	}
	key, err := e.d.readStrRef()
	if err != nil {
		return "", false, err
	}
	e.pendingOK = true
	return key, true, nil
}

func (e *mapDecoder) DeserializeValue(decode func(serde.Deserializer) error) error {
	if !e.pendingOK {
		return serde.NewError(serde.ErrInvalidState, "DeserializeValue called without a pending key")
	}
	e.pendingOK = false
	return decode(e.d)
}

func (e *mapDecoder) SkipValue() error {
	if !e.pendingOK {
		return serde.NewError(serde.ErrInvalidState, "SkipValue called without a pending key")
	}
	e.pendingOK = false
	return skipValue(e.d)
}

func (e *mapDecoder) End() error {
	if e.done {
		return nil
	}
	if _, err := e.d.takeTag(tagEnd); err != nil {
		return err
	}
	e.done = true
	e.d.finishRoot(e.root)
	return nil
}

// skipValue consumes one arbitrary value at the cursor without requiring the
// caller to know its kind — exactly what "unknown struct keys must be
// silently skippable" needs.
func skipValue(d *Deserializer) error {
	tag, err := d.peekTag()
	if err != nil {
		return err
	}
	switch tag {
	case tagNone, tagFalse, tagTrue:
		d.cursor++
	case tagInt, tagUint, tagChar, tagStr:
		d.cursor++
		if _, err := d.readUvarint(); err != nil {
			return err
		}
	case tagFloat:
		d.cursor++
		if _, err := d.readFloat(); err != nil {
			return err
		}
	case tagBytes:
		d.cursor++
		n, err := d.readUvarint()
		if err != nil {
			return err
		}
		if d.cursor+int(n) > len(d.buf) {
			return serde.NewError(serde.ErrInvalidBuffer, "truncated bytes")
		}
		d.cursor += int(n)
	case tagSeq, tagTuple:
		d.cursor++
		for {
			t, err := d.peekTag()
			if err != nil {
				return err
			}
			if t == tagEnd {
				d.cursor++
				return nil
			}
			if err := skipValue(d); err != nil {
				return err
			}
		}
	case tagMap:
		d.cursor++
		return skipKeyedFrame(d)
	case tagStruct:
		d.cursor++
		if _, err := d.readUvarint(); err != nil { // struct name ref
			return err
		}
		return skipKeyedFrame(d)
	case tagVariant:
		d.cursor++
		if _, err := d.readUvarint(); err != nil { // tag ref
			return err
		}
		return skipValue(d)
	default:
		return serde.NewError(serde.ErrInvalidType, "unknown tag while skipping")
	}
	return nil
}

func skipKeyedFrame(d *Deserializer) error {
	for {
		t, err := d.peekTag()
		if err != nil {
			return err
		}
		if t == tagEnd {
			d.cursor++
			return nil
		}
		if _, err := d.readUvarint(); err != nil { // key ref
			return err
		}
		if err := skipValue(d); err != nil {
			return err
		}
	}
}
