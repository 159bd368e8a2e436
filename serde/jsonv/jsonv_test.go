package jsonv

import (
	"math"
	"testing"

	"github.com/fogsong233/eventide-sub001/serde"
)

func TestStructRoundTrip(t *testing.T) {
	s := NewSerializer()
	fields := []serde.EncodeField{
		{Spec: serde.FieldSpec{Name: "id"}, Encode: func(s serde.Serializer) error { return s.SerializeInt(42) }},
		{Spec: serde.FieldSpec{Name: "name", Rename: "displayName"}, Encode: func(s serde.Serializer) error { return s.SerializeStr("Ada") }},
	}
	if err := serde.EncodeStruct(s, "Person", fields); err != nil {
		t.Fatalf("EncodeStruct: %v", err)
	}
	buf, err := s.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	d, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var id int64
	var name string
	decodeFields := []serde.DecodeField{
		{Spec: serde.FieldSpec{Name: "id"}, Decode: func(d serde.Deserializer) error {
			var err error
			id, err = d.DeserializeInt()
			return err
		}},
		{Spec: serde.FieldSpec{Name: "name", Rename: "displayName"}, Decode: func(d serde.Deserializer) error {
			var err error
			name, err = d.DeserializeStr()
			return err
		}},
	}
	if err := serde.DecodeStruct(d, "Person", decodeFields); err != nil {
		t.Fatalf("DecodeStruct: %v", err)
	}
	if id != 42 || name != "Ada" {
		t.Fatalf("got id=%d name=%q", id, name)
	}
}

func TestNaNEncodesAsNull(t *testing.T) {
	s := NewSerializer()
	if err := s.SerializeFloat(math.NaN()); err != nil {
		t.Fatalf("SerializeFloat: %v", err)
	}
	buf, err := s.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(buf) != "null" {
		t.Fatalf("got %q, want null", buf)
	}
}

func TestDuplicateMapKeys(t *testing.T) {
	s := NewSerializer()
	enc, err := s.SerializeMap(2)
	if err != nil {
		t.Fatalf("SerializeMap: %v", err)
	}
	write := func() error {
		return enc.SerializeEntry(
			func(s serde.Serializer) error { return s.SerializeStr("dup") },
			func(s serde.Serializer) error { return s.SerializeInt(1) },
		)
	}
	if err := write(); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := write(); serde.KindOf(err) != serde.ErrDuplicateKeys {
		t.Fatalf("second write err = %v, want ErrDuplicateKeys", err)
	}
}
