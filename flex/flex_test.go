package flex

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fogsong233/eventide-sub001/serde"
)

func encodeInts(t *testing.T, vals []int64) []byte {
	t.Helper()
	s := NewSerializer()
	enc, err := s.SerializeSeq(len(vals))
	if err != nil {
		t.Fatalf("SerializeSeq: %v", err)
	}
	for _, v := range vals {
		v := v
		if err := enc.SerializeElement(func(s serde.Serializer) error { return s.SerializeInt(v) }); err != nil {
			t.Fatalf("SerializeElement: %v", err)
		}
	}
	if err := enc.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	buf, err := s.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	return buf
}

func TestSeqRoundTrip(t *testing.T) {
	want := []int64{1, 2, 3, 5, 8}
	buf := encodeInts(t, want)

	d, err := NewDeserializer(buf)
	if err != nil {
		t.Fatalf("NewDeserializer: %v", err)
	}
	dec, err := d.DeserializeSeq()
	if err != nil {
		t.Fatalf("DeserializeSeq: %v", err)
	}
	var got []int64
	for {
		has, err := dec.HasNext()
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !has {
			break
		}
		var v int64
		if err := dec.DeserializeElement(func(d serde.Deserializer) error {
			var err error
			v, err = d.DeserializeInt()
			return err
		}); err != nil {
			t.Fatalf("DeserializeElement: %v", err)
		}
		got = append(got, v)
	}
	if err := dec.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := d.RootConsumed(); err != nil {
		t.Fatalf("RootConsumed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMapRoundTrip(t *testing.T) {
	s := NewSerializer()
	enc, err := s.SerializeMap(2)
	if err != nil {
		t.Fatalf("SerializeMap: %v", err)
	}
	write := func(key string, vals []int64) error {
		return enc.SerializeEntry(
			func(s serde.Serializer) error { return s.SerializeStr(key) },
			func(s serde.Serializer) error {
				seq, err := s.SerializeSeq(len(vals))
				if err != nil {
					return err
				}
				for _, v := range vals {
					v := v
					if err := seq.SerializeElement(func(s serde.Serializer) error { return s.SerializeInt(v) }); err != nil {
						return err
					}
				}
				return seq.End()
			},
		)
	}
	if err := write("a", []int64{1, 2}); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := write("b", []int64{3}); err != nil {
		t.Fatalf("write b: %v", err)
	}
	if err := enc.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	buf, err := s.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	d, err := NewDeserializer(buf)
	if err != nil {
		t.Fatalf("NewDeserializer: %v", err)
	}
	mdec, err := d.DeserializeMap()
	if err != nil {
		t.Fatalf("DeserializeMap: %v", err)
	}
	got := map[string][]int64{}
	for {
		key, ok, err := mdec.NextKey()
		if err != nil {
			t.Fatalf("NextKey: %v", err)
		}
		if !ok {
			break
		}
		var vals []int64
		if err := mdec.DeserializeValue(func(d serde.Deserializer) error {
			seq, err := d.DeserializeSeq()
			if err != nil {
				return err
			}
			for {
				has, err := seq.HasNext()
				if err != nil {
					return err
				}
				if !has {
					break
				}
				var v int64
				if err := seq.DeserializeElement(func(d serde.Deserializer) error {
					var err error
					v, err = d.DeserializeInt()
					return err
				}); err != nil {
					return err
				}
				vals = append(vals, v)
			}
			return seq.End()
		}); err != nil {
			t.Fatalf("DeserializeValue: %v", err)
		}
		got[key] = vals
	}
	if err := mdec.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	want := map[string][]int64{"a": {1, 2}, "b": {3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

// widePerson has an extra field (Extra) that narrowPerson does not declare;
// decoding a wide-encoded payload with the narrow field set must skip Extra
// silently (forward compatibility, spec §8).
type widePerson struct {
	ID     int64
	Name   string
	Scores []int64
	Extra  string
}

func (p *widePerson) encodeFields() []serde.EncodeField {
	return []serde.EncodeField{
		{Spec: serde.FieldSpec{Name: "id"}, Encode: func(s serde.Serializer) error { return s.SerializeInt(p.ID) }},
		{Spec: serde.FieldSpec{Name: "name"}, Encode: func(s serde.Serializer) error { return s.SerializeStr(p.Name) }},
		{Spec: serde.FieldSpec{Name: "scores"}, Encode: func(s serde.Serializer) error {
			enc, err := s.SerializeSeq(len(p.Scores))
			if err != nil {
				return err
			}
			for _, v := range p.Scores {
				v := v
				if err := enc.SerializeElement(func(s serde.Serializer) error { return s.SerializeInt(v) }); err != nil {
					return err
				}
			}
			return enc.End()
		}},
		{Spec: serde.FieldSpec{Name: "extra"}, Encode: func(s serde.Serializer) error { return s.SerializeStr(p.Extra) }},
	}
}

func (p *widePerson) EncodeSerde(s serde.Serializer) error {
	return serde.EncodeStruct(s, "Person", p.encodeFields())
}

type narrowPerson struct {
	ID     int64
	Name   string
	Scores []int64
}

func (p *narrowPerson) DecodeSerde(d serde.Deserializer) error {
	fields := []serde.DecodeField{
		{Spec: serde.FieldSpec{Name: "id"}, Decode: func(d serde.Deserializer) error {
			var err error
			p.ID, err = d.DeserializeInt()
			return err
		}},
		{Spec: serde.FieldSpec{Name: "name"}, Decode: func(d serde.Deserializer) error {
			var err error
			p.Name, err = d.DeserializeStr()
			return err
		}},
		{Spec: serde.FieldSpec{Name: "scores"}, Decode: func(d serde.Deserializer) error {
			seq, err := d.DeserializeSeq()
			if err != nil {
				return err
			}
			for {
				has, err := seq.HasNext()
				if err != nil {
					return err
				}
				if !has {
					break
				}
				var v int64
				if err := seq.DeserializeElement(func(d serde.Deserializer) error {
					var err error
					v, err = d.DeserializeInt()
					return err
				}); err != nil {
					return err
				}
				p.Scores = append(p.Scores, v)
			}
			return seq.End()
		}},
	}
	return serde.DecodeStruct(d, "Person", fields)
}

func TestForwardCompatibleStructDecode(t *testing.T) {
	wide := &widePerson{ID: 7, Name: "Ada", Scores: []int64{9, 10}, Extra: "unused by the narrow reader"}
	s := NewSerializer()
	if err := wide.EncodeSerde(s); err != nil {
		t.Fatalf("EncodeSerde: %v", err)
	}
	buf, err := s.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	d, err := NewDeserializer(buf)
	if err != nil {
		t.Fatalf("NewDeserializer: %v", err)
	}
	var narrow narrowPerson
	if err := narrow.DecodeSerde(d); err != nil {
		t.Fatalf("DecodeSerde: %v", err)
	}
	if err := d.RootConsumed(); err != nil {
		t.Fatalf("RootConsumed: %v", err)
	}
	want := narrowPerson{ID: 7, Name: "Ada", Scores: []int64{9, 10}}
	if diff := cmp.Diff(want, narrow); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

// annotated exercises rename, skip, and skip_if_empty together.
type annotated struct {
	ID      int64
	Display string
	Hidden  string
	Tags    []int64
}

func (a *annotated) fieldSpecs() []serde.FieldSpec {
	return []serde.FieldSpec{
		{Name: "id"},
		{Name: "name", Rename: "displayName", Alias: "legacyName"},
		{Name: "hidden", Skip: true},
		{Name: "tags", SkipEmpty: true},
	}
}

func (a *annotated) EncodeSerde(s serde.Serializer) error {
	specs := a.fieldSpecs()
	fields := []serde.EncodeField{
		{Spec: specs[0], Encode: func(s serde.Serializer) error { return s.SerializeInt(a.ID) }},
		{Spec: specs[1], Encode: func(s serde.Serializer) error { return s.SerializeStr(a.Display) }},
		{Spec: specs[2], Encode: func(s serde.Serializer) error { return s.SerializeStr(a.Hidden) }},
	}
	// tags is SkipEmpty: the caller leaves it out of the field list when empty.
	if len(a.Tags) == 0 {
		return serde.EncodeStruct(s, "Annotated", fields)
	}
	return serde.EncodeStruct(s, "Annotated", append(fields, serde.EncodeField{
		Spec: specs[3], Encode: func(s serde.Serializer) error {
			enc, err := s.SerializeSeq(len(a.Tags))
			if err != nil {
				return err
			}
			for _, v := range a.Tags {
				v := v
				if err := enc.SerializeElement(func(s serde.Serializer) error { return s.SerializeInt(v) }); err != nil {
					return err
				}
			}
			return enc.End()
		},
	}))
}

func (a *annotated) DecodeSerde(d serde.Deserializer) error {
	specs := a.fieldSpecs()
	return serde.DecodeStruct(d, "Annotated", []serde.DecodeField{
		{Spec: specs[0], Decode: func(d serde.Deserializer) error {
			var err error
			a.ID, err = d.DeserializeInt()
			return err
		}},
		{Spec: specs[1], Decode: func(d serde.Deserializer) error {
			var err error
			a.Display, err = d.DeserializeStr()
			return err
		}},
		{Spec: specs[3], Decode: func(d serde.Deserializer) error {
			none, err := d.DeserializeNone()
			if err != nil {
				return err
			}
			if none {
				return nil
			}
			seq, err := d.DeserializeSeq()
			if err != nil {
				return err
			}
			for {
				has, err := seq.HasNext()
				if err != nil {
					return err
				}
				if !has {
					break
				}
				var v int64
				if err := seq.DeserializeElement(func(d serde.Deserializer) error {
					var err error
					v, err = d.DeserializeInt()
					return err
				}); err != nil {
					return err
				}
				a.Tags = append(a.Tags, v)
			}
			return seq.End()
		}},
	})
}

func TestFieldAnnotationRoundTrip(t *testing.T) {
	in := &annotated{ID: 1, Display: "Ada", Hidden: "must not survive", Tags: nil}
	s := NewSerializer()
	if err := in.EncodeSerde(s); err != nil {
		t.Fatalf("EncodeSerde: %v", err)
	}
	buf, err := s.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	d, err := NewDeserializer(buf)
	if err != nil {
		t.Fatalf("NewDeserializer: %v", err)
	}
	var out annotated
	if err := out.DecodeSerde(d); err != nil {
		t.Fatalf("DecodeSerde: %v", err)
	}
	if out.ID != 1 || out.Display != "Ada" || out.Hidden != "" || out.Tags != nil {
		t.Fatalf("got %+v", out)
	}
}

func TestUnclosedContainerFailsFinalize(t *testing.T) {
	s := NewSerializer()
	if _, err := s.SerializeSeq(2); err != nil {
		t.Fatalf("SerializeSeq: %v", err)
	}
	if _, err := s.Bytes(); serde.KindOf(err) != serde.ErrInvalidState {
		t.Fatalf("Bytes() err = %v, want ErrInvalidState", err)
	}
}

func TestDuplicateMapKeys(t *testing.T) {
	s := NewSerializer()
	enc, err := s.SerializeMap(2)
	if err != nil {
		t.Fatalf("SerializeMap: %v", err)
	}
	writeOne := func() error {
		return enc.SerializeEntry(
			func(s serde.Serializer) error { return s.SerializeStr("dup") },
			func(s serde.Serializer) error { return s.SerializeInt(1) },
		)
	}
	if err := writeOne(); err != nil {
		t.Fatalf("first entry: %v", err)
	}
	if err := writeOne(); serde.KindOf(err) != serde.ErrDuplicateKeys {
		t.Fatalf("second entry err = %v, want ErrDuplicateKeys", err)
	}
	if _, err := s.Bytes(); serde.KindOf(err) != serde.ErrDuplicateKeys {
		t.Fatalf("Bytes() err = %v, want ErrDuplicateKeys", err)
	}
}

func TestNaNAndInfiniteDecodeAsNone(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		s := NewSerializer()
		if err := s.SerializeFloat(v); err != nil {
			t.Fatalf("SerializeFloat(%v): %v", v, err)
		}
		buf, err := s.Bytes()
		if err != nil {
			t.Fatalf("Bytes: %v", err)
		}
		d, err := NewDeserializer(buf)
		if err != nil {
			t.Fatalf("NewDeserializer: %v", err)
		}
		none, err := d.DeserializeNone()
		if err != nil {
			t.Fatalf("DeserializeNone: %v", err)
		}
		if !none {
			t.Fatalf("value %v should decode as none", v)
		}
	}
}
