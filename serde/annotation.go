package serde

// FieldSpec is a record field's annotation (spec §3, §4.F), orthogonal to
// its underlying Kind. The zero value means "no annotation": written and
// read under its own Name, always present.
type FieldSpec struct {
	Name string

	// Rename is the wire name, if different from Name ("" = same as Name).
	Rename string
	// Alias is an additional name accepted on read alongside the wire
	// name — the optional "from" half of rename(to, from?). Rename wins
	// if both the rename target and the alias are present on the wire.
	Alias string

	// Skip means the field is never written and never read; on read the
	// receiver keeps its zero value.
	Skip bool
	// SkipEmpty means the field is written only when non-empty, and
	// defaults to empty when absent on read. "Empty" is determined by the
	// caller (e.g. serde.Option.IsNone()), not by this package.
	SkipEmpty bool
}

// WireName is the name a field is written under.
func (f FieldSpec) WireName() string {
	if f.Rename != "" {
		return f.Rename
	}
	return f.Name
}

// matches reports whether a wire key resolves to this field.
func (f FieldSpec) matches(wireKey string) bool {
	if wireKey == f.WireName() {
		return true
	}
	return f.Alias != "" && wireKey == f.Alias
}

// EncodeField pairs a FieldSpec with the callback that writes its value.
// EncodeStruct leaves out a field annotated Skip on its own; a field
// annotated SkipEmpty is written whenever it is in the slice, so the caller
// leaves it out when its value is empty.
type EncodeField struct {
	Spec   FieldSpec
	Encode func(Serializer) error
}

// EncodeStruct drives SerializeStruct/SerializeField/End for a record,
// leaving out Skip fields and applying rename via FieldSpec.WireName. It is
// shared by every back-end; it does not test SkipEmpty fields for emptiness
// (see EncodeField).
func EncodeStruct(s Serializer, name string, fields []EncodeField) error {
	enc, err := s.SerializeStruct(name, len(fields))
	if err != nil {
		return err
	}
	for _, f := range fields {
		if f.Spec.Skip {
			continue
		}
		if err := enc.SerializeField(f.Spec.WireName(), f.Encode); err != nil {
			return err
		}
	}
	return enc.End()
}

// DecodeField pairs a FieldSpec with the sink that consumes its value once
// a matching wire key is found.
type DecodeField struct {
	Spec  FieldSpec
	Decode func(Deserializer) error
}

// DecodeStruct drives DeserializeStruct/NextKey/DeserializeValue/SkipValue
// for a record. Declared fields may arrive in any wire order; fields absent
// from the wire are simply never invoked, leaving the receiver's zero value
// (which is exactly "default-constructed" for Skip fields and "none" for
// absent SkipEmpty fields). Unknown wire keys are skipped.
func DecodeStruct(d Deserializer, name string, fields []DecodeField) error {
	dec, err := d.DeserializeStruct(name, len(fields))
	if err != nil {
		return err
	}
	seenWire := make(map[string]bool)
	for {
		key, ok, err := dec.NextKey()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		target := findField(fields, key)
		if target == nil || target.Spec.Skip || (key != target.Spec.WireName() && seenWire[target.Spec.WireName()]) {
			if err := dec.SkipValue(); err != nil {
				return err
			}
			continue
		}
		if key == target.Spec.WireName() {
			seenWire[key] = true
		}
		if err := dec.DeserializeValue(target.Decode); err != nil {
			return err
		}
	}
	return dec.End()
}

func findField(fields []DecodeField, wireKey string) *DecodeField {
	for i := range fields {
		if fields[i].Spec.matches(wireKey) {
			return &fields[i]
		}
	}
	return nil
}

// Encodable is the customization point a record implements to drive
// serialization through any Serializer back-end.
type Encodable interface {
	EncodeSerde(s Serializer) error
}

// Decodable is the customization point a record implements to drive
// deserialization through any Deserializer back-end. Must be implemented on
// a pointer receiver so DecodeStruct's sinks can assign into fields.
type Decodable interface {
	DecodeSerde(d Deserializer) error
}
