package flex

import "github.com/fogsong233/eventide-sub001/serde"

// keyCapture is a throwaway serde.Serializer that only accepts SerializeStr,
// used to resolve a generic MapEncoder key-encode callback down to the plain
// string a FlexBuffers map key must be.
type keyCapture struct {
	value string
	set   bool
}

var errKeyMustBeString = serde.NewError(serde.ErrInvalidKey, "map key must be a string")

func (k *keyCapture) SerializeNone() error                                  { return errKeyMustBeString }
func (k *keyCapture) SerializeSome(func(serde.Serializer) error) error      { return errKeyMustBeString }
func (k *keyCapture) SerializeBool(bool) error                              { return errKeyMustBeString }
func (k *keyCapture) SerializeInt(int64) error                              { return errKeyMustBeString }
func (k *keyCapture) SerializeUint(uint64) error                            { return errKeyMustBeString }
func (k *keyCapture) SerializeFloat(float64) error                          { return errKeyMustBeString }
func (k *keyCapture) SerializeChar(rune) error                              { return errKeyMustBeString }
func (k *keyCapture) SerializeBytes([]byte) error                           { return errKeyMustBeString }

func (k *keyCapture) SerializeStr(v string) error {
	k.value, k.set = v, true
	return nil
}

func (k *keyCapture) SerializeSeq(int) (serde.SeqEncoder, error) { return nil, errKeyMustBeString }
func (k *keyCapture) SerializeTuple(int) (serde.TupleEncoder, error) {
	return nil, errKeyMustBeString
}
func (k *keyCapture) SerializeMap(int) (serde.MapEncoder, error) { return nil, errKeyMustBeString }
func (k *keyCapture) SerializeStruct(string, int) (serde.StructEncoder, error) {
	return nil, errKeyMustBeString
}
func (k *keyCapture) SerializeVariant(string, func(serde.Serializer) error) error {
	return errKeyMustBeString
}
