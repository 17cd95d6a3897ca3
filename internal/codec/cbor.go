package codec

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// CBOR is the default wire codec. The protocol carries no custom tags, so the
// stock fxamacker/cbor modes are enough; times travel as RFC 3339 strings and
// map keys are sorted so request frames are byte-stable across runs.
type CBOR struct {
	em cbor.EncMode
	dm cbor.DecMode
}

func NewCBOR() *CBOR {
	em, err := cbor.EncOptions{
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
		Sort:    cbor.SortCanonical,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	dm, err := cbor.DecOptions{
		TimeTag: cbor.DecTagOptional,
	}.DecMode()
	if err != nil {
		panic(err)
	}

	return &CBOR{em: em, dm: dm}
}

func (c *CBOR) Marshal(v any) ([]byte, error) {
	return c.em.Marshal(v)
}

func (c *CBOR) NewEncoder(w io.Writer) Encoder {
	return c.em.NewEncoder(w)
}

func (c *CBOR) Unmarshal(data []byte, dst any) error {
	return c.dm.Unmarshal(data, dst)
}

func (c *CBOR) NewDecoder(r io.Reader) Decoder {
	return c.dm.NewDecoder(r)
}

var (
	_ Marshaler   = (*CBOR)(nil)
	_ Unmarshaler = (*CBOR)(nil)
)
