package h2

import (
	"bytes"

	"golang.org/x/net/http2/hpack"
)

// HeaderField is one decoded header entry. It mirrors hpack.HeaderField so
// callers outside this package never need to import x/net/http2/hpack
// directly.
type HeaderField struct {
	Name      string
	Value     string
	Sensitive bool
}

// Decoder wraps golang.org/x/net/http2/hpack.Decoder rather than a
// hand-rolled codec, to get correct Huffman and indexed-field handling for
// free.
type Decoder struct {
	dec    *hpack.Decoder
	fields []HeaderField
	size   uint32
}

// NewDecoder builds a Decoder with the given dynamic table size. A non-zero
// maxHeaderListSize caps the length of each single decoded name or value
// string; the total size of a header list is not limited.
func NewDecoder(tableSize uint32, maxHeaderListSize uint32) *Decoder {
	d := &Decoder{size: 0}
	d.dec = hpack.NewDecoder(tableSize, d.onField)
	if maxHeaderListSize > 0 {
		d.dec.SetMaxStringLength(int(maxHeaderListSize))
	}
	return d
}

func (d *Decoder) onField(f hpack.HeaderField) {
	d.fields = append(d.fields, HeaderField{Name: f.Name, Value: f.Value, Sensitive: f.Sensitive})
}

// SetMaxDynamicTableSize sets the largest dynamic table the peer's encoder
// may use, i.e. the SETTINGS_HEADER_TABLE_SIZE we advertise.
func (d *Decoder) SetMaxDynamicTableSize(size uint32) {
	d.dec.SetMaxDynamicTableSize(size)
}

// DecodeFull parses a complete header block and returns its fields. The
// caller (headerblock.go) is responsible for joining HEADERS/CONTINUATION
// fragments into one block before calling this.
func (d *Decoder) DecodeFull(block []byte) ([]HeaderField, error) {
	d.fields = d.fields[:0]
	if _, err := d.dec.Write(block); err != nil {
		return nil, connError(CompressionError, "hpack: "+err.Error())
	}
	if err := d.dec.Close(); err != nil {
		return nil, connError(CompressionError, "hpack: "+err.Error())
	}
	return d.fields, nil
}

// Encoder wraps golang.org/x/net/http2/hpack.Encoder for serializing
// response/push-promise header blocks.
type Encoder struct {
	buf *bytes.Buffer
	enc *hpack.Encoder
}

// NewEncoder builds an Encoder with the given dynamic table size.
func NewEncoder(tableSize uint32) *Encoder {
	buf := &bytes.Buffer{}
	enc := hpack.NewEncoder(buf)
	enc.SetMaxDynamicTableSize(tableSize)
	return &Encoder{buf: buf, enc: enc}
}

// SetMaxDynamicTableSize applies the peer's SETTINGS_HEADER_TABLE_SIZE,
// which bounds the dynamic table this encoder may use.
func (e *Encoder) SetMaxDynamicTableSize(size uint32) {
	e.enc.SetMaxDynamicTableSize(size)
}

// Encode serializes fields into one header block.
func (e *Encoder) Encode(fields []HeaderField) ([]byte, error) {
	e.buf.Reset()
	for _, f := range fields {
		err := e.enc.WriteField(hpack.HeaderField{Name: f.Name, Value: f.Value, Sensitive: f.Sensitive})
		if err != nil {
			return nil, connError(CompressionError, "hpack: "+err.Error())
		}
	}
	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	return out, nil
}
