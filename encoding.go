package rdb

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// msgpack wire tags for Document.Kind, chosen independently of msgpack's own
// type tags so decode can dispatch on ours without peeking at msgpack
// internals.
const (
	tagNull   = 0
	tagBool   = 1
	tagNumber = 2
	tagString = 3
	tagArray  = 4
	tagObject = 5
)

// encode produces the canonical binary encoding of a document: deterministic
// for a given Document value, field order preserved (not sorted) so it
// round-trips through Document.Equal regardless of map iteration order
// concerns, since Document never stores a Go map.
func encode(d Document) []byte {
	bb := bytesBuilder{}
	enc := msgpack.GetEncoder()
	enc.ResetDict(&bb, nil)
	err := encodeValue(enc, d)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("rdb: failed to encode document: %w", err))
	}
	return bb.Buf
}

func encodeValue(enc *msgpack.Encoder, d Document) error {
	switch d.kind {
	case KindNull:
		if err := enc.EncodeUint8(tagNull); err != nil {
			return err
		}
		return enc.EncodeNil()
	case KindBool:
		if err := enc.EncodeUint8(tagBool); err != nil {
			return err
		}
		return enc.EncodeBool(d.b)
	case KindNumber:
		if err := enc.EncodeUint8(tagNumber); err != nil {
			return err
		}
		return enc.EncodeFloat64(d.num)
	case KindString:
		if err := enc.EncodeUint8(tagString); err != nil {
			return err
		}
		return enc.EncodeString(d.str)
	case KindArray:
		if err := enc.EncodeUint8(tagArray); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(d.arr)); err != nil {
			return err
		}
		for _, item := range d.arr {
			if err := encodeValue(enc, item); err != nil {
				return err
			}
		}
		return nil
	case KindObject:
		if err := enc.EncodeUint8(tagObject); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(d.fields)); err != nil {
			return err
		}
		for _, f := range d.fields {
			if err := enc.EncodeString(f.Name); err != nil {
				return err
			}
			if err := encodeValue(enc, f.Value); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported document kind %v", d.kind)
	}
}

// decode parses the canonical binary encoding. Any malformed input is
// reported as a *DataError: fatal and not user-visible, per the storage
// core's error tiers.
func decode(data []byte) (Document, error) {
	d, _, err := decodePrefix(data)
	return d, err
}

// decodePrefix decodes one document off the front of data and reports how
// many bytes it consumed, so a caller stacking multiple encoded values back
// to back (as the modification-report wire form does) can find where the
// next one starts.
func decodePrefix(data []byte) (Document, int, error) {
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.ResetDict(&r, nil)
	d, err := decodeValue(dec)
	msgpack.PutDecoder(dec)
	if err != nil {
		return Document{}, 0, dataErrf(data, 0, err, "corrupted document")
	}
	return d, len(data) - r.Len(), nil
}

func decodeValue(dec *msgpack.Decoder) (Document, error) {
	tag, err := dec.DecodeUint8()
	if err != nil {
		return Document{}, err
	}
	switch tag {
	case tagNull:
		if err := dec.DecodeNil(); err != nil {
			return Document{}, err
		}
		return Null, nil
	case tagBool:
		v, err := dec.DecodeBool()
		if err != nil {
			return Document{}, err
		}
		return Bool(v), nil
	case tagNumber:
		v, err := dec.DecodeFloat64()
		if err != nil {
			return Document{}, err
		}
		return Number(v), nil
	case tagString:
		v, err := dec.DecodeString()
		if err != nil {
			return Document{}, err
		}
		return String(v), nil
	case tagArray:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return Document{}, err
		}
		items := make([]Document, 0, n)
		for i := 0; i < n; i++ {
			v, err := decodeValue(dec)
			if err != nil {
				return Document{}, err
			}
			items = append(items, v)
		}
		return Array(items...), nil
	case tagObject:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return Document{}, err
		}
		fields := make([]DocField, 0, n)
		for i := 0; i < n; i++ {
			name, err := dec.DecodeString()
			if err != nil {
				return Document{}, err
			}
			v, err := decodeValue(dec)
			if err != nil {
				return Document{}, err
			}
			fields = append(fields, DocField{name, v})
		}
		return Object(fields...), nil
	default:
		return Document{}, fmt.Errorf("unknown document tag %d", tag)
	}
}

type bytesBuilder struct {
	Buf []byte
}

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	bb.Buf = append(bb.Buf, b...)
	return len(b), nil
}
