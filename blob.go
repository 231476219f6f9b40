package rdb

import (
	"github.com/google/uuid"
)

// Reference-area tags: a document's serialized bytes are either
// inlined directly after the reference area (refInline) or stored as a
// chain of external blocks (refChained) for large values.
const (
	refInline  = 0x00
	refChained = 0x01

	blockHeaderLen = 16 // next-block-id, or all-zero for the terminal block
)

// blobStore mediates between a Document and its stored blob-backed
// representation: a reference area of up to MaxRefLen bytes,
// followed by the serialized document, with external blocks (for values
// too large to inline) kept in a separate "blocks" bucket scoped to the
// table or index the blob belongs to.
type blobStore struct {
	blocks storageBucket
}

// readValue decodes the stored value raw into a Document, following any
// chained extents through blocks. A malformed reference area or a decode
// failure is a *DataError — fatal corruption, never user-visible.
func (bs *blobStore) readValue(raw []byte) (Document, error) {
	data, err := bs.readBytes(raw)
	if err != nil {
		return Document{}, err
	}
	return decode(data)
}

func (bs *blobStore) readBytes(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, dataErrf(raw, 0, nil, "empty stored value")
	}
	tag := raw[0]
	switch tag {
	case refInline:
		n, rest, ok := readUvarint(raw[1:])
		if !ok || uint64(len(rest)) < n {
			return nil, dataErrf(raw, 1, nil, "invalid inline reference area")
		}
		return rest[:n], nil
	case refChained:
		total, rest, ok := readUvarint(raw[1:])
		if !ok || len(rest) < 16 {
			return nil, dataErrf(raw, 1, nil, "invalid chained reference area")
		}
		firstID, err := uuid.FromBytes(rest[:16])
		if err != nil {
			return nil, dataErrf(raw, 1, err, "invalid chained block id")
		}
		return bs.readChain(firstID, total)
	default:
		return nil, dataErrf(raw, 0, nil, "unknown reference area tag %d", tag)
	}
}

func (bs *blobStore) readChain(firstID uuid.UUID, total uint64) ([]byte, error) {
	out := make([]byte, 0, total)
	id := firstID
	for {
		block := bs.blocks.Get(id[:])
		if block == nil {
			return nil, dataErrf(nil, 0, nil, "missing blob block %s", id)
		}
		if len(block) < blockHeaderLen {
			return nil, dataErrf(block, 0, nil, "truncated blob block %s", id)
		}
		var nextID uuid.UUID
		copy(nextID[:], block[:blockHeaderLen])
		out = append(out, block[blockHeaderLen:]...)
		if nextID == uuid.Nil {
			break
		}
		id = nextID
	}
	if uint64(len(out)) != total {
		return nil, dataErrf(nil, 0, nil, "blob chain size mismatch: got %d, expected %d", len(out), total)
	}
	return out, nil
}

const blockPayloadLen = 16 << 10

// writeValue serializes doc and returns the bytes to store in the primary
// value slot: a reference area (inline or chained) followed, for the
// inline case, directly by the document bytes. Large documents are
// instead chained through bs.blocks.
func (bs *blobStore) writeValue(doc Document) ([]byte, error) {
	data := encode(doc)

	inlineRef := appendUvarint([]byte{refInline}, uint64(len(data)))
	if len(inlineRef)+len(data) <= MaxRefLen {
		return append(inlineRef, data...), nil
	}

	firstID, err := bs.writeChain(data)
	if err != nil {
		return nil, err
	}
	ref := appendUvarint([]byte{refChained}, uint64(len(data)))
	ref = append(ref, firstID[:]...)
	if len(ref) > MaxRefLen {
		return nil, dataErrf(nil, 0, nil, "chained reference area exceeds MaxRefLen")
	}
	return ref, nil
}

func (bs *blobStore) writeChain(data []byte) (uuid.UUID, error) {
	var ids []uuid.UUID
	for off := 0; off < len(data) || len(ids) == 0; off += blockPayloadLen {
		ids = append(ids, uuid.New())
		if off >= len(data) {
			break
		}
	}
	for i, id := range ids {
		start := i * blockPayloadLen
		end := start + blockPayloadLen
		if end > len(data) {
			end = len(data)
		}
		var next uuid.UUID
		if i+1 < len(ids) {
			next = ids[i+1]
		}
		block := make([]byte, 0, blockHeaderLen+(end-start))
		block = append(block, next[:]...)
		block = append(block, data[start:end]...)
		if err := bs.blocks.Put(id[:], block); err != nil {
			return uuid.Nil, err
		}
	}
	return ids[0], nil
}

// deleteValue releases every external block raw's reference area refers
// to. Must be called before the value slot is cleared.
func (bs *blobStore) deleteValue(raw []byte) error {
	if len(raw) == 0 || raw[0] != refChained {
		return nil
	}
	_, rest, ok := readUvarint(raw[1:])
	if !ok || len(rest) < 16 {
		return dataErrf(raw, 1, nil, "invalid chained reference area")
	}
	var id uuid.UUID
	copy(id[:], rest[:16])
	for id != uuid.Nil {
		block := bs.blocks.Get(id[:])
		if block == nil {
			return nil
		}
		var next uuid.UUID
		copy(next[:], block[:blockHeaderLen])
		if err := bs.blocks.Delete(id[:]); err != nil {
			return err
		}
		id = next
	}
	return nil
}
