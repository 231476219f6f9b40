package rdb

import "bytes"

// EraseRange deletes every key-value pair in the half-open range rng for
// which predicate returns true. Internally the traversal works with an
// interval open on the left and closed on the right, so rng's bounds are
// each shifted down to their predecessor with decKey before the cursor walk
// starts; a nil bound stays nil (unbounded on that side).
//
// predicate may be nil to erase every matching key unconditionally.
func (tx *Tx) EraseRange(tbl *Table, rng KeyRange, predicate func(key []byte, doc Document) (bool, error)) (int, error) {
	leftExclusive := decKey(rng.Left)
	rightInclusive := decKey(rng.Right)

	bucket := tx.dataBucket(tbl)
	blob := tx.primaryBlob(tbl)
	cur := bucket.Cursor()

	var key, raw []byte
	if leftExclusive != nil {
		key, raw = cur.Seek(leftExclusive)
		if key != nil && bytes.Equal(key, leftExclusive) {
			key, raw = cur.Next()
		}
	} else {
		key, raw = cur.First()
	}

	var n int
	for key != nil {
		if rightInclusive != nil && bytes.Compare(key, rightInclusive) > 0 {
			break
		}

		doc, err := blob.readValue(raw)
		if err != nil {
			return n, err
		}

		match := true
		if predicate != nil {
			match, err = predicate(key, doc)
			if err != nil {
				return n, err
			}
		}

		if match {
			if err := blob.deleteValue(raw); err != nil {
				return n, err
			}
			if err := cur.Delete(); err != nil {
				return n, err
			}
			if err := tx.clearRecency(tbl, key); err != nil {
				return n, err
			}
			n++
		}

		key, raw = cur.Next()
	}

	if err := tx.recordErasure(tbl, rng.Left, rng.Right); err != nil {
		return n, err
	}
	if n > 0 {
		tx.markWritten()
	}
	return n, nil
}
