package rdb

import "bytes"

// KeyRange is a half-open span of store keys: [Left, Right), with a nil
// bound meaning unbounded on that side. Shared by rget, erase_range,
// backfill, and the distribution estimator.
type KeyRange struct {
	Left  []byte
	Right []byte
}

func (r KeyRange) contains(key []byte) bool {
	if r.Left != nil && bytes.Compare(key, r.Left) < 0 {
		return false
	}
	if r.Right != nil && bytes.Compare(key, r.Right) >= 0 {
		return false
	}
	return true
}

// seekCursor positions c at the first key in r, or returns a nil key if r is
// empty.
func (r KeyRange) seekCursor(c storageCursor) (key, value []byte) {
	if r.Left != nil {
		return c.Seek(r.Left)
	}
	return c.First()
}
