package rdb

import (
	"encoding/binary"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// Tx is a transaction scope: a located cursor's exclusive write access to
// its key slot lives for exactly as long as the enclosing Tx.
type Tx struct {
	db  *DB
	stx storageTx

	written bool

	// writeMu serializes the actual bucket mutations the concurrent
	// sindex-maintenance tasks issue. bbolt's transaction object is not
	// safe for concurrent use by multiple goroutines even across distinct
	// buckets, so this mutex stands in for independent per-index locking:
	// the maintainer code is still structured as concurrent tasks gated by
	// a drain guard, but real parallelism in the underlying engine would
	// require separate write scopes per index, which bbolt's
	// single-writer model doesn't offer.
	writeMu sync.Mutex
}

func (db *DB) newTx(stx storageTx) *Tx {
	return &Tx{db: db, stx: stx}
}

func (tx *Tx) DB() *DB         { return tx.db }
func (tx *Tx) Schema() *Schema { return tx.db.schema }
func (tx *Tx) IsWritable() bool { return tx.stx.Writable() }

func (tx *Tx) markWritten() { tx.written = true }

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall(f func(tx *Tx) error, tx *Tx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return f(tx)
}

// Read runs f inside a read-only transaction.
func (db *DB) Read(f func(tx *Tx)) {
	err := db.ReadErr(func(tx *Tx) error {
		f(tx)
		return nil
	})
	if err != nil {
		panic(err)
	}
}

func (db *DB) ReadErr(f func(tx *Tx) error) error {
	stx, err := db.stor.BeginTx(false)
	if err != nil {
		return err
	}
	tx := db.newTx(stx)
	defer stx.Rollback()
	return safelyCall(f, tx)
}

// Write runs f inside a writable transaction and commits on success.
func (db *DB) Write(f func(tx *Tx)) {
	err := db.WriteErr(func(tx *Tx) error {
		f(tx)
		return nil
	})
	if err != nil {
		panic(err)
	}
}

func (db *DB) WriteErr(f func(tx *Tx) error) error {
	stx, err := db.stor.BeginTx(true)
	if err != nil {
		return err
	}
	tx := db.newTx(stx)

	funcErr := safelyCall(f, tx)
	if funcErr != nil {
		stx.Rollback()
		return funcErr
	}
	size := stx.Size()
	if err := stx.Commit(); err != nil {
		return fmt.Errorf("rdb: commit: %w", err)
	}
	db.lastSize.Store(size)
	return nil
}

func (tx *Tx) dataBucket(tbl *Table) storageBucket {
	return nonNil(tx.stx.Bucket(tbl.name, subData))
}

func (tx *Tx) blocksBucket(tbl *Table) storageBucket {
	return nonNil(tx.stx.Bucket(tbl.name, subBlocks))
}

func (tx *Tx) primaryBlob(tbl *Table) *blobStore {
	return &blobStore{blocks: tx.blocksBucket(tbl)}
}

func (tx *Tx) recencyBucket(tbl *Table) storageBucket {
	return nonNil(tx.stx.Bucket(tbl.name, subRecency))
}

func (tx *Tx) erasuresBucket(tbl *Table) storageBucket {
	return nonNil(tx.stx.Bucket(tbl.name, subErasures))
}

// stampRecency records the current time as key's last-modified recency, the
// timestamp backfill filters against.
func (tx *Tx) stampRecency(tbl *Table, key []byte) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(time.Now().UnixNano()))
	return tx.recencyBucket(tbl).Put(key, buf[:])
}

func (tx *Tx) clearRecency(tbl *Table, key []byte) error {
	return tx.recencyBucket(tbl).Delete(key)
}

func (tx *Tx) recencyOf(tbl *Table, key []byte) time.Time {
	raw := tx.recencyBucket(tbl).Get(key)
	if len(raw) != 8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(raw)))
}

// recordErasure appends a whole-subrange deletion marker to tbl's erasure
// log. Logged for every
// completed EraseRange call regardless of predicate: a predicate-filtered
// erase may not have cleared every key in the span, so the marker is a
// conservative over-approximation a backfill consumer must already be able
// to tolerate (re-deleting an already-absent key is a no-op).
func (tx *Tx) recordErasure(tbl *Table, left, right []byte) error {
	bucket := tx.erasuresBucket(tbl)
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], uint64(bucket.KeyCount()+1))

	var buf []byte
	buf = appendVarbytes(buf, left)
	buf = appendVarbytes(buf, right)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(time.Now().UnixNano()))
	buf = appendRaw(buf, ts[:])

	return bucket.Put(seq[:], buf)
}

// forEachDataRow walks every stored row of tbl's primary B-tree in store-key
// order, decoding each blob-backed value, and calls fn once per row. Used by
// index post-construction.
func (tx *Tx) forEachDataRow(tbl *Table, fn func(key []byte, doc Document) error) error {
	blob := tx.primaryBlob(tbl)
	cur := tx.dataBucket(tbl).Cursor()
	for key, raw := cur.First(); key != nil; key, raw = cur.Next() {
		doc, err := blob.readValue(raw)
		if err != nil {
			return err
		}
		if err := fn(key, doc); err != nil {
			return err
		}
	}
	return nil
}
