package rdb

import "errors"

// ErrBucketNotFound is returned by storageTx.DeleteBucket when the bucket
// doesn't exist, and for any call with sub="" (top-level buckets are never
// deleted through it).
var ErrBucketNotFound = errors.New("rdb: bucket not found")

// storage is the external B-tree/buffer-cache collaborator this module
// mediates against: a transactional key-value engine exposing
// located cursors. The page layout and buffer cache behind it are out of
// scope; this interface is the located-cursor contract this module needs
// from its storage engine.
type storage interface {
	BeginTx(writable bool) (storageTx, error)
	Close() error
}

// storageTx is a transaction on the collaborator: the scope within which a
// located cursor's write access is held until commit.
type storageTx interface {
	Writable() bool

	// Bucket locates a bucket; sub="" addresses the top-level bucket named
	// name, sub!="" addresses the nested bucket "name/sub" (a table's data
	// bucket, blocks bucket, or a secondary index's own bucket). Returns nil
	// if not found.
	Bucket(name, sub string) storageBucket

	CreateBucket(name, sub string) (storageBucket, error)
	DeleteBucket(name, sub string) error

	Commit() error
	Rollback() error

	// Size reports the engine's on-disk size in bytes (0 if unknown).
	Size() int64
}

// storageBucket is a sorted key-value collection: one primary B-tree, or
// one secondary index's B-tree, or one table's blob-extent "blocks" bucket.
type storageBucket interface {
	Get(key []byte) []byte
	Put(key, value []byte) error
	Delete(key []byte) error
	Cursor() storageCursor
	KeyCount() int
}

// storageCursor is a located cursor over a sorted bucket. Every range
// operation (rget, erase_range, backfill, the distribution estimator) walks
// forward only, so the contract has no reverse-iteration members.
type storageCursor interface {
	First() (key, value []byte)
	Seek(seek []byte) (key, value []byte)
	Next() (key, value []byte)
	Delete() error
}
