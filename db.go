package rdb

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

// Tunables.
const (
	// MaxRefLen bounds the inline reference area; documents whose encoding
	// doesn't fit are stored through chained blob extents instead.
	MaxRefLen = 256

	// RgetChunkBudget bounds a single rget response's approximate encoded
	// size before it is truncated.
	RgetChunkBudget = 4 << 20

	// SindexGMRGCInterval is how often, in processed documents, a
	// group-map-reduce aggregation offers its environment a GC checkpoint.
	SindexGMRGCInterval = 10000

	// DistributionMinPerBucket is the floor on the estimated keys-per-bucket
	// figure the distribution estimator reports.
	DistributionMinPerBucket = 1
)

// DB is a document store: one bbolt file holding a primary B-tree per
// table plus one B-tree per live secondary index.
type DB struct {
	bdb    *bbolt.DB
	stor   storage
	schema *Schema
	logger *slog.Logger

	lastSize   atomic.Int64
	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
}

// Options configures Open, mirroring the ambient configuration shape the
// teacher repo uses for its own embedded store.
type Options struct {
	Logger    *slog.Logger
	Verbose   bool
	IsTesting bool
	MmapSize  int
}

func Open(path string, schema *Schema, opt Options) (*DB, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("rdb: open %s: %w", path, err)
	}

	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db := &DB{
		bdb:    bdb,
		stor:   newBoltStorage(bdb),
		schema: schema,
		logger: logger,
	}

	if err := db.migrate(); err != nil {
		bdb.Close()
		return nil, err
	}

	logger.Debug("rdb: opened", "path", path, "tables", len(schema.tables))
	return db, nil
}

func (db *DB) migrate() error {
	return db.WriteErr(func(tx *Tx) error {
		for _, tbl := range db.schema.tables {
			if _, err := tx.stx.CreateBucket(tbl.name, subData); err != nil {
				return err
			}
			if _, err := tx.stx.CreateBucket(tbl.name, subBlocks); err != nil {
				return err
			}
			if _, err := tx.stx.CreateBucket(tbl.name, subRecency); err != nil {
				return err
			}
			if _, err := tx.stx.CreateBucket(tbl.name, subErasures); err != nil {
				return err
			}
			for _, idx := range tbl.indexes {
				if _, err := tx.stx.CreateBucket(tbl.name, idx.subBucket()); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (db *DB) Bolt() *bbolt.DB { return db.bdb }

func (db *DB) Schema() *Schema { return db.schema }

func (db *DB) Size() int64 { return db.lastSize.Load() }

func (db *DB) Close() error { return db.bdb.Close() }
