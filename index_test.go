package rdb

import (
	"context"
	"strings"
	"testing"
)

// TestIndex_Scenario7_UpdateMovesSecondaryEntry covers insert {id:"a",n:1}
// then update to n:2: the secondary B-tree must show the deletion of
// print_secondary(1,"a") and the insertion of print_secondary(2,"a").
func TestIndex_Scenario7_UpdateMovesSecondaryEntry(t *testing.T) {
	schema := NewSchema()
	tbl := schema.DefineTable("items", "id")
	idx := tbl.DefineIndex("by_n", func(doc Document, _ *Env) (Document, error) {
		n, _ := doc.Get("n")
		return n, nil
	})
	db := newTestDB(t, schema)
	env := newEnv(nil)
	key := storeKeyBytes(String("a"))

	db.Write(func(tx *Tx) {
		_, _, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return Object(Field("id", String("a")), Field("n", Number(1))), nil
		}, env)
		if err != nil {
			t.Fatal(err)
		}
	})

	db.Read(func(tx *Tx) {
		bucket := tx.indexBucket(idx)
		if bucket.Get(printSecondary(Number(1), String("a"))) == nil {
			t.Fatalf("expected print_secondary(1,\"a\") to be present after insert")
		}
	})

	err := db.WriteErr(func(tx *Tx) error {
		_, _, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return old.With("n", Number(2)), nil
		}, env)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	db.Read(func(tx *Tx) {
		bucket := tx.indexBucket(idx)
		if bucket.Get(printSecondary(Number(1), String("a"))) != nil {
			t.Errorf("print_secondary(1,\"a\") should have been removed after the update")
		}
		if bucket.Get(printSecondary(Number(2), String("a"))) == nil {
			t.Errorf("print_secondary(2,\"a\") should be present after the update")
		}
	})
}

// TestIndex_TwoIndexesBothMaintained exercises the concurrent-updater path
// in maintainIndexes with more than one live index, so a handoff that only
// ever releases one waiter would hang this test.
func TestIndex_TwoIndexesBothMaintained(t *testing.T) {
	schema := NewSchema()
	tbl := schema.DefineTable("items", "id")
	byN := tbl.DefineIndex("by_n", func(doc Document, _ *Env) (Document, error) {
		n, _ := doc.Get("n")
		return n, nil
	})
	byM := tbl.DefineIndex("by_m", func(doc Document, _ *Env) (Document, error) {
		m, _ := doc.Get("m")
		return m, nil
	})
	db := newTestDB(t, schema)
	env := newEnv(nil)
	key := storeKeyBytes(String("a"))

	err := db.WriteErr(func(tx *Tx) error {
		_, _, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return Object(Field("id", String("a")), Field("n", Number(1)), Field("m", Number(10))), nil
		}, env)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	db.Read(func(tx *Tx) {
		if tx.indexBucket(byN).Get(printSecondary(Number(1), String("a"))) == nil {
			t.Errorf("by_n should be maintained alongside by_m")
		}
		if tx.indexBucket(byM).Get(printSecondary(Number(10), String("a"))) == nil {
			t.Errorf("by_m should be maintained alongside by_n")
		}
	})

	err = db.WriteErr(func(tx *Tx) error {
		_, _, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return old.With("n", Number(2)).With("m", Number(20)), nil
		}, env)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	db.Read(func(tx *Tx) {
		if tx.indexBucket(byN).Get(printSecondary(Number(1), String("a"))) != nil {
			t.Errorf("old by_n entry should have been removed")
		}
		if tx.indexBucket(byM).Get(printSecondary(Number(10), String("a"))) != nil {
			t.Errorf("old by_m entry should have been removed")
		}
		if tx.indexBucket(byN).Get(printSecondary(Number(2), String("a"))) == nil {
			t.Errorf("new by_n entry should be present")
		}
		if tx.indexBucket(byM).Get(printSecondary(Number(20), String("a"))) == nil {
			t.Errorf("new by_m entry should be present")
		}
	})
}

// TestIndex_DeleteReleasesIndexedBlobChain covers the invariant that
// deleting an indexed document's secondary entry releases that entry's own
// chained blob blocks, not just the primary document's. The index stores
// a full copy of the document (blob.writeValue on the add side), so an
// indexed document over MaxRefLen chains through the same "blocks" bucket
// a second time, under a distinct set of block ids.
func TestIndex_DeleteReleasesIndexedBlobChain(t *testing.T) {
	schema := NewSchema()
	tbl := schema.DefineTable("items", "id")
	tbl.DefineIndex("by_n", func(doc Document, _ *Env) (Document, error) {
		n, _ := doc.Get("n")
		return n, nil
	})
	db := newTestDB(t, schema)
	env := newEnv(nil)
	key := storeKeyBytes(String("a"))
	big := strings.Repeat("x", 4*blockPayloadLen+17)

	err := db.WriteErr(func(tx *Tx) error {
		_, _, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return Object(Field("id", String("a")), Field("n", Number(1)), Field("payload", String(big))), nil
		}, env)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	db.Read(func(tx *Tx) {
		cur := tx.blocksBucket(tbl).Cursor()
		if k, _ := cur.First(); k == nil {
			t.Fatalf("expected chained blocks to exist after inserting a large indexed document")
		}
	})

	err = db.WriteErr(func(tx *Tx) error {
		_, _, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return Null, nil
		}, env)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	db.Read(func(tx *Tx) {
		cur := tx.blocksBucket(tbl).Cursor()
		if k, _ := cur.First(); k != nil {
			t.Errorf("deleting the document should have released both the primary and the index copy's chained blocks, found one still present")
		}
	})
}

func TestIndex_PostConstructBuildsFromExistingDocuments(t *testing.T) {
	schema := NewSchema()
	tbl := schema.DefineTable("items", "id")
	db := newTestDB(t, schema)

	db.Write(func(tx *Tx) {
		for _, kv := range []struct {
			id string
			n  float64
		}{{"a", 1}, {"b", 2}} {
			doc := Object(Field("id", String(kv.id)), Field("n", Number(kv.n)))
			if _, _, err := tx.Set(tbl, storeKeyBytes(String(kv.id)), doc, true); err != nil {
				t.Fatal(err)
			}
		}
	})

	idx := tbl.DefineIndex("by_n", func(doc Document, _ *Env) (Document, error) {
		n, _ := doc.Get("n")
		return n, nil
	})

	err := db.WriteErr(func(tx *Tx) error {
		return tx.PostConstructIndexes(context.Background(), tbl, nil)
	})
	if err != nil {
		t.Fatal(err)
	}
	if !idx.IsBuilt() {
		t.Errorf("PostConstructIndexes should mark the index built")
	}

	db.Read(func(tx *Tx) {
		bucket := tx.indexBucket(idx)
		if bucket.Get(printSecondary(Number(1), String("a"))) == nil {
			t.Errorf("post-construct should have indexed the pre-existing a/1 document")
		}
		if bucket.Get(printSecondary(Number(2), String("b"))) == nil {
			t.Errorf("post-construct should have indexed the pre-existing b/2 document")
		}
	})
}
