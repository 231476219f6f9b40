package rdb

import "testing"

func TestDistribution_LeftmostBoundaryIsCallerSupplied(t *testing.T) {
	schema := NewSchema()
	tbl := schema.DefineTable("items", "id")
	db := newTestDB(t, schema)

	db.Write(func(tx *Tx) {
		for i := 0; i < 20; i++ {
			id := string(rune('a' + i))
			doc := Object(Field("id", String(id)))
			if _, _, err := tx.Set(tbl, storeKeyBytes(String(id)), doc, true); err != nil {
				t.Fatal(err)
			}
		}
	})

	leftKey := storeKeyBytes(String("a"))
	db.Read(func(tx *Tx) {
		dist := tx.Distribution(tbl, 2, leftKey)
		if _, ok := dist[string(leftKey)]; !ok {
			t.Fatalf("distribution must always report the caller-supplied leftKey as a boundary")
		}
		if len(dist) > 4 {
			t.Errorf("len(dist) = %d, want at most 2^maxDepth=4", len(dist))
		}
		var total int64
		for _, count := range dist {
			total += count
		}
		if total <= 0 {
			t.Errorf("sum of per-bucket estimates should be positive for a non-empty table")
		}
	})
}

func TestDistribution_EmptyTable(t *testing.T) {
	schema := NewSchema()
	tbl := schema.DefineTable("items", "id")
	db := newTestDB(t, schema)

	leftKey := storeKeyBytes(String("x"))
	db.Read(func(tx *Tx) {
		dist := tx.Distribution(tbl, 4, leftKey)
		if len(dist) != 1 {
			t.Fatalf("len(dist) = %d, want 1 for an empty table", len(dist))
		}
		if dist[string(leftKey)] != 0 {
			t.Errorf("dist[leftKey] = %d, want 0", dist[string(leftKey)])
		}
	})
}
