package rdb

import "testing"

func setupReplaceTable(t *testing.T) (*DB, *Table) {
	schema := NewSchema()
	tbl := schema.DefineTable("items", "id")
	return newTestDB(t, schema), tbl
}

// Scenario 1: insert {id:"a", n:1} then replace n -> 2.
func TestReplace_Scenario1_ReplaceExisting(t *testing.T) {
	db, tbl := setupReplaceTable(t)
	key := storeKeyBytes(String("a"))
	env := newEnv(nil)

	db.Write(func(tx *Tx) {
		_, _, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return Object(Field("id", String("a")), Field("n", Number(1))), nil
		}, env)
		if err != nil {
			t.Fatal(err)
		}
	})

	err := db.WriteErr(func(tx *Tx) error {
		resp, report, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return old.With("n", Number(2)), nil
		}, env)
		if err != nil {
			return err
		}
		if resp.Replaced != 1 {
			t.Errorf("resp.Replaced = %d, want 1", resp.Replaced)
		}
		want := Object(Field("id", String("a")), Field("n", Number(1)))
		if report.Deleted == nil || !report.Deleted.Equal(want) {
			t.Errorf("report.Deleted = %v, want %v", report.Deleted, want)
		}
		want = Object(Field("id", String("a")), Field("n", Number(2)))
		if report.Added == nil || !report.Added.Equal(want) {
			t.Errorf("report.Added = %v, want %v", report.Added, want)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	db.Read(func(tx *Tx) {
		got, _ := tx.Get(tbl, key)
		want := Object(Field("id", String("a")), Field("n", Number(2)))
		if !got.Equal(want) {
			t.Errorf("Get = %v, want %v", got.Print(), want.Print())
		}
	})
}

// Scenario 2: replace with the identity function on an existing unchanged doc.
func TestReplace_Scenario2_Unchanged(t *testing.T) {
	db, tbl := setupReplaceTable(t)
	key := storeKeyBytes(String("a"))
	env := newEnv(nil)
	doc := Object(Field("id", String("a")), Field("n", Number(1)))

	db.Write(func(tx *Tx) {
		if _, _, err := tx.Set(tbl, key, doc, true); err != nil {
			t.Fatal(err)
		}
	})

	err := db.WriteErr(func(tx *Tx) error {
		resp, report, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return old, nil
		}, env)
		if err != nil {
			return err
		}
		if resp.Unchanged != 1 {
			t.Errorf("resp.Unchanged = %d, want 1", resp.Unchanged)
		}
		if report.Deleted != nil || report.Added != nil {
			t.Errorf("unchanged replace must produce an empty modification report, got %+v", report)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

// Scenario 3: replace to null deletes an existing document.
func TestReplace_Scenario3_DeleteViaNull(t *testing.T) {
	db, tbl := setupReplaceTable(t)
	key := storeKeyBytes(String("a"))
	env := newEnv(nil)
	doc := Object(Field("id", String("a")), Field("n", Number(1)))

	db.Write(func(tx *Tx) {
		if _, _, err := tx.Set(tbl, key, doc, true); err != nil {
			t.Fatal(err)
		}
	})

	err := db.WriteErr(func(tx *Tx) error {
		resp, _, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return Null, nil
		}, env)
		if err != nil {
			return err
		}
		if resp.Deleted != 1 {
			t.Errorf("resp.Deleted = %d, want 1", resp.Deleted)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	db.Read(func(tx *Tx) {
		got, _ := tx.Get(tbl, key)
		if !got.IsNull() {
			t.Errorf("Get after delete-via-replace = %v, want null", got.Print())
		}
	})
}

// Scenario 4: replace on a missing key inserts.
func TestReplace_Scenario4_InsertOnMissing(t *testing.T) {
	db, tbl := setupReplaceTable(t)
	key := storeKeyBytes(String("b"))
	env := newEnv(nil)

	err := db.WriteErr(func(tx *Tx) error {
		resp, report, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return Object(Field("id", String("b")), Field("n", Number(1))), nil
		}, env)
		if err != nil {
			return err
		}
		if resp.Inserted != 1 {
			t.Errorf("resp.Inserted = %d, want 1", resp.Inserted)
		}
		if report.Added == nil {
			t.Errorf("report.Added should be set on insert")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

// Scenario 5: changing the primary key is a user error that leaves storage
// untouched.
func TestReplace_Scenario5_PrimaryKeyChangeIsUserError(t *testing.T) {
	db, tbl := setupReplaceTable(t)
	key := storeKeyBytes(String("a"))
	env := newEnv(nil)
	doc := Object(Field("id", String("a")), Field("n", Number(1)))

	db.Write(func(tx *Tx) {
		if _, _, err := tx.Set(tbl, key, doc, true); err != nil {
			t.Fatal(err)
		}
	})

	err := db.WriteErr(func(tx *Tx) error {
		resp, report, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return Object(Field("id", String("z")), Field("n", Number(1))), nil
		}, env)
		if err != nil {
			return err
		}
		if resp.Errors != 1 {
			t.Errorf("resp.Errors = %d, want 1", resp.Errors)
		}
		if resp.FirstError == "" {
			t.Errorf("resp.FirstError should be populated")
		}
		if report.Added != nil || report.Deleted != nil {
			t.Errorf("a user error must not produce a modification report")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	db.Read(func(tx *Tx) {
		got, _ := tx.Get(tbl, key)
		if !got.Equal(doc) {
			t.Errorf("storage must be unchanged after a rejected pk-changing replace: got %v", got.Print())
		}
	})
}

func TestReplace_Scenario0_SkipOnMissing(t *testing.T) {
	db, tbl := setupReplaceTable(t)
	key := storeKeyBytes(String("ghost"))
	env := newEnv(nil)

	db.Write(func(tx *Tx) {
		resp, report, err := tx.Replace(tbl, key, func(old Document, _ *Env) (Document, error) {
			return Null, nil
		}, env)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Skipped != 1 {
			t.Errorf("resp.Skipped = %d, want 1", resp.Skipped)
		}
		if report.Added != nil || report.Deleted != nil {
			t.Errorf("a no-op replace must produce an empty modification report")
		}
	})
}
