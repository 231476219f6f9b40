package rdb

import (
	"context"
	"fmt"
)

// Replace runs the unified UPDATE/REPLACE/INSERT/DELETE pipeline: f is
// evaluated against the current document at key (Null if absent), and the
// outcome is classified into exactly one of six actions.
// The returned error is non-nil only for a fatal failure (a corrupted
// stored value, a stored document missing its declared primary key, or a
// storage or index-maintenance error); every user-level failure is instead
// folded into the returned Response.
func (tx *Tx) Replace(tbl *Table, key []byte, f WireFunc, env *Env) (*Response, ModificationReport, error) {
	resp := newResponse()
	bucket := tx.dataBucket(tbl)
	blob := tx.primaryBlob(tbl)

	existingRaw := bucket.Get(key)
	startedEmpty := existingRaw == nil

	oldVal := Null
	if !startedEmpty {
		d, err := blob.readValue(existingRaw)
		if err != nil {
			return nil, ModificationReport{}, err
		}
		if _, ok := d.Get(tbl.primaryKeyField); !ok {
			return nil, ModificationReport{}, tableErrf(tbl, nil, key, nil, "stored document is missing primary key field `%s`", tbl.primaryKeyField)
		}
		oldVal = d
	}

	newVal, err := f(oldVal, env)
	if err != nil {
		resp.addError(err.Error())
		return resp, ModificationReport{}, nil
	}

	var endedEmpty bool
	var newPK Document
	switch {
	case newVal.IsNull():
		endedEmpty = true
	case newVal.IsObject():
		pk, ok := newVal.Get(tbl.primaryKeyField)
		if !ok {
			resp.addError(fmt.Sprintf("Inserted object must have primary key `%s`", tbl.primaryKeyField))
			return resp, ModificationReport{}, nil
		}
		endedEmpty = false
		newPK = pk
	default:
		resp.addError(fmt.Sprintf("Inserted value must be an OBJECT (got %v)", newVal.Kind()))
		return resp, ModificationReport{}, nil
	}

	switch {
	case startedEmpty && endedEmpty:
		resp.addSkipped()
		return resp, ModificationReport{}, nil

	case startedEmpty && !endedEmpty:
		raw, err := blob.writeValue(newVal)
		if err != nil {
			return nil, ModificationReport{}, err
		}
		if err := bucket.Put(key, raw); err != nil {
			return nil, ModificationReport{}, err
		}
		if err := tx.stampRecency(tbl, key); err != nil {
			return nil, ModificationReport{}, err
		}
		tx.markWritten()
		resp.addInserted()
		report := ModificationReport{PrimaryKey: newPK, Added: &newVal}
		if err := tx.maintainIndexes(context.Background(), tbl, report); err != nil {
			return nil, ModificationReport{}, err
		}
		return resp, report, nil

	case !startedEmpty && endedEmpty:
		if err := blob.deleteValue(existingRaw); err != nil {
			return nil, ModificationReport{}, err
		}
		if err := bucket.Delete(key); err != nil {
			return nil, ModificationReport{}, err
		}
		if err := tx.clearRecency(tbl, key); err != nil {
			return nil, ModificationReport{}, err
		}
		tx.markWritten()
		oldPK, _ := oldVal.Get(tbl.primaryKeyField)
		resp.addDeleted()
		report := ModificationReport{PrimaryKey: oldPK, Deleted: &oldVal}
		if err := tx.maintainIndexes(context.Background(), tbl, report); err != nil {
			return nil, ModificationReport{}, err
		}
		return resp, report, nil

	default: // !startedEmpty && !endedEmpty
		oldPK, _ := oldVal.Get(tbl.primaryKeyField)
		if !oldPK.Equal(newPK) {
			resp.addError(fmt.Sprintf("Primary key `%s` cannot be changed (%s -> %s)", tbl.primaryKeyField, oldPK.Print(), newPK.Print()))
			return resp, ModificationReport{}, nil
		}
		if oldVal.Equal(newVal) {
			resp.addUnchanged()
			return resp, ModificationReport{}, nil
		}
		raw, err := blob.writeValue(newVal)
		if err != nil {
			return nil, ModificationReport{}, err
		}
		if err := bucket.Put(key, raw); err != nil {
			return nil, ModificationReport{}, err
		}
		if err := tx.stampRecency(tbl, key); err != nil {
			return nil, ModificationReport{}, err
		}
		tx.markWritten()
		resp.addReplaced()
		report := ModificationReport{PrimaryKey: newPK, Added: &newVal, Deleted: &oldVal}
		if err := tx.maintainIndexes(context.Background(), tbl, report); err != nil {
			return nil, ModificationReport{}, err
		}
		return resp, report, nil
	}
}
