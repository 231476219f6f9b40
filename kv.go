package rdb

import "context"

// StatusCode is the outcome of a keyvalue operation.
type StatusCode int

const (
	Stored StatusCode = iota
	Duplicate
	Deleted
	Missing
)

// Get locates key for read and decodes its stored value, or returns Null if
// the key is absent — the query layer distinguishes presence by Document
// kind, not by a separate optionality channel.
func (tx *Tx) Get(tbl *Table, key []byte) (Document, error) {
	raw := tx.dataBucket(tbl).Get(key)
	if raw == nil {
		return Null, nil
	}
	return tx.primaryBlob(tbl).readValue(raw)
}

// Set locates key for write and stores doc. If a document already exists at
// key and overwrite is false, the existing document is left untouched and
// Duplicate is returned — but the modification report still carries
// Deleted = the existing document, exactly as though an overwrite had
// happened, because the caller's decision not to write does not change what
// the maintainer needs to reconcile.
func (tx *Tx) Set(tbl *Table, key []byte, doc Document, overwrite bool) (StatusCode, ModificationReport, error) {
	pk, ok := doc.Get(tbl.primaryKeyField)
	if !ok {
		return 0, ModificationReport{}, userErrf("document is missing primary key field `%s`", tbl.primaryKeyField)
	}

	bucket := tx.dataBucket(tbl)
	blob := tx.primaryBlob(tbl)

	existingRaw := bucket.Get(key)
	var existing *Document
	if existingRaw != nil {
		d, err := blob.readValue(existingRaw)
		if err != nil {
			return 0, ModificationReport{}, err
		}
		existing = &d
	}

	report := ModificationReport{PrimaryKey: pk, Deleted: existing}

	if existing != nil && !overwrite {
		return Duplicate, report, nil
	}

	raw, err := blob.writeValue(doc)
	if err != nil {
		return 0, ModificationReport{}, err
	}
	if err := bucket.Put(key, raw); err != nil {
		return 0, ModificationReport{}, err
	}
	if err := tx.stampRecency(tbl, key); err != nil {
		return 0, ModificationReport{}, err
	}
	report.Added = &doc
	tx.markWritten()
	if err := tx.maintainIndexes(context.Background(), tbl, report); err != nil {
		return 0, ModificationReport{}, err
	}
	return Stored, report, nil
}

// Delete locates key for write and clears it if present.
func (tx *Tx) Delete(tbl *Table, key []byte) (StatusCode, ModificationReport, error) {
	bucket := tx.dataBucket(tbl)
	blob := tx.primaryBlob(tbl)

	raw := bucket.Get(key)
	if raw == nil {
		return Missing, ModificationReport{}, nil
	}

	doc, err := blob.readValue(raw)
	if err != nil {
		return 0, ModificationReport{}, err
	}
	pk, ok := doc.Get(tbl.primaryKeyField)
	if !ok {
		return 0, ModificationReport{}, tableErrf(tbl, nil, key, nil, "stored document is missing primary key field `%s`", tbl.primaryKeyField)
	}

	if err := blob.deleteValue(raw); err != nil {
		return 0, ModificationReport{}, err
	}
	if err := bucket.Delete(key); err != nil {
		return 0, ModificationReport{}, err
	}
	if err := tx.clearRecency(tbl, key); err != nil {
		return 0, ModificationReport{}, err
	}
	tx.markWritten()
	report := ModificationReport{PrimaryKey: pk, Deleted: &doc}
	if err := tx.maintainIndexes(context.Background(), tbl, report); err != nil {
		return 0, ModificationReport{}, err
	}
	return Deleted, report, nil
}
