package rdb

import "fmt"

const (
	subData     = "data"
	subBlocks   = "blocks"
	subRecency  = "recency"
	subErasures = "erasures"
)

// Schema is the set of tables a DB knows about, opened and migrated on
// Open.
type Schema struct {
	tables       []*Table
	tablesByName map[string]*Table
}

func NewSchema() *Schema {
	return &Schema{tablesByName: make(map[string]*Table)}
}

// DefineTable registers a table: a primary B-tree keyed by the value of
// primaryKeyField in every stored document.
func (scm *Schema) DefineTable(name, primaryKeyField string) *Table {
	if _, exists := scm.tablesByName[name]; exists {
		panic(fmt.Errorf("rdb: table %q already defined", name))
	}
	tbl := &Table{
		name:            name,
		primaryKeyField: primaryKeyField,
		schema:          scm,
	}
	scm.tables = append(scm.tables, tbl)
	scm.tablesByName[name] = tbl
	return tbl
}

func (scm *Schema) Tables() []*Table { return append([]*Table(nil), scm.tables...) }

func (scm *Schema) TableNamed(name string) *Table { return scm.tablesByName[name] }

// Table is a document-table: a primary B-tree plus any number of live
// secondary indexes.
type Table struct {
	name            string
	primaryKeyField string
	schema          *Schema
	indexes         []*Index
}

func (tbl *Table) Name() string            { return tbl.name }
func (tbl *Table) PrimaryKeyField() string { return tbl.primaryKeyField }
func (tbl *Table) Indexes() []*Index       { return append([]*Index(nil), tbl.indexes...) }

// DefineIndex registers a live secondary index computed from mapping. The
// index starts unbuilt; PostConstructIndexes populates it from the table's
// existing documents.
func (tbl *Table) DefineIndex(shortName string, mapping IndexMapping) *Index {
	idx := &Index{
		id:        newIndexID(),
		shortName: shortName,
		table:     tbl,
		mapping:   mapping,
	}
	tbl.indexes = append(tbl.indexes, idx)
	return idx
}

// storeKeyOf extracts the document's primary key field and encodes it as
// the table's store key, an order-preserving byte string.
func (tbl *Table) storeKeyOf(doc Document) ([]byte, error) {
	pk, ok := doc.Get(tbl.primaryKeyField)
	if !ok {
		return nil, userErrf("document is missing primary key field `%s`", tbl.primaryKeyField)
	}
	return storeKeyBytes(pk), nil
}

// storeKeyBytes encodes a primary-key value as the order-preserving,
// self-delimiting byte string appendOrderedComponent produces, so that
// store keys "compare byte-lexicographically" the same way the
// underlying Document values compare.
func storeKeyBytes(pk Document) []byte {
	return appendOrderedComponent(nil, pk)
}
