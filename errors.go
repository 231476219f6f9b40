package rdb

import (
	"fmt"
	"strings"
)

// DataError reports a corrupted on-disk byte sequence: a fatal invariant
// violation, never user-visible.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error { return e.Err }

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		}
		return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
	}
	p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
	}
	return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
}

// TableError reports a fatal invariant violation scoped to a table (and
// optionally a key and/or a secondary index).
type TableError struct {
	Table *Table
	Index *Index
	Key   []byte
	Msg   string
	Err   error
}

func tableErrf(tbl *Table, idx *Index, key []byte, err error, format string, args ...any) error {
	return &TableError{tbl, idx, key, fmt.Sprintf(format, args...), err}
}

func (e *TableError) Unwrap() error { return e.Err }

func (e *TableError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Table.Name())
	if e.Index != nil {
		buf.WriteByte('.')
		buf.WriteString(e.Index.ShortName())
	}
	if e.Key != nil {
		buf.WriteByte('/')
		buf.Write(e.Key)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
		if e.Err != nil {
			buf.WriteString(": ")
			buf.WriteString(e.Err.Error())
		}
	} else if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// IndexError reports a fatal invariant violation in secondary-index
// maintenance: a corrupted opaque definition, or a mapping that attempted
// disallowed cross-table/external access.
type IndexError struct {
	Index *Index
	Msg   string
	Err   error
}

func indexErrf(idx *Index, err error, format string, args ...any) error {
	return &IndexError{idx, fmt.Sprintf(format, args...), err}
}

func (e *IndexError) Unwrap() error { return e.Err }

func (e *IndexError) Error() string {
	name := "<nil>"
	if e.Index != nil {
		name = e.Index.FullName()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", name, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", name, e.Msg)
}

// UserError reports a shape violation in a user-supplied wire function:
// counted into a Response's Errors/FirstError fields, never raised as a
// panic, and never allowed to mutate storage.
type UserError struct {
	Msg string
}

func userErrf(format string, args ...any) *UserError {
	return &UserError{fmt.Sprintf(format, args...)}
}

func (e *UserError) Error() string { return e.Msg }
