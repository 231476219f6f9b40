package journal_test

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/doctable/rdb/journal"
	"github.com/doctable/rdb/journal/journaltest"
)

func TestReadSegment_roundTrip(t *testing.T) {
	j := journaltest.Writable(t, journal.Options{})
	ensure(j.WriteRecord(0, []byte("hello")))
	ensure(j.WriteRecord(0, []byte("world")))
	ensure(j.Commit())
	j.FinishWriting()

	files := j.FileNames()
	if len(files) != 1 {
		t.Fatalf("expected one segment file, got %v", files)
	}

	records, err := journal.ReadSegment(filepath.Join(j.Dir, files[0]))
	if err != nil {
		t.Fatal(err)
	}
	deepEq(t, records, [][]byte{[]byte("hello"), []byte("world")})
}

func TestReadSegment_singleRecord(t *testing.T) {
	j := journaltest.Writable(t, journal.Options{})
	ensure(j.WriteRecord(0, []byte("only")))
	ensure(j.Commit())
	j.FinishWriting()

	records, err := journal.ReadSegment(filepath.Join(j.Dir, j.FileNames()[0]))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(records, [][]byte{[]byte("only")}) {
		t.Errorf("got %v", records)
	}
}
