package rdb

import "testing"

func TestModificationReport_EncodeDecodeRoundTrip(t *testing.T) {
	del := Object(Field("id", String("a")), Field("n", Number(1)))
	add := Object(Field("id", String("a")), Field("n", Number(2)))

	cases := []ModificationReport{
		{PrimaryKey: String("a"), Deleted: &del, Added: &add},
		{PrimaryKey: String("a"), Added: &add},
		{PrimaryKey: String("a"), Deleted: &del},
	}

	for _, want := range cases {
		got, err := decodeModificationReport(want.encode())
		if err != nil {
			t.Fatal(err)
		}
		if !got.PrimaryKey.Equal(want.PrimaryKey) {
			t.Errorf("PrimaryKey round trip mismatch: got %v, want %v", got.PrimaryKey.Print(), want.PrimaryKey.Print())
		}
		if (got.Deleted == nil) != (want.Deleted == nil) {
			t.Errorf("Deleted presence mismatch: got %v, want %v", got.Deleted, want.Deleted)
		} else if got.Deleted != nil && !got.Deleted.Equal(*want.Deleted) {
			t.Errorf("Deleted round trip mismatch: got %v, want %v", got.Deleted.Print(), want.Deleted.Print())
		}
		if (got.Added == nil) != (want.Added == nil) {
			t.Errorf("Added presence mismatch: got %v, want %v", got.Added, want.Added)
		} else if got.Added != nil && !got.Added.Equal(*want.Added) {
			t.Errorf("Added round trip mismatch: got %v, want %v", got.Added.Print(), want.Added.Print())
		}
	}
}

func TestModificationReport_DecodeTruncatedIsDataError(t *testing.T) {
	del := Object(Field("id", String("a")))
	full := (ModificationReport{PrimaryKey: String("a"), Deleted: &del}).encode()

	if _, err := decodeModificationReport(full[:len(full)-1]); err == nil {
		t.Errorf("expected a truncated modification report to fail to decode")
	} else if _, ok := err.(*DataError); !ok {
		t.Errorf("err = %T, want *DataError", err)
	}
}
