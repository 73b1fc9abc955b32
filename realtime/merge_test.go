package realtime

import (
	"testing"

	"bitbucket.org/mmdatafocus/warehub_backend/models"
)

type testRow struct {
	ID   int
	Name string
}

func (r testRow) RowID() int { return r.ID }

func ids(rows []testRow) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMergeReplaceByID_UpdateReplacesInPlace(t *testing.T) {
	rows := []testRow{{1, "a"}, {2, "b"}, {3, "c"}}

	out := MergeReplaceByID(rows, models.RowChangeActionUpdate, 2, testRow{2, "b2"})

	if !equalIDs(ids(out), []int{1, 2, 3}) {
		t.Fatalf("order changed: %v", ids(out))
	}
	if out[1].Name != "b2" {
		t.Fatalf("row 2 not replaced: %+v", out[1])
	}
}

func TestMergeReplaceByID_InsertAppendsUnknownID(t *testing.T) {
	rows := []testRow{{1, "a"}}

	out := MergeReplaceByID(rows, models.RowChangeActionInsert, 5, testRow{5, "e"})

	if !equalIDs(ids(out), []int{1, 5}) {
		t.Fatalf("got %v, want [1 5]", ids(out))
	}
}

func TestMergeReplaceByID_InsertWithExistingIDReplaces(t *testing.T) {
	// a replayed INSERT must not duplicate the row
	rows := []testRow{{1, "a"}, {2, "b"}}

	out := MergeReplaceByID(rows, models.RowChangeActionInsert, 2, testRow{2, "b2"})

	if !equalIDs(ids(out), []int{1, 2}) {
		t.Fatalf("duplicate after replayed insert: %v", ids(out))
	}
	if out[1].Name != "b2" {
		t.Fatalf("row 2 not replaced: %+v", out[1])
	}
}

func TestMergeReplaceByID_DeleteRemoves(t *testing.T) {
	rows := []testRow{{1, "a"}, {2, "b"}, {3, "c"}}

	out := MergeReplaceByID(rows, models.RowChangeActionDelete, 2, testRow{})

	if !equalIDs(ids(out), []int{1, 3}) {
		t.Fatalf("got %v, want [1 3]", ids(out))
	}
}

func TestMergeReplaceByID_DeleteUnknownIDIsNoop(t *testing.T) {
	rows := []testRow{{1, "a"}}

	out := MergeReplaceByID(rows, models.RowChangeActionDelete, 9, testRow{})

	if !equalIDs(ids(out), []int{1}) {
		t.Fatalf("got %v, want [1]", ids(out))
	}
}
