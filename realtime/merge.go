package realtime

import "bitbucket.org/mmdatafocus/warehub_backend/models"

// Identifiable is satisfied by any cached row the feed can merge.
type Identifiable interface {
	RowID() int
}

// MergeReplaceByID folds one row change into a cached list. INSERT and UPDATE
// replace the row with the same id or append when it is new, DELETE drops it.
// Relative order of surviving rows is preserved.
func MergeReplaceByID[T Identifiable](rows []T, action models.RowChangeAction, rowId int, row T) []T {
	switch action {
	case models.RowChangeActionDelete:
		out := rows[:0]
		for _, r := range rows {
			if r.RowID() != rowId {
				out = append(out, r)
			}
		}
		return out
	case models.RowChangeActionInsert, models.RowChangeActionUpdate:
		for i, r := range rows {
			if r.RowID() == rowId {
				rows[i] = row
				return rows
			}
		}
		return append(rows, row)
	default:
		return rows
	}
}
