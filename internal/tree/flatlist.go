package tree

import (
	"fmt"

	"regtree/internal/domain"
)

// Rows is a pre-order flattening of the visible tree. Nesting is encoded by
// TreeNode.Level: the entries after index i with a level greater than
// rows[i].Level, up to the next entry at or above that level, are exactly the
// descendants of rows[i]. Every helper here returns a new slice and leaves its
// input untouched.
type Rows []*domain.TreeNode

// RemoveChildren removes the descendant run of the row at index.
func RemoveChildren(rows Rows, index int) (Rows, KeySet) {
	if index < 0 || index >= len(rows) {
		return rows, KeySet{}
	}
	level := rows[index].Level
	end := index + 1
	for end < len(rows) && rows[end].Level > level {
		end++
	}
	return cut(rows, index+1, end)
}

// RemoveNextSiblings removes everything after index that sits at the pivot's
// level or deeper, which is the rest of the pivot's level run together with
// the descendants of those rows.
func RemoveNextSiblings(rows Rows, index int) (Rows, KeySet) {
	if index < 0 || index >= len(rows) {
		return rows, KeySet{}
	}
	level := rows[index].Level
	end := index + 1
	for end < len(rows) && rows[end].Level >= level {
		end++
	}
	return cut(rows, index+1, end)
}

// RemoveAt removes exactly one row.
func RemoveAt(rows Rows, index int) (Rows, KeySet) {
	if index < 0 || index >= len(rows) {
		return rows, KeySet{}
	}
	return cut(rows, index, index+1)
}

// InsertAfter inserts nodes right after index, making them the first
// children of rows[index]. An index of -1 inserts at the front.
func InsertAfter(rows Rows, index int, nodes ...*domain.TreeNode) Rows {
	if index < -1 {
		index = -1
	}
	if index >= len(rows) {
		index = len(rows) - 1
	}
	at := index + 1
	next := make(Rows, 0, len(rows)+len(nodes))
	next = append(next, rows[:at]...)
	next = append(next, nodes...)
	next = append(next, rows[at:]...)
	return next
}

// Replace swaps the row at index for node.
func Replace(rows Rows, index int, node *domain.TreeNode) Rows {
	if index < 0 || index >= len(rows) {
		return rows
	}
	next := make(Rows, len(rows))
	copy(next, rows)
	next[index] = node
	return next
}

func IndexOf(rows Rows, key domain.Key) int {
	for index, row := range rows {
		if row.Key() == key {
			return index
		}
	}
	return -1
}

// CheckPreOrder reports the first row whose level jumps more than one step
// below its predecessor or whose key repeats.
func CheckPreOrder(rows Rows, baseLevel int) error {
	seen := make(map[domain.Key]int, len(rows))
	previous := baseLevel
	for index, row := range rows {
		if row.Level < baseLevel+1 {
			return fmt.Errorf("row %d (%s): level %d above base %d", index, row.ID, row.Level, baseLevel)
		}
		if row.Level > previous+1 {
			return fmt.Errorf("row %d (%s): level %d skips from %d", index, row.ID, row.Level, previous)
		}
		key := row.Key()
		if first, ok := seen[key]; ok {
			return fmt.Errorf("row %d (%s): duplicate of row %d", index, row.ID, first)
		}
		seen[key] = index
		previous = row.Level
	}
	return nil
}

func cut(rows Rows, start, end int) (Rows, KeySet) {
	if start >= end {
		return rows, KeySet{}
	}
	removed := make(KeySet, end-start)
	for _, row := range rows[start:end] {
		removed[row.Key()] = struct{}{}
	}
	next := make(Rows, 0, len(rows)-(end-start))
	next = append(next, rows[:start]...)
	next = append(next, rows[end:]...)
	return next, removed
}
