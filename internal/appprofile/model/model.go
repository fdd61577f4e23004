// Package model projects a configuration into row lists for list and
// table views.
//
// A RuleModel has one row per rule in priority order. A ProfileModel has
// one row per profile sorted by name. Both follow their Config through
// its notifier and report row-level changes to RowObservers, so a view
// never has to re-read the whole list.
package model

import (
	"slices"
	"sort"
)

// RowObserver receives row-level changes from a model.
type RowObserver interface {
	// RowInserted is called after a row is inserted at row.
	RowInserted(row int)
	// RowRemoved is called after the row at row is removed.
	RowRemoved(row int)
	// RowChanged is called when the contents of row changed.
	RowChanged(row int)
	// RowsReordered is called after rows were permuted. order[newRow] is
	// the row's previous index.
	RowsReordered(order []int)
}

// rows is an ordered list of row keys kept in step with a target order.
type rows[K comparable] struct {
	keys      []K
	observers []RowObserver
}

func (r *rows[K]) emit(fn func(RowObserver)) {
	for _, o := range r.observers {
		fn(o)
	}
}

func (r *rows[K]) indexOf(k K) int {
	return slices.Index(r.keys, k)
}

// sync transforms keys into target, reporting removals, then a single
// reorder of the surviving rows, then insertions.
func (r *rows[K]) sync(target []K) {
	want := make(map[K]int, len(target))
	for i, k := range target {
		want[k] = i
	}

	for i := len(r.keys) - 1; i >= 0; i-- {
		if _, ok := want[r.keys[i]]; !ok {
			r.keys = slices.Delete(r.keys, i, i+1)
			r.emit(func(o RowObserver) { o.RowRemoved(i) })
		}
	}

	order := make([]int, len(r.keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return want[r.keys[order[a]]] < want[r.keys[order[b]]]
	})
	for i, old := range order {
		if old != i {
			keys := make([]K, len(r.keys))
			for j, o := range order {
				keys[j] = r.keys[o]
			}
			r.keys = keys
			r.emit(func(o RowObserver) { o.RowsReordered(order) })
			break
		}
	}

	for i, k := range target {
		if i < len(r.keys) && r.keys[i] == k {
			continue
		}
		r.keys = slices.Insert(r.keys, i, k)
		r.emit(func(o RowObserver) { o.RowInserted(i) })
	}
}

func (r *rows[K]) changed(k K) {
	if row := r.indexOf(k); row >= 0 {
		r.emit(func(o RowObserver) { o.RowChanged(row) })
	}
}
