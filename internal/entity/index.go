package entity

// Index is the working lookup of a run, keyed by entity id.
//
// Iteration order is the order in which each id was first seen. When an id
// appears more than once the later entity shadows the earlier one in place.
type Index struct {
	byID  map[int64]*Entity
	order []int64
}

// NewIndex indexes entities by id, skipping nil entries. The second return
// value lists ids that appeared more than once, in the order the duplicates
// were encountered.
func NewIndex(entities []*Entity) (*Index, []int64) {
	idx := &Index{
		byID:  make(map[int64]*Entity, len(entities)),
		order: make([]int64, 0, len(entities)),
	}
	var duplicates []int64
	for _, e := range entities {
		if e == nil {
			continue
		}
		if _, exists := idx.byID[e.ID]; exists {
			duplicates = append(duplicates, e.ID)
		} else {
			idx.order = append(idx.order, e.ID)
		}
		idx.byID[e.ID] = e
	}
	return idx, duplicates
}

// Get returns the entity with the given id.
func (x *Index) Get(id int64) (*Entity, bool) {
	e, ok := x.byID[id]
	return e, ok
}

// Len returns the number of distinct ids.
func (x *Index) Len() int {
	return len(x.order)
}

// IDs returns the indexed ids in iteration order.
func (x *Index) IDs() []int64 {
	out := make([]int64, len(x.order))
	copy(out, x.order)
	return out
}

// Entities returns the indexed entities in iteration order.
func (x *Index) Entities() []*Entity {
	out := make([]*Entity, len(x.order))
	for i, id := range x.order {
		out[i] = x.byID[id]
	}
	return out
}
