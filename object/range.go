package object

import "fmt"

// Range is an integer range with an exclusive ("0..5") or inclusive
// ("0..=5") upper bound. Ranges iterate lazily without materializing their
// elements.
type Range struct {
	start     int64
	stop      int64
	inclusive bool
}

func (r *Range) Type() Type {
	return RANGE
}

func (r *Range) Inspect() string {
	if r.inclusive {
		return fmt.Sprintf("%d..=%d", r.start, r.stop)
	}
	return fmt.Sprintf("%d..%d", r.start, r.stop)
}

func (r *Range) String() string {
	return r.Inspect()
}

func (r *Range) Interface() interface{} {
	items := make([]any, 0, r.Len())
	for i := r.start; i < r.limit(); i++ {
		items = append(items, i)
	}
	return items
}

func (r *Range) Equals(other Object) bool {
	otherRange, ok := other.(*Range)
	if !ok {
		return false
	}
	return r.start == otherRange.start &&
		r.stop == otherRange.stop &&
		r.inclusive == otherRange.inclusive
}

func (r *Range) IsTruthy() bool {
	return r.Len() > 0
}

// Start returns the lower bound of the range.
func (r *Range) Start() int64 {
	return r.start
}

// Stop returns the upper bound of the range as written.
func (r *Range) Stop() int64 {
	return r.stop
}

// Inclusive returns true if the upper bound is part of the range.
func (r *Range) Inclusive() bool {
	return r.inclusive
}

// limit returns the exclusive upper bound.
func (r *Range) limit() int64 {
	if r.inclusive {
		return r.stop + 1
	}
	return r.stop
}

// Len returns the number of elements the range produces.
func (r *Range) Len() int {
	if r.limit() <= r.start {
		return 0
	}
	return int(r.limit() - r.start)
}

// Contains reports whether an object is an integer within the range.
func (r *Range) Contains(value Object) bool {
	i, ok := value.(*Int)
	if !ok {
		return false
	}
	return i.value >= r.start && i.value < r.limit()
}

// Iter iterates the range's integers in ascending order.
func (r *Range) Iter() Iterator {
	return &rangeIterator{pos: r.start, limit: r.limit()}
}

type rangeIterator struct {
	pos   int64
	limit int64
}

func (it *rangeIterator) Next() (Object, bool) {
	if it.pos >= it.limit {
		return nil, false
	}
	value := NewInt(it.pos)
	it.pos++
	return value, true
}

func NewRange(start, stop int64, inclusive bool) *Range {
	return &Range{start: start, stop: stop, inclusive: inclusive}
}
