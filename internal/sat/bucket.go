package sat

// bucketIndex is an optional acceleration structure: a vector indexed
// by |var|-1 holding the handles of clauses whose maximum variable
// equals that index + 1. It narrows the search for clauses containing
// -pivot during RAT resolution. It is a pure performance cache: its
// absence never affects correctness, only how many clauses a RAT step
// has to scan.
type bucketIndex struct {
	buckets []map[handle]struct{}
}

func newBucketIndex() *bucketIndex {
	return &bucketIndex{}
}

func (b *bucketIndex) ensure(maxVar int32) {
	for int32(len(b.buckets)) < maxVar {
		b.buckets = append(b.buckets, nil)
	}
}

func (b *bucketIndex) add(maxVar int32, h handle) {
	if maxVar == 0 {
		return
	}
	b.ensure(maxVar)
	idx := maxVar - 1
	if b.buckets[idx] == nil {
		b.buckets[idx] = make(map[handle]struct{})
	}
	b.buckets[idx][h] = struct{}{}
}

func (b *bucketIndex) remove(maxVar int32, h handle) {
	if maxVar == 0 {
		return
	}
	idx := int(maxVar - 1)
	if idx >= len(b.buckets) || b.buckets[idx] == nil {
		return
	}
	delete(b.buckets[idx], h)
	// Trim trailing empty buckets so len(buckets) == max_var always
	// holds with no trailing empties.
	for len(b.buckets) > 0 {
		last := b.buckets[len(b.buckets)-1]
		if len(last) != 0 {
			break
		}
		b.buckets = b.buckets[:len(b.buckets)-1]
	}
}

// maxVarOf returns the maximum variable appearing in lits, or 0 for an
// empty clause.
func maxVarOf(lits []Literal) int32 {
	var m int32
	for _, l := range lits {
		if v := l.Var(); v > m {
			m = v
		}
	}
	return m
}

// bucketsFrom returns the buckets whose max-variable index is
// >= minVar (used by the fresh-pivot test, which only needs to consider
// clauses whose maximum variable is at least |pivot|).
func (b *bucketIndex) bucketsFrom(minVar int32) []map[handle]struct{} {
	if minVar < 1 {
		minVar = 1
	}
	start := int(minVar - 1)
	if start >= len(b.buckets) {
		return nil
	}
	return b.buckets[start:]
}
