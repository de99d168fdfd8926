package executor

import (
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/parser"
)

// Evaluate folds the plan's clauses into a single posting list.
//
// The first term seeds the result with a copy of its postings, whatever
// operator precedes it; a leading NOT is therefore not a complement. Later
// terms combine with their operator: AND intersects, OR unions, NOT removes.
// A later term read while no operator has been seen yet is dropped.
func Evaluate(idx *index.Index, plan *parser.QueryPlan) index.PostingList {
	var result index.PostingList
	seeded := false
	for _, clause := range plan.Clauses {
		postings := idx.Postings(clause.Term)
		if !seeded {
			result = postings
			seeded = true
			continue
		}
		switch clause.Op {
		case parser.OpAnd:
			result = index.Intersect(result, postings)
		case parser.OpOr:
			result = index.Union(result, postings)
		case parser.OpNot:
			result = index.Difference(result, postings)
		}
	}
	if result == nil {
		return index.PostingList{}
	}
	return result.Sorted()
}
