// Package parser turns a flat boolean query such as "cat AND dog NOT bird"
// into an ordered list of clauses. There are no parentheses and no
// precedence: clauses are evaluated strictly left to right.
package parser

import "strings"

// Operator combines a term's postings with the running result.
type Operator int

const (
	OpNone Operator = iota
	OpAnd
	OpOr
	OpNot
)

func (o Operator) String() string {
	switch o {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpNot:
		return "NOT"
	default:
		return "NONE"
	}
}

// Clause is one search term together with the operator pending when the
// term was read.
type Clause struct {
	Op   Operator
	Term string
}

type QueryPlan struct {
	Clauses  []Clause
	RawQuery string
}

// Terms returns the search terms of the plan in query order.
func (p *QueryPlan) Terms() []string {
	terms := make([]string, 0, len(p.Clauses))
	for _, c := range p.Clauses {
		terms = append(terms, c.Term)
	}
	return terms
}

// Parse lower-cases query and splits it on whitespace. The keywords
// "and", "or" and "not" set the pending operator and are never terms. The
// pending operator stays in effect for every following term until another
// keyword replaces it. Terms are used verbatim; no punctuation is stripped.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Clauses:  make([]Clause, 0),
		RawQuery: query,
	}
	pending := OpNone
	for _, word := range strings.Fields(strings.ToLower(query)) {
		switch word {
		case "and":
			pending = OpAnd
			continue
		case "or":
			pending = OpOr
			continue
		case "not":
			pending = OpNot
			continue
		}
		plan.Clauses = append(plan.Clauses, Clause{Op: pending, Term: word})
	}
	return plan
}
