package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		query string
		want  []Clause
	}{
		{"", []Clause{}},
		{"   ", []Clause{}},
		{"AND or NoT", []Clause{}},
		{"cat", []Clause{{OpNone, "cat"}}},
		{"cat AND dog", []Clause{{OpNone, "cat"}, {OpAnd, "dog"}}},
		{"Cat or BIRD", []Clause{{OpNone, "cat"}, {OpOr, "bird"}}},
		{"dog NOT cat", []Clause{{OpNone, "dog"}, {OpNot, "cat"}}},
		{"NOT cat", []Clause{{OpNot, "cat"}}},
		{"cat dog", []Clause{{OpNone, "cat"}, {OpNone, "dog"}}},
		{"a AND b c", []Clause{{OpNone, "a"}, {OpAnd, "b"}, {OpAnd, "c"}}},
		{"a AND OR b", []Clause{{OpNone, "a"}, {OpOr, "b"}}},
		{"cat, AND dog!", []Clause{{OpNone, "cat,"}, {OpAnd, "dog!"}}},
		{"a\tand\nb", []Clause{{OpNone, "a"}, {OpAnd, "b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			plan := Parse(tt.query)
			assert.Equal(t, tt.query, plan.RawQuery)
			assert.Equal(t, tt.want, plan.Clauses)
		})
	}
}

func TestQueryPlanTerms(t *testing.T) {
	plan := Parse("information AND retrieval OR search")
	assert.Equal(t, []string{"information", "retrieval", "search"}, plan.Terms())
}

func TestOperatorString(t *testing.T) {
	assert.Equal(t, "AND", OpAnd.String())
	assert.Equal(t, "OR", OpOr.String())
	assert.Equal(t, "NOT", OpNot.String())
	assert.Equal(t, "NONE", OpNone.String())
}

func BenchmarkParse(b *testing.B) {
	queries := []struct {
		name  string
		query string
	}{
		{"simple", "distributed systems"},
		{"boolean_and", "search AND analytics AND platform"},
		{"with_not", "distributed NOT monolithic"},
		{"complex", "search AND ranking OR analytics NOT deprecated"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = Parse(q.query)
			}
		})
	}
}
