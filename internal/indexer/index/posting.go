package index

import "sort"

// PostingList is a set of document IDs. Lists produced by this package are
// sorted ascending and free of duplicates.
type PostingList []int

// Document is one corpus entry handed to Build.
type Document struct {
	ID      int    `json:"id" yaml:"id"`
	Content string `json:"content" yaml:"content"`
}

// TermEntry pairs a term with its posting list.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// Stats summarises the size of a built index.
type Stats struct {
	Documents int `json:"documents"`
	Terms     int `json:"terms"`
	Tokens    int `json:"tokens"`
}

// Sorted returns an ascending copy of p with duplicates removed.
func (p PostingList) Sorted() PostingList {
	out := make(PostingList, len(p))
	copy(out, p)
	sort.Ints(out)
	return dedupSorted(out)
}

// Contains reports whether id is in the sorted list.
func (p PostingList) Contains(id int) bool {
	i := sort.SearchInts(p, id)
	return i < len(p) && p[i] == id
}

// Intersect returns the documents present in both lists. Both sides are
// sorted first and joined with a two-pointer merge in O(n+m).
func Intersect(a, b PostingList) PostingList {
	left, right := a.Sorted(), b.Sorted()
	result := make(PostingList, 0, min(len(left), len(right)))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		switch {
		case left[i] == right[j]:
			result = append(result, left[i])
			i++
			j++
		case left[i] < right[j]:
			i++
		default:
			j++
		}
	}
	return result
}

// Union returns every document present in either list.
func Union(a, b PostingList) PostingList {
	seen := make(map[int]struct{}, len(a)+len(b))
	result := make(PostingList, 0, len(a)+len(b))
	for _, list := range []PostingList{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			result = append(result, id)
		}
	}
	sort.Ints(result)
	return result
}

// Difference returns the documents of a that are not in b.
func Difference(a, b PostingList) PostingList {
	drop := make(map[int]struct{}, len(b))
	for _, id := range b {
		drop[id] = struct{}{}
	}
	result := make(PostingList, 0, len(a))
	for _, id := range a.Sorted() {
		if _, ok := drop[id]; !ok {
			result = append(result, id)
		}
	}
	return result
}

func dedupSorted(p PostingList) PostingList {
	if len(p) < 2 {
		return p
	}
	out := p[:1]
	for _, id := range p[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
