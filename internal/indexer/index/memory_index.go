package index

import (
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/tokenizer"
)

// Index holds the three structures derived from a corpus: the inverted
// index, per-document term frequencies and the term×document occurrence
// matrix. An Index is populated once by Build and is read-only afterwards,
// so any number of goroutines may query it concurrently.
type Index struct {
	inverted   map[string]map[int]struct{}
	termFreq   map[int]map[string]int
	occurrence map[string]map[int]int

	// terms keeps first-seen order so matrix dumps are stable.
	terms  []string
	docIDs []int
	tokens int
}

// Build indexes docs in order, one pass per document. Documents sharing an
// ID are merged into a single entry.
func Build(docs []Document) *Index {
	idx := &Index{
		inverted:   make(map[string]map[int]struct{}),
		termFreq:   make(map[int]map[string]int, len(docs)),
		occurrence: make(map[string]map[int]int),
	}
	logger := slog.Default().With("component", "index-builder")
	for _, doc := range docs {
		if _, exists := idx.termFreq[doc.ID]; exists {
			logger.Warn("duplicate document id, merging statistics", "doc_id", doc.ID)
		}
		idx.addDocument(doc)
	}
	logger.Debug("index built",
		"documents", len(idx.docIDs),
		"terms", len(idx.terms),
		"tokens", idx.tokens,
	)
	return idx
}

func (idx *Index) addDocument(doc Document) {
	tokens := tokenizer.Tokenize(doc.Content)

	freqs, exists := idx.termFreq[doc.ID]
	if !exists {
		freqs = make(map[string]int)
		idx.termFreq[doc.ID] = freqs
		idx.docIDs = append(idx.docIDs, doc.ID)
	}

	for _, term := range tokens {
		freqs[term]++

		postings, ok := idx.inverted[term]
		if !ok {
			postings = make(map[int]struct{})
			idx.inverted[term] = postings
			idx.terms = append(idx.terms, term)
		}
		postings[doc.ID] = struct{}{}

		cells, ok := idx.occurrence[term]
		if !ok {
			cells = make(map[int]int)
			idx.occurrence[term] = cells
		}
		cells[doc.ID]++
	}
	idx.tokens += len(tokens)
}

// Postings returns the ascending posting list for term, or an empty list
// when the term was never indexed. The returned slice is a fresh copy.
func (idx *Index) Postings(term string) PostingList {
	docs := idx.inverted[term]
	result := make(PostingList, 0, len(docs))
	for id := range docs {
		result = append(result, id)
	}
	sort.Ints(result)
	return result
}

// DocFreq returns the number of documents containing term.
func (idx *Index) DocFreq(term string) int {
	return len(idx.inverted[term])
}

// TermFreq returns the raw count of term in document docID.
func (idx *Index) TermFreq(docID int, term string) int {
	return idx.termFreq[docID][term]
}

// Occurrences returns the occurrence-matrix cell for term and docID.
func (idx *Index) Occurrences(term string, docID int) int {
	return idx.occurrence[term][docID]
}

// ForEachTerm calls fn for every term of document docID with its raw count.
func (idx *Index) ForEachTerm(docID int, fn func(term string, count int)) {
	for term, count := range idx.termFreq[docID] {
		fn(term, count)
	}
}

// DocCount returns the number of distinct documents.
func (idx *Index) DocCount() int {
	return len(idx.docIDs)
}

// DocumentIDs returns document IDs in the order they were first indexed.
func (idx *Index) DocumentIDs() []int {
	out := make([]int, len(idx.docIDs))
	copy(out, idx.docIDs)
	return out
}

// Terms returns every indexed term in first-seen order.
func (idx *Index) Terms() []string {
	out := make([]string, len(idx.terms))
	copy(out, idx.terms)
	return out
}

// Snapshot returns all terms with their postings, sorted by term.
func (idx *Index) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(idx.terms))
	for _, term := range idx.terms {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: idx.Postings(term),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Stats reports document, term and token totals.
func (idx *Index) Stats() Stats {
	return Stats{
		Documents: len(idx.docIDs),
		Terms:     len(idx.terms),
		Tokens:    idx.tokens,
	}
}
