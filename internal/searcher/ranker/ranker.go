// Package ranker scores documents against free-text queries using
// log-dampened TF-IDF weights and cosine similarity.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/tokenizer"
)

// DefaultTopK is used when Rank is called with a non-positive topK.
const DefaultTopK = 10

type ScoredDoc struct {
	DocID int     `json:"document_id"`
	Score float64 `json:"score"`
}

// Ranker answers ranked queries over one index. Document vector lengths
// depend only on the index, so they are computed once by New.
type Ranker struct {
	idx   *index.Index
	n     float64
	norms map[int]float64
}

func New(idx *index.Index) *Ranker {
	r := &Ranker{
		idx:   idx,
		n:     float64(idx.DocCount()),
		norms: make(map[int]float64, idx.DocCount()),
	}
	for _, docID := range idx.DocumentIDs() {
		var sumSquares float64
		idx.ForEachTerm(docID, func(term string, count int) {
			w := r.weight(count, term)
			sumSquares += w * w
		})
		r.norms[docID] = math.Sqrt(sumSquares)
	}
	return r
}

// IDF returns log10(N/df) for term, or 0 when no document contains it.
func (r *Ranker) IDF(term string) float64 {
	df := r.idx.DocFreq(term)
	if df == 0 {
		return 0
	}
	return math.Log10(r.n / float64(df))
}

// TFIDF returns the weight of term in document docID.
func (r *Ranker) TFIDF(term string, docID int) float64 {
	return r.weight(r.idx.TermFreq(docID, term), term)
}

// DocNorm returns the Euclidean length of the document's weight vector.
func (r *Ranker) DocNorm(docID int) float64 {
	return r.norms[docID]
}

func (r *Ranker) weight(freq int, term string) float64 {
	if freq <= 0 {
		return 0
	}
	return (1 + math.Log10(float64(freq))) * r.IDF(term)
}

// Rank tokenizes query the same way documents were tokenized and returns
// at most topK documents ordered by descending cosine similarity, ties by
// ascending document ID. Documents with zero length or non-positive
// similarity are left out. Operator words are ordinary terms here.
func (r *Ranker) Rank(query string, topK int) []ScoredDoc {
	if topK <= 0 {
		topK = DefaultTopK
	}
	terms := tokenizer.Tokenize(query)
	if len(terms) == 0 {
		return []ScoredDoc{}
	}

	queryFreq := make(map[string]int, len(terms))
	for _, term := range terms {
		queryFreq[term]++
	}
	queryWeights := make(map[string]float64, len(queryFreq))
	var sumSquares float64
	for term, freq := range queryFreq {
		w := r.weight(freq, term)
		queryWeights[term] = w
		sumSquares += w * w
	}
	queryNorm := math.Sqrt(sumSquares)
	if queryNorm == 0 {
		return []ScoredDoc{}
	}

	// Documents outside every query term's postings have a zero dot
	// product and would be filtered anyway.
	var candidates index.PostingList
	for term, w := range queryWeights {
		if w == 0 {
			continue
		}
		candidates = index.Union(candidates, r.idx.Postings(term))
	}

	results := make([]ScoredDoc, 0, len(candidates))
	for _, docID := range candidates {
		docNorm := r.norms[docID]
		if docNorm == 0 {
			continue
		}
		var dot float64
		for term, qw := range queryWeights {
			dot += qw * r.TFIDF(term, docID)
		}
		similarity := dot / (queryNorm * docNorm)
		if similarity <= 0 {
			continue
		}
		results = append(results, ScoredDoc{
			DocID: docID,
			Score: math.Min(similarity, 1),
		})
	}
	return TopK(results, topK)
}

// SortScored orders docs by descending score, then ascending document ID.
func SortScored(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
}
