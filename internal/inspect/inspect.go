// Package inspect renders human-readable dumps of a built index. The output
// is deterministic for a given corpus and is meant for debugging only.
package inspect

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/index"
)

// DumpInvertedIndex writes every term in ascending lexical order followed
// by its ascending posting list, e.g. "cat: [1, 4]".
func DumpInvertedIndex(w io.Writer, idx *index.Index) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "Inverted Index:")
	fmt.Fprintln(bw, "--------------")
	for _, entry := range idx.Snapshot() {
		fmt.Fprintf(bw, "%s: [%s]\n", entry.Term, joinInts(entry.Postings, ", "))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing inverted index: %w", err)
	}
	return nil
}

// DumpOccurrenceMatrix writes the term×document count table. Columns are
// document IDs in ascending order; rows follow the order in which terms
// were first indexed. Absent cells print as 0.
func DumpOccurrenceMatrix(w io.Writer, idx *index.Index) error {
	docIDs := idx.DocumentIDs()
	sort.Ints(docIDs)

	var header strings.Builder
	header.WriteString("Term")
	for _, id := range docIDs {
		header.WriteString("\t| Doc ")
		header.WriteString(strconv.Itoa(id))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, header.String())
	fmt.Fprintln(bw, strings.Repeat("-", header.Len()))
	for _, term := range idx.Terms() {
		bw.WriteString(term)
		for _, id := range docIDs {
			fmt.Fprintf(bw, "\t| %d", idx.Occurrences(term, id))
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing occurrence matrix: %w", err)
	}
	return nil
}

func joinInts(ids []int, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, sep)
}
