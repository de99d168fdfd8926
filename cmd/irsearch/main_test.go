package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/executor"
)

func TestRunDemo(t *testing.T) {
	engine := indexer.NewEngine([]index.Document{
		{ID: 1, Content: "Information retrieval. Finding information in documents."},
		{ID: 2, Content: "Machine learning. Learning from data."},
		{ID: 3, Content: "Natural language processing. Processing text."},
	}, nil)

	var out bytes.Buffer
	require.NoError(t, runDemo(context.Background(), &out, executor.New(engine, nil), 10))

	text := out.String()
	assert.Contains(t, text, "Search for \"information AND retrieval\":\n[\n  {\n    \"document_id\": 1,")
	assert.Contains(t, text, "TF-IDF search for \"learning processing\":")
	assert.Equal(t, 2, strings.Count(text, "\nSearch for"))
	assert.Equal(t, 2, strings.Count(text, "\nTF-IDF search for"))
}

func TestDumpAll(t *testing.T) {
	engine := indexer.NewEngine([]index.Document{{ID: 1, Content: "cat"}}, nil)
	var out bytes.Buffer
	require.NoError(t, dumpAll(&out, engine.Index()))
	assert.Equal(t,
		"\nPrinting Occurrence Matrix:\nTerm\t| Doc 1\n------------\ncat\t| 1\n"+
			"\nPrinting Inverted Index:\nInverted Index:\n--------------\ncat: [1]\n",
		out.String())
}
