package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/irsearch/pkg/errors"
)

type corpusFile struct {
	Documents []index.Document `yaml:"documents"`
}

// File reads a corpus from a YAML (or JSON) file of the form
//
//	documents:
//	  - id: 1
//	    content: "..."
type File struct {
	path   string
	logger *slog.Logger
}

func NewFile(path string) *File {
	return &File{
		path:   path,
		logger: slog.Default().With("component", "file-source", "path", path),
	}
}

func (f *File) Name() string { return config.SourceFile }

func (f *File) Fetch(ctx context.Context) ([]index.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading corpus file: %v", apperrors.ErrSourceUnavailable, err)
	}
	docs, err := ParseCorpus(data)
	if err != nil {
		return nil, fmt.Errorf("corpus file %s: %w", f.path, err)
	}
	f.logger.Info("corpus loaded", "documents", len(docs))
	return docs, nil
}

// ParseCorpus decodes a corpus document list. Identifiers must be positive.
func ParseCorpus(data []byte) ([]index.Document, error) {
	var corpus corpusFile
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 400, "decoding corpus: %v", err)
	}
	for i, doc := range corpus.Documents {
		if doc.ID <= 0 {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, 400, "document %d has non-positive id %d", i, doc.ID)
		}
	}
	if corpus.Documents == nil {
		return []index.Document{}, nil
	}
	return corpus.Documents, nil
}
