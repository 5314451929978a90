// Package qwen3 creates byte-level BPE tokenizers configured for the Qwen3 family of models: the
// chat and base models, the embedding and reranker models, and the vision-language models.
//
// Example:
//
//	tok, err := qwen3.FromHub(ctx, qwen3.DefaultModel)
//	if err != nil {
//		panic(err)
//	}
//	ids, err := tok.Encode("Hello, world!", false)
//
// Or from local files, with the options of the embedding models:
//
//	tok, err := qwen3.NewWithOptions(ctx, source.Dir("~/models/Qwen3-Embedding-0.6B"), qwen3.EmbeddingOptions())
package qwen3

import (
	"context"
	"strings"

	"github.com/gomlx/qwen3-tokenizer/hub"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/bpe"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/source"
	"github.com/pkg/errors"
)

// New loads the tables from src and creates the tokenizer, with the options derived from the source
// (see OptionsFromTables). Sources without configuration get Options().
func New(ctx context.Context, src source.Source) (*bpe.Tokenizer, error) {
	tables, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := OptionsFromTables(tables)
	if err != nil {
		return nil, errors.WithMessagef(err, "tokenizer from %s", tables.Origin)
	}
	return newFromTables(tables, opts)
}

// NewWithOptions loads the tables from src and creates the tokenizer with the given options.
// Any configuration in the source is ignored.
func NewWithOptions(ctx context.Context, src source.Source, opts bpe.Options) (*bpe.Tokenizer, error) {
	tables, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return newFromTables(tables, opts)
}

func newFromTables(tables *source.Tables, opts bpe.Options) (*bpe.Tokenizer, error) {
	tok, err := bpe.New(tables.Vocabulary, tables.Merges, opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "tokenizer from %s", tables.Origin)
	}
	return tok, nil
}

// ValidateModelName checks that modelName is not empty and names a Qwen3 model, that is, it contains
// "qwen3" in any case. E.g.: "Qwen/Qwen3-0.6B" or "Qwen/Qwen3-Embedding-0.6B".
func ValidateModelName(modelName string) error {
	if strings.TrimSpace(modelName) == "" {
		return errors.Errorf("model name cannot be empty: it must name a qwen3 model, e.g. %q", DefaultModel)
	}
	if !strings.Contains(strings.ToLower(modelName), "qwen3") {
		return errors.Errorf("model %q is not a qwen3 model: its name must contain \"qwen3\"", modelName)
	}
	return nil
}

// NewHubRepo validates modelName and returns the hub.Repo to download its tokenizer, to be further
// configured (cache directory, revision, progress...) and used with source.Hub.
func NewHubRepo(modelName string) (*hub.Repo, error) {
	if err := ValidateModelName(modelName); err != nil {
		return nil, err
	}
	return hub.New(modelName), nil
}

// FromHub downloads (or reuses from the cache) the tokenizer files of a Qwen3 model of the
// HuggingFace Hub, and creates the tokenizer. Use NewHubRepo and New for more control.
func FromHub(ctx context.Context, modelName string) (*bpe.Tokenizer, error) {
	repo, err := NewHubRepo(modelName)
	if err != nil {
		return nil, err
	}
	return New(ctx, source.Hub(repo))
}
