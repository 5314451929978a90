package source

import (
	"context"

	"github.com/gomlx/qwen3-tokenizer/internal/files"
	"github.com/gomlx/qwen3-tokenizer/models/gguf"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// GGUFSource reads the tokenizer embedded in the metadata of a GGUF model file. Create it with GGUF.
type GGUFSource struct {
	path string
}

var _ Source = (*GGUFSource)(nil)

// GGUF returns a source for the tokenizer embedded in a local GGUF model file, as used by llama.cpp.
//
// GGUF files name the pre-tokenizer pattern (e.g. "qwen2") without storing it, so Tables.Pattern is
// left empty: the default pattern of the tokenizer is used.
func GGUF(path string) *GGUFSource {
	return &GGUFSource{path: path}
}

// Load implements Source.
func (s *GGUFSource) Load(ctx context.Context) (*Tables, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := files.ReplaceTildeInDir(s.path)
	if err != nil {
		return nil, err
	}
	f, err := gguf.Open(path)
	if err != nil {
		return nil, err
	}
	tok, err := f.ReadTokenizer()
	if err != nil {
		return nil, errors.WithMessagef(err, "while reading tokenizer from %q", s.path)
	}
	if tok.Pre != "" && !tok.IsQwen() {
		klog.Warningf("GGUF file %q uses pre-tokenizer %q, but the Qwen pattern will be used", s.path, tok.Pre)
	}

	tables := newTables(path)
	if tables.Vocabulary, err = tok.Vocabulary(); err != nil {
		return nil, errors.WithMessagef(err, "while reading tokenizer from %q", s.path)
	}
	if tables.Merges, err = tok.MergeRanks(); err != nil {
		return nil, errors.WithMessagef(err, "while reading tokenizer from %q", s.path)
	}
	if tok.Types != nil {
		tables.AddedTokens = tok.AddedTokens()
	}
	tables.EOSTokenID = tok.EOSTokenID
	tables.PadTokenID = tok.PaddingTokenID
	if tok.UnknownTokenID >= 0 {
		tables.UnknownTokenID = &tok.UnknownTokenID
	}
	logLoaded(tables)
	return tables, nil
}
