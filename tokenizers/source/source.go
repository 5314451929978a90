// Package source loads the tables of a byte-level BPE tokenizer (vocabulary, merges and
// configuration) from where they are stored: local files, a directory, memory, a tokenizer.json
// file, a GGUF model file or a HuggingFace Hub repository.
//
// Sources only read and parse: the tokenizer itself is built by package qwen3 (or bpe.New) from
// the returned Tables.
package source

import (
	"context"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/api"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/bpe"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Standard file names of a HuggingFace tokenizer.
const (
	VocabFileName         = "vocab.json"
	MergesFileName        = "merges.txt"
	ConfigFileName        = "tokenizer_config.json"
	TokenizerJSONFileName = "tokenizer.json"
)

// Tables are the parsed contents of a tokenizer source.
type Tables struct {
	Vocabulary *bpe.Vocabulary
	Merges     *bpe.MergeRanks

	// Config is the parsed tokenizer_config.json, or nil if the source has none.
	Config *api.Config

	// AddedTokens defined by the source itself (tokenizer.json and GGUF files), or nil.
	AddedTokens []bpe.AddedToken

	// Pattern of the pre-tokenizer, if the source defines one.
	Pattern string

	// EOSTokenID and PadTokenID defined by the source itself (GGUF files), or -1.
	EOSTokenID, PadTokenID int

	// UnknownTokenID defined by the source itself (tokenizer.json and GGUF files), or nil.
	UnknownTokenID *int

	// ByteLevel is set when the source states whether it uses the byte-level alphabet (tokenizer.json).
	ByteLevel *bool

	// Normalizer is set when the source defines one (tokenizer.json).
	Normalizer bpe.Normalizer

	// Origin describes where the tables were loaded from, for messages.
	Origin string
}

func newTables(origin string) *Tables {
	return &Tables{EOSTokenID: -1, PadTokenID: -1, Origin: origin}
}

// Source of the tables of a tokenizer.
type Source interface {
	// Load reads and parses the tables. The returned Tables don't reference any resources of
	// the source, which can be discarded.
	Load(ctx context.Context) (*Tables, error)
}

// readMapped memory-maps the file at path, and calls parse with its contents. The contents are
// unmapped when parse returns, so parse must not keep references to it.
func readMapped(path string, parse func(contents []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", path)
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "failed to stat %q", path)
	}
	if info.Size() == 0 {
		// Empty files can't be mapped.
		return parse(nil)
	}
	contents, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "failed to memory-map %q", path)
	}
	defer func() {
		if err := contents.Unmap(); err != nil {
			klog.Warningf("failed to unmap %q: %v", path, err)
		}
	}()
	return parse(contents)
}

// parseVocabAndMerges parses the contents of vocab.json, merges.txt and optionally tokenizer_config.json.
func parseVocabAndMerges(tables *Tables, vocab, merges, config []byte) error {
	var err error
	if tables.Vocabulary, err = bpe.ParseVocabulary(vocab); err != nil {
		return err
	}
	if tables.Merges, err = bpe.ParseMerges(merges); err != nil {
		return err
	}
	if config != nil {
		if tables.Config, err = api.ParseConfigContent(config); err != nil {
			return errors.WithMessage(err, ConfigFileName)
		}
	}
	return nil
}

func logLoaded(tables *Tables) {
	klog.V(1).Infof("loaded tokenizer from %s: %d tokens, %d merges, config=%v",
		tables.Origin, tables.Vocabulary.Len(), tables.Merges.Len(), tables.Config != nil)
}
