package qwen3

import (
	"slices"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/api"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/bpe"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/source"
	"github.com/pkg/errors"
)

// Options for the Qwen3 chat and base models: all 26 added tokens, <|im_end|> as end of sequence
// and <|endoftext|> as padding.
func Options() bpe.Options {
	return bpe.Options{
		AddedTokens: AddedTokens(),
		EOSTokenID:  ImEndTokenID,
		PadTokenID:  EndOfTextTokenID,
		ByteLevel:   true,
		Pattern:     Pattern,
		Normalizer:  bpe.NFC,
	}
}

// EmbeddingOptions for the Qwen3 embedding and reranker models: only the 14 special tokens, and
// <|endoftext|> both as end of sequence and padding.
func EmbeddingOptions() bpe.Options {
	opts := Options()
	opts.AddedTokens = SpecialTokens()
	opts.EOSTokenID = EndOfTextTokenID
	return opts
}

// OptionsFromConfig derives the options from a tokenizer_config.json: the added tokens come from its
// "added_tokens_decoder" table (if present, else the Qwen3 ones are used), and the end of sequence
// and padding ids from its "eos_token" and "pad_token". The padding defaults to the end of sequence.
//
// Tokens are looked up among the added tokens first, then in vocab.
func OptionsFromConfig(config *api.Config, vocab *bpe.Vocabulary) (bpe.Options, error) {
	return optionsFromConfig(config, vocab, nil)
}

// optionsFromConfig is OptionsFromConfig, with the added tokens used when the config has none.
func optionsFromConfig(config *api.Config, vocab *bpe.Vocabulary, added []bpe.AddedToken) (bpe.Options, error) {
	opts := Options()
	if added != nil {
		opts.AddedTokens = added
	}
	if len(config.AddedTokensDecoder) > 0 {
		opts.AddedTokens = make([]bpe.AddedToken, 0, len(config.AddedTokensDecoder))
		for _, id := range config.AddedTokenIDs() {
			decoder := config.AddedTokensDecoder[id]
			opts.AddedTokens = append(opts.AddedTokens, bpe.AddedToken{Content: decoder.Content, ID: id, Special: decoder.Special})
		}
	}
	lookup := func(content string) (int, bool) {
		idx := slices.IndexFunc(opts.AddedTokens, func(t bpe.AddedToken) bool { return t.Content == content })
		if idx >= 0 {
			return opts.AddedTokens[idx].ID, true
		}
		if vocab != nil {
			return vocab.ID(content)
		}
		return 0, false
	}

	if config.EosToken != "" {
		id, found := lookup(string(config.EosToken))
		if !found {
			return bpe.Options{}, errors.Errorf("eos_token %q of %s is not a known token", config.EosToken, configName(config))
		}
		opts.EOSTokenID = id
	}
	opts.PadTokenID = opts.EOSTokenID
	if config.PadToken != "" {
		id, found := lookup(string(config.PadToken))
		if !found {
			return bpe.Options{}, errors.Errorf("pad_token %q of %s is not a known token", config.PadToken, configName(config))
		}
		opts.PadTokenID = id
	}
	if config.UnkToken != "" {
		if id, found := lookup(string(config.UnkToken)); found {
			opts.UnknownTokenID = &id
		}
	}
	return opts, nil
}

func configName(config *api.Config) string {
	if config.ConfigFile != "" {
		return config.ConfigFile
	}
	return "tokenizer_config.json"
}

// OptionsFromTables derives the options from what the source provides, on top of Options():
// its tokenizer_config.json (see OptionsFromConfig), then its own added tokens, special token ids,
// pattern, normalizer and byte-level flag.
func OptionsFromTables(tables *source.Tables) (bpe.Options, error) {
	opts := Options()
	if tables.Config != nil {
		var err error
		if opts, err = optionsFromConfig(tables.Config, tables.Vocabulary, tables.AddedTokens); err != nil {
			return bpe.Options{}, err
		}
	} else if tables.AddedTokens != nil {
		opts.AddedTokens = tables.AddedTokens
	}
	if tables.EOSTokenID >= 0 {
		opts.EOSTokenID = tables.EOSTokenID
		if tables.PadTokenID < 0 && tables.Config == nil {
			opts.PadTokenID = tables.EOSTokenID
		}
	}
	if tables.PadTokenID >= 0 {
		opts.PadTokenID = tables.PadTokenID
	}
	if tables.UnknownTokenID != nil {
		opts.UnknownTokenID = tables.UnknownTokenID
	}
	if tables.Pattern != "" {
		opts.Pattern = tables.Pattern
	}
	if tables.Normalizer != nil {
		opts.Normalizer = tables.Normalizer
	}
	if tables.ByteLevel != nil {
		opts.ByteLevel = *tables.ByteLevel
	}
	return opts, nil
}
