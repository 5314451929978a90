// Package hftokenizer reads HuggingFace's tokenizer.json format, the single file used by the
// HuggingFace Tokenizers library (the "fast" tokenizers), and converts its byte-level BPE model
// into the tables and options of package bpe.
//
// Only BPE models are supported: WordPiece and Unigram files are rejected.
package hftokenizer

import (
	"encoding/json"
	"slices"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/bpe"
	"github.com/pkg/errors"
)

// TokenizerJSON represents the structure of HuggingFace's tokenizer.json file.
//
// Only the fields relevant to a byte-level BPE tokenizer are parsed.
type TokenizerJSON struct {
	Version      string        `json:"version"`
	AddedTokens  []AddedToken  `json:"added_tokens"`
	Normalizer   *Normalizer   `json:"normalizer"`
	PreTokenizer *PreTokenizer `json:"pre_tokenizer"`
	Decoder      *Decoder      `json:"decoder"`
	Model        Model         `json:"model"`
}

// AddedToken represents a token added to the vocabulary, matched before pre-tokenization.
type AddedToken struct {
	ID         int    `json:"id"`
	Content    string `json:"content"`
	SingleWord bool   `json:"single_word"`
	Lstrip     bool   `json:"lstrip"`
	Rstrip     bool   `json:"rstrip"`
	Normalized bool   `json:"normalized"`
	Special    bool   `json:"special"`
}

// Normalizer represents the normalizer configuration.
type Normalizer struct {
	Type        string       `json:"type"`
	Normalizers []Normalizer `json:"normalizers"`
}

// Pattern for regex-based operations.
type Pattern struct {
	Regex  string `json:"Regex,omitempty"`
	String string `json:"String,omitempty"`
}

// PreTokenizer represents the pre-tokenizer configuration.
type PreTokenizer struct {
	Type           string         `json:"type"`
	AddPrefixSpace bool           `json:"add_prefix_space"`
	UseRegex       bool           `json:"use_regex"`
	PreTokenizers  []PreTokenizer `json:"pretokenizers"`
	Pattern        *Pattern       `json:"pattern"`
	Behavior       string         `json:"behavior"`
	Invert         bool           `json:"invert"`
}

// Decoder represents the decoder configuration.
type Decoder struct {
	Type     string    `json:"type"`
	Decoders []Decoder `json:"decoders"`
}

// Model represents the tokenizer model.
type Model struct {
	Type         string         `json:"type"`
	Vocab        map[string]int `json:"vocab"`
	Merges       []Merge        `json:"merges"`
	UnkToken     *string        `json:"unk_token"`
	ByteFallback bool           `json:"byte_fallback"`
	Dropout      *float64       `json:"dropout"`
}

// Merge is one entry of the model merges. Older files store it as a "left right" string, newer
// ones as a [left, right] array: both are accepted.
type Merge bpe.Pair

// UnmarshalJSON implements json.Unmarshaler.
func (m *Merge) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return errors.Errorf("merge %s must have 2 symbols", data)
		}
		*m = Merge{Left: pair[0], Right: pair[1]}
		return nil
	}
	var line string
	if err := json.Unmarshal(data, &line); err != nil {
		return errors.Errorf("merge must be a string or an array of 2 strings, got %s", data)
	}
	ranks, err := bpe.ParseMergeLines([]string{line})
	if err != nil {
		return err
	}
	if ranks.Len() != 1 {
		return errors.Errorf("empty merge %s", data)
	}
	*m = Merge(ranks.Pairs()[0])
	return nil
}

// Parse tokenizer.json content. It fails if the model is not BPE.
func Parse(content []byte) (*TokenizerJSON, error) {
	var tj TokenizerJSON
	if err := json.Unmarshal(content, &tj); err != nil {
		return nil, errors.Wrapf(err, "failed to parse tokenizer.json")
	}
	if tj.Model.Type != "" && tj.Model.Type != "BPE" {
		return nil, errors.Errorf("tokenizer.json model type %q not supported, only \"BPE\"", tj.Model.Type)
	}
	if tj.Model.Vocab == nil {
		return nil, errors.Errorf("tokenizer.json has no model vocabulary")
	}
	return &tj, nil
}

// Vocabulary returns the model vocabulary. Added tokens are not included.
func (tj *TokenizerJSON) Vocabulary() (*bpe.Vocabulary, error) {
	return bpe.NewVocabulary(tj.Model.Vocab)
}

// MergeRanks returns the model merges, ranked in file order.
func (tj *TokenizerJSON) MergeRanks() *bpe.MergeRanks {
	pairs := make([]bpe.Pair, len(tj.Model.Merges))
	for i, m := range tj.Model.Merges {
		pairs[i] = bpe.Pair(m)
	}
	return bpe.NewMergeRanks(pairs)
}

// AddedTokensList returns the added tokens sorted by ID.
func (tj *TokenizerJSON) AddedTokensList() []bpe.AddedToken {
	tokens := make([]bpe.AddedToken, 0, len(tj.AddedTokens))
	for _, at := range tj.AddedTokens {
		tokens = append(tokens, bpe.AddedToken{Content: at.Content, ID: at.ID, Special: at.Special})
	}
	slices.SortFunc(tokens, func(a, b bpe.AddedToken) int { return a.ID - b.ID })
	return tokens
}

// AddedTokenID returns the id of the added token with the given content.
func (tj *TokenizerJSON) AddedTokenID(content string) (int, bool) {
	for _, at := range tj.AddedTokens {
		if at.Content == content {
			return at.ID, true
		}
	}
	return 0, false
}

// SplitPattern returns the regular expression of the first "Split" pre-tokenizer, looking inside
// "Sequence" pre-tokenizers. It returns "" if there is none, in which case a plain "ByteLevel"
// pre-tokenizer with use_regex splits with the GPT-2 pattern.
func (tj *TokenizerJSON) SplitPattern() string {
	if tj.PreTokenizer == nil {
		return ""
	}
	return splitPattern(tj.PreTokenizer)
}

func splitPattern(pt *PreTokenizer) string {
	switch pt.Type {
	case "Split":
		if pt.Pattern != nil && pt.Pattern.Regex != "" {
			return pt.Pattern.Regex
		}
	case "ByteLevel":
		if pt.UseRegex {
			return bpe.GPT2Pattern
		}
	case "Sequence":
		for i := range pt.PreTokenizers {
			if pattern := splitPattern(&pt.PreTokenizers[i]); pattern != "" {
				return pattern
			}
		}
	}
	return ""
}

// ByteLevel returns whether the file uses the byte-level alphabet, either in the pre-tokenizer
// or in the decoder.
func (tj *TokenizerJSON) ByteLevel() bool {
	return (tj.PreTokenizer != nil && preTokenizerHasType(tj.PreTokenizer, "ByteLevel")) ||
		(tj.Decoder != nil && decoderHasType(tj.Decoder, "ByteLevel"))
}

func preTokenizerHasType(pt *PreTokenizer, typ string) bool {
	if pt.Type == typ {
		return true
	}
	for i := range pt.PreTokenizers {
		if preTokenizerHasType(&pt.PreTokenizers[i], typ) {
			return true
		}
	}
	return false
}

func decoderHasType(d *Decoder, typ string) bool {
	if d.Type == typ {
		return true
	}
	for i := range d.Decoders {
		if decoderHasType(&d.Decoders[i], typ) {
			return true
		}
	}
	return false
}

// NormalizerFunc returns the bpe.Normalizer matching the normalizer configuration: bpe.NFC for
// "NFC" (possibly inside a "Sequence"), and bpe.NoNormalization when there is no normalizer.
// Other normalizers are not supported.
func (tj *TokenizerJSON) NormalizerFunc() (bpe.Normalizer, error) {
	if tj.Normalizer == nil {
		return bpe.NoNormalization, nil
	}
	return normalizerFunc(tj.Normalizer)
}

func normalizerFunc(n *Normalizer) (bpe.Normalizer, error) {
	switch n.Type {
	case "NFC":
		return bpe.NFC, nil
	case "Sequence":
		switch len(n.Normalizers) {
		case 0:
			return bpe.NoNormalization, nil
		case 1:
			return normalizerFunc(&n.Normalizers[0])
		}
	}
	return nil, errors.Errorf("tokenizer.json normalizer %q not supported", n.Type)
}

// Options returns the bpe.Options described by the file: added tokens, pattern, normalizer,
// byte-level and unknown token. The EOS and pad ids are not part of tokenizer.json, and are
// left for the caller to set.
func (tj *TokenizerJSON) Options() (bpe.Options, error) {
	normalizer, err := tj.NormalizerFunc()
	if err != nil {
		return bpe.Options{}, err
	}
	opts := bpe.Options{
		AddedTokens: tj.AddedTokensList(),
		ByteLevel:   tj.ByteLevel(),
		Pattern:     tj.SplitPattern(),
		Normalizer:  normalizer,
	}
	if unk := tj.Model.UnkToken; unk != nil && *unk != "" {
		id, found := tj.Model.Vocab[*unk]
		if !found {
			id, found = tj.AddedTokenID(*unk)
		}
		if !found {
			return bpe.Options{}, errors.Errorf("tokenizer.json unknown token %q is not in the vocabulary", *unk)
		}
		opts.UnknownTokenID = &id
	}
	return opts, nil
}
