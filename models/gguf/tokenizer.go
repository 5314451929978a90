package gguf

import (
	"strings"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/bpe"
	"github.com/pkg/errors"
)

// Metadata keys of the embedded tokenizer.
const (
	KeyTokenizerModel     = "tokenizer.ggml.model"
	KeyTokenizerPre       = "tokenizer.ggml.pre"
	KeyTokens             = "tokenizer.ggml.tokens"
	KeyTokenTypes         = "tokenizer.ggml.token_type"
	KeyMerges             = "tokenizer.ggml.merges"
	KeyEOSTokenID         = "tokenizer.ggml.eos_token_id"
	KeyPaddingTokenID     = "tokenizer.ggml.padding_token_id"
	KeyUnknownTokenID     = "tokenizer.ggml.unknown_token_id"
	tokenizerModelGPT2BPE = "gpt2"
)

// TokenType of each token in the embedded vocabulary, as defined by llama.cpp.
type TokenType int32

const (
	TokenTypeUndefined TokenType = iota
	TokenTypeNormal
	TokenTypeUnknown
	TokenTypeControl
	TokenTypeUserDefined
	TokenTypeUnused
	TokenTypeByte
)

// Tokenizer holds the byte-level BPE tokenizer embedded in the metadata of a GGUF file.
type Tokenizer struct {
	// Model is the tokenizer family, "gpt2" for byte-level BPE.
	Model string

	// Pre names the pre-tokenizer pattern, e.g. "qwen2". The pattern itself is not stored.
	Pre string

	// Tokens indexed by id, including the added tokens.
	Tokens []string

	// Types of the tokens, parallel to Tokens. Empty if not present in the file.
	Types []TokenType

	// Merges in rank order, each "left right".
	Merges []string

	// EOSTokenID, PaddingTokenID and UnknownTokenID are -1 if not present.
	EOSTokenID, PaddingTokenID, UnknownTokenID int
}

// ReadTokenizer extracts the tokenizer metadata. It fails if the tokens or merges are missing,
// or if the tokenizer is not a byte-level BPE ("gpt2") one.
func (f *File) ReadTokenizer() (*Tokenizer, error) {
	tok := &Tokenizer{EOSTokenID: -1, PaddingTokenID: -1, UnknownTokenID: -1}
	var err error
	if tok.Model, err = f.optionalString(KeyTokenizerModel); err != nil {
		return nil, err
	}
	if tok.Model != "" && tok.Model != tokenizerModelGPT2BPE {
		return nil, errors.Errorf("gguf: tokenizer model %q is not supported, only %q (byte-level BPE)", tok.Model, tokenizerModelGPT2BPE)
	}
	if tok.Pre, err = f.optionalString(KeyTokenizerPre); err != nil {
		return nil, err
	}
	if tok.Tokens, err = f.requiredStrings(KeyTokens); err != nil {
		return nil, err
	}
	if tok.Merges, err = f.requiredStrings(KeyMerges); err != nil {
		return nil, err
	}

	if kv, found := f.GetKeyValue(KeyTokenTypes); found {
		types, err := kv.AsInts()
		if err != nil {
			return nil, errors.Wrapf(err, "gguf: %q", KeyTokenTypes)
		}
		if len(types) != len(tok.Tokens) {
			return nil, errors.Errorf("gguf: %q has %d entries, but there are %d tokens", KeyTokenTypes, len(types), len(tok.Tokens))
		}
		tok.Types = make([]TokenType, len(types))
		for i, t := range types {
			tok.Types[i] = TokenType(t)
		}
	}

	specials := map[string]*int{
		KeyEOSTokenID:     &tok.EOSTokenID,
		KeyPaddingTokenID: &tok.PaddingTokenID,
		KeyUnknownTokenID: &tok.UnknownTokenID,
	}
	for key, field := range specials {
		kv, found := f.GetKeyValue(key)
		if !found {
			continue
		}
		id, err := kv.AsInt()
		if err != nil {
			return nil, errors.Errorf("gguf: %q is not an integer: %v", key, err)
		}
		if id < 0 || id >= int64(len(tok.Tokens)) {
			return nil, errors.Errorf("gguf: %q=%d is out of range of the %d tokens", key, id, len(tok.Tokens))
		}
		*field = int(id)
	}
	return tok, nil
}

func (f *File) optionalString(key string) (string, error) {
	kv, found := f.GetKeyValue(key)
	if !found {
		return "", nil
	}
	s, err := kv.AsString()
	return s, errors.Wrapf(err, "gguf: %q", key)
}

func (f *File) requiredStrings(key string) ([]string, error) {
	kv, found := f.GetKeyValue(key)
	if !found {
		return nil, errors.Errorf("gguf: %q is missing", key)
	}
	values, err := kv.AsStrings()
	return values, errors.Wrapf(err, "gguf: %q", key)
}

// Vocabulary returns all the tokens, including the added ones, with their index as id.
func (t *Tokenizer) Vocabulary() (*bpe.Vocabulary, error) {
	return bpe.NewVocabularyFromList(t.Tokens)
}

// MergeRanks returns the merges, ranked in order.
func (t *Tokenizer) MergeRanks() (*bpe.MergeRanks, error) {
	return bpe.ParseMergeLines(t.Merges)
}

// AddedTokens returns the tokens to be matched as a whole: control tokens (special) and
// user-defined tokens (not special), sorted by id.
func (t *Tokenizer) AddedTokens() []bpe.AddedToken {
	var added []bpe.AddedToken
	for id, typ := range t.Types {
		switch typ {
		case TokenTypeControl:
			added = append(added, bpe.AddedToken{Content: t.Tokens[id], ID: id, Special: true})
		case TokenTypeUserDefined:
			added = append(added, bpe.AddedToken{Content: t.Tokens[id], ID: id})
		}
	}
	return added
}

// IsQwen returns whether the pre-tokenizer is one of the Qwen family.
func (t *Tokenizer) IsQwen() bool {
	return strings.HasPrefix(t.Pre, "qwen")
}
