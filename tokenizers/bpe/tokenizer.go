// Package bpe implements a byte-level Byte-Pair-Encoding tokenizer, compatible with the
// vocab.json and merges.txt files of HuggingFace models (GPT-2, Qwen2/Qwen3 and alike).
//
// The package performs no I/O: a Tokenizer is built from an already parsed Vocabulary, MergeRanks
// and Options. See package tokenizers/source for loading the files, and tokenizers/qwen3 for the
// Qwen3 configuration.
package bpe

import (
	"cmp"
	"slices"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/api"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Tokenizer converts text to token ids and back.
//
// It is immutable once created and safe for concurrent use. The only shared state is the
// memoization cache of merge results, which does its own locking.
type Tokenizer struct {
	vocab     *Vocabulary
	merges    *MergeRanks
	pre       *PreTokenizer
	normalize Normalizer
	byteLevel bool

	added          []AddedToken // Sorted by id.
	addedByID      map[int]AddedToken
	addedByContent map[string]int
	specialIDs     []int
	size           int

	eosID, padID int
	hasUnknown   bool
	unknownID    int

	cache *lru.Cache[string, []piece]
}

// Compile time assert that Tokenizer implements api.TokenizerWithSpans.
var _ api.TokenizerWithSpans = (*Tokenizer)(nil)

// New creates a Tokenizer from its tables and options.
//
// It fails with a FormatError if the added tokens are inconsistent, among themselves or with the
// vocabulary. No partially built tokenizer is ever returned.
func New(vocab *Vocabulary, merges *MergeRanks, opts Options) (*Tokenizer, error) {
	if vocab == nil || merges == nil {
		return nil, errors.New("bpe.New requires a vocabulary and merge ranks")
	}
	t := &Tokenizer{
		vocab:          vocab,
		merges:         merges,
		normalize:      opts.Normalizer,
		byteLevel:      opts.ByteLevel,
		addedByID:      make(map[int]AddedToken, len(opts.AddedTokens)),
		addedByContent: make(map[string]int, len(opts.AddedTokens)),
		eosID:          opts.EOSTokenID,
		padID:          opts.PadTokenID,
		size:           vocab.Len(),
	}
	if t.normalize == nil {
		t.normalize = NFC
	}

	for _, token := range opts.AddedTokens {
		if token.ID < 0 {
			return nil, errors.WithStack(formatErrorf("added tokens", 0, "token %q has negative id %d", token.Content, token.ID))
		}
		if other, found := t.addedByID[token.ID]; found {
			return nil, errors.WithStack(formatErrorf("added tokens", 0,
				"tokens %q and %q share the id %d", other.Content, token.Content, token.ID))
		}
		if otherID, found := t.addedByContent[token.Content]; found {
			return nil, errors.WithStack(formatErrorf("added tokens", 0,
				"token %q given twice, with ids %d and %d", token.Content, otherID, token.ID))
		}
		if base, found := vocab.Token(token.ID); found {
			if base != token.Content {
				return nil, errors.WithStack(formatErrorf("added tokens", 0,
					"token %q uses id %d, already assigned to %q in the vocabulary", token.Content, token.ID, base))
			}
		} else {
			t.size++
		}
		t.addedByID[token.ID] = token
		t.addedByContent[token.Content] = token.ID
		t.added = append(t.added, token)
		if token.Special {
			t.specialIDs = append(t.specialIDs, token.ID)
		}
	}
	slices.SortFunc(t.added, func(a, b AddedToken) int { return cmp.Compare(a.ID, b.ID) })
	slices.Sort(t.specialIDs)

	if opts.UnknownTokenID != nil {
		t.hasUnknown, t.unknownID = true, *opts.UnknownTokenID
		if _, found := t.IDToToken(t.unknownID); !found {
			return nil, errors.WithStack(formatErrorf("options", 0, "unknown token id %d is not in the vocabulary", t.unknownID))
		}
	}
	for _, id := range []int{t.eosID, t.padID} {
		if _, found := t.IDToToken(id); !found {
			klog.Warningf("bpe.New(): EOS/pad token id %d has no token, it will decode to nothing", id)
		}
	}

	var err error
	t.pre, err = NewPreTokenizer(opts.Pattern, t.added)
	if err != nil {
		return nil, err
	}
	cacheSize := opts.CacheSize
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}
	if cacheSize > 0 {
		t.cache, err = lru.New[string, []piece](cacheSize)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create merge cache of size %d", cacheSize)
		}
	}
	klog.V(1).Infof("bpe.New(): %d vocabulary tokens, %d merges, %d added tokens (%d special), byte-level=%v, cache=%d",
		vocab.Len(), merges.Len(), len(t.added), len(t.specialIDs), t.byteLevel, max(cacheSize, 0))
	return t, nil
}

// forEachToken segments the already normalized text and calls yield for each token, with its
// byte range in text.
func (t *Tokenizer) forEachToken(text string, yield func(id, start, end int)) error {
	spans, err := t.pre.Split(text)
	if err != nil {
		return err
	}
	for _, span := range spans {
		if span.Atomic {
			yield(span.ID, span.Start, span.End)
			continue
		}
		pieces, err := t.encodeWord(text[span.Start:span.End], span.Start)
		if err != nil {
			return err
		}
		start := span.Start
		for _, p := range pieces {
			end := span.Start + p.end
			yield(p.id, start, end)
			start = end
		}
	}
	return nil
}

// Encode returns the token ids of text, optionally followed by the end-of-sequence token.
//
// It fails with UnknownSymbolError if a symbol has no vocabulary entry and no unknown token
// was configured.
func (t *Tokenizer) Encode(text string, addEos bool) ([]int, error) {
	normalized := t.normalize(text)
	ids := make([]int, 0, len(normalized)/3+1)
	err := t.forEachToken(normalized, func(id, _, _ int) {
		ids = append(ids, id)
	})
	if err != nil {
		return nil, err
	}
	if addEos {
		ids = append(ids, t.eosID)
	}
	return ids, nil
}

// EncodeDetailed is like Encode, but also returns the text of each token and its byte offsets in
// the normalized text (EncodingResult.Text).
//
// The appended end-of-sequence token, if any, gets the empty offset at the end of the text.
func (t *Tokenizer) EncodeDetailed(text string, addEos bool) (*api.EncodingResult, error) {
	result := &api.EncodingResult{Text: t.normalize(text)}
	add := func(id, start, end int) {
		result.IDs = append(result.IDs, id)
		result.Tokens = append(result.Tokens, t.Decode([]int{id}, false))
		result.Offsets = append(result.Offsets, api.Offset{Start: start, Length: end - start})
	}
	if err := t.forEachToken(result.Text, add); err != nil {
		return nil, err
	}
	if addEos {
		add(t.eosID, len(result.Text), len(result.Text))
	}
	return result, nil
}

// CountTokens returns the number of tokens Encode would return.
func (t *Tokenizer) CountTokens(text string, addEos bool) (int, error) {
	count := 0
	if err := t.forEachToken(t.normalize(text), func(_, _, _ int) { count++ }); err != nil {
		return 0, err
	}
	if addEos {
		count++
	}
	return count, nil
}

// SpecialTokenID implements api.Tokenizer. End-of-sentence, padding and, if configured, unknown
// tokens are known.
func (t *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	switch token {
	case api.TokEndOfSentence:
		return t.eosID, nil
	case api.TokPad:
		return t.padID, nil
	case api.TokUnknown:
		if t.hasUnknown {
			return t.unknownID, nil
		}
	}
	return 0, errors.Errorf("special token %s not defined for this tokenizer", token)
}

// EOSTokenID returns the id appended by the encoders when addEos is set.
func (t *Tokenizer) EOSTokenID() int { return t.eosID }

// PadTokenID returns the id used to pad fixed length inputs.
func (t *Tokenizer) PadTokenID() int { return t.padID }

// VocabularySize returns the number of distinct ids, the base vocabulary plus the added tokens.
func (t *Tokenizer) VocabularySize() int { return t.size }

// Vocabulary returns a copy of the complete token to id mapping, including added tokens.
func (t *Tokenizer) Vocabulary() map[string]int {
	m := t.vocab.Map()
	for _, token := range t.added {
		m[token.Content] = token.ID
	}
	return m
}

// AddedTokens returns the added tokens sorted by id.
func (t *Tokenizer) AddedTokens() []AddedToken {
	return slices.Clone(t.added)
}

// AddedTokenID returns the id of the added token with the given content, e.g. "<|im_start|>".
func (t *Tokenizer) AddedTokenID(content string) (int, bool) {
	id, found := t.addedByContent[content]
	return id, found
}

// SpecialTokenIDs returns the sorted ids of the special tokens: the ones Decode omits when asked to.
func (t *Tokenizer) SpecialTokenIDs() []int {
	return slices.Clone(t.specialIDs)
}

// IsSpecial returns whether id is a special added token.
func (t *Tokenizer) IsSpecial(id int) bool {
	token, found := t.addedByID[id]
	return found && token.Special
}

// TokenToID returns the id of a token string, looking up the added tokens first.
func (t *Tokenizer) TokenToID(token string) (int, bool) {
	if id, found := t.addedByContent[token]; found {
		return id, true
	}
	return t.vocab.ID(token)
}

// IDToToken returns the token string of id, as stored in the vocabulary (so in the byte-level
// alphabet for base tokens), looking up the added tokens first.
func (t *Tokenizer) IDToToken(id int) (string, bool) {
	if token, found := t.addedByID[id]; found {
		return token.Content, true
	}
	return t.vocab.Token(id)
}
