package bpe

import (
	"encoding/json"
	"maps"

	"github.com/pkg/errors"
)

// Vocabulary is the bijection between token strings and ids of the base model (vocab.json).
// It is immutable once created.
type Vocabulary struct {
	tokenToID map[string]int
	idToToken map[int]string
}

// ParseVocabulary parses the contents of a vocab.json file: a JSON object mapping token strings
// to ids.
func ParseVocabulary(content []byte) (*Vocabulary, error) {
	var tokens map[string]int
	if err := json.Unmarshal(content, &tokens); err != nil {
		return nil, errors.WithStack(formatErrorf("vocab.json", 0, "%v", err))
	}
	if tokens == nil {
		return nil, errors.WithStack(formatErrorf("vocab.json", 0, "expected a JSON object, got null"))
	}
	return NewVocabulary(tokens)
}

// NewVocabulary creates a Vocabulary from a token to id map.
// It fails with a FormatError if ids are negative or shared by two tokens.
func NewVocabulary(tokens map[string]int) (*Vocabulary, error) {
	v := &Vocabulary{
		tokenToID: make(map[string]int, len(tokens)),
		idToToken: make(map[int]string, len(tokens)),
	}
	for token, id := range tokens {
		if id < 0 {
			return nil, errors.WithStack(formatErrorf("vocab.json", 0, "token %q has negative id %d", token, id))
		}
		if other, found := v.idToToken[id]; found {
			return nil, errors.WithStack(formatErrorf("vocab.json", 0, "tokens %q and %q share the id %d", other, token, id))
		}
		v.tokenToID[token] = id
		v.idToToken[id] = token
	}
	return v, nil
}

// NewVocabularyFromList creates a Vocabulary where the id of each token is its index in tokens,
// the layout used by GGUF files.
func NewVocabularyFromList(tokens []string) (*Vocabulary, error) {
	m := make(map[string]int, len(tokens))
	for id, token := range tokens {
		if prev, found := m[token]; found {
			return nil, errors.WithStack(formatErrorf("vocabulary", 0, "token %q repeated at ids %d and %d", token, prev, id))
		}
		m[token] = id
	}
	return NewVocabulary(m)
}

// Len returns the number of tokens.
func (v *Vocabulary) Len() int {
	return len(v.tokenToID)
}

// ID returns the id of token.
func (v *Vocabulary) ID(token string) (int, bool) {
	id, ok := v.tokenToID[token]
	return id, ok
}

// Token returns the token string of id.
func (v *Vocabulary) Token(id int) (string, bool) {
	token, ok := v.idToToken[id]
	return token, ok
}

// Map returns a copy of the token to id mapping.
func (v *Vocabulary) Map() map[string]int {
	return maps.Clone(v.tokenToID)
}
