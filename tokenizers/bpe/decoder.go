package bpe

import (
	"strings"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/bytelevel"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Decode converts ids back to text, optionally omitting the special tokens.
//
// Ids with no token are skipped. The bytes that don't form valid UTF-8 (e.g. a character whose
// bytes were split across a truncated sequence) are replaced by U+FFFD.
func (t *Tokenizer) Decode(ids []int, skipSpecialTokens bool) string {
	text, _ := t.decode(ids, skipSpecialTokens, false)
	return text
}

// DecodeStrict is like Decode, but fails with UnknownTokenIDError on the first id with no token.
func (t *Tokenizer) DecodeStrict(ids []int, skipSpecialTokens bool) (string, error) {
	return t.decode(ids, skipSpecialTokens, true)
}

func (t *Tokenizer) decode(ids []int, skipSpecialTokens, strict bool) (string, error) {
	buf := make([]byte, 0, 4*len(ids))
	for _, id := range ids {
		if added, found := t.addedByID[id]; found {
			if !(skipSpecialTokens && added.Special) {
				buf = append(buf, added.Content...)
			}
			continue
		}
		token, found := t.vocab.Token(id)
		if !found {
			if strict {
				return "", errors.WithStack(&UnknownTokenIDError{ID: id})
			}
			klog.V(2).Infof("bpe.Decode(): skipping unknown token id %d", id)
			continue
		}
		if t.byteLevel {
			buf = bytelevel.AppendDecode(buf, token)
		} else {
			buf = append(buf, token...)
		}
	}
	return strings.ToValidUTF8(string(buf), "\uFFFD"), nil
}
