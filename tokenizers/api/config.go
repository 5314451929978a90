package api

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// TokensDecoder describes one entry of the "added_tokens_decoder" table.
type TokensDecoder struct {
	Content    string `json:"content"`
	Lstrip     bool   `json:"lstrip"`
	Normalized bool   `json:"normalized"`
	Rstrip     bool   `json:"rstrip"`
	SingleWord bool   `json:"single_word"`
	Special    bool   `json:"special"`
}

// TokenValue holds a token given either as a plain string or as an object with a "content" field,
// both forms are found in tokenizer_config.json files. A JSON null leaves it empty.
type TokenValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *TokenValue) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != nil {
			*v = TokenValue(*s)
		} else {
			*v = ""
		}
		return nil
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.Wrapf(err, "token must be a string or an object with \"content\", got %s", data)
	}
	*v = TokenValue(obj.Content)
	return nil
}

// Config struct to hold HuggingFace's tokenizer_config.json contents.
// There is no formal schema for this file, but these are some common fields that may be of use.
//
// The extra field ConfigFile holds the path to the file with the full config.
type Config struct {
	ConfigFile     string `json:"-"`
	TokenizerClass string `json:"tokenizer_class"`

	ChatTemplate string `json:"chat_template"`

	ModelMaxLength float64 `json:"model_max_length"`
	Errors         string  `json:"errors"`

	UnkToken TokenValue `json:"unk_token"`
	BosToken TokenValue `json:"bos_token"`
	EosToken TokenValue `json:"eos_token"`
	PadToken TokenValue `json:"pad_token"`

	AddBosToken             bool                  `json:"add_bos_token"`
	AddEosToken             bool                  `json:"add_eos_token"`
	AddPrefixSpace          bool                  `json:"add_prefix_space"`
	AddedTokensDecoder      map[int]TokensDecoder `json:"added_tokens_decoder"`
	AdditionalSpecialTokens []string              `json:"additional_special_tokens"`
	SplitSpecialTokens      bool                  `json:"split_special_tokens"`

	CleanUpTokenizationSpaces bool `json:"clean_up_tokenization_spaces"`
}

// ParseConfigFile parses the given file (holding a tokenizer_config.json file) into a Config structure.
func ParseConfigFile(filePath string) (*Config, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %q", filePath)
	}
	config, err := ParseConfigContent(content)
	if err != nil {
		return nil, errors.WithMessagef(err, "read from file %q", filePath)
	}
	config.ConfigFile = filePath
	return config, nil
}

// ParseConfigContent parses the given json content (of a tokenizer_config.json file) into a Config structure.
func ParseConfigContent(jsonContent []byte) (*Config, error) {
	config := &Config{}
	err := json.Unmarshal(jsonContent, config)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse tokenizer_config json content")
	}
	return config, nil
}

// AddedTokenIDs returns the ids of the "added_tokens_decoder" table in increasing order.
func (c *Config) AddedTokenIDs() []int {
	ids := make([]int, 0, len(c.AddedTokensDecoder))
	for id := range c.AddedTokensDecoder {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// AddedTokenByContent returns the id of the added token with the given content.
func (c *Config) AddedTokenByContent(content string) (int, bool) {
	for id, decoder := range c.AddedTokensDecoder {
		if decoder.Content == content {
			return id, true
		}
	}
	return 0, false
}
