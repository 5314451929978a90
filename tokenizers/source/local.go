package source

import (
	"context"
	"path/filepath"

	"github.com/gomlx/qwen3-tokenizer/internal/files"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/api"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/hftokenizer"
	"github.com/pkg/errors"
)

// FileSource reads vocab.json, merges.txt and optionally tokenizer_config.json from local paths,
// through memory maps. Create it with Files.
type FileSource struct {
	vocabPath, mergesPath, configPath string
}

var _ Source = (*FileSource)(nil)

// Files returns a source for the given local vocab.json and merges.txt files.
// A leading "~" in the paths is replaced by the home directory.
func Files(vocabPath, mergesPath string) *FileSource {
	return &FileSource{vocabPath: vocabPath, mergesPath: mergesPath}
}

// WithConfig sets the path to a tokenizer_config.json file, from which the added tokens and the
// EOS and padding tokens are taken.
func (s *FileSource) WithConfig(configPath string) *FileSource {
	s.configPath = configPath
	return s
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) (*Tables, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vocabPath, err := files.ReplaceTildeInDir(s.vocabPath)
	if err != nil {
		return nil, err
	}
	mergesPath, err := files.ReplaceTildeInDir(s.mergesPath)
	if err != nil {
		return nil, err
	}
	tables := newTables(filepath.Dir(vocabPath))
	err = readMapped(vocabPath, func(vocab []byte) error {
		return readMapped(mergesPath, func(merges []byte) error {
			return parseVocabAndMerges(tables, vocab, merges, nil)
		})
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "while loading tokenizer from %q and %q", s.vocabPath, s.mergesPath)
	}
	if s.configPath != "" {
		if err := loadConfig(tables, s.configPath); err != nil {
			return nil, err
		}
	}
	logLoaded(tables)
	return tables, nil
}

// BytesSource holds the contents of the tokenizer files in memory. Create it with Bytes.
type BytesSource struct {
	vocab, merges, config []byte
}

var _ Source = (*BytesSource)(nil)

// Bytes returns a source with the contents of vocab.json, merges.txt and tokenizer_config.json.
// config can be nil.
func Bytes(vocab, merges, config []byte) *BytesSource {
	return &BytesSource{vocab: vocab, merges: merges, config: config}
}

// Load implements Source.
func (s *BytesSource) Load(ctx context.Context) (*Tables, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tables := newTables("memory")
	if err := parseVocabAndMerges(tables, s.vocab, s.merges, s.config); err != nil {
		return nil, err
	}
	logLoaded(tables)
	return tables, nil
}

// TokenizerJSONSource reads a HuggingFace tokenizer.json file. Create it with TokenizerJSON.
type TokenizerJSONSource struct {
	path, configPath string
}

var _ Source = (*TokenizerJSONSource)(nil)

// TokenizerJSON returns a source for a local tokenizer.json file. It holds the vocabulary, the merges,
// the added tokens, the pre-tokenizer pattern, the normalizer, whether it is byte-level and the
// unknown token, but not the EOS and padding tokens: use WithConfig for those.
func TokenizerJSON(path string) *TokenizerJSONSource {
	return &TokenizerJSONSource{path: path}
}

// WithConfig sets the path to a tokenizer_config.json file.
func (s *TokenizerJSONSource) WithConfig(configPath string) *TokenizerJSONSource {
	s.configPath = configPath
	return s
}

// Load implements Source.
func (s *TokenizerJSONSource) Load(ctx context.Context) (*Tables, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := files.ReplaceTildeInDir(s.path)
	if err != nil {
		return nil, err
	}
	tables := newTables(path)
	err = readMapped(path, func(contents []byte) error {
		tj, err := hftokenizer.Parse(contents)
		if err != nil {
			return err
		}
		return fromTokenizerJSON(tables, tj)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "while loading tokenizer from %q", s.path)
	}
	if s.configPath != "" {
		if err := loadConfig(tables, s.configPath); err != nil {
			return nil, err
		}
	}
	logLoaded(tables)
	return tables, nil
}

func fromTokenizerJSON(tables *Tables, tj *hftokenizer.TokenizerJSON) error {
	var err error
	if tables.Vocabulary, err = tj.Vocabulary(); err != nil {
		return err
	}
	tables.Merges = tj.MergeRanks()
	opts, err := tj.Options()
	if err != nil {
		return err
	}
	tables.AddedTokens = opts.AddedTokens
	tables.Pattern = opts.Pattern
	tables.Normalizer = opts.Normalizer
	tables.ByteLevel = &opts.ByteLevel
	tables.UnknownTokenID = opts.UnknownTokenID
	return nil
}

// loadConfig parses the tokenizer_config.json at configPath into tables.Config.
func loadConfig(tables *Tables, configPath string) error {
	configPath, err := files.ReplaceTildeInDir(configPath)
	if err != nil {
		return err
	}
	return readMapped(configPath, func(contents []byte) error {
		config, err := api.ParseConfigContent(contents)
		if err != nil {
			return errors.WithMessagef(err, "while parsing %q", configPath)
		}
		config.ConfigFile = configPath
		tables.Config = config
		return nil
	})
}

// DirSource reads the tokenizer files from a local directory. Create it with Dir.
type DirSource struct {
	dir string
}

var _ Source = (*DirSource)(nil)

// Dir returns a source for a directory holding vocab.json and merges.txt, or else tokenizer.json.
// A tokenizer_config.json file in the directory is used if present.
//
// This is the layout of a downloaded HuggingFace model, e.g. a snapshot directory of the hub cache.
func Dir(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Load implements Source.
func (s *DirSource) Load(ctx context.Context) (*Tables, error) {
	dir, err := files.ReplaceTildeInDir(s.dir)
	if err != nil {
		return nil, err
	}
	configPath := filepath.Join(dir, ConfigFileName)
	if !files.Exists(configPath) {
		configPath = ""
	}
	vocabPath, mergesPath := filepath.Join(dir, VocabFileName), filepath.Join(dir, MergesFileName)
	if files.Exists(vocabPath) && files.Exists(mergesPath) {
		return Files(vocabPath, mergesPath).WithConfig(configPath).Load(ctx)
	}
	jsonPath := filepath.Join(dir, TokenizerJSONFileName)
	if files.Exists(jsonPath) {
		return TokenizerJSON(jsonPath).WithConfig(configPath).Load(ctx)
	}
	return nil, errors.Errorf("directory %q has neither %s and %s, nor %s",
		s.dir, VocabFileName, MergesFileName, TokenizerJSONFileName)
}
