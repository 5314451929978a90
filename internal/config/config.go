// Package config loads the configuration of the qwen3tok command line: defaults, then an optional
// config file, then QWEN3TOK_* environment variables, then command line flags.
package config

import (
	"strings"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/qwen3"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix of the environment variables, e.g. QWEN3TOK_SOURCE_MODEL or QWEN3TOK_HUB_CACHE_DIR.
const EnvPrefix = "QWEN3TOK"

type Config struct {
	Source SourceConfig `mapstructure:"source"`
	Hub    HubConfig    `mapstructure:"hub"`
	Log    LogConfig    `mapstructure:"log"`
}

// SourceConfig selects where the tokenizer files come from. The first one set, in the order GGUF,
// TokenizerJSON, Vocab+Merges, Dir, wins. If none is set, Model is downloaded from the hub.
type SourceConfig struct {
	Model           string `mapstructure:"model"`
	Dir             string `mapstructure:"dir"`
	Vocab           string `mapstructure:"vocab"`
	Merges          string `mapstructure:"merges"`
	TokenizerJSON   string `mapstructure:"tokenizer_json"`
	GGUF            string `mapstructure:"gguf"`
	TokenizerConfig string `mapstructure:"tokenizer_config"`
	Embedding       bool   `mapstructure:"embedding"`
}

type HubConfig struct {
	CacheDir    string `mapstructure:"cache_dir"`
	Revision    string `mapstructure:"revision"`
	Endpoint    string `mapstructure:"endpoint"`
	Token       string `mapstructure:"token"`
	MaxParallel int    `mapstructure:"max_parallel"`
}

type LogConfig struct {
	Verbosity int `mapstructure:"verbosity"`
}

type LoadOptions struct {
	Flags      *pflag.FlagSet
	ConfigFile string
	Defaults   Config
}

func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{Model: qwen3.DefaultModel},
		Hub:    HubConfig{Revision: "main", MaxParallel: 20},
	}
}

// binding of a configuration key to its flag.
type binding struct {
	key, flag string
}

var bindings = []binding{
	{"source.model", "model"},
	{"source.dir", "dir"},
	{"source.vocab", "vocab"},
	{"source.merges", "merges"},
	{"source.tokenizer_json", "tokenizer-json"},
	{"source.gguf", "gguf"},
	{"source.tokenizer_config", "tokenizer-config"},
	{"source.embedding", "embedding"},
	{"hub.cache_dir", "cache-dir"},
	{"hub.revision", "revision"},
	{"hub.endpoint", "endpoint"},
	{"hub.token", "hf-token"},
	{"hub.max_parallel", "max-parallel"},
	{"log.verbosity", "verbosity"},
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("model", defaults.Source.Model, "HuggingFace id of the Qwen3 model whose tokenizer to download")
	fs.String("dir", defaults.Source.Dir, "Local directory with vocab.json and merges.txt (or tokenizer.json)")
	fs.String("vocab", defaults.Source.Vocab, "Path to vocab.json, used with --merges")
	fs.String("merges", defaults.Source.Merges, "Path to merges.txt, used with --vocab")
	fs.String("tokenizer-json", defaults.Source.TokenizerJSON, "Path to a HuggingFace tokenizer.json")
	fs.String("gguf", defaults.Source.GGUF, "Path to a GGUF model file with an embedded tokenizer")
	fs.String("tokenizer-config", defaults.Source.TokenizerConfig, "Path to tokenizer_config.json, used with --vocab or --tokenizer-json")
	fs.Bool("embedding", defaults.Source.Embedding, "Use the Qwen3-Embedding special tokens (<|endoftext|> as end-of-sequence)")
	fs.String("cache-dir", defaults.Hub.CacheDir, "HuggingFace cache directory (defaults to $HF_HUB_CACHE or ~/.cache/huggingface/hub)")
	fs.String("revision", defaults.Hub.Revision, "Revision (branch, tag or commit) of the model to download")
	fs.String("endpoint", defaults.Hub.Endpoint, "HuggingFace endpoint (defaults to $HF_ENDPOINT or https://huggingface.co)")
	fs.String("hf-token", defaults.Hub.Token, "HuggingFace authentication token (defaults to $HF_TOKEN)")
	fs.Int("max-parallel", defaults.Hub.MaxParallel, "Maximum number of parallel downloads")
	fs.Int("verbosity", defaults.Log.Verbosity, "Log verbosity: 1 for summaries, 2 for details")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Flags != nil {
		for _, b := range bindings {
			flag := opts.Flags.Lookup(b.flag)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(b.key, flag); err != nil {
				return Config{}, errors.Wrapf(err, "failed to bind flag --%s", b.flag)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config file %q", opts.ConfigFile)
		}
	} else {
		v.SetConfigName("qwen3tok")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, errors.Wrap(err, "failed to read config file")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("source.model", c.Source.Model)
	v.SetDefault("source.dir", c.Source.Dir)
	v.SetDefault("source.vocab", c.Source.Vocab)
	v.SetDefault("source.merges", c.Source.Merges)
	v.SetDefault("source.tokenizer_json", c.Source.TokenizerJSON)
	v.SetDefault("source.gguf", c.Source.GGUF)
	v.SetDefault("source.tokenizer_config", c.Source.TokenizerConfig)
	v.SetDefault("source.embedding", c.Source.Embedding)
	v.SetDefault("hub.cache_dir", c.Hub.CacheDir)
	v.SetDefault("hub.revision", c.Hub.Revision)
	v.SetDefault("hub.endpoint", c.Hub.Endpoint)
	v.SetDefault("hub.token", c.Hub.Token)
	v.SetDefault("hub.max_parallel", c.Hub.MaxParallel)
	v.SetDefault("log.verbosity", c.Log.Verbosity)
}
