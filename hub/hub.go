// Package hub can be used to download files from HuggingFace Hub, here mostly the vocabulary,
// merges and configuration files of tokenizers.
//
// It shares the cache structure of the huggingface_hub python library (usually under
// "~/.cache/huggingface/hub"), so files downloaded by one are reused by the other.
package hub

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"

	qwen3tokenizer "github.com/gomlx/qwen3-tokenizer"
	"github.com/google/uuid"
)

// SessionID is unique and always created anew at the start of the program, and used during the life of the program.
var SessionID = strings.ReplaceAll(uuid.NewString(), "-", "")

var (
	// DefaultDirCreationPerm is used when creating new cache subdirectories.
	DefaultDirCreationPerm = os.FileMode(0755)

	// DefaultFileCreationPerm is used when creating files inside the cache subdirectories.
	DefaultFileCreationPerm = os.FileMode(0644)
)

// DefaultEndpoint of the HuggingFace Hub, overridden by the HF_ENDPOINT environment variable.
const DefaultEndpoint = "https://huggingface.co"

func getEnvOr(key, defaultValue string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	return v
}

// DefaultCacheDir for HuggingFace Hub, same used by the python library.
//
// It is ${HF_HUB_CACHE} if set. Otherwise its prefix is either `${XDG_CACHE_HOME}` if set, or `~/.cache`,
// followed by `/huggingface/hub/`. So typically: `~/.cache/huggingface/hub/`.
func DefaultCacheDir() string {
	if dir := os.Getenv("HF_HUB_CACHE"); dir != "" {
		return dir
	}
	cacheDir := getEnvOr("XDG_CACHE_HOME", path.Join(os.Getenv("HOME"), ".cache"))
	return path.Join(cacheDir, "huggingface", "hub")
}

// DefaultHttpUserAgent returns a user agent to use with HuggingFace Hub API.
func DefaultHttpUserAgent() string {
	return fmt.Sprintf("qwen3-tokenizer/%v; golang/%s; session_id/%s",
		qwen3tokenizer.Version, runtime.Version(), SessionID)
}

// RepoIdSeparator is used to separate repository/model names parts when mapping to file names.
// Likely only for internal use.
const RepoIdSeparator = "--"

// RepoType supported by HuggingFace-Hub
type RepoType string

const (
	RepoTypeDataset RepoType = "datasets"
	RepoTypeSpace   RepoType = "spaces"
	RepoTypeModel   RepoType = "models"
)
