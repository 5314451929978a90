// Package qwen3tokenizer only holds the version of the Qwen3 tokenizer tools.
//
// The main sub-packages are:
//
//   - tokenizers/bpe: the byte-level BPE tokenizer itself, with no I/O.
//   - tokenizers/qwen3: the Qwen3 model configurations.
//   - tokenizers/source: sources of vocabulary and merges (local files, HuggingFace Hub, GGUF).
//   - tokenizers/modelinputs: prepared inputs as GoMLX tensors, saved as safetensors.
//   - hub: to download files from HuggingFace Hub.
//   - cmd/qwen3tok: a command line tool to encode, decode and prepare model inputs.
package qwen3tokenizer

// Version of the library.
// Manually kept in sync with project releases.
var Version = "v0.0.0-dev"
