// qwen3tok encodes and decodes text with Qwen3 tokenizers, and prepares fixed-length model inputs.
//
// The tokenizer files are downloaded from the HuggingFace Hub (--model, Qwen/Qwen3-0.6B by default),
// or read from a local directory (--dir), vocab.json/merges.txt files (--vocab, --merges), a
// tokenizer.json (--tokenizer-json) or a GGUF model file (--gguf).
//
// Examples:
//
//	qwen3tok encode "Hello world"
//	qwen3tok encode --tokens --format=json "Hello world"
//	qwen3tok decode 9707 1879
//	qwen3tok count --parquet=train.parquet --column=text
//	qwen3tok prepare --max-length=128 --output=inputs.safetensors --input=texts.txt
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"k8s.io/klog/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	klog.Flush()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
