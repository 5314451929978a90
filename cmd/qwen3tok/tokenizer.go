package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gomlx/qwen3-tokenizer/hub"
	"github.com/gomlx/qwen3-tokenizer/internal/config"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/bpe"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/qwen3"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/source"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// newSource returns the tokenizer source selected by the configuration, and a description of it.
// Hub downloads report their completion to progressOut.
func newSource(cfg config.Config, progressOut io.Writer) (source.Source, string, error) {
	sc := cfg.Source
	if sc.Vocab != "" || sc.Merges != "" {
		if sc.Vocab == "" || sc.Merges == "" {
			return nil, "", errors.New("--vocab and --merges must be given together")
		}
	}
	switch {
	case sc.GGUF != "":
		return source.GGUF(sc.GGUF), sc.GGUF, nil
	case sc.TokenizerJSON != "":
		return source.TokenizerJSON(sc.TokenizerJSON).WithConfig(sc.TokenizerConfig), sc.TokenizerJSON, nil
	case sc.Vocab != "":
		return source.Files(sc.Vocab, sc.Merges).WithConfig(sc.TokenizerConfig), sc.Vocab, nil
	case sc.Dir != "":
		return source.Dir(sc.Dir), sc.Dir, nil
	}

	repo, err := qwen3.NewHubRepo(sc.Model)
	if err != nil {
		return nil, "", err
	}
	hc := cfg.Hub
	if hc.CacheDir != "" {
		repo = repo.WithCacheDir(hc.CacheDir)
	}
	if hc.Revision != "" {
		repo = repo.WithRevision(hc.Revision)
	}
	if hc.Endpoint != "" {
		repo = repo.WithEndpoint(hc.Endpoint)
	}
	if hc.Token != "" {
		repo = repo.WithAuth(hc.Token)
	}
	repo.MaxParallelDownload = hc.MaxParallel
	repo = repo.WithProgress(progressPrinter(progressOut))
	return source.Hub(repo), "hf.co/" + repo.ID, nil
}

// progressPrinter reports each downloaded file to w. Cached files are only logged.
func progressPrinter(w io.Writer) hub.ProgressFunc {
	var mu sync.Mutex
	return func(progress hub.DownloadProgress) {
		switch progress.Status {
		case hub.StatusCached:
			klog.V(1).Infof("%s already in cache", progress.File)
		case hub.StatusCompleted:
			mu.Lock()
			defer mu.Unlock()
			_, _ = fmt.Fprintf(w, "downloaded %s (%d bytes)\n", progress.File, progress.Downloaded)
		}
	}
}

// loadTokenizer creates the tokenizer selected by the configuration.
func loadTokenizer(ctx context.Context, cfg config.Config, progressOut io.Writer) (*bpe.Tokenizer, string, error) {
	src, description, err := newSource(cfg, progressOut)
	if err != nil {
		return nil, "", err
	}
	var tok *bpe.Tokenizer
	if cfg.Source.Embedding {
		tok, err = qwen3.NewWithOptions(ctx, src, qwen3.EmbeddingOptions())
	} else {
		tok, err = qwen3.New(ctx, src)
	}
	if err != nil {
		return nil, "", errors.WithMessagef(err, "failed to load tokenizer from %s", description)
	}
	return tok, description, nil
}
