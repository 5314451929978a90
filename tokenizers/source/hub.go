package source

import (
	"context"

	"github.com/gomlx/qwen3-tokenizer/hub"
	"github.com/pkg/errors"
)

// HubSource downloads the tokenizer files from a HuggingFace Hub repository. Create it with Hub.
type HubSource struct {
	repo *hub.Repo
}

var _ Source = (*HubSource)(nil)

// Hub returns a source for the tokenizer files of a HuggingFace Hub repository.
//
// It downloads vocab.json and merges.txt if the repository has them, or else tokenizer.json, plus
// tokenizer_config.json when present. Files are kept in the hub cache, and are not downloaded again.
func Hub(repo *hub.Repo) *HubSource {
	return &HubSource{repo: repo}
}

// Load implements Source.
func (s *HubSource) Load(ctx context.Context) (*Tables, error) {
	present := make(map[string]bool)
	for name, err := range s.repo.IterFileNames(ctx) {
		if err != nil {
			return nil, err
		}
		present[name] = true
	}

	var names []string
	switch {
	case present[VocabFileName] && present[MergesFileName]:
		names = []string{VocabFileName, MergesFileName}
	case present[TokenizerJSONFileName]:
		names = []string{TokenizerJSONFileName}
	default:
		return nil, errors.Errorf("repository %q has neither %s and %s, nor %s",
			s.repo.ID, VocabFileName, MergesFileName, TokenizerJSONFileName)
	}
	hasConfig := present[ConfigFileName]
	if hasConfig {
		names = append(names, ConfigFileName)
	}

	paths, err := s.repo.DownloadFiles(ctx, names...)
	if err != nil {
		return nil, err
	}
	var configPath string
	if hasConfig {
		configPath = paths[len(paths)-1]
	}
	var tables *Tables
	if names[0] == VocabFileName {
		tables, err = Files(paths[0], paths[1]).WithConfig(configPath).Load(ctx)
	} else {
		tables, err = TokenizerJSON(paths[0]).WithConfig(configPath).Load(ctx)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "repository %q", s.repo.ID)
	}
	tables.Origin = "hf.co/" + s.repo.ID
	return tables, nil
}
