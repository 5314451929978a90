package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path"

	"github.com/gomlx/qwen3-tokenizer/internal/files"
	"github.com/pkg/errors"
)

// RepoInfo holds information about a HuggingFace repo, it is the json served when hitting the URL
// https://huggingface.co/api/<repo_type>/<model_id>/revision/<revision>
//
// Only the fields used by this library are parsed.
type RepoInfo struct {
	ID         string      `json:"id"`
	Author     string      `json:"author"`
	CommitHash string      `json:"sha"`
	Tags       []string    `json:"tags"`
	Siblings   []*FileInfo `json:"siblings"`
}

// FileInfo represents one of the model file, in the Info structure.
type FileInfo struct {
	Name string `json:"rfilename"`
}

// infoURL for the API that returns the info about a repository.
func (r *Repo) infoURL() string {
	return fmt.Sprintf("%s/api/%s/%s/revision/%s", r.hfEndpoint, r.repoType, r.ID, r.revision)
}

// Info returns the RepoInfo structure about the repository, downloading it first if needed.
func (r *Repo) Info(ctx context.Context) (*RepoInfo, error) {
	if err := r.DownloadInfo(ctx, false); err != nil {
		return nil, err
	}
	return r.info, nil
}

// DownloadInfo about the model, if it hasn't yet.
//
// It will attempt to use the info file in the cache directory first.
//
// If forceDownload is set to true, it ignores the current info or the cached one, and download it again from HuggingFace.
func (r *Repo) DownloadInfo(ctx context.Context, forceDownload bool) error {
	if r.info != nil && !forceDownload {
		return nil
	}

	// Create directory and file path for the info file.
	repoDir, err := r.repoCacheDir()
	if err != nil {
		return err
	}
	infoFilePath := path.Join(repoDir, "info", r.revision)

	// Download info file if needed.
	if !files.Exists(infoFilePath) || forceDownload {
		err := fetchToCache(ctx, r.getDownloadManager(), r.infoURL(), infoFilePath, forceDownload, nil)
		if err != nil {
			return errors.WithMessagef(err, "failed to download repository %q info", r.ID)
		}
	}

	infoJSON, err := os.ReadFile(infoFilePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read info for model from disk in %q -- remove the file if you want to have it re-downloaded",
			infoFilePath)
	}
	newInfo := &RepoInfo{}
	if err = json.Unmarshal(infoJSON, newInfo); err != nil {
		return errors.Wrapf(err, "failed to parse info for model in %q (downloaded from %q)",
			infoFilePath, r.infoURL())
	}
	if newInfo.CommitHash == "" {
		return errors.Errorf("info for repository %q in %q has no commit hash (\"sha\")", r.ID, infoFilePath)
	}
	if err = r.writeRevisionRef(repoDir, newInfo.CommitHash); err != nil {
		return err
	}
	r.info = newInfo
	return nil
}

// writeRevisionRef records the commit hash of the revision in "refs/<revision>", as huggingface_hub does.
// It does nothing if the revision is the commit hash itself.
func (r *Repo) writeRevisionRef(repoDir, commitHash string) error {
	if r.revision == commitHash {
		return nil
	}
	refPath := path.Join(repoDir, "refs", r.revision)
	if contents, err := os.ReadFile(refPath); err == nil && string(contents) == commitHash {
		return nil
	}
	if err := os.MkdirAll(path.Dir(refPath), DefaultDirCreationPerm); err != nil {
		return errors.Wrapf(err, "failed to create reference subdirectory %q", path.Dir(refPath))
	}
	if err := os.WriteFile(refPath, []byte(commitHash), DefaultFileCreationPerm); err != nil {
		return errors.Wrapf(err, "failed creating file %q", refPath)
	}
	return nil
}

// IterFileNames iterate over the file names stored in the repo.
// It doesn't trigger the downloading of the repo, only of the repo info.
func (r *Repo) IterFileNames(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := r.DownloadInfo(ctx, false); err != nil {
			yield("", err)
			return
		}
		for _, si := range r.info.Siblings {
			if !files.IsSafeRelative(si.Name) {
				yield("", errors.Errorf("repository %q contains illegal file name %q -- it cannot be an absolute path, nor contain \"..\"",
					r.ID, si.Name))
				return
			}
			if !yield(si.Name, nil) {
				return
			}
		}
	}
}

// HasFile returns whether the repository has the given file. It downloads the repo info if needed.
func (r *Repo) HasFile(ctx context.Context, fileName string) (bool, error) {
	for name, err := range r.IterFileNames(ctx) {
		if err != nil {
			return false, err
		}
		if name == fileName {
			return true, nil
		}
	}
	return false, nil
}
