package hub

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gomlx/qwen3-tokenizer/internal/downloader"
	"github.com/gomlx/qwen3-tokenizer/internal/files"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Repo from which one wants to download files. Create it with New.
type Repo struct {
	// ID of the Repo may include owner/model. E.g.: Qwen/Qwen3-0.6B
	ID string

	// Hugginface endpoint to use, defaults to DefaultEndpoint.
	hfEndpoint string

	// repoType of the repository, usually RepoTypeModel.
	repoType RepoType

	// revision to download, usually set to "main", but it can use a commit-hash version.
	revision string

	// authToken is the HuggingFace authentication token to be used when downloading the files.
	authToken string

	// MaxParallelDownload indicates how many files to download at the same time. Default is 20.
	// If set to <= 0 it will download all files in parallel.
	// Set to 1 to make downloads sequential.
	MaxParallelDownload int

	// cacheDir is where to store the downloaded files.
	cacheDir string

	// Info about the Repo in HuggingFace, including the list of files.
	// It is only available after DownloadInfo is called.
	info *RepoInfo

	downloadManager *downloader.Manager
	httpClient      *http.Client
	progress        ProgressFunc
}

// New creates a reference to a HuggingFace model given its id.
//
// It uses the default cache directory (see DefaultCacheDir), in a format that is shared with the
// huggingface-hub python library.
// Use Repo.WithCacheDir to change it.
//
// The id typically include owner/model. E.g.: "Qwen/Qwen3-0.6B"
//
// If authentication is needed, use Repo.WithAuth. The HF_TOKEN environment variable is used by default.
func New(id string) *Repo {
	return &Repo{
		ID:                  id,
		repoType:            RepoTypeModel,
		revision:            "main",
		hfEndpoint:          strings.TrimSuffix(getEnvOr("HF_ENDPOINT", DefaultEndpoint), "/"),
		authToken:           os.Getenv("HF_TOKEN"),
		cacheDir:            DefaultCacheDir(),
		MaxParallelDownload: downloader.DefaultMaxParallel,
	}
}

// WithAuth sets the authentication token to use during downloads.
//
// Setting it to empty ("") is the same as resetting and not using authentication.
func (r *Repo) WithAuth(authToken string) *Repo {
	r.authToken = authToken
	return r
}

// WithType sets the repository type to use during downloads.
func (r *Repo) WithType(repoType RepoType) *Repo {
	r.repoType = repoType
	return r
}

// WithEndpoint sets the HuggingFace endpoint to use.
func (r *Repo) WithEndpoint(endpoint string) *Repo {
	r.hfEndpoint = strings.TrimSuffix(endpoint, "/")
	return r
}

// WithRevision sets the revision to use for this Repo, defaults to "main", but can be set to a commit-hash value.
func (r *Repo) WithRevision(revision string) *Repo {
	r.revision = revision
	return r
}

// WithCacheDir sets the cacheDir to the given directory. A leading "~" is replaced by the home directory.
//
// The default is given by DefaultCacheDir.
func (r *Repo) WithCacheDir(cacheDir string) *Repo {
	newCacheDir, err := files.ReplaceTildeInDir(cacheDir)
	if err == nil {
		r.cacheDir = path.Clean(newCacheDir)
	} else {
		klog.Errorf("Failed to resolve directory for %q: %+v", cacheDir, err)
	}
	return r
}

// WithDownloadManager sets the downloader.Manager to use for download.
// This is not needed, one will be created automatically if one is not set.
// This is useful when downloading multiple Repos simultaneously, to coordinate limits by sharing the download manager.
func (r *Repo) WithDownloadManager(manager *downloader.Manager) *Repo {
	r.downloadManager = manager
	return r
}

// WithHTTPClient sets the http.Client of the automatically created download manager.
func (r *Repo) WithHTTPClient(client *http.Client) *Repo {
	r.httpClient = client
	return r
}

// WithProgress sets a function to receive the progress of the file downloads.
func (r *Repo) WithProgress(progress ProgressFunc) *Repo {
	r.progress = progress
	return r
}

// flatFolderName returns a serialized version of a hf.co repo name and type, safe for disk storage
// as a single non-nested folder.
//
// Based on github.com/huggingface/huggingface_hub repo_folder_name.
func (r *Repo) flatFolderName() string {
	parts := []string{string(r.repoType)}
	parts = append(parts, strings.Split(r.ID, "/")...)
	return strings.Join(parts, RepoIdSeparator)
}

// repoCacheDir joins cacheDir and flatFolderName to return the cache subdirectory for the repository.
// It also creates the directory, and returns an error if creation failed.
func (r *Repo) repoCacheDir() (string, error) {
	dir := path.Join(r.cacheDir, r.flatFolderName())
	err := os.MkdirAll(dir, DefaultDirCreationPerm)
	if err != nil {
		return "", errors.Wrapf(err, "while creating cache directory %q", dir)
	}
	return dir, nil
}

// fileURL returns the URL from which to download the file at the given commit.
func (r *Repo) fileURL(commitHash, fileName string) string {
	if r.repoType == RepoTypeModel {
		return fmt.Sprintf("%s/%s/resolve/%s/%s", r.hfEndpoint, r.ID, commitHash, fileName)
	}
	return fmt.Sprintf("%s/%s/%s/resolve/%s/%s", r.hfEndpoint, r.repoType, r.ID, commitHash, fileName)
}

// String implements fmt.Stringer.
func (r *Repo) String() string {
	return r.ID
}
