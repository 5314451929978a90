package hub

import (
	"context"
	"math/rand/v2"
	"os"
	"path"
	"time"

	"github.com/gofrs/flock"
	"github.com/gomlx/qwen3-tokenizer/internal/downloader"
	"github.com/gomlx/qwen3-tokenizer/internal/files"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// getDownloadManager lazily creates the downloader.Manager shared by all downloads of the Repo.
// It is not safe for concurrent use: goroutines get the manager passed in.
func (r *Repo) getDownloadManager() *downloader.Manager {
	if r.downloadManager == nil {
		r.downloadManager = downloader.New().
			MaxParallel(r.MaxParallelDownload).
			WithAuthToken(r.authToken).
			WithUserAgent(DefaultHttpUserAgent())
		if r.httpClient != nil {
			r.downloadManager.WithHTTPClient(r.httpClient)
		}
	}
	return r.downloadManager
}

// DownloadFiles downloads the given repository files, and returns the paths to the downloaded files
// in the cache structure, in the same order.
//
// Files already in the cache are not downloaded again. The returned paths can be read, but
// shouldn't be modified, since there may be other programs using the same files.
func (r *Repo) DownloadFiles(ctx context.Context, fileNames ...string) ([]string, error) {
	if len(fileNames) == 0 {
		return nil, nil
	}
	if err := r.DownloadInfo(ctx, false); err != nil {
		return nil, err
	}
	repoDir, err := r.repoCacheDir()
	if err != nil {
		return nil, err
	}
	commitHash := r.info.CommitHash
	snapshotDir := path.Join(repoDir, "snapshots", commitHash)

	manager := r.getDownloadManager()
	paths := make([]string, len(fileNames))
	g, gCtx := errgroup.WithContext(ctx)
	for i, fileName := range fileNames {
		if !files.IsSafeRelative(fileName) {
			return nil, errors.Errorf("invalid file name %q for repository %q: it cannot be an absolute path, nor contain \"..\"",
				fileName, r.ID)
		}
		paths[i] = path.Join(snapshotDir, fileName)
		g.Go(func() error {
			if files.Exists(paths[i]) {
				r.reportProgress(DownloadProgress{File: fileName, Total: -1, Status: StatusCached})
				return nil
			}
			var callback downloader.ProgressCallback
			if r.progress != nil {
				callback = func(downloaded, total int64) {
					r.progress(DownloadProgress{File: fileName, Downloaded: downloaded, Total: total, Status: StatusDownloading})
				}
			}
			url := r.fileURL(commitHash, fileName)
			if err := fetchToCache(gCtx, manager, url, paths[i], false, callback); err != nil {
				return errors.WithMessagef(err, "while downloading %q from repository %q", fileName, r.ID)
			}
			klog.V(1).Infof("downloaded %q from repository %q (revision %s)", fileName, r.ID, r.revision)
			r.reportProgress(DownloadProgress{File: fileName, Total: -1, Status: StatusCompleted})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// DownloadFile is a shortcut to DownloadFiles with only one file.
func (r *Repo) DownloadFile(ctx context.Context, fileName string) (string, error) {
	paths, err := r.DownloadFiles(ctx, fileName)
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

func (r *Repo) reportProgress(progress DownloadProgress) {
	if r.progress != nil {
		r.progress(progress)
	}
}

// fetchToCache downloads url into target, unless target is already there and force is false.
//
// The contents are first written to target+".downloading" and renamed into place once complete, while
// holding the file lock target+".lock", so concurrent processes sharing the cache download each file once.
func fetchToCache(ctx context.Context, manager *downloader.Manager, url, target string, force bool,
	onProgress downloader.ProgressCallback) error {
	if files.Exists(target) {
		if !force {
			return nil
		}
		if err := os.Remove(target); err != nil {
			return errors.Wrapf(err, "failed to remove stale %q", target)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(path.Dir(target), DefaultDirCreationPerm); err != nil {
		return errors.Wrapf(err, "failed to create cache directory for %q", target)
	}

	lockPath := target + ".lock"
	unlock, err := lockFile(ctx, lockPath)
	if err != nil {
		return errors.WithMessagef(err, "while waiting to download %q", url)
	}
	err = fetchLocked(ctx, manager, url, target, onProgress)
	if unlockErr := unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	if err == nil {
		// Lock no longer needed once the file is in place.
		if rmErr := os.Remove(lockPath); rmErr != nil && !os.IsNotExist(rmErr) {
			klog.Warningf("failed to remove lock file %q: %v", lockPath, rmErr)
		}
	}
	return err
}

// fetchLocked must be called holding the lock of target.
func fetchLocked(ctx context.Context, manager *downloader.Manager, url, target string, onProgress downloader.ProgressCallback) error {
	if files.Exists(target) {
		// Downloaded by another process while we waited for the lock.
		return nil
	}
	partial := target + ".downloading"
	if err := manager.Download(ctx, url, partial, onProgress); err != nil {
		if rmErr := os.Remove(partial); rmErr != nil && !os.IsNotExist(rmErr) {
			klog.Warningf("failed to remove partial download %q: %v", partial, rmErr)
		}
		return errors.WithMessagef(err, "while fetching %q", url)
	}
	return errors.Wrapf(os.Rename(partial, target), "failed to rename %q to %q", partial, target)
}

// lockFile blocks until it holds the exclusive lock on lockPath, creating it if needed, or until ctx is done.
// It polls every 100 to 200 milliseconds, with the period chosen at random.
func lockFile(ctx context.Context, lockPath string) (unlock func() error, err error) {
	fileLock := flock.New(lockPath)
	pollPeriod := time.Duration(100+rand.IntN(100)) * time.Millisecond
	locked, err := fileLock.TryLockContext(ctx, pollPeriod)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to lock %q", lockPath)
	}
	if !locked {
		return nil, errors.Errorf("could not acquire lock %q", lockPath)
	}
	return func() error {
		return errors.Wrapf(fileLock.Unlock(), "failed to unlock %q", lockPath)
	}, nil
}
