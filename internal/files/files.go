// Package files implements generic file tools missing from the standard library.
package files

import (
	"os"
	"os/user"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Exists returns true if file or directory exists.
func Exists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

// ReplaceTildeInDir by the user's home directory. Returns dir if it doesn't start with "~".
//
// It returns an error if `dir` has an unknown user (e.g: `~unknown/...`)
func ReplaceTildeInDir(dir string) (string, error) {
	if len(dir) == 0 || dir[0] != '~' {
		return dir, nil
	}
	var userName string
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		userName, _, _ = strings.Cut(dir[1:], "/")
	}
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return dir, errors.Wrapf(err, "failed to lookup home directory for user in path %q", dir)
	}
	return path.Join(usr.HomeDir, dir[1+len(userName):]), nil
}

// IsSafeRelative returns whether name is a relative path that stays under its base directory:
// neither absolute nor containing "..".
func IsSafeRelative(name string) bool {
	return name != "" && !path.IsAbs(name) && !strings.Contains(name, "..")
}
