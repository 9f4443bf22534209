package freiapanel

import (
	"os/user"
	"path/filepath"
	"strings"
)

// ExpandHome expands ~ to its proper path, where appropriate. If the current
// user cannot be determined, the path is returned untouched and the open that
// follows reports the problem.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		usr, err := user.Current()
		if err != nil {
			return path
		}
		path = filepath.Join(usr.HomeDir, path[2:])
	}

	return path
}
