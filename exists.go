package freiapanel

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"cloud.google.com/go/storage"
)

// Exists reports whether path can be found. Only a definite "not found" yields
// (false, nil); any other failure to stat the path, such as a permission
// error, is returned so callers do not mistake it for absence.
func Exists(ctx context.Context, path string, client *storage.Client) (bool, error) {
	if IsGoogleStoragePath(path) {
		handle, err := objectHandle(path, client)
		if err != nil {
			return false, err
		}

		_, err = handle.Attrs(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return false, nil
		} else if err != nil {
			return false, fmt.Errorf("%s: %w", path, err)
		}

		return true, nil
	}

	_, err := os.Stat(ExpandHome(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}
