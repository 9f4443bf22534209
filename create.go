package freiapanel

import (
	"context"
	"io"
	"os"

	"cloud.google.com/go/storage"
)

// CreateLocalOrGoogleStorage truncates or creates the file at path. For gs://
// paths the object is only committed once the returned writer is closed
// without error.
func CreateLocalOrGoogleStorage(ctx context.Context, path string, client *storage.Client) (io.WriteCloser, error) {
	if IsGoogleStoragePath(path) {
		handle, err := objectHandle(path, client)
		if err != nil {
			return nil, err
		}

		w := handle.NewWriter(ctx)
		w.ContentType = "text/csv"

		return w, nil
	}

	return os.Create(ExpandHome(path))
}
