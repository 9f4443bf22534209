package freiapanel

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

type ReadSeekCloser interface {
	io.Reader
	io.Seeker
	io.Closer
}

// Decorates a Google Storage object handle with io.Reader, io.Seeker and
// io.Closer. Derived from
// https://github.com/googleapis/google-cloud-go/issues/1124#issuecomment-419070541
type GSReadSeekCloser struct {
	*storage.ObjectHandle
	Context context.Context
	r       *storage.Reader
	offset  int64 // initial offset
	pos     int64 // current position (like 'seen' in storage.Reader)
}

func (s *GSReadSeekCloser) Read(buf []byte) (int, error) {
	var err error
	if s.r == nil {
		s.r, err = s.NewRangeReader(s.Context, s.offset, -1)
		if err != nil {
			return 0, err
		}
	}
	n, err := s.r.Read(buf)
	s.pos += int64(n)

	return n, err
}

// Seek only supports rewinding. The current range reader is dropped and a new
// one is opened on the next Read.
func (s *GSReadSeekCloser) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		if offset != 0 {
			return 0, fmt.Errorf("io.Seeker offset %d is not implemented, only rewinding is", offset)
		}
	case io.SeekCurrent:
		if offset != 0 {
			return 0, fmt.Errorf("io.Seeker offset %d is not implemented, only rewinding is", offset)
		}
		return s.offset + s.pos, nil
	default:
		return 0, fmt.Errorf("io.Seeker 'whence' value %d is not implemented", whence)
	}

	if s.r != nil {
		s.r.Close()
		s.r = nil
	}

	s.offset = 0
	s.pos = 0

	return s.offset, nil
}

func (s *GSReadSeekCloser) Close() error {
	if s.r == nil {
		return nil
	}
	err := s.r.Close()
	s.r = nil
	return err
}

// MaybeOpenSeekerFromGoogleStorage opens gs:// paths through the storage
// client and everything else from the local filesystem.
func MaybeOpenSeekerFromGoogleStorage(ctx context.Context, path string, client *storage.Client) (ReadSeekCloser, error) {
	if IsGoogleStoragePath(path) {
		handle, err := objectHandle(path, client)
		if err != nil {
			return nil, err
		}

		wrappedHandle := &GSReadSeekCloser{
			ObjectHandle: handle,
			Context:      ctx,
		}

		// Fail early, rather than on first read, if the object is not there
		if _, err := wrappedHandle.ObjectHandle.Attrs(ctx); err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
		}

		return wrappedHandle, nil
	}

	f, err := os.Open(ExpandHome(path))
	if err != nil {
		return nil, err
	}

	return f, nil
}

// IsGoogleStoragePath reports whether path points into a google storage
// bucket.
func IsGoogleStoragePath(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// AnyGoogleStoragePath reports whether any of the paths is a gs:// path, which
// is how commands decide whether to create a storage client at all.
func AnyGoogleStoragePath(paths ...string) bool {
	for _, path := range paths {
		if IsGoogleStoragePath(path) {
			return true
		}
	}

	return false
}

func objectHandle(path string, client *storage.Client) (*storage.ObjectHandle, error) {
	if client == nil {
		return nil, fmt.Errorf("%s: a storage client is required for google storage paths", path)
	}

	// Detect the bucket and the path to the actual file
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return nil, fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return client.Bucket(pathParts[0]).Object(pathParts[1]), nil
}
