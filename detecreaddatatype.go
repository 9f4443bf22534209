package freiapanel

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

func (dt DataType) String() string {
	switch dt {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZ:
		return "zlib"
	case DataTypeBZip2:
		return "bzip2"
	}

	return "invalid"
}

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType attempts to detect the data type of a stream by checking
// against a set of known data types.  Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(r io.Reader) (DataType, error) {
	buff := make([]byte, 6)
	n, err := io.ReadFull(r, buff)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return DataTypeInvalid, err
	}
	buff = buff[:n]

	// Match known signatures
Outer:
	for dt, sig := range byteCodeSigs {
		if len(buff) < len(sig) {
			continue
		}
		for position := range sig {
			if buff[position] != sig[position] {
				continue Outer
			}
		}
		return dt, nil
	}

	return DataTypeNoCompression, nil
}

// MaybeDecompressReadCloser rewinds rsc after sniffing its first bytes and
// wraps it in the matching decompressor. Closing the returned reader does not
// close rsc.
func MaybeDecompressReadCloser(rsc ReadSeekCloser) (io.ReadCloser, DataType, error) {
	dt, err := DetectDataType(rsc)
	if err != nil {
		return nil, dt, err
	}

	// Reset your original reader
	if _, err := rsc.Seek(0, io.SeekStart); err != nil {
		return nil, dt, err
	}

	var r io.Reader = bufio.NewReader(rsc)

	switch dt {
	case DataTypeGzip:
		gz, err := gzip.NewReader(r)
		return gz, dt, err
	case DataTypeZip:
		zr := zipstream.NewReader(r)
		// Only the first entry of an archive is read
		if _, err := zr.Next(); err != nil {
			return nil, dt, err
		}
		return &readCloserFaker{zr}, dt, nil
	case DataTypeBZip2:
		return &readCloserFaker{bzip2.NewReader(r)}, dt, nil
	case DataTypeXZ:
		reader, err := xz.NewReader(r, 0)
		if err != nil {
			return nil, dt, err
		}
		return &readCloserFaker{reader}, dt, nil
	case DataTypeZ:
		zl, err := zlib.NewReader(r)
		return zl, dt, err
	}

	// No data type detected. For now, we assume this is uncompressed.
	return &readCloserFaker{r}, dt, nil
}

// ReadAllMaybeCompressed returns the full, decompressed contents of a local
// or gs:// path.
func ReadAllMaybeCompressed(ctx context.Context, path string, client *storage.Client) ([]byte, DataType, error) {
	src, err := MaybeOpenSeekerFromGoogleStorage(ctx, path, client)
	if err != nil {
		return nil, DataTypeInvalid, err
	}
	defer src.Close()

	rc, dt, err := MaybeDecompressReadCloser(src)
	if err != nil {
		return nil, dt, pfx.Err(err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, dt, pfx.Err(err)
	}

	return buf.Bytes(), dt, nil
}

// readCloserFaker "upgrades" readers that don't need to be closed
type readCloserFaker struct {
	io.Reader
}

func (c *readCloserFaker) Close() error {
	return nil
}
