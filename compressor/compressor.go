// Package compressor wraps the payload compression codecs an RPM package
// can carry: XZ (the default, matching PAYLOADCOMPRESSOR=xz), LZMA, gzip,
// and zstd. Encoders are streaming and must be closed to flush their final
// block; Close never closes the underlying sink.
package compressor

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// Format names a payload compressor, matching the strings RPM stores in
// the PAYLOADCOMPRESSOR header tag.
type Format string

const (
	XZ   Format = "xz"
	LZMA Format = "lzma"
	Gzip Format = "gzip"
	Zstd Format = "zstd"
)

// ErrCompressionFailed wraps any error the underlying codec reports,
// whether during encode or decode.
var ErrCompressionFailed = errors.New("compressor: compression failed")

// NewWriter returns a streaming encoder for format, writing compressed
// bytes to w. The caller must call Close to flush the final block; Close
// never closes w.
func NewWriter(format Format, w io.Writer) (io.WriteCloser, error) {
	switch format {
	case XZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, errors.Wrap(ErrCompressionFailed, err.Error())
		}
		return xw, nil
	case LZMA:
		lw, err := lzma.NewWriter(w)
		if err != nil {
			return nil, errors.Wrap(ErrCompressionFailed, err.Error())
		}
		return lw, nil
	case Gzip:
		return pgzip.NewWriter(w), nil
	case Zstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, errors.Wrap(ErrCompressionFailed, err.Error())
		}
		return zw, nil
	default:
		return nil, errors.Wrapf(ErrCompressionFailed, "unknown format %q", format)
	}
}

// NewReader returns a streaming decoder for format, reading compressed
// bytes from r.
func NewReader(format Format, r io.Reader) (io.ReadCloser, error) {
	switch format {
	case XZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(ErrCompressionFailed, err.Error())
		}
		return io.NopCloser(xr), nil
	case LZMA:
		lr, err := lzma.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(ErrCompressionFailed, err.Error())
		}
		return io.NopCloser(lr), nil
	case Gzip:
		gr, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(ErrCompressionFailed, err.Error())
		}
		return gr, nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(ErrCompressionFailed, err.Error())
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, errors.Wrapf(ErrCompressionFailed, "unknown format %q", format)
	}
}
