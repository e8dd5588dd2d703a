// Package cpio reads and writes the "newc" (070701) variant of the CPIO
// archive format used as the RPM payload container. Every CPIO entry is
// ASCII-hex framed, NUL-terminated, and 4-byte aligned independently on
// its header+name and its payload, ending in a zero-length TRAILER!!!
// sentinel entry.
package cpio

import (
	"io"
	"strings"

	"github.com/packhouse/rpmpack/internal/binio"
	"github.com/pkg/errors"
)

const (
	magic          = "070701"
	headerLen      = 110
	trailerName    = "TRAILER!!!"
	headerFieldLen = 8
)

// ErrInvalidFormat is returned when an entry's magic, or any other
// structural property, does not match the newc format.
var ErrInvalidFormat = errors.New("cpio: invalid format")

// FileMode mirrors the POSIX mode bits cpio stores: file-type bits in the
// high nibbles, permission bits in the low twelve.
type FileMode uint32

const (
	ModeTypeMask FileMode = 0170000
	ModeDir      FileMode = 0040000
	ModeRegular  FileMode = 0100000
	ModeSymlink  FileMode = 0120000
)

// IsDir reports whether m describes a directory.
func (m FileMode) IsDir() bool { return m&ModeTypeMask == ModeDir }

// IsSymlink reports whether m describes a symbolic link.
func (m FileMode) IsSymlink() bool { return m&ModeTypeMask == ModeSymlink }

// IsRegular reports whether m describes a regular file.
func (m FileMode) IsRegular() bool { return m&ModeTypeMask == ModeRegular }

// Entry is one logical filesystem object in a CPIO archive: header fields
// plus, on write, its payload bytes. On read, the payload is exposed via
// Open instead of being buffered into the Entry.
type Entry struct {
	Name      string
	Mode      FileMode
	UID       uint32
	GID       uint32
	NLink     uint32
	MTime     uint32
	DevMajor  uint32
	DevMinor  uint32
	RDevMajor uint32
	RDevMinor uint32
	Inode     uint32

	// Body is the payload used by Writer.Write. It is ignored by the
	// Reader, which exposes payload bytes via Entry.Open instead.
	Body []byte

	// size and namesize are populated from what was actually read, so a
	// re-encoded header matches even if Body/Name length diverges (read
	// path only; for Writer these are always recomputed).
	size     uint32
	nameSize uint32
}

// Size returns the payload length recorded for this entry (FileSize on
// disk).
func (e *Entry) Size() uint32 {
	if e.Body != nil {
		return uint32(len(e.Body))
	}
	return e.size
}

func pad(n int) int { return binio.PadTo(n, 4) }

type rawHeader struct {
	inode, mode, uid, gid, nlink, mtime, filesize uint32
	devmajor, devminor, rdevmajor, rdevminor       uint32
	namesize, check                               uint32
}

func (h *rawHeader) marshal() []byte {
	b := make([]byte, headerLen)
	copy(b[:6], magic)
	fields := []uint32{
		h.inode, h.mode, h.uid, h.gid, h.nlink, h.mtime, h.filesize,
		h.devmajor, h.devminor, h.rdevmajor, h.rdevminor, h.namesize, h.check,
	}
	for i, v := range fields {
		binio.PutHex8(b[6+i*headerFieldLen:6+(i+1)*headerFieldLen], v)
	}
	return b
}

func unmarshalHeader(b []byte) (*rawHeader, error) {
	if len(b) != headerLen {
		return nil, errors.Wrap(ErrInvalidFormat, "short cpio header")
	}
	if string(b[:6]) != magic {
		return nil, errors.Wrapf(ErrInvalidFormat, "bad magic %q", b[:6])
	}
	vals := make([]uint32, 13)
	for i := range vals {
		v, err := binio.ParseHex8(b[6+i*headerFieldLen : 6+(i+1)*headerFieldLen])
		if err != nil {
			return nil, errors.Wrap(err, "cpio: parse header field")
		}
		vals[i] = v
	}
	return &rawHeader{
		inode: vals[0], mode: vals[1], uid: vals[2], gid: vals[3],
		nlink: vals[4], mtime: vals[5], filesize: vals[6],
		devmajor: vals[7], devminor: vals[8], rdevmajor: vals[9], rdevminor: vals[10],
		namesize: vals[11], check: vals[12],
	}, nil
}

// Writer emits a sequence of Entry values as a newc CPIO stream, ending
// with WriteTrailer.
type Writer struct {
	w      io.Writer
	closed bool
}

// NewWriter returns a Writer that emits a newc CPIO stream to w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Write emits one entry: header, NUL-terminated name (padded to a 4-byte
// boundary), payload (padded to a 4-byte boundary). NameSize and FileSize
// on the wire are always recomputed from Name and Body, regardless of
// what the caller set.
func (w *Writer) Write(e *Entry) error {
	if w.closed {
		return errors.New("cpio: write after trailer")
	}
	name := e.Name + "\x00"
	hdr := &rawHeader{
		inode: e.Inode, mode: uint32(e.Mode), uid: e.UID, gid: e.GID,
		nlink: e.NLink, mtime: e.MTime, filesize: uint32(len(e.Body)),
		devmajor: e.DevMajor, devminor: e.DevMinor,
		rdevmajor: e.RDevMajor, rdevminor: e.RDevMinor,
		namesize: uint32(len(name)), check: 0,
	}
	if _, err := w.w.Write(hdr.marshal()); err != nil {
		return errors.Wrap(err, "cpio: write header")
	}
	if _, err := io.WriteString(w.w, name); err != nil {
		return errors.Wrap(err, "cpio: write name")
	}
	if err := binio.WritePad(w.w, pad(headerLen+len(name))); err != nil {
		return errors.Wrap(err, "cpio: pad name")
	}
	if len(e.Body) > 0 {
		if _, err := w.w.Write(e.Body); err != nil {
			return errors.Wrap(err, "cpio: write payload")
		}
	}
	return errors.Wrap(binio.WritePad(w.w, pad(len(e.Body))), "cpio: pad payload")
}

// WriteTrailer emits the TRAILER!!! sentinel entry. The writer must not
// be used for further Write calls afterwards.
func (w *Writer) WriteTrailer() error {
	if err := w.Write(&Entry{Name: trailerName, NLink: 1}); err != nil {
		return err
	}
	w.closed = true
	return nil
}

// Reader reads a newc CPIO stream entry by entry.
type Reader struct {
	r    io.Reader
	seek io.Seeker
	rem  int64 // unconsumed payload+padding bytes of the entry returned by the last Next
	gen  int64
	cur  *Entry
}

// NewReader returns a Reader over r. If r also implements io.Seeker, Next
// uses it to skip unread payload bytes instead of discarding them.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{r: r}
	if s, ok := r.(io.Seeker); ok {
		rd.seek = s
	}
	return rd
}

func (r *Reader) skipRemainder() error {
	if r.rem == 0 {
		return nil
	}
	if r.seek != nil {
		_, err := r.seek.Seek(r.rem, io.SeekCurrent)
		r.rem = 0
		return errors.Wrap(err, "cpio: seek past payload")
	}
	err := binio.DiscardExact(r.r, int(r.rem))
	r.rem = 0
	return errors.Wrap(err, "cpio: discard payload")
}

func readExact(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, binio.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b, nil
}

// Next advances to the next entry. It returns (nil, false, nil) exactly
// once, for the TRAILER!!! sentinel, and never returns an entry after
// that. The Entry returned is only valid, and its Open substream only
// readable, until the following call to Next.
func (r *Reader) Next() (*Entry, bool, error) {
	if err := r.skipRemainder(); err != nil {
		return nil, false, err
	}
	r.gen++
	r.cur = nil

	hb, err := readExact(r.r, headerLen)
	if err != nil {
		return nil, false, err
	}
	hdr, err := unmarshalHeader(hb)
	if err != nil {
		return nil, false, err
	}

	nameBuf, err := readExact(r.r, int(hdr.namesize))
	if err != nil {
		return nil, false, err
	}
	name := strings.TrimRight(string(nameBuf), "\x00")

	namePad := pad(headerLen + int(hdr.namesize))
	if err := binio.DiscardExact(r.r, namePad); err != nil {
		return nil, false, err
	}

	if name == trailerName {
		return nil, false, nil
	}

	e := &Entry{
		Name: name, Mode: FileMode(hdr.mode), UID: hdr.uid, GID: hdr.gid,
		NLink: hdr.nlink, MTime: hdr.mtime,
		DevMajor: hdr.devmajor, DevMinor: hdr.devminor,
		RDevMajor: hdr.rdevmajor, RDevMinor: hdr.rdevminor,
		Inode: hdr.inode, size: hdr.filesize, nameSize: hdr.namesize,
	}
	r.rem = int64(hdr.filesize) + int64(pad(int(hdr.filesize)))
	r.cur = e
	return e, true, nil
}

// Open returns a bounded reader over e's payload bytes. The returned
// reader is invalidated by the next call to Next on the same Reader.
func (r *Reader) Open(e *Entry) (io.Reader, error) {
	if e != r.cur {
		return nil, errors.New("cpio: entry is no longer current")
	}
	return &entryReader{parent: r, gen: r.gen, n: int64(e.size)}, nil
}

type entryReader struct {
	parent *Reader
	gen    int64
	n      int64
}

func (er *entryReader) Read(p []byte) (int, error) {
	if er.gen != er.parent.gen {
		return 0, errors.New("cpio: substream used after next Next call")
	}
	if er.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > er.n {
		p = p[:er.n]
	}
	n, err := er.parent.r.Read(p)
	er.n -= int64(n)
	er.parent.rem -= int64(n)
	return n, err
}
