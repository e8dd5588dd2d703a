// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rpmpack assembles byte-exact RPM package files from an
// in-memory file list, and reads them back for verification. It does not
// require filesystem access beyond what the caller supplies through
// RPMFile/FromFiles/FromTar.
package rpmpack

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"github.com/packhouse/rpmpack/compressor"
	"github.com/packhouse/rpmpack/cpio"
	"github.com/packhouse/rpmpack/digest"
	"github.com/packhouse/rpmpack/header"
	"github.com/pkg/errors"
)

// ErrWriteAfterClose is returned when Write is called more than once on
// the same RPM.
var ErrWriteAfterClose = errors.New("rpmpack: write after close")

// FileType is the RPM FILEFLAGS bitmask describing a file's installed
// role: config files are preserved across upgrades, ghost files are
// listed but not packed, etc.
type FileType uint32

// FileType bit values, matching RPM's RPMFILE_* constants.
const (
	ArtifactFile  FileType = 0
	ConfigFile    FileType = 1 << 0
	DocFile       FileType = 1 << 1
	MissingOKFile FileType = 1 << 3
	NoReplaceFile FileType = 1 << 4
	GhostFile     FileType = 1 << 6
	LicenceFile   FileType = 1 << 7
)

// RPMMetaData contains meta info about the whole package.
type RPMMetaData struct {
	Name, Description, Version, Release, Arch, OS, Vendor, URL, Packager, Licence, Group, Distribution string
	Epoch                                                                                               uint32
	BuildTime                                                                                           time.Time
	BuildHost                                                                                           string
	Provides, Obsoletes, Suggests, Recommends, Requires, Conflicts                                      []string

	// Compressor selects the payload codec; it defaults to compressor.XZ,
	// matching a modern rpm build's PAYLOADCOMPRESSOR.
	Compressor compressor.Format
	// DigestAlgo selects the per-file FILEDIGESTS algorithm; it defaults
	// to digest.SHA256. The signature section's own header-blob digests
	// (MD5/SHA1/SHA256) are unaffected by this setting.
	DigestAlgo digest.Algo
	// Signer, if set, produces a detached OpenPGP signature over the
	// header blob and over header-blob+payload, stored as RPMSIGTAG_RSA
	// and RPMSIGTAG_PGP respectively. See digest.LoadSigningKey.
	Signer digest.Signer
}

// RPMFile contains a particular file's entry and data.
type RPMFile struct {
	Name  string
	Body  []byte
	Mode  uint
	Owner string
	Group string
	MTime uint32
	Type  FileType
}

// RPM holds the state of a particular rpm file. Use NewRPM to instantiate
// it, AddFile/AddPrein/etc. to populate it, and Write exactly once.
type RPM struct {
	RPMMetaData

	files  map[string]RPMFile
	closed bool

	prein, postin, preun, postun, pretrans, posttrans string

	provides, obsoletes, suggests, recommends, requires, conflicts []*relation
}

// NewRPM creates and returns a new RPM struct, applying defaults for
// unset identity fields and parsing the relation strings in md.
func NewRPM(m RPMMetaData) (*RPM, error) {
	if m.OS == "" {
		m.OS = "linux"
	}
	if m.Arch == "" {
		m.Arch = "noarch"
	}
	if m.Compressor == "" {
		m.Compressor = compressor.XZ
	}
	if m.DigestAlgo == 0 {
		m.DigestAlgo = digest.SHA256
	}
	if m.BuildHost == "" {
		m.BuildHost = "localhost"
	}
	r := &RPM{RPMMetaData: m, files: make(map[string]RPMFile)}
	if err := r.parseRelations(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RPM) parseRelations() (err error) {
	if r.provides, err = parseRelations(r.Provides); err != nil {
		return errors.Wrap(err, "rpmpack: parsing Provides")
	}
	var selfFound bool
	for _, p := range r.provides {
		if p.Name == r.Name {
			selfFound = true
			p.Version = r.FullVersion()
			p.Sense = senseEqual
		}
	}
	if !selfFound {
		r.provides = append(r.provides, &relation{Name: r.Name, Version: r.FullVersion(), Sense: senseEqual})
	}
	if r.obsoletes, err = parseRelations(r.Obsoletes); err != nil {
		return errors.Wrap(err, "rpmpack: parsing Obsoletes")
	}
	if r.suggests, err = parseRelations(r.Suggests); err != nil {
		return errors.Wrap(err, "rpmpack: parsing Suggests")
	}
	if r.recommends, err = parseRelations(r.Recommends); err != nil {
		return errors.Wrap(err, "rpmpack: parsing Recommends")
	}
	if r.requires, err = parseRelations(r.Requires); err != nil {
		return errors.Wrap(err, "rpmpack: parsing Requires")
	}
	if r.conflicts, err = parseRelations(r.Conflicts); err != nil {
		return errors.Wrap(err, "rpmpack: parsing Conflicts")
	}
	return nil
}

// FullVersion properly combines epoch, version and release fields into a
// version string, e.g. "2:1.2.3-1". Epoch is omitted when zero, matching
// rpm's own convention of only ever printing a nonzero epoch.
func (r *RPM) FullVersion() string {
	v := r.Version
	if r.Release != "" {
		v = fmt.Sprintf("%s-%s", v, r.Release)
	}
	if r.Epoch != 0 {
		v = fmt.Sprintf("%d:%s", r.Epoch, v)
	}
	return v
}

// AddFile adds an RPMFile to an existing rpm. The root directory itself
// is silently dropped, matching rpm's own refusal to package "/".
func (r *RPM) AddFile(f RPMFile) {
	if f.Name == "/" {
		return
	}
	r.files[f.Name] = f
}

// AddPrein adds a %prein scriptlet.
func (r *RPM) AddPrein(s string) { r.prein = s }

// AddPostin adds a %postin scriptlet.
func (r *RPM) AddPostin(s string) { r.postin = s }

// AddPreun adds a %preun scriptlet.
func (r *RPM) AddPreun(s string) { r.preun = s }

// AddPostun adds a %postun scriptlet.
func (r *RPM) AddPostun(s string) { r.postun = s }

// AddPretrans adds a %pretrans scriptlet.
func (r *RPM) AddPretrans(s string) { r.pretrans = s }

// AddPosttrans adds a %posttrans scriptlet.
func (r *RPM) AddPosttrans(s string) { r.posttrans = s }

// payloadStats accumulates the parallel per-file arrays the header
// section stores, in the order files are written to the CPIO payload.
type payloadStats struct {
	basenames   []string
	dirindexes  []uint32
	filesizes   []uint32
	filemodes   []uint16
	fileowners  []string
	filegroups  []string
	filemtimes  []uint32
	filedigests []string
	filelinktos []string
	fileflags   []uint32
	totalSize   uint64
}

// buildPayload writes every added file to a CPIO "newc" stream in
// lexical path order, recording per-file statistics as it goes. It
// returns the raw (uncompressed) CPIO bytes, the observed stats, and the
// deduplicated directory name table.
func (r *RPM) buildPayload() ([]byte, *payloadStats, *dirIndex, error) {
	var buf bytes.Buffer
	w := cpio.NewWriter(&buf)
	di := newDirIndex()
	stats := &payloadStats{}

	names := make([]string, 0, len(r.files))
	for n := range r.files {
		names = append(names, n)
	}
	sort.Strings(names)

	for i, name := range names {
		f := r.files[name]
		payloadName := normalizePayloadName(name)
		dir, base := path.Split(payloadName)
		stats.dirindexes = append(stats.dirindexes, uint32(di.get(dir)))
		stats.basenames = append(stats.basenames, base)

		owner, group := f.Owner, f.Group
		if owner == "" {
			owner = "root"
		}
		if group == "" {
			group = "root"
		}
		stats.fileowners = append(stats.fileowners, owner)
		stats.filegroups = append(stats.filegroups, group)
		stats.filemtimes = append(stats.filemtimes, f.MTime)
		stats.fileflags = append(stats.fileflags, uint32(f.Type))

		mode := cpio.FileMode(f.Mode)
		links := uint32(1)
		var digestHex, linkTo string
		var size uint32
		switch {
		case mode.IsDir():
			size = 4096
			links = 2
		case mode.IsSymlink():
			size = uint32(len(f.Body))
			linkTo = string(f.Body)
		default:
			mode |= cpio.ModeRegular
			size = uint32(len(f.Body))
			if f.Type&GhostFile == 0 {
				hx, err := digest.Hex(r.DigestAlgo, f.Body)
				if err != nil {
					return nil, nil, nil, errors.Wrapf(err, "rpmpack: digest file %q", name)
				}
				digestHex = hx
			}
		}
		stats.filesizes = append(stats.filesizes, size)
		stats.filemodes = append(stats.filemodes, uint16(mode))
		stats.filedigests = append(stats.filedigests, digestHex)
		stats.filelinktos = append(stats.filelinktos, linkTo)
		stats.totalSize += uint64(size)

		if f.Type&GhostFile != 0 {
			continue
		}
		if err := w.Write(&cpio.Entry{
			Name: payloadName, Mode: mode, NLink: links, MTime: f.MTime, Body: f.Body,
			Inode: uint32(i + 1),
		}); err != nil {
			return nil, nil, nil, errors.Wrapf(err, "rpmpack: write payload entry %q", name)
		}
	}
	if err := w.WriteTrailer(); err != nil {
		return nil, nil, nil, errors.Wrap(err, "rpmpack: write cpio trailer")
	}
	return buf.Bytes(), stats, di, nil
}

func (r *RPM) compressPayload(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := compressor.NewWriter(r.Compressor, &buf)
	if err != nil {
		return nil, errors.Wrap(err, "rpmpack: create payload compressor")
	}
	if _, err := w.Write(raw); err != nil {
		return nil, errors.Wrap(err, "rpmpack: compress payload")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "rpmpack: flush payload compressor")
	}
	return buf.Bytes(), nil
}

func namesOf(rs []*relation) []string {
	out := make([]string, len(rs))
	for i, rel := range rs {
		out[i] = rel.Name
	}
	return out
}

func versionsOf(rs []*relation) []string {
	out := make([]string, len(rs))
	for i, rel := range rs {
		out[i] = rel.Version
	}
	return out
}

func flagsOf(rs []*relation) []uint32 {
	out := make([]uint32, len(rs))
	for i, rel := range rs {
		out[i] = uint32(rel.Sense)
	}
	return out
}

// buildHeaderStore populates Phase 3's header TagStore from observed
// payload statistics.
func (r *RPM) buildHeaderStore(stats *payloadStats, di *dirIndex) (*header.Store, error) {
	h := header.NewStore()
	must := func(err error) error {
		if err != nil {
			return errors.Wrap(err, "rpmpack: populate header store")
		}
		return nil
	}

	buildTime := r.BuildTime
	if buildTime.IsZero() {
		buildTime = time.Unix(0, 0).UTC()
	}

	stringTags := []struct {
		tag      header.Tag
		val      string
		required bool
	}{
		{header.TagHeaderI18NTable, "C", true},
		{header.TagName, r.Name, true},
		{header.TagVersion, r.Version, true},
		{header.TagRelease, r.Release, true},
		{header.TagSummary, r.Description, true},
		{header.TagDescription, r.Description, true},
		{header.TagBuildHost, r.BuildHost, true},
		{header.TagDistribution, r.Distribution, false},
		{header.TagVendor, r.Vendor, false},
		{header.TagLicense, r.Licence, false},
		{header.TagGroup, r.Group, false},
		{header.TagURL, r.URL, false},
		{header.TagOS, r.OS, true},
		{header.TagArch, r.Arch, true},
		{header.TagPackager, r.Packager, false},
	}
	for _, st := range stringTags {
		if st.val == "" && !st.required {
			continue
		}
		if err := must(h.Set(st.tag, header.StringValue(st.val))); err != nil {
			return nil, err
		}
	}

	if err := must(h.Set(header.TagBuildTime, header.Int32Value(uint32(buildTime.Unix())))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagSize, header.Int32Value(uint32(stats.totalSize)))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagEpoch, header.Int32Value(r.Epoch))); err != nil {
		return nil, err
	}

	if err := must(h.Set(header.TagFileSizes, header.Int32Value(stats.filesizes...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagFileModes, header.Int16Value(stats.filemodes...))); err != nil {
		return nil, err
	}
	rdevs := make([]uint16, len(stats.filemodes))
	for i := range rdevs {
		rdevs[i] = 1
	}
	if err := must(h.Set(header.TagFileRDevs, header.Int16Value(rdevs...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagFileMTimes, header.Int32Value(stats.filemtimes...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagFileDigests, header.StringArrayValue(stats.filedigests...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagFileLinkTos, header.StringArrayValue(stats.filelinktos...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagFileFlags, header.Int32Value(stats.fileflags...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagFileUserName, header.StringArrayValue(stats.fileowners...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagFileGroupName, header.StringArrayValue(stats.filegroups...))); err != nil {
		return nil, err
	}
	// rpm utilities look for the sourcerpm tag to deduce if this is not a
	// source rpm; having one means it isn't.
	if err := must(h.Set(header.TagSourceRPM, header.StringValue(fmt.Sprintf("%s-%s.src.rpm", r.Name, r.FullVersion())))); err != nil {
		return nil, err
	}

	inodes := make([]uint32, len(stats.dirindexes))
	verifyFlags := make([]uint32, len(stats.dirindexes))
	fileLangs := make([]string, len(stats.dirindexes))
	for i := range inodes {
		inodes[i] = uint32(i + 1)
		verifyFlags[i] = 0xffffffff
	}
	if err := must(h.Set(header.TagFileVerifyFlags, header.Int32Value(verifyFlags...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagFileDigestAlgo, header.Int32Value(uint32(r.DigestAlgo)))); err != nil {
		return nil, err
	}

	if names, versions, flags := relationTags(r.provides); len(names) > 0 {
		if err := must(h.Set(header.TagProvideName, header.StringArrayValue(names...))); err != nil {
			return nil, err
		}
		if err := must(h.Set(header.TagProvideVersion, header.StringArrayValue(versions...))); err != nil {
			return nil, err
		}
		if err := must(h.Set(header.TagProvideFlags, header.Int32Value(flags...))); err != nil {
			return nil, err
		}
	}

	// rpmlib capability requirements a modern rpm always expects, ahead of
	// any requirements the caller added explicitly.
	reqNames := append([]string{"rpmlib(PayloadFilesHavePrefix)", "rpmlib(CompressedFileNames)", "rpmlib(FileDigests)"}, namesOf(r.requires)...)
	reqVersions := append([]string{"4.0-1", "3.0.4-1", "4.6.0-1"}, versionsOf(r.requires)...)
	libSense := uint32(senseLess | senseEqual)
	reqFlags := append([]uint32{libSense, libSense, libSense}, flagsOf(r.requires)...)
	if r.Compressor == compressor.XZ {
		reqNames = append(reqNames, "rpmlib(PayloadIsXz)")
		reqVersions = append(reqVersions, "5.2-1")
		reqFlags = append(reqFlags, libSense)
	}
	if err := must(h.Set(header.TagRequireName, header.StringArrayValue(reqNames...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagRequireVersion, header.StringArrayValue(reqVersions...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagRequireFlags, header.Int32Value(reqFlags...))); err != nil {
		return nil, err
	}

	if names, versions, flags := relationTags(r.obsoletes); len(names) > 0 {
		must(h.Set(header.TagObsoleteName, header.StringArrayValue(names...)))
		must(h.Set(header.TagObsoleteVersion, header.StringArrayValue(versions...)))
		must(h.Set(header.TagObsoleteFlags, header.Int32Value(flags...)))
	}
	if names, versions, flags := relationTags(r.conflicts); len(names) > 0 {
		must(h.Set(header.TagConflictName, header.StringArrayValue(names...)))
		must(h.Set(header.TagConflictVersion, header.StringArrayValue(versions...)))
		must(h.Set(header.TagConflictFlags, header.Int32Value(flags...)))
	}
	if names, versions, flags := relationTags(r.recommends); len(names) > 0 {
		must(h.Set(header.TagRecommendName, header.StringArrayValue(names...)))
		must(h.Set(header.TagRecommendVersion, header.StringArrayValue(versions...)))
		must(h.Set(header.TagRecommendFlags, header.Int32Value(flags...)))
	}
	if names, versions, flags := relationTags(r.suggests); len(names) > 0 {
		must(h.Set(header.TagSuggestName, header.StringArrayValue(names...)))
		must(h.Set(header.TagSuggestVersion, header.StringArrayValue(versions...)))
		must(h.Set(header.TagSuggestFlags, header.Int32Value(flags...)))
	}

	if r.prein != "" {
		must(h.Set(header.TagPrein, header.StringValue(r.prein)))
		must(h.Set(header.TagPreinProg, header.StringValue("/bin/sh")))
	}
	if r.postin != "" {
		must(h.Set(header.TagPostin, header.StringValue(r.postin)))
		must(h.Set(header.TagPostinProg, header.StringValue("/bin/sh")))
	}
	if r.preun != "" {
		must(h.Set(header.TagPreun, header.StringValue(r.preun)))
		must(h.Set(header.TagPreunProg, header.StringValue("/bin/sh")))
	}
	if r.postun != "" {
		must(h.Set(header.TagPostun, header.StringValue(r.postun)))
		must(h.Set(header.TagPostunProg, header.StringValue("/bin/sh")))
	}
	if r.pretrans != "" {
		must(h.Set(header.TagPretrans, header.StringValue(r.pretrans)))
		must(h.Set(header.TagPretransProg, header.StringValue("/bin/sh")))
	}
	if r.posttrans != "" {
		must(h.Set(header.TagPosttrans, header.StringValue(r.posttrans)))
		must(h.Set(header.TagPosttransProg, header.StringValue("/bin/sh")))
	}

	devices := make([]uint32, len(stats.dirindexes))
	for i := range devices {
		devices[i] = 1
	}
	if err := must(h.Set(header.TagFileDevices, header.Int32Value(devices...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagFileInodes, header.Int32Value(inodes...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagFileLangs, header.StringArrayValue(fileLangs...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagDirIndexes, header.Int32Value(stats.dirindexes...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagBaseNames, header.StringArrayValue(stats.basenames...))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagDirNames, header.StringArrayValue(di.allDirs()...))); err != nil {
		return nil, err
	}

	if err := must(h.Set(header.TagPayloadFormat, header.StringValue("cpio"))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagPayloadCompressor, header.StringValue(string(r.Compressor)))); err != nil {
		return nil, err
	}
	if err := must(h.Set(header.TagPayloadFlags, header.StringValue("2"))); err != nil {
		return nil, err
	}

	h.SortCanonical(header.CanonicalHeaderOrder)
	h.SetImmutableRegion(header.TagHeaderImmutable)
	return h, nil
}

// buildSignatureStore populates Phase 4's signature TagStore from the
// already-encoded header blob and compressed payload.
func (r *RPM) buildSignatureStore(headerBlob, compressedPayload []byte, uncompressedPayloadLen int) (*header.Store, error) {
	s := header.NewStore()

	combined := append(append([]byte{}, headerBlob...), compressedPayload...)
	md5Sum, err := digest.Sum(digest.MD5, combined)
	if err != nil {
		return nil, errors.Wrap(err, "rpmpack: compute signature MD5")
	}
	sha1Hex := digest.SHA1Hex(headerBlob)
	sha256Hex, err := digest.Hex(digest.SHA256, headerBlob)
	if err != nil {
		return nil, errors.Wrap(err, "rpmpack: compute signature SHA256")
	}

	if err := s.Set(header.SigSize, header.Int32Value(uint32(len(headerBlob)+len(compressedPayload)))); err != nil {
		return nil, err
	}
	if err := s.Set(header.SigMD5, header.BinaryValue(md5Sum)); err != nil {
		return nil, err
	}
	if err := s.Set(header.SigSHA1, header.StringValue(sha1Hex)); err != nil {
		return nil, err
	}
	if err := s.Set(header.SigSHA256, header.StringValue(sha256Hex)); err != nil {
		return nil, err
	}
	if err := s.Set(header.SigPayloadSize, header.Int32Value(uint32(uncompressedPayloadLen))); err != nil {
		return nil, err
	}

	if r.Signer != nil {
		headerSig, err := r.Signer(headerBlob)
		if err != nil {
			return nil, errors.Wrap(err, "rpmpack: sign header blob")
		}
		if err := s.Set(header.SigRSA, header.BinaryValue(headerSig)); err != nil {
			return nil, err
		}
		bodySig, err := r.Signer(combined)
		if err != nil {
			return nil, errors.Wrap(err, "rpmpack: sign header+payload")
		}
		if err := s.Set(header.SigPGP, header.BinaryValue(bodySig)); err != nil {
			return nil, err
		}
	}

	s.SortCanonical(header.CanonicalSignatureOrder)
	s.SetImmutableRegion(header.TagHeaderSignatures)
	return s, nil
}

// Write assembles the complete RPM package — Lead, Signature section,
// Header section, compressed payload, in that order — and writes it to
// w. An RPM may be written exactly once.
func (r *RPM) Write(w io.Writer) error {
	if r.closed {
		return ErrWriteAfterClose
	}
	r.closed = true

	raw, stats, di, err := r.buildPayload()
	if err != nil {
		return err
	}
	compressed, err := r.compressPayload(raw)
	if err != nil {
		return err
	}
	headerStore, err := r.buildHeaderStore(stats, di)
	if err != nil {
		return err
	}
	headerBlob, err := header.Encode(headerStore)
	if err != nil {
		return errors.Wrap(err, "rpmpack: encode header section")
	}
	sigStore, err := r.buildSignatureStore(headerBlob, compressed, len(raw))
	if err != nil {
		return err
	}
	sigBlob, err := header.Encode(sigStore)
	if err != nil {
		return errors.Wrap(err, "rpmpack: encode signature section")
	}

	if _, err := w.Write(encodeLead(r.Name, r.FullVersion())); err != nil {
		return errors.Wrap(err, "rpmpack: write lead")
	}
	if _, err := w.Write(sigBlob); err != nil {
		return errors.Wrap(err, "rpmpack: write signature section")
	}
	if pad := (8 - len(sigBlob)%8) % 8; pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return errors.Wrap(err, "rpmpack: write signature section padding")
		}
	}
	if _, err := w.Write(headerBlob); err != nil {
		return errors.Wrap(err, "rpmpack: write header section")
	}
	if _, err := w.Write(compressed); err != nil {
		return errors.Wrap(err, "rpmpack: write payload")
	}
	return nil
}
