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

package rpmpack

import (
	"bytes"
	"io"

	"github.com/packhouse/rpmpack/compressor"
	"github.com/packhouse/rpmpack/cpio"
	"github.com/packhouse/rpmpack/digest"
	"github.com/packhouse/rpmpack/header"
	"github.com/pkg/errors"
)

// ErrDigestMismatch is returned by Read when a decoded package's own
// recorded digests (SIGMD5, SIGSHA1, SIGSHA256, SIGPAYLOADSIZE, or a
// per-file FILEDIGESTS entry) disagree with the bytes actually present.
var ErrDigestMismatch = errors.New("rpmpack: digest mismatch")

// PackageView is the result of parsing an RPM package file: the decoded
// Lead, Signature and Header sections verbatim, plus the reconstructed
// file list from the decompressed CPIO payload.
type PackageView struct {
	NVR       string
	Signature *header.Store
	Header    *header.Store
	Files     []RPMFile
}

// Read parses a complete RPM package from r: Lead, Signature section,
// Header section, compressed CPIO payload, verifying every digest the
// package carries about itself along the way.
func Read(r io.Reader) (*PackageView, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "rpmpack: read package")
	}

	nvr, rest, err := decodeLead(raw)
	if err != nil {
		return nil, err
	}

	sigLen, err := header.SectionLen(rest)
	if err != nil {
		return nil, errors.Wrap(err, "rpmpack: locate signature section")
	}
	sigBlob := rest[:sigLen]
	pad := (8 - sigLen%8) % 8
	rest = rest[sigLen+pad:]

	hdrLen, err := header.SectionLen(rest)
	if err != nil {
		return nil, errors.Wrap(err, "rpmpack: locate header section")
	}
	hdrBlob := rest[:hdrLen]
	payload := rest[hdrLen:]

	sig, err := header.Decode(sigBlob)
	if err != nil {
		return nil, errors.Wrap(err, "rpmpack: decode signature section")
	}
	hdr, err := header.Decode(hdrBlob)
	if err != nil {
		return nil, errors.Wrap(err, "rpmpack: decode header section")
	}
	if err := VerifyRequiredTags(sig, hdr); err != nil {
		return nil, err
	}

	if err := verifySectionDigests(sig, hdrBlob, payload); err != nil {
		return nil, err
	}

	format := compressor.XZ
	if v, ok := hdr.Get(header.TagPayloadCompressor); ok {
		format = compressor.Format(v.Str)
	}
	cr, err := compressor.NewReader(format, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "rpmpack: open payload decompressor")
	}
	defer cr.Close()
	rawPayload, err := io.ReadAll(cr)
	if err != nil {
		return nil, errors.Wrap(err, "rpmpack: decompress payload")
	}

	if v, ok := sig.Get(header.SigPayloadSize); ok && len(v.Int32) == 1 {
		if int(v.Int32[0]) != len(rawPayload) {
			return nil, errors.Wrap(ErrDigestMismatch, "signature payload size does not match decompressed payload")
		}
	}

	files, err := readFiles(rawPayload, hdr)
	if err != nil {
		return nil, err
	}

	return &PackageView{NVR: nvr, Signature: sig, Header: hdr, Files: files}, nil
}

func verifySectionDigests(sig *header.Store, hdrBlob, compressedPayload []byte) error {
	combined := append(append([]byte{}, hdrBlob...), compressedPayload...)
	if v, ok := sig.Get(header.SigMD5); ok {
		got, err := digest.Sum(digest.MD5, combined)
		if err != nil {
			return errors.Wrap(err, "rpmpack: compute signature MD5")
		}
		if !bytes.Equal(v.Bin, got) {
			return errors.Wrap(ErrDigestMismatch, "SIGMD5")
		}
	}
	if v, ok := sig.Get(header.SigSHA1); ok {
		if v.Str != digest.SHA1Hex(hdrBlob) {
			return errors.Wrap(ErrDigestMismatch, "SIGSHA1")
		}
	}
	if v, ok := sig.Get(header.SigSHA256); ok {
		got, err := digest.Hex(digest.SHA256, hdrBlob)
		if err != nil {
			return errors.Wrap(err, "rpmpack: compute signature SHA256")
		}
		if v.Str != got {
			return errors.Wrap(ErrDigestMismatch, "SIGSHA256")
		}
	}
	return nil
}

// readFiles walks the decompressed CPIO stream, cross-referencing each
// entry against the header's parallel per-file arrays (matched by full
// path, since GhostFile entries are recorded in the header but absent
// from the payload) and verifying regular-file digests as it goes.
func readFiles(rawPayload []byte, hdr *header.Store) ([]RPMFile, error) {
	byPath := make(map[string]int)
	dirNames := stringArr(hdr, header.TagDirNames)
	baseNames := stringArr(hdr, header.TagBaseNames)
	dirIdx := int32Arr(hdr, header.TagDirIndexes)
	for i := range baseNames {
		dir := ""
		if i < len(dirIdx) && int(dirIdx[i]) < len(dirNames) {
			dir = dirNames[dirIdx[i]]
		}
		byPath[dir+baseNames[i]] = i
	}

	fileDigests := stringArr(hdr, header.TagFileDigests)
	fileOwners := stringArr(hdr, header.TagFileUserName)
	fileGroups := stringArr(hdr, header.TagFileGroupName)
	fileFlags := int32Arr(hdr, header.TagFileFlags)
	fileMTimes := int32Arr(hdr, header.TagFileMTimes)

	algo := digest.SHA256
	if v, ok := hdr.Get(header.TagFileDigestAlgo); ok && len(v.Int32) == 1 {
		algo = digest.Algo(v.Int32[0])
	}

	var files []RPMFile
	cr := cpio.NewReader(bytes.NewReader(rawPayload))
	for {
		e, more, err := cr.Next()
		if err != nil {
			return nil, errors.Wrap(err, "rpmpack: read cpio entry")
		}
		if !more {
			break
		}
		body, err := io.ReadAll(mustOpen(cr, e))
		if err != nil {
			return nil, errors.Wrapf(err, "rpmpack: read cpio payload for %q", e.Name)
		}

		f := RPMFile{Name: e.Name, Body: body, Mode: uint(e.Mode), MTime: e.MTime}
		if i, ok := byPath[e.Name]; ok {
			if i < len(fileOwners) {
				f.Owner = fileOwners[i]
			}
			if i < len(fileGroups) {
				f.Group = fileGroups[i]
			}
			if i < len(fileFlags) {
				f.Type = FileType(fileFlags[i])
			}
			if i < len(fileMTimes) {
				f.MTime = fileMTimes[i]
			}
			if e.Mode.IsRegular() && i < len(fileDigests) && fileDigests[i] != "" {
				got, err := digest.Hex(algo, body)
				if err != nil {
					return nil, errors.Wrap(err, "rpmpack: compute file digest")
				}
				if got != fileDigests[i] {
					return nil, errors.Wrapf(ErrDigestMismatch, "file %q", e.Name)
				}
			}
		}
		files = append(files, f)
	}
	return files, nil
}

func mustOpen(r *cpio.Reader, e *cpio.Entry) io.Reader {
	rd, err := r.Open(e)
	if err != nil {
		// Open only fails when e is no longer the current entry, which
		// cannot happen here since it is called immediately after Next.
		panic(err)
	}
	return rd
}

func stringArr(s *header.Store, tag header.Tag) []string {
	if v, ok := s.Get(tag); ok {
		return v.StrArr
	}
	return nil
}

func int32Arr(s *header.Store, tag header.Tag) []uint32 {
	if v, ok := s.Get(tag); ok {
		return v.Int32
	}
	return nil
}
