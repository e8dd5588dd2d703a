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
	"strings"
	"testing"
	"time"

	"github.com/packhouse/rpmpack/digest"
	"github.com/packhouse/rpmpack/header"
)

func TestFileOwner(t *testing.T) {
	r, err := NewRPM(RPMMetaData{Name: "owner-test", Version: "1.0"})
	if err != nil {
		t.Fatalf("NewRPM returned error %v", err)
	}
	group, user := "testGroup", "testUser"
	r.AddFile(RPMFile{Name: "/usr/local/hello", Body: []byte("content of the file"), Group: group, Owner: user})

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatalf("Write returned error %v", err)
	}
	pv, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read returned error %v", err)
	}
	if len(pv.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(pv.Files))
	}
	if pv.Files[0].Owner != user {
		t.Errorf("owner = %q, want %q", pv.Files[0].Owner, user)
	}
	if pv.Files[0].Group != group {
		t.Errorf("group = %q, want %q", pv.Files[0].Group, group)
	}
}

func TestWriteAfterCloseRejected(t *testing.T) {
	r, err := NewRPM(RPMMetaData{Name: "n", Version: "1"})
	if err != nil {
		t.Fatalf("NewRPM: %v", err)
	}
	if err := r.Write(&bytes.Buffer{}); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if err := r.Write(&bytes.Buffer{}); err != ErrWriteAfterClose {
		t.Errorf("second Write err = %v, want ErrWriteAfterClose", err)
	}
}

// S1: empty package.
func TestEmptyPackage(t *testing.T) {
	r, err := NewRPM(RPMMetaData{Name: "empty", Version: "1.0", Release: "1", Arch: "noarch"})
	if err != nil {
		t.Fatalf("NewRPM: %v", err)
	}
	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	nvr, rest, err := decodeLead(buf.Bytes())
	if err != nil {
		t.Fatalf("decodeLead: %v", err)
	}
	if nvr != "empty-1.0-1" {
		t.Errorf("lead NVR = %q, want empty-1.0-1", nvr)
	}
	_ = rest

	pv, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(pv.Files) != 0 {
		t.Errorf("expected 0 files, got %d", len(pv.Files))
	}
	size, ok := pv.Header.Get(header.TagSize)
	if !ok || len(size.Int32) != 1 || size.Int32[0] != 0 {
		t.Errorf("header SIZE = %v, want [0]", size.Int32)
	}
	if base, ok := pv.Header.Get(header.TagBaseNames); ok && len(base.StrArr) != 0 {
		t.Errorf("BASENAMES = %v, want empty", base.StrArr)
	}
}

// S2: single file.
func TestSingleFile(t *testing.T) {
	r, err := NewRPM(RPMMetaData{Name: "single", Version: "1.0", Release: "1", DigestAlgo: digest.MD5})
	if err != nil {
		t.Fatalf("NewRPM: %v", err)
	}
	r.AddFile(RPMFile{Name: "/usr/share/empty/readme.txt", Body: []byte("hello\n"), Mode: 0644})

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	pv, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	sizes, _ := pv.Header.Get(header.TagFileSizes)
	if len(sizes.Int32) != 1 || sizes.Int32[0] != 6 {
		t.Errorf("FILESIZES = %v, want [6]", sizes.Int32)
	}
	digests, _ := pv.Header.Get(header.TagFileDigests)
	wantDigest, err := digest.Hex(digest.MD5, []byte("hello\n"))
	if err != nil {
		t.Fatalf("digest.Hex: %v", err)
	}
	if len(digests.StrArr) != 1 || digests.StrArr[0] != wantDigest {
		t.Errorf("FILEDIGESTS = %v, want [%s]", digests.StrArr, wantDigest)
	}
	base, _ := pv.Header.Get(header.TagBaseNames)
	if len(base.StrArr) != 1 || base.StrArr[0] != "readme.txt" {
		t.Errorf("BASENAMES = %v, want [readme.txt]", base.StrArr)
	}
	dirs, _ := pv.Header.Get(header.TagDirNames)
	if len(dirs.StrArr) != 1 || dirs.StrArr[0] != "./usr/share/empty/" {
		t.Errorf("DIRNAMES = %v, want [./usr/share/empty/]", dirs.StrArr)
	}
	dirIdx, _ := pv.Header.Get(header.TagDirIndexes)
	if len(dirIdx.Int32) != 1 || dirIdx.Int32[0] != 0 {
		t.Errorf("DIRINDEXES = %v, want [0]", dirIdx.Int32)
	}
	size, _ := pv.Header.Get(header.TagSize)
	if len(size.Int32) != 1 || size.Int32[0] != 6 {
		t.Errorf("SIZE = %v, want [6]", size.Int32)
	}
}

// S3: nested directories.
func TestNestedDirectories(t *testing.T) {
	r, err := NewRPM(RPMMetaData{Name: "nested", Version: "1.0"})
	if err != nil {
		t.Fatalf("NewRPM: %v", err)
	}
	r.AddFile(RPMFile{Name: "./a/x", Body: []byte("x")})
	r.AddFile(RPMFile{Name: "./a/y", Body: []byte("y")})
	r.AddFile(RPMFile{Name: "./b/z", Body: []byte("z")})

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	pv, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	dirs, _ := pv.Header.Get(header.TagDirNames)
	wantDirs := []string{"./a/", "./b/"}
	if strings.Join(dirs.StrArr, ",") != strings.Join(wantDirs, ",") {
		t.Errorf("DIRNAMES = %v, want %v", dirs.StrArr, wantDirs)
	}
	base, _ := pv.Header.Get(header.TagBaseNames)
	wantBase := []string{"x", "y", "z"}
	if strings.Join(base.StrArr, ",") != strings.Join(wantBase, ",") {
		t.Errorf("BASENAMES = %v, want %v", base.StrArr, wantBase)
	}
	dirIdx, _ := pv.Header.Get(header.TagDirIndexes)
	wantIdx := []uint32{0, 0, 1}
	for i, want := range wantIdx {
		if i >= len(dirIdx.Int32) || dirIdx.Int32[i] != want {
			t.Errorf("DIRINDEXES[%d] = %v, want %d", i, dirIdx.Int32, want)
			break
		}
	}
}

// S4: symlink.
func TestSymlinkEntry(t *testing.T) {
	r, err := NewRPM(RPMMetaData{Name: "linktest", Version: "1.0"})
	if err != nil {
		t.Fatalf("NewRPM: %v", err)
	}
	r.AddFile(RPMFile{Name: "/opt/link", Body: []byte("../real"), Mode: 0120777})

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	pv, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	linkTo, _ := pv.Header.Get(header.TagFileLinkTos)
	if len(linkTo.StrArr) != 1 || linkTo.StrArr[0] != "../real" {
		t.Errorf("FILELINKTOS = %v, want [../real]", linkTo.StrArr)
	}
	digests, _ := pv.Header.Get(header.TagFileDigests)
	if len(digests.StrArr) != 1 || digests.StrArr[0] != "" {
		t.Errorf("FILEDIGESTS = %v, want [\"\"]", digests.StrArr)
	}
	sizes, _ := pv.Header.Get(header.TagFileSizes)
	if len(sizes.Int32) != 1 || sizes.Int32[0] != uint32(len("../real")) {
		t.Errorf("FILESIZES = %v, want [%d]", sizes.Int32, len("../real"))
	}
}

// S5: digest consistency is enforced by Read itself (verifySectionDigests);
// this test checks that Read rejects a package with one corrupted payload
// byte and accepts the intact package.
func TestDigestConsistency(t *testing.T) {
	r, err := NewRPM(RPMMetaData{Name: "digests", Version: "1.0"})
	if err != nil {
		t.Fatalf("NewRPM: %v", err)
	}
	r.AddFile(RPMFile{Name: "/a", Body: bytes.Repeat([]byte("x"), 4096)})

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// A single corrupted payload byte must be caught by Read.
	corrupt := append([]byte(nil), buf.Bytes()...)
	corrupt[len(corrupt)-1] ^= 0xff
	if _, err := Read(bytes.NewReader(corrupt)); err == nil {
		t.Errorf("Read of corrupted package succeeded, want digest error")
	}

	if _, err := Read(bytes.NewReader(buf.Bytes())); err != nil {
		t.Errorf("Read of well-formed package failed: %v", err)
	}
}

// S6: round-trip determinism, given a fixed BuildTime.
func TestRoundTripDeterminism(t *testing.T) {
	md := RPMMetaData{Name: "det", Version: "1.0", Release: "1", BuildTime: time.Unix(1700000000, 0).UTC()}

	build := func() []byte {
		r, err := NewRPM(md)
		if err != nil {
			t.Fatalf("NewRPM: %v", err)
		}
		r.AddFile(RPMFile{Name: "/a", Body: []byte("same content")})
		var buf bytes.Buffer
		if err := r.Write(&buf); err != nil {
			t.Fatalf("Write: %v", err)
		}
		return buf.Bytes()
	}

	a := build()
	b := build()
	if !bytes.Equal(a, b) {
		t.Errorf("two assemblies of the same inputs produced different bytes")
	}
}
