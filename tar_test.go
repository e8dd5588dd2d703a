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
	"archive/tar"
	"bytes"
	"io"
	"path"
	"testing"
)

func createTar(t *testing.T) io.Reader {
	t.Helper()
	b := &bytes.Buffer{}
	ta := tar.NewWriter(b)
	entries := []struct {
		hdr  *tar.Header
		body []byte
	}{{
		hdr: &tar.Header{
			Name: "dir1/",
			Mode: 0755,
		},
	}, {
		hdr: &tar.Header{
			Typeflag: tar.TypeSymlink,
			Name:     "dir1/symlink1",
			Linkname: "../symtarget",
		},
	}, {
		hdr: &tar.Header{
			Name: "dir1/testfile1.txt",
			Mode: 0644,
			Size: int64(len("content1")),
		},
		body: []byte("content1"),
	}}

	for _, e := range entries {
		if err := ta.WriteHeader(e.hdr); err != nil {
			t.Errorf("failed to write header %s: %v", e.hdr.Name, err)
		}
		if e.hdr.Size != 0 {
			if _, err := ta.Write(e.body); err != nil {
				t.Errorf("failed to write body %s: %v", e.hdr.Name, err)
			}
		}
	}
	return b
}

func TestFromTar(t *testing.T) {
	want := map[string]uint{
		"dir1":          040755,
		"symlink1":      0120000,
		"testfile1.txt": 0100644,
	}

	r, err := FromTar(createTar(t), RPMMetaData{Name: "t", Version: "1"})
	if err != nil {
		t.Fatalf("FromTar returned err: %v", err)
	}

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatalf("r.Write() returned err: %v", err)
	}

	pv, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read returned err: %v", err)
	}
	got := map[string]uint{}
	for _, f := range pv.Files {
		got[path.Base(f.Name)] = uint(f.Mode)
	}
	for name, wantMode := range want {
		if got[name] != wantMode {
			t.Errorf("mode for %q = 0%o, want 0%o", name, got[name], wantMode)
		}
	}
}
