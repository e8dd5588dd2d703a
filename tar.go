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
	"io"
	"path"

	"github.com/packhouse/rpmpack/cpio"
	"github.com/pkg/errors"
)

// FromTar reads a tar stream and builds an in-memory RPM from its
// entries: regular files, directories and symlinks are supported.
func FromTar(inp io.Reader, md RPMMetaData) (*RPM, error) {
	r, err := NewRPM(md)
	if err != nil {
		return nil, errors.Wrap(err, "rpmpack: create rpm structure")
	}
	t := tar.NewReader(inp)
	for {
		h, err := t.Next()
		if err == io.EOF {
			return r, nil
		} else if err != nil {
			return nil, errors.Wrap(err, "rpmpack: read tar stream")
		}

		var body []byte
		mode := uint(h.Mode)
		switch h.Typeflag {
		case tar.TypeDir:
			mode |= uint(cpio.ModeDir)
		case tar.TypeSymlink:
			body = []byte(h.Linkname)
			mode |= uint(cpio.ModeSymlink)
		case tar.TypeReg:
			b, err := io.ReadAll(t)
			if err != nil {
				return nil, errors.Wrapf(err, "rpmpack: read tar entry %q", h.Name)
			}
			body = b
		default:
			return nil, errors.Errorf("rpmpack: unsupported tar entry type %d (%q)", h.Typeflag, h.Name)
		}

		owner := h.Uname
		if owner == "" {
			owner = "root"
		}
		group := h.Gname
		if group == "" {
			group = "root"
		}

		r.AddFile(RPMFile{
			Name:  path.Join("/", h.Name),
			Body:  body,
			Mode:  mode,
			Owner: owner,
			Group: group,
			MTime: uint32(h.ModTime.Unix()),
		})
	}
}
