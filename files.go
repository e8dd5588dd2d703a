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
	"io"
	"os"
	"path"
	"sort"

	"github.com/packhouse/rpmpack/cpio"
	"github.com/pkg/errors"
)

// Opts controls the ownership and mode FromFiles applies to files that
// don't otherwise carry that information.
type Opts struct {
	Owner, Group      string
	FileMode, DirMode uint
	Mtime             uint32
}

// FromFiles packs a flat list of filesystem paths into w as a single
// RPM, reading each file's body and falling back to its on-disk mode
// when opts.FileMode/DirMode is zero.
func FromFiles(w io.Writer, files []string, md RPMMetaData, opts Opts) error {
	r, err := NewRPM(md)
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		fi, err := os.Lstat(f)
		if err != nil {
			return errors.Wrapf(err, "rpmpack: stat %q", f)
		}

		var fmode uint
		var body []byte
		switch {
		case fi.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(f)
			if err != nil {
				return errors.Wrapf(err, "rpmpack: readlink %q", f)
			}
			body = []byte(target)
			fmode = uint(cpio.ModeSymlink) | uint(fi.Mode().Perm())
		case fi.IsDir():
			fmode = opts.DirMode
			if fmode == 0 {
				fmode = uint(fi.Mode().Perm())
			}
			fmode |= uint(cpio.ModeDir)
		default:
			b, err := os.ReadFile(f)
			if err != nil {
				return errors.Wrapf(err, "rpmpack: read %q", f)
			}
			body = b
			fmode = opts.FileMode
			if fmode == 0 {
				fmode = uint(fi.Mode().Perm())
			}
		}

		r.AddFile(RPMFile{
			Name:  path.Join("/", f),
			Body:  body,
			Mode:  fmode,
			Owner: opts.Owner,
			Group: opts.Group,
			MTime: opts.Mtime,
		})
	}
	return r.Write(w)
}
