package rpmpack

import "strings"

// normalizePayloadName rewrites an absolute or bare relative path into
// the "./"-prefixed relative form rpm stores both in the CPIO payload
// and in DIRNAMES/BASENAMES, e.g. "/usr/bin/foo" and "usr/bin/foo" both
// become "./usr/bin/foo".
func normalizePayloadName(name string) string {
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	return "./" + name
}

// dirIndex deduplicates directory name strings across a package's file
// list into the DIRNAMES array and per-file DIRINDEXES offsets RPM's
// header format stores instead of repeating full paths.
type dirIndex struct {
	idx map[string]int32
	all []string
}

func newDirIndex() *dirIndex {
	return &dirIndex{idx: make(map[string]int32)}
}

// get returns dir's index into allDirs, assigning it the next index the
// first time it's seen.
func (d *dirIndex) get(dir string) int32 {
	if i, ok := d.idx[dir]; ok {
		return i
	}
	i := int32(len(d.all))
	d.all = append(d.all, dir)
	d.idx[dir] = i
	return i
}

// allDirs returns the deduplicated directory names in first-seen order.
func (d *dirIndex) allDirs() []string {
	return d.all
}
