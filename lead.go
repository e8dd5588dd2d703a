package rpmpack

import "github.com/pkg/errors"

// leadLen is the fixed size of the RPM lead: magic(4) + version(2) +
// type(2) + archnum(2) + name(66) + osnum(2) + signature type(2) +
// reserved(16).
const leadLen = 96

var leadMagic = [4]byte{0xed, 0xab, 0xee, 0xdb}

// ErrInvalidLead is returned by decodeLead when a byte slice isn't a
// well-formed 96-byte RPM lead.
var ErrInvalidLead = errors.New("rpmpack: invalid lead")

// encodeLead builds the 96-byte lead for a package named name-version,
// matching the fixed values a modern rpm build always emits: format
// version 3.0, binary package type, i386 archnum, linux osnum, and
// signature type 5 (header-style signatures).
func encodeLead(name, fullVersion string) []byte {
	b := make([]byte, 0, leadLen)
	b = append(b, leadMagic[:]...)
	b = append(b, 0x03, 0x00) // version 3.0
	b = append(b, 0x00, 0x00) // type: binary
	b = append(b, 0x00, 0x01) // archnum: i386

	nvr := []byte(name + "-" + fullVersion)
	if len(nvr) > 65 {
		nvr = nvr[:65]
	}
	name66 := make([]byte, 66)
	copy(name66, nvr)
	b = append(b, name66...)

	b = append(b, 0x00, 0x01) // osnum: linux
	b = append(b, 0x00, 0x05) // signature type: header-style
	b = append(b, make([]byte, 16)...)
	return b
}

// decodeLead validates and strips the leading 96-byte lead from b,
// returning the package's embedded NVR string (trailing NULs trimmed).
func decodeLead(b []byte) (nvr string, rest []byte, err error) {
	if len(b) < leadLen {
		return "", nil, errors.Wrap(ErrInvalidLead, "input shorter than lead")
	}
	if [4]byte{b[0], b[1], b[2], b[3]} != leadMagic {
		return "", nil, errors.Wrap(ErrInvalidLead, "bad magic")
	}
	name := b[10:76]
	end := len(name)
	for i, c := range name {
		if c == 0 {
			end = i
			break
		}
	}
	return string(name[:end]), b[leadLen:], nil
}
