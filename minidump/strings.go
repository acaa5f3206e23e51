package minidump

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/pkg/errors"
)

// readString reads a minidump string: a uint32 byte length followed by
// that many bytes of UTF-16 code units in the container's byte order.
func (md *Minidump) readString(rva uint64) (string, error) {
	lenBytes, err := md.readAt(rva, 4)
	if err != nil {
		return "", errors.Wrapf(err, "string length at rva 0x%x", rva)
	}
	byteLen := md.order.Uint32(lenBytes)
	if byteLen%2 != 0 {
		return "", errors.Errorf("odd UTF-16 string length %d at rva 0x%x", byteLen, rva)
	}
	if byteLen > maxStringBytes {
		return "", errors.Errorf("unreasonable string length %d at rva 0x%x", byteLen, rva)
	}
	raw, err := md.readAt(rva+4, byteLen)
	if err != nil {
		return "", errors.Wrapf(err, "string body at rva 0x%x", rva)
	}
	units := make([]uint16, byteLen/2)
	for i := range units {
		units[i] = md.order.Uint16(raw[2*i:])
	}
	return string(utf16.Decode(units)), nil
}

// readUTF8String reads a Crashpad UTF-8 string: a uint32 byte length
// followed by that many bytes (the trailing NUL is not counted).
func (md *Minidump) readUTF8String(rva uint64) (string, error) {
	lenBytes, err := md.readAt(rva, 4)
	if err != nil {
		return "", errors.Wrapf(err, "utf8 string length at rva 0x%x", rva)
	}
	byteLen := md.order.Uint32(lenBytes)
	if byteLen > maxStringBytes {
		return "", errors.Errorf("unreasonable string length %d at rva 0x%x", byteLen, rva)
	}
	raw, err := md.readAt(rva+4, byteLen)
	if err != nil {
		return "", errors.Wrapf(err, "utf8 string body at rva 0x%x", rva)
	}
	return string(raw), nil
}

// maxStringBytes bounds string reads so a corrupt length field cannot
// trigger a huge allocation.
const maxStringBytes = 1 << 20

// utf16Fixed converts a fixed-size UTF-16 array (assertion info strings)
// to a Go string, stopping at the first NUL.
func utf16Fixed(units []uint16) string {
	for i, u := range units {
		if u == 0 {
			units = units[:i]
			break
		}
	}
	return string(utf16.Decode(units))
}

// String renders the GUID in the conventional dashed form.
func (g GUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		g.Data1, g.Data2, g.Data3,
		g.Data4[0], g.Data4[1],
		g.Data4[2], g.Data4[3], g.Data4[4], g.Data4[5], g.Data4[6], g.Data4[7])
}

// compact renders the GUID as 32 uppercase hex digits with no dashes,
// the form used inside debug identifiers.
func (g GUID) compact() string {
	return fmt.Sprintf("%08X%04X%04X%02X%02X%02X%02X%02X%02X%02X%02X",
		g.Data1, g.Data2, g.Data3,
		g.Data4[0], g.Data4[1],
		g.Data4[2], g.Data4[3], g.Data4[4], g.Data4[5], g.Data4[6], g.Data4[7])
}

// guidFromBytes builds a GUID from 16 raw bytes using the container's
// byte order for the integer-valued fields.
func guidFromBytes(b []byte, order binary.ByteOrder) GUID {
	var g GUID
	g.Data1 = order.Uint32(b[0:4])
	g.Data2 = order.Uint16(b[4:6])
	g.Data3 = order.Uint16(b[6:8])
	copy(g.Data4[:], b[8:16])
	return g
}
