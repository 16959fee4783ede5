package patch

import (
	"bytes"
	"os"
)

// qtPrefixKeys are the embedded path variables Qt6Core.dll resolves its
// installation from. Pointing them at "." makes the DLL look next to the
// executable, where qt.conf takes over.
var qtPrefixKeys = []string{"qt_prfxpath=", "qt_epfxpath=", "qt_hpfxpath="}

// PatchQtCoreDLL rewrites the embedded prefix values inside a staged
// Qt6Core.dll to "." in place, both in their 8-bit and UTF-16LE encodings.
// Values are overwritten and zero-filled up to their original length; the
// file size never changes. Returns whether any byte changed.
func PatchQtCoreDLL(path string) (bool, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if len(buf) == 0 {
		return false, nil
	}

	changed := false
	for _, key := range qtPrefixKeys {
		if patchKeyOccurrences(buf, []byte(key), []byte("."), 1) {
			changed = true
		}
		if patchKeyOccurrences(buf, utf16leBytes(key), utf16leBytes("."), 2) {
			changed = true
		}
	}

	if !changed {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, buf, info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

// patchKeyOccurrences patches every occurrence of key in buf. The value
// starts right after the key and ends at the first zero terminator aligned
// to stride. A value shorter than the replacement is left alone; the value
// length is never extended.
func patchKeyOccurrences(buf, key, replacement []byte, stride int) bool {
	changed := false
	pos := 0
	for {
		idx := bytes.Index(buf[pos:], key)
		if idx < 0 {
			break
		}
		pos += idx
		valStart := pos + len(key)

		scan := valStart
		for scan+stride <= len(buf) && !isZeroUnit(buf, scan, stride) {
			scan += stride
		}
		if scan <= valStart {
			pos = valStart
			continue
		}
		valLen := scan - valStart

		if valLen >= len(replacement) {
			if patchValue(buf[valStart:valStart+valLen], replacement) {
				changed = true
			}
		}
		pos = scan
	}
	return changed
}

func isZeroUnit(buf []byte, off, stride int) bool {
	for i := 0; i < stride; i++ {
		if buf[off+i] != 0 {
			return false
		}
	}
	return true
}

// patchValue overwrites val with replacement plus zero fill, but only when
// that actually changes bytes
func patchValue(val, replacement []byte) bool {
	needChange := false
	for i, b := range replacement {
		if val[i] != b {
			needChange = true
			break
		}
	}
	if !needChange {
		for i := len(replacement); i < len(val); i++ {
			if val[i] != 0 {
				needChange = true
				break
			}
		}
	}
	if !needChange {
		return false
	}
	copy(val, replacement)
	for i := len(replacement); i < len(val); i++ {
		val[i] = 0
	}
	return true
}

// utf16leBytes encodes an ASCII string as UTF-16LE
func utf16leBytes(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r&0xFF), byte(r>>8))
	}
	return out
}
