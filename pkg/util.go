package pkg

import "unsafe"

// BytesToString converts a byte slice to a string without an extra allocation.
// The caller must not mutate buf afterwards.
func BytesToString(buf []byte) string {
	return *(*string)(unsafe.Pointer(&buf))
}
