//go:build !windows

package crypto

import "golang.org/x/sys/unix"

// mlock pins data in RAM so key material is never swapped. It reports success.
func mlock(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return unix.Mlock(data) == nil
}

func munlock(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Munlock(data)
}
