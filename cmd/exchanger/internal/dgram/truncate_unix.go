//go:build unix

package dgram

import "golang.org/x/sys/unix"

func truncated(flags int) bool {
	return flags&unix.MSG_TRUNC != 0
}
