//go:build !unix

package dgram

// Platforms without MSG_TRUNC in the recvmsg flags cannot tell a truncated
// datagram apart from one that filled the buffer exactly.
func truncated(flags int) bool {
	return false
}
