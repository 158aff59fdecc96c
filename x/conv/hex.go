// Package conv formats numbers into caller-supplied buffers without fmt or
// strconv, for error strings built on the MCU.
package conv

const hexd = "0123456789ABCDEF"

// U8Hex writes n as two uppercase hex digits at the end of buf and returns
// them. A buf shorter than 2 yields an empty slice.
func U8Hex(buf []byte, n uint8) []byte {
	if len(buf) < 2 {
		return buf[:0]
	}
	i := len(buf) - 2
	buf[i] = hexd[n>>4]
	buf[i+1] = hexd[n&0xF]
	return buf[i:]
}
