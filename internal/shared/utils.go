// Package shared holds helpers used by both the client and the server.
package shared

// WipeByteArray overwrites b with zeros so that secrets such as passwords
// do not linger in memory after use. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
