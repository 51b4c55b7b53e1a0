package cryptoutils

// Zero overwrites b in place. Key material is scrubbed with this before any
// reference is dropped, so a locked vault leaves no key bytes behind.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
