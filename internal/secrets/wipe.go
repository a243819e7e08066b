package secrets

import "github.com/awnumar/memguard"

// Wipe overwrites b with zeros. It is safe to call with a nil slice.
func Wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	memguard.WipeBytes(b)
}
