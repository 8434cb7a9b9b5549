package server

import "math/rand/v2"

// Room codes come from a non-cryptographic source; ambiguous characters are
// excluded. Collisions are handled by the create retry loop, not here.
func newRoomCode(length int) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	if length <= 0 {
		length = 5
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(buf)
}
