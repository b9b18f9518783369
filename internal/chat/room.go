package chat

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// RoomID derives the room identifier for a pair of users. It is commutative
// and deterministic, so two independently connecting clients converge on the
// same room without any handshake.
func RoomID(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	sum := sha256.Sum256([]byte(x + "_" + y))
	return hex.EncodeToString(sum[:])
}
