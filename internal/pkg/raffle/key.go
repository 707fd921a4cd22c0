package raffle

import (
	"encoding/base64"

	"github.com/google/uuid"
)

const KeyLength = 10

// GenerateKey returns a short join key cut from a random uuid.
func GenerateKey() string {
	encoded := base64.StdEncoding.EncodeToString([]byte(uuid.NewString()))
	return encoded[len(encoded)-KeyLength:]
}
