package domain

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/google/uuid"
)

// weakReader feeds uuid with bytes from math/rand. IDs only need to be
// probabilistically unique inside one local database.
type weakReader struct{}

func (weakReader) Read(p []byte) (int, error) {
	var buf [8]byte
	for i := 0; i < len(p); i += 8 {
		binary.LittleEndian.PutUint64(buf[:], rand.Uint64())
		copy(p[i:], buf[:])
	}
	return len(p), nil
}

// NewID returns a 36 character RFC4122 version 4 identifier.
func NewID() string {
	id, err := uuid.NewRandomFromReader(weakReader{})
	if err != nil {
		// weakReader never fails
		panic(err)
	}
	return id.String()
}
