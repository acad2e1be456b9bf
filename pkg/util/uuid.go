package util

import (
	"github.com/google/uuid"
)

// UUIDGenerator is equal to the signature of the UUID library's UUID
// generation functions. It is used to generate transfer IDs.
type UUIDGenerator func() (uuid.UUID, error)

var (
	_ UUIDGenerator = uuid.NewRandom
	_ UUIDGenerator = uuid.NewUUID
)
