package quadkey

import (
	"errors"
	"fmt"

	"github.com/pdok/quadkey/tilesystem"
)

var (
	ErrInvalidKey     = errors.New("invalid quadkey")
	ErrTileOutOfRange = errors.New("tile out of range")
)

// InvalidKeyError tells why a digit string is not a quadkey. It matches ErrInvalidKey with errors.Is.
type InvalidKeyError struct {
	Key    string
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf(`invalid quadkey "%v": %v`, e.Key, e.Reason)
}

func (e *InvalidKeyError) Unwrap() error {
	return ErrInvalidKey
}

// ContractViolation is panicked on programmer errors, e.g. FromGeo with a level outside [MinLevel, MaxLevel]
type ContractViolation = tilesystem.ContractViolation
