package configline

import (
	"errors"
	"fmt"
)

var (
	ErrLengthExceeded  = errors.New("config line field exceeds maximum length")
	ErrInvalidEncoding = errors.New("invalid config line encoding")
)

// LengthExceededError reports one oversized field of the config line at Index.
type LengthExceededError struct {
	Index  int
	Field  string
	Max    int
	Actual int
}

func (e *LengthExceededError) Error() string {
	return fmt.Sprintf("config line %d: %s is %d bytes, max %d", e.Index, e.Field, e.Actual, e.Max)
}

func (e *LengthExceededError) Is(target error) bool {
	return target == ErrLengthExceeded
}
