package account

import (
	"bytes"
	"crypto/sha256"
	"fmt"
)

const discriminatorLength = 8

// NewDiscriminator returns the 8 byte Anchor prefix for an account type or, when isAccount is false,
// for an instruction in the program's global namespace.
func NewDiscriminator(name string, isAccount bool) [discriminatorLength]byte {
	var sum [32]byte
	if isAccount {
		sum = sha256.Sum256([]byte("account:" + name))
	} else {
		sum = sha256.Sum256([]byte("global:" + name))
	}

	var d [discriminatorLength]byte
	copy(d[:], sum[:discriminatorLength])
	return d
}

var (
	CandyMachineDiscriminator   = NewDiscriminator("CandyMachine", true)
	AddConfigLinesDiscriminator = NewDiscriminator("add_config_lines", false)
)

func checkDiscriminator(data []byte, want [discriminatorLength]byte) error {
	if len(data) < discriminatorLength {
		return fmt.Errorf("%w: account data is %d bytes", ErrInvalidAccountData, len(data))
	}
	if !bytes.Equal(data[:discriminatorLength], want[:]) {
		return fmt.Errorf("%w: invalid discriminator expected %x got %x", ErrInvalidAccountData, want, data[:discriminatorLength])
	}
	return nil
}
