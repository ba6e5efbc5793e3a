// Package layout derives the byte layout of a candy machine account from its schema limits.
//
// Every offset comes from one ordered field table folded in a single pass, so adding, removing or
// resizing a field moves everything after it. The table order is the order the program reserves
// space in; it must never be reordered for an already deployed program.
package layout

import (
	"fmt"
	"slices"

	"github.com/miraland-labs/sugar/pkg/candymachine"
)

const (
	// MaxAccountSize is the largest account the ledger allows (10 MiB).
	MaxAccountSize = 10 * 1024 * 1024

	discriminatorSize = 8
	publicKeySize     = 32
	stringLenSize     = candymachine.StringLenSize
	lineCountSize     = 4
)

// Schema holds the limits every variable-length field is sized against.
type Schema struct {
	MaxNameLength   int
	MaxSymbolLength int
	MaxURILength    int
	MaxCreatorLimit int
	MaxCreatorLen   int
}

func DefaultSchema() Schema {
	return Schema{
		MaxNameLength:   candymachine.MaxNameLength,
		MaxSymbolLength: candymachine.MaxSymbolLength,
		MaxURILength:    candymachine.MaxURILength,
		MaxCreatorLimit: candymachine.MaxCreatorLimit,
		MaxCreatorLen:   candymachine.MaxCreatorLen,
	}
}

func (s Schema) validate() error {
	if s.MaxNameLength <= 0 || s.MaxSymbolLength <= 0 || s.MaxURILength <= 0 {
		return fmt.Errorf("string limits must be positive: name=%d symbol=%d uri=%d", s.MaxNameLength, s.MaxSymbolLength, s.MaxURILength)
	}
	if s.MaxCreatorLimit < 0 || s.MaxCreatorLen <= 0 {
		return fmt.Errorf("invalid creator limits: limit=%d len=%d", s.MaxCreatorLimit, s.MaxCreatorLen)
	}
	return nil
}

// Field is one entry of the account header. Width is evaluated against the schema being laid out.
type Field struct {
	Name  string
	Width func(Schema) int
}

func fixed(n int) func(Schema) int { return func(Schema) int { return n } }

// fields is the header of the account up to the config line region, in on-chain order.
var fields = []Field{
	{"key", fixed(discriminatorSize)},
	{"authority", fixed(publicKeySize)},
	{"wallet", fixed(publicKeySize)},
	{"token_mint", fixed(1 + publicKeySize)},
	{"uuid", fixed(stringLenSize + len(candymachine.DefaultUUID))},
	{"price", fixed(8)},
	{"items_available", fixed(8)},
	{"go_live_date", fixed(1 + 8)},
	{"end_settings", fixed(1 + 1 + 8)},
	{"symbol", func(s Schema) int { return stringLenSize + s.MaxSymbolLength }},
	{"seller_fee_basis_points", fixed(2)},
	{"creators", func(s Schema) int { return stringLenSize + s.MaxCreatorLimit*s.MaxCreatorLen }},
	{"max_supply", fixed(8)},
	{"is_mutable", fixed(1)},
	{"retain_authority", fixed(1)},
	{"hidden_settings", fixed(1)},
	{"hidden_settings.name", func(s Schema) int { return stringLenSize + s.MaxNameLength }},
	{"hidden_settings.uri", func(s Schema) int { return stringLenSize + s.MaxURILength }},
	{"hidden_settings.hash", fixed(32)},
	{"max_number_of_lines", fixed(4)},
	{"items_redeemed", fixed(8)},
	{"whitelist_mint_settings", fixed(1)},
	{"whitelist_mint_settings.mode", fixed(1)},
	{"whitelist_mint_settings.presale", fixed(1)},
	{"whitelist_mint_settings.discount_price", fixed(1 + 8)},
	{"whitelist_mint_settings.mint", fixed(publicKeySize)},
	{"gatekeeper", fixed(1 + publicKeySize + 1)},
}

// Fields returns a copy of the header field table in on-chain order.
func Fields() []Field {
	return slices.Clone(fields)
}

// Layout is the derived addressing scheme of a candy machine account.
type Layout struct {
	Schema Schema

	// ConfigArrayStart is where the config line region begins; the u32 line count sits here.
	ConfigArrayStart int
	// ConfigLineSize is the fixed width of one config line slot.
	ConfigLineSize int
	// ConfigNameOffset and ConfigURIOffset locate the string bytes inside a slot.
	ConfigNameOffset int
	ConfigURIOffset  int

	offsets map[string]int
}

// Default is the layout of the deployed candy machine v2 program.
var Default = MustCompute(DefaultSchema())

// Compute folds the field table into a Layout. It fails when the schema is invalid or the header
// alone would not fit in a ledger account.
func Compute(schema Schema) (Layout, error) {
	if err := schema.validate(); err != nil {
		return Layout{}, err
	}

	l := Layout{
		Schema:  schema,
		offsets: make(map[string]int, len(fields)),
	}

	offset := 0
	for _, f := range fields {
		l.offsets[f.Name] = offset
		offset += f.Width(schema)
	}
	l.ConfigArrayStart = offset

	l.ConfigNameOffset = stringLenSize
	l.ConfigURIOffset = l.ConfigNameOffset + schema.MaxNameLength + stringLenSize
	l.ConfigLineSize = l.ConfigURIOffset + schema.MaxURILength

	if size := l.ConfigArrayStart + lineCountSize; size > MaxAccountSize {
		return Layout{}, fmt.Errorf("account header needs %d bytes, exceeds max account size %d", size, MaxAccountSize)
	}
	return l, nil
}

func MustCompute(schema Schema) Layout {
	l, err := Compute(schema)
	if err != nil {
		panic(err)
	}
	return l
}

// Offset returns where a header field's reserved space starts. Optional fields are compact when
// serialized, so for a live account only offsets up to and including token_mint are exact; the rest
// describe the maximum-space reservation.
func (l Layout) Offset(field string) (int, bool) {
	o, ok := l.offsets[field]
	return o, ok
}

// Address is the absolute offset of config line slot index inside the account. index must not be
// negative; callers holding an untrusted index go through configline.Codec.DecodeAt.
func (l Layout) Address(index int) uint64 {
	if index < 0 {
		panic(fmt.Sprintf("layout: negative config line index %d", index))
	}
	return uint64(l.ConfigArrayStart) + lineCountSize + uint64(index)*uint64(l.ConfigLineSize) //nolint:gosec // checked above
}

// Index is the inverse of Address. Offsets that do not start a slot are rejected.
func (l Layout) Index(offset uint64) (int, error) {
	base := uint64(l.ConfigArrayStart) + lineCountSize
	if offset < base {
		return 0, fmt.Errorf("offset %d is before the config line region (%d)", offset, base)
	}
	rel := offset - base
	if rel%uint64(l.ConfigLineSize) != 0 {
		return 0, fmt.Errorf("offset %d is not aligned to a config line slot of %d bytes", offset, l.ConfigLineSize)
	}
	return int(rel / uint64(l.ConfigLineSize)), nil
}

// AccountSize is the space to allocate for a machine holding items config lines: the header, the
// line count, the lines, and the mint bitmask that follows them. Machines using hidden settings store
// no lines and need only the header.
func (l Layout) AccountSize(items int, hiddenSettings bool) int {
	if hiddenSettings {
		return l.ConfigArrayStart
	}
	return l.ConfigArrayStart + lineCountSize + items*l.ConfigLineSize + 8 + 2*(items/8+1)
}

// MaxItems is how many config lines fit in the largest allowed account.
func (l Layout) MaxItems() int {
	n := (MaxAccountSize - l.ConfigArrayStart - lineCountSize - 8 - 2) / l.ConfigLineSize
	for n > 0 && l.AccountSize(n, false) > MaxAccountSize {
		n--
	}
	return n
}
