// Package account models the candy machine v2 account and the add_config_lines instruction.
//
// The header is Borsh encoded, where options take one byte when empty, so header fields are decoded
// rather than addressed by offset. Only the config line region starts at a fixed offset
// (see layout.Layout.ConfigArrayStart).
package account

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/miraland-labs/sugar/pkg/candymachine"
	"github.com/miraland-labs/sugar/pkg/candymachine/configline"
	"github.com/miraland-labs/sugar/pkg/candymachine/layout"
)

var (
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

type EndSettingType uint8

const (
	EndSettingDate EndSettingType = iota
	EndSettingAmount
)

type WhitelistMintMode uint8

const (
	WhitelistBurnEveryTime WhitelistMintMode = iota
	WhitelistNeverBurn
)

type CandyMachine struct {
	Authority     solana.PublicKey
	Wallet        solana.PublicKey
	TokenMint     *solana.PublicKey `bin:"optional"`
	ItemsRedeemed uint64
	Data          CandyMachineData
}

type CandyMachineData struct {
	UUID                  string
	Price                 uint64
	Symbol                string
	SellerFeeBasisPoints  uint16
	MaxSupply             uint64
	IsMutable             bool
	RetainAuthority       bool
	GoLiveDate            *int64       `bin:"optional"`
	EndSettings           *EndSettings `bin:"optional"`
	Creators              []Creator
	HiddenSettings        *HiddenSettings        `bin:"optional"`
	WhitelistMintSettings *WhitelistMintSettings `bin:"optional"`
	ItemsAvailable        uint64
	Gatekeeper            *GatekeeperConfig `bin:"optional"`
}

type EndSettings struct {
	EndSettingType EndSettingType
	Number         uint64
}

type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8
}

type HiddenSettings struct {
	Name string
	URI  string
	Hash [32]byte
}

type WhitelistMintSettings struct {
	Mode          WhitelistMintMode
	Mint          solana.PublicKey
	Presale       bool
	DiscountPrice *uint64 `bin:"optional"`
}

type GatekeeperConfig struct {
	GatekeeperNetwork solana.PublicKey
	ExpireOnUse       bool
}

// Decode parses raw account data, discriminator included.
func Decode(data []byte) (*CandyMachine, error) {
	if err := checkDiscriminator(data, CandyMachineDiscriminator); err != nil {
		return nil, err
	}

	var cm CandyMachine
	if err := bin.NewBorshDecoder(data[discriminatorLength:]).Decode(&cm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccountData, err)
	}
	return &cm, nil
}

// ConfigLineCount reads the number of config lines written to the account, which sits at the start of
// the config line region rather than in the header.
func ConfigLineCount(data []byte, l layout.Layout) (uint32, error) {
	if err := checkDiscriminator(data, CandyMachineDiscriminator); err != nil {
		return 0, err
	}
	return configline.NewCodec(l).Count(data)
}

// Encode is the inverse of Decode. The result is the header only; the program reserves the
// remaining space, see layout.Layout.AccountSize.
func Encode(cm *CandyMachine) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(CandyMachineDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(cm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type addConfigLinesArgs struct {
	Index       uint32
	ConfigLines []configLineArg
}

type configLineArg struct {
	Name string
	URI  string
}

// NewAddConfigLinesInstruction writes lines into candyMachine starting at line index. The program
// pads each line to its fixed slot; the instruction carries the compact strings.
func NewAddConfigLinesInstruction(candyMachine, authority solana.PublicKey, index uint32, lines []configline.ConfigLine) (solana.Instruction, error) {
	args := addConfigLinesArgs{
		Index:       index,
		ConfigLines: make([]configLineArg, len(lines)),
	}
	for i, l := range lines {
		args.ConfigLines[i] = configLineArg{Name: l.Name, URI: l.URI}
	}

	buf := new(bytes.Buffer)
	buf.Write(AddConfigLinesDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInstructionData, err)
	}

	return solana.NewInstruction(
		candymachine.CandyMachineProgramID,
		solana.AccountMetaSlice{
			solana.Meta(candyMachine).WRITE(),
			solana.Meta(authority).SIGNER(),
		},
		buf.Bytes(),
	), nil
}

// DecodeAddConfigLines parses the data of an add_config_lines instruction.
func DecodeAddConfigLines(data []byte) (uint32, []configline.ConfigLine, error) {
	if len(data) < discriminatorLength || !bytes.Equal(data[:discriminatorLength], AddConfigLinesDiscriminator[:]) {
		return 0, nil, fmt.Errorf("%w: not an add_config_lines instruction", ErrInvalidInstructionData)
	}

	var args addConfigLinesArgs
	if err := bin.NewBorshDecoder(data[discriminatorLength:]).Decode(&args); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrInvalidInstructionData, err)
	}

	lines := make([]configline.ConfigLine, len(args.ConfigLines))
	for i, l := range args.ConfigLines {
		lines[i] = configline.ConfigLine{Name: l.Name, URI: l.URI}
	}
	return args.Index, lines, nil
}
