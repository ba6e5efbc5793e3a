// Package candymachine holds the static configuration shared by the candy machine tooling: program
// ids, schema limits, defaults and console prefixes. Nothing here is mutable at runtime.
package candymachine

import (
	"slices"

	"github.com/gagliardetto/solana-go"
)

var (
	// MetaplexProgramID is the token metadata program.
	MetaplexProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	// CandyMachineProgramID is the candy machine v2 program that owns the account layout in layout.Default.
	CandyMachineProgramID = solana.MustPublicKeyFromBase58("cndy3Z4yapfJBmL3ShUp5exZKqR3z33thTzeNMm2gRZ")
	// CivicProgramID is the Civic gateway program.
	CivicProgramID = solana.MustPublicKeyFromBase58("gatem74V238djXdzWnJf94Wo1DcnuGkfijbf3AuBhfs")
	CivicNetwork   = solana.MustPublicKeyFromBase58("ignREusXmGrscGNUesoU9mxfds9AiYTezUKex2PsZV6")
	EncoreNetwork  = solana.MustPublicKeyFromBase58("tibePmPaoTgrs929rWpu755EXaxC7M3SthVCf6GzjZt")
)

// Token metadata limits. Changing any of these moves every offset computed by the layout package.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
	MaxCreatorLimit = 5
	MaxCreatorLen   = 32 + 1 + 1
)

const (
	StringLenSize   = 4
	ConfigChunkSize = 10
	MintLayout      = 82
	ComputeUnits    = 400_000
	MaxFreezeDays   = 31

	// ParallelLimit caps concurrent tasks that hold files or network connections.
	ParallelLimit = 45
)

const (
	DefaultUUID        = "000000"
	DefaultAssets      = "assets"
	DefaultCache       = "cache.json"
	DefaultConfig      = "config.json"
	DefaultAirdropList = "airdrop_list.json"
	DefaultKeypath     = "~/.config/solana/id.json"

	DefaultAirdropListHelp = "Path to airdrop targets list, format: \n{\n\"address1\": number_of_tokens,\n\"address2\": number_of_tokens\n}\n"

	BundlrDevnet  = "https://devnet.bundlr.network"
	BundlrMainnet = "https://node1.bundlr.network"
)

var validCategories = []string{"image", "video", "audio", "vr", "html"}

// ValidCategories returns the asset categories accepted in metadata.
func ValidCategories() []string {
	return slices.Clone(validCategories)
}

func IsValidCategory(category string) bool {
	return slices.Contains(validCategories, category)
}

// Console prefixes.
const (
	LookingGlassEmoji = "🔍 "
	CandyEmoji        = "🍬 "
	ComputerEmoji     = "🖥  "
	PaperEmoji        = "📝 "
	ConfettiEmoji     = "🎉 "
	PaymentEmoji      = "💵 "
	UploadEmoji       = "📤 "
	WithdrawEmoji     = "🏧 "
	AssetsEmoji       = "🗂  "
	CompleteEmoji     = "✅ "
	LaunchEmoji       = "🚀 "
	CollectionEmoji   = "📦 "
	ErrorEmoji        = "🛑 "
	WarningEmoji      = "⚠️ "
	SigningEmoji      = "✍️ "
	IceCubeEmoji      = "🧊 "
	FireEmoji         = "🔥 "
	RightArrowEmoji   = "➡️ "
	MoneyBagEmoji     = "💰 "
	GuardEmoji        = "🛡  "
	WrapEmoji         = "📦 "
	UnwrapEmoji       = "🔩 "
)
