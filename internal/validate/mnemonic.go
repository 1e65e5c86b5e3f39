package validate

import (
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// Predicate reports whether a trimmed line of text is valid. It must
// be deterministic and side-effect free; workers call it concurrently.
type Predicate func(text string) bool

// Mnemonic reports whether the text is a valid BIP39 mnemonic phrase
// (12/15/18/21/24 words with a correct checksum). Input is normalized
// the way wallets accept it: case-insensitive, any run of whitespace
// between words.
func Mnemonic(text string) bool {
	return bip39.IsMnemonicValid(normalize(text))
}

func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
