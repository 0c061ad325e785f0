package config

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ParsePublicKeys converts base58 strings into public keys. Blank entries are skipped.
func ParsePublicKeys(inputs []string) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		key, err := solana.PublicKeyFromBase58(input)
		if err != nil {
			return nil, fmt.Errorf("invalid public key: %s", input)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ParseProgramID returns fallback when input is blank.
func ParseProgramID(input string, fallback solana.PublicKey) (solana.PublicKey, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return fallback, nil
	}
	key, err := solana.PublicKeyFromBase58(input)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program id: %s", input)
	}
	return key, nil
}
