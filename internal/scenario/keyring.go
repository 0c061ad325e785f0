package scenario

import (
	"crypto/ed25519"
	"crypto/sha256"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Keyring hands out deterministic keypairs by name, so a scenario replays
// to the same addresses every time.
type Keyring struct {
	mu   sync.RWMutex
	keys map[string]solana.PrivateKey
}

func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[string]solana.PrivateKey)}
}

func (k *Keyring) Get(name string) solana.PrivateKey {
	k.mu.RLock()
	key, ok := k.keys[name]
	k.mu.RUnlock()
	if ok {
		return key
	}

	seed := sha256.Sum256([]byte("solarpool/" + name))
	key = solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:]))

	k.mu.Lock()
	k.keys[name] = key
	k.mu.Unlock()
	return key
}

func (k *Keyring) PublicKey(name string) solana.PublicKey {
	return k.Get(name).PublicKey()
}
