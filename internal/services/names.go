package services

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/tyler-smith/go-bip39/wordlists"
)

// wordlist is the BIP39 English wordlist (2048 words).
var wordlist = wordlists.English

// NameService generates friendly display names for accounts registered
// without one, e.g. "HappyTiger42".
type NameService struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNameService creates a NameService with its own random source.
func NewNameService() *NameService {
	return &NameService{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateName returns a PascalCase name made of two words and a number.
// Names are not guaranteed unique; they are labels, not identifiers.
func (s *NameService) GenerateName() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	word1 := wordlist[s.rng.Intn(len(wordlist))]
	word2 := wordlist[s.rng.Intn(len(wordlist))]
	num := s.rng.Intn(100)
	return fmt.Sprintf("%s%s%d", capitalize(word1), capitalize(word2), num)
}

// capitalize returns the string with its first letter uppercased.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
