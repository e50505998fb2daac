package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Room codes are shared out-of-band (read aloud, pasted into chat), so the
// alphabet drops 0/1/I/O and lowercase to avoid transcription mistakes.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6

	// ~30^6 codes make collisions negligible; the cap is there so a broken
	// random source cannot spin the dispatch loop forever.
	maxCodeAttempts = 100
)

func generateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
