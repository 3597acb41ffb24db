package entities

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// DrawSeedSize is the number of random bytes behind each draw
const DrawSeedSize = 32

// GenerateDrawSeed returns a cryptographically random draw seed
func GenerateDrawSeed() ([]byte, error) {
	seed := make([]byte, DrawSeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to generate draw seed: %w", err)
	}
	return seed, nil
}

// DrawResult is the outcome of selecting a winner among sold numbers
type DrawResult struct {
	WinnerIndex  int
	WinnerNumber int64
	Proof        string
}

// SelectWinner picks the winning number among soldNumbers (ascending) using seed.
// The index is the seed, read as a big-endian integer, modulo the count.
func SelectWinner(raffleID int64, soldNumbers []int64, seed []byte) (*DrawResult, error) {
	if len(soldNumbers) == 0 {
		return nil, fmt.Errorf("cannot draw without sold numbers")
	}
	if len(seed) == 0 {
		return nil, fmt.Errorf("cannot draw without a seed")
	}

	index := winnerIndex(seed, len(soldNumbers))
	return &DrawResult{
		WinnerIndex:  index,
		WinnerNumber: soldNumbers[index],
		Proof:        fmt.Sprintf("sha256:%s;seed:%s", drawDigest(raffleID, soldNumbers, seed), hex.EncodeToString(seed)),
	}, nil
}

// VerifyDrawProof recomputes a draw from its proof and checks it selects winnerNumber
func VerifyDrawProof(raffleID int64, soldNumbers []int64, winnerNumber int64, proof string) bool {
	digest, seed, ok := parseDrawProof(proof)
	if !ok || len(soldNumbers) == 0 {
		return false
	}
	if drawDigest(raffleID, soldNumbers, seed) != digest {
		return false
	}
	return soldNumbers[winnerIndex(seed, len(soldNumbers))] == winnerNumber
}

func winnerIndex(seed []byte, count int) int {
	n := new(big.Int).SetBytes(seed)
	return int(n.Mod(n, big.NewInt(int64(count))).Int64())
}

func drawDigest(raffleID int64, soldNumbers []int64, seed []byte) string {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(raffleID))
	h.Write(buf[:])
	for _, n := range soldNumbers {
		binary.BigEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	h.Write(seed)
	return hex.EncodeToString(h.Sum(nil))
}

func parseDrawProof(proof string) (digest string, seed []byte, ok bool) {
	digestPart, seedPart, found := strings.Cut(proof, ";")
	if !found {
		return "", nil, false
	}
	digest, found = strings.CutPrefix(digestPart, "sha256:")
	if !found {
		return "", nil, false
	}
	seedHex, found := strings.CutPrefix(seedPart, "seed:")
	if !found {
		return "", nil, false
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil || len(seed) == 0 {
		return "", nil, false
	}
	return digest, seed, true
}
