package usecase

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// CodeLength is the number of digits in a one-time code.
const CodeLength = 6

var codeSpace = big.NewInt(1_000_000)

// Generator produces uniformly distributed numeric one-time codes.
type Generator struct {
	src io.Reader
}

// NewGenerator returns a Generator reading from src, or crypto/rand when src is nil.
func NewGenerator(src io.Reader) *Generator {
	if src == nil {
		src = rand.Reader
	}
	return &Generator{src: src}
}

// Generate returns a zero-padded 6-digit code. With crypto/rand as the
// source it does not fail.
func (g *Generator) Generate() (string, error) {
	n, err := rand.Int(g.src, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
