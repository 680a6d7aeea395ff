// Package randx implements the general-purpose random-string generator
// spec.md calls out as outside the reduction core — a Go rendition of
// utilities.c's urn()/random_string() pair (a uniform draw in [0,1] and
// a fixed-length string built by repeatedly indexing into an alphabet
// with it). Used only by internal/harness to fuzz identifier spellings
// in property tests; nothing in the reduction core imports this
// package.
package randx

import "math/rand"

// DefaultAlphabet mirrors the identifier alphabet the lexer accepts:
// letters plus the '$' the governing grammar allows as a letter.
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ$"

// Source is satisfied by *rand.Rand; callers pass a seeded instance so
// fuzz runs stay reproducible across retries.
type Source interface {
	Float64() float64
}

// NewSource returns a *rand.Rand seeded with seed, standing in for the
// original's erand48-backed urn().
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// String draws a length-l string from alphabet, one independent uniform
// pick per character, exactly as random_string(l, symbols) did.
func String(src Source, l int, alphabet string) string {
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	buf := make([]byte, l)
	base := len(alphabet)
	for i := 0; i < l; i++ {
		idx := int(src.Float64() * float64(base))
		if idx >= base {
			idx = base - 1
		}
		buf[i] = alphabet[idx]
	}
	return string(buf)
}

// Identifier draws a valid lambda-calculus identifier: a letter (or
// '$') followed by l-1 letters, truncated to nameLength the way the
// lexer itself truncates over-long spellings.
func Identifier(src Source, l, nameLength int) string {
	if l < 1 {
		l = 1
	}
	if l > nameLength {
		l = nameLength
	}
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ$"
	return String(src, l, letters)
}

// IntURN mirrors int_urn(from, to): a uniform integer in [from, to].
func IntURN(src Source, from, to int) int {
	return int(src.Float64()*float64(to-from+1)) + from
}
