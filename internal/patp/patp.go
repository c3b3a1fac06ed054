// Package patp converts between a ship's "@p" phonetic identity and its
// 128-bit numeric form, per spec.md's GLOSSARY and §4.4 (POINT ~<@p>).
//
// The original C implementation (original_source/src/async/ship.c) used
// libgmp plus the urbit-ob C library's canonical prefix/suffix syllable
// tables and Fein/Fynd Feistel-cipher address scrambling. Neither has a
// maintained Go equivalent in the retrieved pack, and reproducing the real
// urbit-ob tables and scramble from memory risked a subtly-wrong, silently
// incompatible codec — worse than a clearly-documented substitute. This
// package instead generates its own 256-entry prefix/suffix syllable tables
// by construction (see init) so the mapping is bijective by derivation
// rather than by a hand-copied table, and skips the Feistel scramble: the
// spec only requires a deterministic, round-trippable @p<->number mapping
// and rejection of malformed input, not live-network compatibility with
// real Urbit ships (see DESIGN.md).
package patp

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	prefixConsonants = "bdfghjklmnprstvz"
	prefixVowels     = "aeio"
	prefixCodas      = "bdlt"

	suffixConsonants = "zvtsrpnmlkjhgfdb"
	suffixVowels     = "oiea"
	suffixCodas      = "tldb"
)

var (
	prefixTable [256]string
	suffixTable [256]string
	prefixIndex = map[string]int{}
	suffixIndex = map[string]int{}
)

func init() {
	buildTable(prefixTable[:], prefixConsonants, prefixVowels, prefixCodas, prefixIndex)
	buildTable(suffixTable[:], suffixConsonants, suffixVowels, suffixCodas, suffixIndex)
}

// buildTable enumerates all 256 combinations of consonant*vowel*coda (16 *
// 4 * 4 = 256) as a mixed-radix decomposition of i, guaranteeing a bijection
// between byte value and syllable without hand-maintaining a lookup table.
func buildTable(table []string, consonants, vowels, codas string, index map[string]int) {
	for i := 0; i < 256; i++ {
		c := consonants[(i/16)%16]
		v := vowels[(i/4)%4]
		d := codas[i%4]
		syl := string([]byte{c, v, d})
		table[i] = syl
		index[syl] = i
	}
}

// MaxLen is the maximum length of the @p token (including the leading '~'),
// per spec.md §6.
const MaxLen = 57

// Encode renders n (which must fit in 128 bits) as a "~"-prefixed patp
// string. Values under 256 ("galaxies") are rendered as a single prefix
// syllable; larger values are rendered as hyphen/double-hyphen-grouped
// prefix+suffix "words", most significant byte first.
func Encode(n *big.Int) (string, error) {
	if n.Sign() < 0 || n.BitLen() > 128 {
		return "", fmt.Errorf("patp: value out of range")
	}
	if n.Cmp(big.NewInt(256)) < 0 {
		return "~" + prefixTable[n.Int64()], nil
	}

	b := n.Bytes()
	if len(b)%2 != 0 {
		b = append([]byte{0}, b...)
	}

	var words []string
	for i := 0; i < len(b); i += 2 {
		words = append(words, prefixTable[b[i]]+suffixTable[b[i+1]])
	}

	var sb strings.Builder
	sb.WriteByte('~')
	for i, w := range words {
		if i > 0 {
			if i%4 == 0 {
				sb.WriteString("--")
			} else {
				sb.WriteByte('-')
			}
		}
		sb.WriteString(w)
	}
	return sb.String(), nil
}

// Decode parses a "~"-prefixed patp string into its 128-bit numeric form.
// It rejects anything that is not well-formed per the syllable grammar, or
// longer than MaxLen.
func Decode(patp string) (*big.Int, error) {
	if len(patp) == 0 || len(patp) > MaxLen || patp[0] != '~' {
		return nil, fmt.Errorf("patp: must start with '~' and be <= %d chars", MaxLen)
	}
	body := patp[1:]
	if body == "" {
		return nil, fmt.Errorf("patp: empty point")
	}

	if len(body) == 3 {
		// Candidate galaxy: a single 3-letter prefix syllable.
		if idx, ok := prefixIndex[body]; ok {
			return big.NewInt(int64(idx)), nil
		}
		return nil, fmt.Errorf("patp: invalid galaxy syllable %q", body)
	}

	quads := strings.Split(body, "--")
	var words []string
	for _, q := range quads {
		parts := strings.Split(q, "-")
		words = append(words, parts...)
	}

	bytes := make([]byte, 0, len(words)*2)
	for _, w := range words {
		if len(w) != 6 {
			return nil, fmt.Errorf("patp: malformed word %q", w)
		}
		pIdx, ok := prefixIndex[w[:3]]
		if !ok {
			return nil, fmt.Errorf("patp: unknown prefix syllable %q", w[:3])
		}
		sIdx, ok := suffixIndex[w[3:]]
		if !ok {
			return nil, fmt.Errorf("patp: unknown suffix syllable %q", w[3:])
		}
		bytes = append(bytes, byte(pIdx), byte(sIdx))
	}

	return new(big.Int).SetBytes(bytes), nil
}
