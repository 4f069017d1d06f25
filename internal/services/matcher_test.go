package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLCSLength_Identity(t *testing.T) {
	for _, s := range []string{"", "a", "longsword", "potion of healing"} {
		assert.Equal(t, len(s), LCSLength(s, s), "score of a string against itself is its length: %q", s)
	}
}

func TestLCSLength_Symmetry(t *testing.T) {
	pairs := [][2]string{
		{"longsword", "shortsword"},
		{"rope", "robe"},
		{"abc", "xyz"},
		{"", "anything"},
	}
	for _, p := range pairs {
		assert.Equal(t, LCSLength(p[0], p[1]), LCSLength(p[1], p[0]))
	}
}

func TestLCSLength_KnownValues(t *testing.T) {
	assert.Equal(t, 0, LCSLength("abc", "xyz"))
	assert.Equal(t, 3, LCSLength("rope", "robe")) // "roe"
	assert.Equal(t, 5, LCSLength("sword", "shortsword"))
	assert.Equal(t, 4, LCSLength("abcbdab", "bdcaba"))
}

func TestLCS_Reconstruction(t *testing.T) {
	assert.Equal(t, "", LCS("abc", ""))
	assert.Equal(t, "sword", LCS("sword", "shortsword"))

	got := LCS("abcbdab", "bdcaba")
	assert.Len(t, got, LCSLength("abcbdab", "bdcaba"))
	assert.True(t, isSubsequence(got, "abcbdab"))
	assert.True(t, isSubsequence(got, "bdcaba"))
}

func isSubsequence(sub, s string) bool {
	i := 0
	for j := 0; i < len(sub) && j < len(s); j++ {
		if sub[i] == s[j] {
			i++
		}
	}
	return i == len(sub)
}

func TestLCSLength_SharedSubsequenceScoresHigh(t *testing.T) {
	// LCS length is not edit distance: a long corrupted string can outscore
	// a tight prefix match.
	assert.Greater(t,
		LCSLength("potion", "xpxoxtxixoxnx"),
		LCSLength("potion", "poti"))
}
