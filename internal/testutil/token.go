package testutil

import (
	"fmt"
	"sync/atomic"
)

// ConstantToken returns the same pass token every time, so repeated runs
// of one scenario log byte-identical pass records.
//
// Thread-safety: stateless and safe for concurrent use.
type ConstantToken struct {
	token string
}

// NewConstantToken creates the generator. An empty token becomes
// "test-pass-default".
func NewConstantToken(token string) ConstantToken {
	if token == "" {
		token = "test-pass-default"
	}
	return ConstantToken{token: token}
}

// Generate returns the fixed token.
func (g ConstantToken) Generate() string {
	return g.token
}

// SequenceToken numbers its tokens: prefix-1, prefix-2, ...
//
// Thread-safety: safe for concurrent use.
type SequenceToken struct {
	prefix string
	n      atomic.Int64
}

// NewSequenceToken creates the generator. An empty prefix becomes
// "test-pass".
func NewSequenceToken(prefix string) *SequenceToken {
	if prefix == "" {
		prefix = "test-pass"
	}
	return &SequenceToken{prefix: prefix}
}

// Generate returns the next token.
func (g *SequenceToken) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}
