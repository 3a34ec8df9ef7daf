package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"
)

// DigestHexLen is the length of a hex-encoded SHA-256 digest.
const DigestHexLen = 64

// nullLeafMarker is the public constant whose digest pads odd leaf counts.
// Changing it changes every padded root, so it is versioned.
const nullLeafMarker = "lexato:merkle:null-leaf:v1"

var (
	nullLeafOnce   sync.Once
	nullLeafDigest string
)

// NullLeafDigest returns the digest used for padding leaves. Computed once
// and cached.
func NullLeafDigest() string {
	nullLeafOnce.Do(func() {
		nullLeafDigest = hashString(nullLeafMarker)
	})
	return nullLeafDigest
}

// Node is a single integrity-tree node. The tree owns all of its nodes; a
// leaf has no children, an internal node has exactly two (right may alias
// left under the duplication rule).
type Node struct {
	Digest  string
	Left    *Node
	Right   *Node
	Padding bool
	Source  string
}

// Tree is a binary hash tree over an immutable sequence of leaf digests.
// Built once via Build/BuildFromData; not mutable afterward.
type Tree struct {
	leaves        []*Node
	levels        [][]*Node
	root          *Node
	originalCount int
}

// Build constructs a tree over the given digests. Every digest must be a
// 64-char hex string; validation is case-insensitive and digests are
// normalized to lowercase. An empty sequence or a malformed digest yields
// ErrInvalidInput.
func Build(digests []string) (*Tree, error) {
	if len(digests) == 0 {
		return nil, fmt.Errorf("%w: empty digest sequence", ErrInvalidInput)
	}
	leaves := make([]*Node, 0, len(digests)+1)
	for i, d := range digests {
		normalized, err := NormalizeDigest(d)
		if err != nil {
			return nil, fmt.Errorf("leaf %d: %w", i, err)
		}
		leaves = append(leaves, &Node{Digest: normalized})
	}
	return build(leaves, len(digests))
}

// BuildFromData hashes each item and builds a tree over the resulting
// digests. Item source values are retained on the leaves.
func BuildFromData(items []string) (*Tree, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty item sequence", ErrInvalidInput)
	}
	leaves := make([]*Node, 0, len(items)+1)
	for _, item := range items {
		leaves = append(leaves, &Node{Digest: hashString(item), Source: item})
	}
	return build(leaves, len(items))
}

// BuildFromChunks digests each byte chunk and builds a tree over the
// per-chunk digests. Used for video artifacts processed in fixed windows.
func BuildFromChunks(chunks [][]byte) (*Tree, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: empty chunk sequence", ErrInvalidInput)
	}
	leaves := make([]*Node, 0, len(chunks)+1)
	for _, chunk := range chunks {
		sum := sha256.Sum256(chunk)
		leaves = append(leaves, &Node{Digest: hex.EncodeToString(sum[:])})
	}
	return build(leaves, len(chunks))
}

func build(leaves []*Node, originalCount int) (*Tree, error) {
	// Pad odd leaf counts (beyond the trivial single-leaf tree) with the
	// null-leaf digest so level 0 always pairs cleanly.
	for len(leaves) > 1 && len(leaves)%2 != 0 {
		leaves = append(leaves, &Node{Digest: NullLeafDigest(), Padding: true})
	}

	levels := [][]*Node{leaves}
	level := leaves
	for len(level) > 1 {
		next := make([]*Node, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, &Node{
				Digest: hashString(left.Digest + right.Digest),
				Left:   left,
				Right:  right,
			})
		}
		level = next
		levels = append(levels, level)
	}

	return &Tree{
		leaves:        leaves,
		levels:        levels,
		root:          level[0],
		originalCount: originalCount,
	}, nil
}

// Root returns the root node.
func (t *Tree) Root() (*Node, error) {
	if t == nil || t.root == nil {
		return nil, ErrNotBuilt
	}
	return t.root, nil
}

// RootDigest returns the root digest.
func (t *Tree) RootDigest() (string, error) {
	if t == nil || t.root == nil {
		return "", ErrNotBuilt
	}
	return t.root.Digest, nil
}

// LeafCount returns the number of input leaves, excluding padding.
func (t *Tree) LeafCount() int {
	if t == nil {
		return 0
	}
	return t.originalCount
}

// TotalLeaves returns the leaf count including padding.
func (t *Tree) TotalLeaves() int {
	if t == nil {
		return 0
	}
	return len(t.leaves)
}

// Height returns the number of levels, ceil(log2(totalLeaves)) + 1. A
// single-leaf tree has height 1.
func (t *Tree) Height() int {
	if t == nil || len(t.leaves) == 0 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(len(t.leaves))))) + 1
}

// LeafDigests returns the input leaf digests in order, excluding padding.
func (t *Tree) LeafDigests() []string {
	if t == nil {
		return nil
	}
	out := make([]string, t.originalCount)
	for i := 0; i < t.originalCount; i++ {
		out[i] = t.leaves[i].Digest
	}
	return out
}

// Contains reports whether d is one of the input leaves. Comparison is
// case-insensitive.
func (t *Tree) Contains(d string) bool {
	return t.IndexOf(d) >= 0
}

// IndexOf returns the index of the leaf holding d, or -1.
func (t *Tree) IndexOf(d string) int {
	if t == nil {
		return -1
	}
	normalized := strings.ToLower(strings.TrimSpace(d))
	for i := 0; i < t.originalCount; i++ {
		if t.leaves[i].Digest == normalized {
			return i
		}
	}
	return -1
}

// NormalizeDigest validates that d is a well-formed hex digest and returns
// it lowercased. Malformed digests yield ErrInvalidInput.
func NormalizeDigest(d string) (string, error) {
	trimmed := strings.TrimSpace(d)
	if len(trimmed) != DigestHexLen {
		return "", fmt.Errorf("%w: digest must be %d hex chars, got %d", ErrInvalidInput, DigestHexLen, len(trimmed))
	}
	lower := strings.ToLower(trimmed)
	for _, r := range lower {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", fmt.Errorf("%w: digest contains non-hex character %q", ErrInvalidInput, r)
		}
	}
	return lower, nil
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
