package merkle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotBuilt        = errors.New("tree not built")
	ErrIndexOutOfRange = errors.New("leaf index out of range")
)

// Side marks which side of the combination a proof sibling sits on.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ProofStep is one sibling on the path from a leaf to the root.
type ProofStep struct {
	Digest string `json:"digest"`
	Side   Side   `json:"side"`
}

// Proof is a self-contained inclusion proof for a single leaf. It carries
// everything VerifyProof needs; the tree it came from is not required.
type Proof struct {
	LeafDigest string      `json:"leaf_digest"`
	LeafIndex  int         `json:"leaf_index"`
	Siblings   []ProofStep `json:"siblings"`
	Root       string      `json:"root"`
}

// Proof generates the inclusion proof for the leaf at index. The index must
// address an input leaf; padding leaves are not addressable.
func (t *Tree) Proof(index int) (Proof, error) {
	if t == nil || t.root == nil {
		return Proof{}, ErrNotBuilt
	}
	if index < 0 || index >= t.originalCount {
		return Proof{}, fmt.Errorf("%w: index %d, leaf count %d", ErrIndexOutOfRange, index, t.originalCount)
	}

	proof := Proof{
		LeafDigest: t.leaves[index].Digest,
		LeafIndex:  index,
		Root:       t.root.Digest,
	}

	idx := index
	for _, level := range t.levels[:len(t.levels)-1] {
		sibIdx := idx ^ 1
		// An unpaired node mid-tree combines with itself.
		if sibIdx >= len(level) {
			sibIdx = idx
		}
		side := SideRight
		if idx%2 == 1 {
			side = SideLeft
		}
		proof.Siblings = append(proof.Siblings, ProofStep{
			Digest: level[sibIdx].Digest,
			Side:   side,
		})
		idx /= 2
	}
	return proof, nil
}

// VerifyProof recomputes the root by folding the proof's siblings onto its
// leaf digest and compares against the claimed root, case-insensitively.
// Malformed digests make the proof invalid rather than erroring: a proof is
// either sound or it is not.
func VerifyProof(p Proof) bool {
	current, err := NormalizeDigest(p.LeafDigest)
	if err != nil {
		return false
	}
	for _, step := range p.Siblings {
		sibling, err := NormalizeDigest(step.Digest)
		if err != nil {
			return false
		}
		switch step.Side {
		case SideLeft:
			current = hashString(sibling + current)
		case SideRight:
			current = hashString(current + sibling)
		default:
			return false
		}
	}
	return strings.EqualFold(current, p.Root)
}
