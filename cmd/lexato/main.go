// Command lexato is the operator CLI: build an integrity tree over local
// files and verify inclusion proofs offline, without a running lexatod.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/LexatoBR/lexato-extension-sub001/internal/infra/crypto"
	"github.com/LexatoBR/lexato-extension-sub001/internal/infra/merkle"

	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"
)

type hashCommand struct {
	ChunkSize int  `long:"chunk-size" description:"split files into chunks of this many bytes, one leaf per chunk" default:"0"`
	Proofs    bool `long:"proofs" description:"emit an inclusion proof per leaf"`
	Args      struct {
		Files []string `positional-arg-name:"FILE" required:"1"`
	} `positional-args:"yes"`
}

type verifyCommand struct {
	Args struct {
		Proof string `positional-arg-name:"PROOF_JSON" description:"path to a proof file, or - for stdin"`
	} `positional-args:"yes" required:"1"`
}

type treeOutput struct {
	Root        string         `json:"root"`
	LeafCount   int            `json:"leaf_count"`
	TotalLeaves int            `json:"total_leaves"`
	Height      int            `json:"height"`
	Leaves      []string       `json:"leaves"`
	Proofs      []merkle.Proof `json:"proofs,omitempty"`
}

func (cmd *hashCommand) Execute(args []string) error {
	var digests []string
	for _, path := range cmd.Args.Files {
		fileDigests, err := digestFile(path, cmd.ChunkSize)
		if err != nil {
			return err
		}
		digests = append(digests, fileDigests...)
	}

	tree, err := merkle.Build(digests)
	if err != nil {
		return err
	}
	root, err := tree.RootDigest()
	if err != nil {
		return err
	}

	out := treeOutput{
		Root:        root,
		LeafCount:   tree.LeafCount(),
		TotalLeaves: tree.TotalLeaves(),
		Height:      tree.Height(),
		Leaves:      tree.LeafDigests(),
	}
	if cmd.Proofs {
		for i := 0; i < tree.LeafCount(); i++ {
			proof, err := tree.Proof(i)
			if err != nil {
				return err
			}
			out.Proofs = append(out.Proofs, proof)
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func (cmd *verifyCommand) Execute(args []string) error {
	var raw []byte
	var err error
	if cmd.Args.Proof == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(cmd.Args.Proof)
	}
	if err != nil {
		return err
	}

	var proof merkle.Proof
	if err := json.Unmarshal(raw, &proof); err != nil {
		return fmt.Errorf("decode proof: %w", err)
	}

	if merkle.VerifyProof(proof) {
		color.Green("PASS  leaf %d is included under root %s", proof.LeafIndex, proof.Root)
		return nil
	}
	color.Red("FAIL  proof does not bind leaf %d to root %s", proof.LeafIndex, proof.Root)
	os.Exit(1)
	return nil
}

func digestFile(path string, chunkSize int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if chunkSize <= 0 {
		digest, err := crypto.StreamSum(context.Background(), f, crypto.DefaultChunkSize, nil)
		if err != nil {
			return nil, fmt.Errorf("digest %s: %w", path, err)
		}
		return []string{digest}, nil
	}

	var digests []string
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			digests = append(digests, crypto.SumHex(buf[:n]))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return digests, nil
}

func main() {
	parser := flags.NewNamedParser("lexato", flags.Default)
	parser.AddCommand("hash", "build an integrity tree",
		"Digest the given files and print the tree root, leaves and optionally proofs.", &hashCommand{})
	parser.AddCommand("verify", "verify an inclusion proof",
		"Check that a proof binds its leaf digest to its root.", &verifyCommand{})

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(1)
	}
}
