// Command prove builds a Merkle tree over a file's 32-byte leaves, generates
// a membership proof for one leaf index, checks it natively, and writes the
// root and the serialized proof for downstream transmission or storage.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"os"

	"github.com/rs/zerolog"

	"github.com/MuriData/muri-merkle/pkg/merkle"
)

// proofEnvelope is the JSON wrapper emitted next to the binary proof.
type proofEnvelope struct {
	Root      string `json:"root"`
	Index     uint64 `json:"index"`
	Height    int    `json:"height"`
	LeafCount int    `json:"leaf_count"`
	Proof     string `json:"proof"` // hex of the binary proof encoding
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	paramsPath := flag.String("params", "params.bin", "tree parameters file")
	dataPath := flag.String("data", "", "input file, split into 32-byte leaves (last leaf zero-padded)")
	index := flag.Int("index", 0, "leaf index to prove")
	outPath := flag.String("out", "proof.json", "output JSON file")
	flag.Parse()

	if *dataPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	f, err := os.Open(*paramsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open parameters (run cmd/compile first)")
	}
	params, err := merkle.ReadParameters(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("read parameters")
	}

	data, err := os.ReadFile(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read data")
	}
	leaves := splitLeaves(data)
	log.Info().Int("leaves", len(leaves)).Int("height", params.Height).Msg("building tree")

	tree, err := merkle.New(params, leaves)
	if err != nil {
		log.Fatal().Err(err).Msg("build tree")
	}
	root := tree.Root()
	rootBytes := root.Bytes()
	log.Info().Str("root", hex.EncodeToString(rootBytes[:])).Msg("tree built")

	if *index < 0 || *index >= len(leaves) {
		log.Fatal().Int("index", *index).Int("leaves", len(leaves)).Msg("leaf index out of bounds")
	}
	proof, err := tree.GenerateProof(*index, leaves[*index])
	if err != nil {
		log.Fatal().Err(err).Msg("generate proof")
	}
	if !proof.Verify(params, root, leaves[*index]) {
		log.Fatal().Msg("freshly generated proof failed native verification")
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		log.Fatal().Err(err).Msg("serialize proof")
	}

	envelope := proofEnvelope{
		Root:      hex.EncodeToString(rootBytes[:]),
		Index:     proof.Index,
		Height:    params.Height,
		LeafCount: tree.NbLeaves(),
		Proof:     hex.EncodeToString(buf.Bytes()),
	}
	out, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("marshal envelope")
	}
	if err := os.WriteFile(*outPath, out, 0o644); err != nil {
		log.Fatal().Err(err).Msg("write output")
	}
	log.Info().Str("path", *outPath).Msg("proof written")
}

// splitLeaves cuts data into LeafSize-byte leaves, zero-padding the last
// one. Empty input produces a single zero leaf.
func splitLeaves(data []byte) [][]byte {
	var leaves [][]byte
	for i := 0; i < len(data); i += merkle.LeafSize {
		leaf := make([]byte, merkle.LeafSize)
		copy(leaf, data[i:min(i+merkle.LeafSize, len(data))])
		leaves = append(leaves, leaf)
	}
	if len(leaves) == 0 {
		leaves = append(leaves, make([]byte, merkle.LeafSize))
	}
	return leaves
}
