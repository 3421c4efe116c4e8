// Command export generates a deterministic membership proof fixture for
// Solidity verifier tests. Keys and tree parameters must exist already
// (run `go run ./cmd/compile membership dev` first).
package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"

	"github.com/MuriData/muri-merkle/circuits/membership"
	"github.com/MuriData/muri-merkle/pkg/merkle"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	paramsPath := flag.String("params", "params.bin", "tree parameters file")
	keysDir := flag.String("keys", ".", "directory containing proving and verifying keys")
	outPath := flag.String("out", "proof_fixture.json", "fixture output file")
	flag.Parse()

	f, err := os.Open(*paramsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open tree parameters (run the compile command first)")
	}
	params, err := merkle.ReadParameters(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("read tree parameters")
	}

	jsonOut, err := membership.ExportProofFixture(*keysDir, params)
	if err != nil {
		log.Fatal().Err(err).Msg("export proof fixture")
	}
	if err := os.WriteFile(*outPath, jsonOut, 0644); err != nil {
		log.Fatal().Err(err).Msg("write fixture file")
	}
	log.Info().Str("path", *outPath).Msg("fixture written")
}
