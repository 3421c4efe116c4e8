// Command compile compiles a circuit and produces proving material, either
// via an unsafe single-party dev setup or the Groth16 MPC ceremony.
//
// Circuits are shaped by the shared tree parameters, so the same parameters
// file must be distributed to every prover and verifier.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"os"

	"github.com/consensys/gnark/frontend"
	"github.com/rs/zerolog"

	"github.com/MuriData/muri-merkle/circuits/maskedroot"
	"github.com/MuriData/muri-merkle/circuits/membership"
	"github.com/MuriData/muri-merkle/pkg/merkle"
	"github.com/MuriData/muri-merkle/pkg/setup"
)

// circuitEntry pairs a circuit constructor with its proof backend.
type circuitEntry struct {
	NewCircuit func(params *merkle.Parameters, nbLeaves int) frontend.Circuit
	Backend    setup.Backend
}

// circuitRegistry maps circuit names to their entries. Membership proofs use
// Groth16 (fixed shape per height, cheapest verification); the masked-root
// disclosure uses PLONK (universal SRS, no per-circuit ceremony).
var circuitRegistry = map[string]circuitEntry{
	"membership": {
		NewCircuit: func(params *merkle.Parameters, _ int) frontend.Circuit {
			return membership.NewCircuit(params)
		},
		Backend: setup.Groth16Backend,
	},
	"maskedroot": {
		NewCircuit: func(params *merkle.Parameters, nbLeaves int) frontend.Circuit {
			return maskedroot.NewCircuit(params, nbLeaves)
		},
		Backend: setup.PlonkBackend,
	},
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	paramsPath := flag.String("params", "params.bin", "tree parameters file (generated if absent)")
	height := flag.Int("height", 16, "tree height when generating fresh parameters")
	nbLeaves := flag.Int("leaves", 4, "disclosed leaf count (maskedroot circuit only)")
	outputDir := flag.String("out", ".", "output directory for keys")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		printUsage()
		os.Exit(1)
	}

	circuitName := args[0]
	entry, ok := circuitRegistry[circuitName]
	if !ok {
		log.Error().Str("circuit", circuitName).Msg("unknown circuit")
		fmt.Fprintln(os.Stderr, "available circuits: membership (Groth16), maskedroot (PLONK)")
		os.Exit(1)
	}

	params, err := loadOrGenerateParams(*paramsPath, *height, log)
	if err != nil {
		log.Fatal().Err(err).Msg("tree parameters")
	}
	newCircuit := func() frontend.Circuit { return entry.NewCircuit(params, *nbLeaves) }

	switch args[1] {
	case "dev":
		switch entry.Backend {
		case setup.Groth16Backend:
			err = setup.DevSetup(newCircuit(), *outputDir, circuitName)
		case setup.PlonkBackend:
			err = setup.PlonkDevSetup(newCircuit(), *outputDir, circuitName)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("dev setup")
		}
	case "ceremony":
		if entry.Backend != setup.Groth16Backend {
			log.Fatal().Str("circuit", circuitName).
				Msg("MPC ceremony is only supported for Groth16 circuits; PLONK uses a universal SRS")
		}
		if len(args) < 3 {
			printUsage()
			os.Exit(1)
		}
		if err := handleCeremony(circuitName, newCircuit, *outputDir, args[2:]); err != nil {
			log.Fatal().Err(err).Msg("ceremony")
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

// loadOrGenerateParams reads the parameters file, or generates fresh
// parameters from crypto/rand and writes them for later runs.
func loadOrGenerateParams(path string, height int, log zerolog.Logger) (*merkle.Parameters, error) {
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		params, err := merkle.ReadParameters(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		log.Info().Str("path", path).Int("height", params.Height).Msg("loaded tree parameters")
		return params, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	params, err := merkle.NewParameters(rand.Reader, height)
	if err != nil {
		return nil, err
	}
	f, err = os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := params.Save(f); err != nil {
		return nil, fmt.Errorf("save %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("height", height).Msg("generated fresh tree parameters")
	return params, nil
}

func handleCeremony(circuitName string, newCircuit func() frontend.Circuit, outputDir string, args []string) error {
	switch args[0] {
	case "p1-init":
		return setup.CeremonyP1Init(newCircuit())
	case "p1-contribute":
		return setup.CeremonyP1Contribute()
	case "p1-verify":
		if len(args) < 2 {
			return fmt.Errorf("usage: compile %s ceremony p1-verify BEACON_HEX", circuitName)
		}
		return setup.CeremonyP1Verify(newCircuit(), args[1])
	case "p2-init":
		return setup.CeremonyP2Init(newCircuit())
	case "p2-contribute":
		return setup.CeremonyP2Contribute()
	case "p2-verify":
		if len(args) < 2 {
			return fmt.Errorf("usage: compile %s ceremony p2-verify BEACON_HEX", circuitName)
		}
		return setup.CeremonyP2Verify(newCircuit(), args[1], outputDir, circuitName)
	default:
		return fmt.Errorf("unknown ceremony step %q", args[0])
	}
}

func printUsage() {
	fmt.Println(`Usage:
  compile [flags] <circuit> dev                        Dev setup (single-party/unsafe, NOT for production)

  compile [flags] <circuit> ceremony p1-init           Initialize Phase 1 (Powers of Tau)
  compile [flags] <circuit> ceremony p1-contribute     Add a Phase 1 contribution
  compile [flags] <circuit> ceremony p1-verify HEX     Verify Phase 1 & seal with random beacon
  compile [flags] <circuit> ceremony p2-init           Initialize Phase 2 (circuit-specific)
  compile [flags] <circuit> ceremony p2-contribute     Add a Phase 2 contribution
  compile [flags] <circuit> ceremony p2-verify HEX     Verify Phase 2, seal & export keys

Flags:
  -params FILE   tree parameters file, generated on first use (default params.bin)
  -height N      tree height for fresh parameters (default 16)
  -leaves N      disclosed leaf count, maskedroot only (default 4)
  -out DIR       output directory for keys (default .)

Available circuits: membership (Groth16), maskedroot (PLONK)

The MPC ceremony is 1-of-N honest: if any single contributor is honest the
setup is secure. Use a public randomness beacon evaluated AFTER the last
contribution.`)
}
