package setup

import (
	"encoding/hex"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16/bn254/mpcsetup"
	cs_bn254 "github.com/consensys/gnark/constraint/bn254"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/logger"
)

// Groth16 MPC ceremony (Powers of Tau + circuit-specific phase). The setup
// is secure if any single contributor is honest. The beacon must come from a
// public randomness source evaluated after the last contribution.

// CeremonyDir is the default directory for ceremony files.
const CeremonyDir = "ceremony"

// CeremonyP1Init initializes Phase 1 (Powers of Tau) for the circuit's
// domain size.
func CeremonyP1Init(circuit frontend.Circuit) error {
	if err := os.MkdirAll(CeremonyDir, 0o755); err != nil {
		return fmt.Errorf("create ceremony dir: %w", err)
	}
	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return err
	}

	N := ecc.NextPowerOfTwo(uint64(ccs.GetNbConstraints()))
	log := logger.Logger()
	log.Info().
		Uint64("domain", N).Int("log2", bits.Len64(N)-1).
		Int("constraints", ccs.GetNbConstraints()).
		Msg("initializing phase 1")

	p := mpcsetup.NewPhase1(N)
	path := nextContribPath("phase1")
	if err := saveObject(path, p); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("wrote initial phase 1 state")
	return nil
}

// CeremonyP1Contribute adds a Phase 1 contribution on top of the latest one.
func CeremonyP1Contribute() error {
	latest, err := latestContrib("phase1")
	if err != nil {
		return err
	}

	var p mpcsetup.Phase1
	if err := loadObject(latest, &p); err != nil {
		return err
	}
	p.Contribute()

	path := nextContribPath("phase1")
	if err := saveObject(path, &p); err != nil {
		return err
	}
	log := logger.Logger()
	log.Info().Str("path", path).Msg("wrote phase 1 contribution")
	return nil
}

// CeremonyP1Verify verifies all Phase 1 contributions and seals the phase
// with a random beacon, writing the SRS commons.
func CeremonyP1Verify(circuit frontend.Circuit, beaconHex string) error {
	beacon, err := parseBeacon(beaconHex)
	if err != nil {
		return err
	}
	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return err
	}
	N := ecc.NextPowerOfTwo(uint64(ccs.GetNbConstraints()))

	contribs := findContribs("phase1")
	if len(contribs) < 2 {
		return fmt.Errorf("need the init file plus at least one contribution to verify")
	}

	// The init file (index 0) is not a contribution.
	phases := make([]*mpcsetup.Phase1, len(contribs)-1)
	for i, path := range contribs[1:] {
		phases[i] = new(mpcsetup.Phase1)
		if err := loadObject(path, phases[i]); err != nil {
			return err
		}
	}

	commons, err := mpcsetup.VerifyPhase1(N, beacon, phases...)
	if err != nil {
		return fmt.Errorf("phase 1 verification failed: %w", err)
	}

	srsPath := filepath.Join(CeremonyDir, "srs_commons.bin")
	if err := saveObject(srsPath, &commons); err != nil {
		return err
	}
	log := logger.Logger()
	log.Info().Int("contributions", len(phases)).Str("srs", srsPath).
		Msg("phase 1 verified and sealed")
	return nil
}

// CeremonyP2Init initializes the circuit-specific Phase 2 from the sealed
// Phase 1 SRS commons.
func CeremonyP2Init(circuit frontend.Circuit) error {
	if err := os.MkdirAll(CeremonyDir, 0o755); err != nil {
		return fmt.Errorf("create ceremony dir: %w", err)
	}
	r1csConcrete, commons, err := loadPhase2Inputs(circuit)
	if err != nil {
		return err
	}

	var p mpcsetup.Phase2
	p.Initialize(r1csConcrete, commons)

	path := nextContribPath("phase2")
	if err := saveObject(path, &p); err != nil {
		return err
	}
	log := logger.Logger()
	log.Info().Str("path", path).Msg("wrote initial phase 2 state")
	return nil
}

// CeremonyP2Contribute adds a Phase 2 contribution on top of the latest one.
func CeremonyP2Contribute() error {
	latest, err := latestContrib("phase2")
	if err != nil {
		return err
	}

	var p mpcsetup.Phase2
	if err := loadObject(latest, &p); err != nil {
		return err
	}
	p.Contribute()

	path := nextContribPath("phase2")
	if err := saveObject(path, &p); err != nil {
		return err
	}
	log := logger.Logger()
	log.Info().Str("path", path).Msg("wrote phase 2 contribution")
	return nil
}

// CeremonyP2Verify verifies all Phase 2 contributions, seals the phase with
// a random beacon, and exports the final production keys.
func CeremonyP2Verify(circuit frontend.Circuit, beaconHex, outputDir, circuitName string) error {
	beacon, err := parseBeacon(beaconHex)
	if err != nil {
		return err
	}
	r1csConcrete, commons, err := loadPhase2Inputs(circuit)
	if err != nil {
		return err
	}

	contribs := findContribs("phase2")
	if len(contribs) < 2 {
		return fmt.Errorf("need the init file plus at least one contribution to verify")
	}

	phases := make([]*mpcsetup.Phase2, len(contribs)-1)
	for i, path := range contribs[1:] {
		phases[i] = new(mpcsetup.Phase2)
		if err := loadObject(path, phases[i]); err != nil {
			return err
		}
	}

	pk, vk, err := mpcsetup.VerifyPhase2(r1csConcrete, commons, beacon, phases...)
	if err != nil {
		return fmt.Errorf("phase 2 verification failed: %w", err)
	}

	if err := ExportKeys(pk, vk, outputDir, circuitName); err != nil {
		return err
	}
	log := logger.Logger()
	log.Info().Msg("ceremony complete, keys are production-ready")
	return nil
}

func loadPhase2Inputs(circuit frontend.Circuit) (*cs_bn254.R1CS, *mpcsetup.SrsCommons, error) {
	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return nil, nil, err
	}
	r1csConcrete, ok := ccs.(*cs_bn254.R1CS)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected constraint system type %T", ccs)
	}

	var commons mpcsetup.SrsCommons
	if err := loadObject(filepath.Join(CeremonyDir, "srs_commons.bin"), &commons); err != nil {
		return nil, nil, fmt.Errorf("load SRS commons (run p1-verify first): %w", err)
	}
	return r1csConcrete, &commons, nil
}

func parseBeacon(hexStr string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid beacon hex: %w", err)
	}
	if len(b) < 16 {
		return nil, fmt.Errorf("beacon must be at least 16 bytes for sufficient entropy")
	}
	return b, nil
}

// findContribs returns sorted paths matching ceremony/<prefix>_NNNN.bin.
func findContribs(prefix string) []string {
	matches, _ := filepath.Glob(filepath.Join(CeremonyDir, prefix+"_????.bin"))
	sort.Strings(matches)
	return matches
}

func latestContrib(prefix string) (string, error) {
	contribs := findContribs(prefix)
	if len(contribs) == 0 {
		return "", fmt.Errorf("no %s contributions found in %s/", prefix, CeremonyDir)
	}
	return contribs[len(contribs)-1], nil
}

func nextContribPath(prefix string) string {
	return filepath.Join(CeremonyDir, fmt.Sprintf("%s_%04d.bin", prefix, len(findContribs(prefix))))
}
