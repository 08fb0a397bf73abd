// Package recipes defines the three stages of a phonon density of states pipeline and the
// parameters they accept. Implementations live in sub-packages.
package recipes

import (
	"context"
	"strconv"

	"github.com/G-Research/phononflow/internal/common/flowerrors"
	"github.com/G-Research/phononflow/internal/phononflow/configuration"
	"github.com/G-Research/phononflow/internal/structure"
)

const (
	StageGridPhonon = "grid_phonon"
	StageQ2R        = "q2r"
	StageMatdyn     = "matdyn"
)

// Recipes runs the three stages. Every call creates a new output directory and returns its path
// in StageResult.DirName. Params are read only and may be shared between concurrent calls.
type Recipes interface {
	// GridPhononFlow relaxes s and runs the phonon perturbation on a grid of q-points.
	GridPhononFlow(ctx context.Context, s structure.Structure, params *GridPhononParams) (StageResult, error)
	// Q2RJob turns the dynamical matrices in prevDir into real space force constants.
	Q2RJob(ctx context.Context, prevDir string, params *Q2RParams) (StageResult, error)
	// MatdynJob interpolates the force constants in prevDir onto a dense grid.
	MatdynJob(ctx context.Context, prevDir string, params *MatdynParams) (StageResult, error)
}

type StageResult struct {
	Stage   string
	DirName string
}

// ParallelInfo describes how a solver binary is started under the process launcher.
type ParallelInfo struct {
	Binary      string
	Flags       []string
	Nodes       int
	Tasks       int
	CpusPerTask int
}

// Command returns the launcher prefix followed by the solver arguments.
func (p ParallelInfo) Command(solver ...string) []string {
	if p.Binary == "" {
		return append([]string{}, solver...)
	}
	cmd := []string{p.Binary}
	cmd = append(cmd, p.Flags...)
	if p.Nodes > 0 {
		cmd = append(cmd, "-N", strconv.Itoa(p.Nodes))
	}
	if p.Tasks > 0 {
		cmd = append(cmd, "-n", strconv.Itoa(p.Tasks))
	}
	if p.CpusPerTask > 0 {
		cmd = append(cmd, "-c", strconv.Itoa(p.CpusPerTask))
	}
	return append(cmd, solver...)
}

type RelaxJobParams struct {
	InputData    configuration.Namelists
	Kspacing     float64
	RelaxCell    bool
	ParallelInfo ParallelInfo
}

type PhJobParams struct {
	InputData    configuration.Namelists
	ParallelInfo ParallelInfo
}

type GridPhononParams struct {
	RelaxJob RelaxJobParams
	PhJob    PhJobParams
}

type Q2RParams struct {
	InputData    configuration.Namelists
	ParallelInfo ParallelInfo
}

type MatdynParams struct {
	InputData    configuration.Namelists
	ParallelInfo ParallelInfo
}

// Params holds one parameter set per stage. It is built once and shared by every structure.
type Params struct {
	GridPhonon *GridPhononParams
	Q2R        *Q2RParams
	Matdyn     *MatdynParams
}

// NewParams builds the stage parameters from configuration. The same ParallelInfo is used for every stage.
func NewParams(stages configuration.StagesConfig, parallel configuration.ParallelInfoConfig) (Params, error) {
	relax := stages.GridPhonon.RelaxJob
	if relax.Kspacing <= 0 {
		return Params{}, &flowerrors.ErrInvalidArgument{
			Name:    "stages.gridPhonon.relaxJob.kspacing",
			Value:   relax.Kspacing,
			Message: "must be positive",
		}
	}
	info := ParallelInfo{
		Binary:      parallel.Binary,
		Flags:       append([]string{}, parallel.Flags...),
		Nodes:       parallel.Nodes,
		Tasks:       parallel.Tasks,
		CpusPerTask: parallel.CpusPerTask,
	}
	return Params{
		GridPhonon: &GridPhononParams{
			RelaxJob: RelaxJobParams{
				InputData:    relax.InputData,
				Kspacing:     relax.Kspacing,
				RelaxCell:    relax.RelaxCell,
				ParallelInfo: info,
			},
			PhJob: PhJobParams{
				InputData:    stages.GridPhonon.PhJob.InputData,
				ParallelInfo: info,
			},
		},
		Q2R: &Q2RParams{
			InputData:    stages.Q2r.InputData,
			ParallelInfo: info,
		},
		Matdyn: &MatdynParams{
			InputData:    stages.Matdyn.InputData,
			ParallelInfo: info,
		},
	}, nil
}
