// Package espresso implements the phonon recipes with the Quantum ESPRESSO programs pw.x, ph.x,
// q2r.x and matdyn.x. Each job gets a fresh directory holding its input deck and program output.
package espresso

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/phononflow/internal/common/flowerrors"
	"github.com/G-Research/phononflow/internal/common/util"
	"github.com/G-Research/phononflow/internal/phononflow/configuration"
	"github.com/G-Research/phononflow/internal/recipes"
	"github.com/G-Research/phononflow/internal/structure"
)

const (
	prefix = "pwscf"
	// ph.x writes the list of irreducible q-points to <fildyn>0
	fildyn = "matdyn"
	flfrc  = "q2r.fc"
	fldos  = "matdyn.dos"
	flfrq  = "matdyn.freq"
)

type Recipes struct {
	resultsDir       string
	pseudoDir        string
	pseudopotentials map[string]string
	binaries         configuration.BinariesConfig
	runner           CommandRunner
}

func New(config configuration.EspressoConfig, resultsDir string, runner CommandRunner) *Recipes {
	pseudopotentials := make(map[string]string, len(config.Pseudopotentials))
	for element, file := range config.Pseudopotentials {
		pseudopotentials[strings.ToLower(element)] = file
	}
	return &Recipes{
		resultsDir:       resultsDir,
		pseudoDir:        config.PseudoDir,
		pseudopotentials: pseudopotentials,
		binaries:         config.Binaries,
		runner:           runner,
	}
}

func (r *Recipes) GridPhononFlow(ctx context.Context, s structure.Structure, params *recipes.GridPhononParams) (recipes.StageResult, error) {
	if err := s.Validate(); err != nil {
		return recipes.StageResult{}, err
	}
	relaxDir, err := r.relax(ctx, s, &params.RelaxJob)
	if err != nil {
		return recipes.StageResult{}, err
	}
	phDir, err := r.phonon(ctx, s, relaxDir, &params.PhJob)
	if err != nil {
		return recipes.StageResult{}, err
	}
	return recipes.StageResult{Stage: recipes.StageGridPhonon, DirName: phDir}, nil
}

func (r *Recipes) Q2RJob(ctx context.Context, prevDir string, params *recipes.Q2RParams) (recipes.StageResult, error) {
	if err := requireFile(prevDir, fildyn+"0"); err != nil {
		return recipes.StageResult{}, err
	}
	dir, err := r.newJobDir("q2r")
	if err != nil {
		return recipes.StageResult{}, err
	}
	data := mergeNamelists(configuration.Namelists{
		"input": {
			"fildyn": filepath.Join(prevDir, fildyn),
			"flfrc":  flfrc,
		},
	}, params.InputData)

	var sb strings.Builder
	if err := renderNamelists(&sb, q2rNamelists, data); err != nil {
		return recipes.StageResult{}, err
	}
	if err := r.execute(ctx, dir, "q2r", r.binaries.Q2r, sb.String(), params.ParallelInfo); err != nil {
		return recipes.StageResult{}, err
	}
	return recipes.StageResult{Stage: recipes.StageQ2R, DirName: dir}, nil
}

func (r *Recipes) MatdynJob(ctx context.Context, prevDir string, params *recipes.MatdynParams) (recipes.StageResult, error) {
	if err := requireFile(prevDir, flfrc); err != nil {
		return recipes.StageResult{}, err
	}
	dir, err := r.newJobDir("matdyn")
	if err != nil {
		return recipes.StageResult{}, err
	}
	data := mergeNamelists(configuration.Namelists{
		"input": {
			"flfrc": filepath.Join(prevDir, flfrc),
			"fldos": fldos,
			"flfrq": flfrq,
		},
	}, params.InputData)

	var sb strings.Builder
	if err := renderNamelists(&sb, matdynNamelists, data); err != nil {
		return recipes.StageResult{}, err
	}
	if err := r.execute(ctx, dir, "matdyn", r.binaries.Matdyn, sb.String(), params.ParallelInfo); err != nil {
		return recipes.StageResult{}, err
	}
	return recipes.StageResult{Stage: recipes.StageMatdyn, DirName: dir}, nil
}

func (r *Recipes) relax(ctx context.Context, s structure.Structure, params *recipes.RelaxJobParams) (string, error) {
	pseudo, ok := r.pseudopotentials[strings.ToLower(s.Element)]
	if !ok {
		return "", &flowerrors.ErrNotFound{Type: "pseudopotential", Value: s.Element}
	}
	kpts, err := s.KPointGrid(params.Kspacing)
	if err != nil {
		return "", err
	}
	dir, err := r.newJobDir("relax-" + s.Name)
	if err != nil {
		return "", err
	}

	calculation := "relax"
	if params.RelaxCell {
		calculation = "vc-relax"
	}
	data := mergeNamelists(configuration.Namelists{
		"control": {
			"calculation": calculation,
			"prefix":      prefix,
			"outdir":      ".",
			"pseudo_dir":  r.pseudoDir,
			"tprnfor":     true,
			"tstress":     true,
		},
		"system": {
			"ibrav": 0,
			"nat":   len(s.Positions),
			"ntyp":  1,
		},
	}, params.InputData)

	required := pwNamelists
	if params.RelaxCell {
		required = append(append([]string{}, pwNamelists...), "cell")
	} else {
		delete(data, "cell")
	}

	var sb strings.Builder
	if err := renderNamelists(&sb, required, data); err != nil {
		return "", err
	}
	fmt.Fprintf(&sb, "ATOMIC_SPECIES\n   %s %s %s\n", s.Element, formatFloat(s.Mass), pseudo)
	sb.WriteString("CELL_PARAMETERS angstrom\n")
	for _, v := range s.Cell {
		fmt.Fprintf(&sb, "   %.10f %.10f %.10f\n", v[0], v[1], v[2])
	}
	sb.WriteString("ATOMIC_POSITIONS crystal\n")
	for _, p := range s.Positions {
		fmt.Fprintf(&sb, "   %s %.10f %.10f %.10f\n", s.Element, p[0], p[1], p[2])
	}
	fmt.Fprintf(&sb, "K_POINTS automatic\n   %d %d %d 0 0 0\n", kpts[0], kpts[1], kpts[2])

	if err := r.execute(ctx, dir, "pw", r.binaries.Pw, sb.String(), params.ParallelInfo); err != nil {
		return "", err
	}
	return dir, nil
}

func (r *Recipes) phonon(ctx context.Context, s structure.Structure, relaxDir string, params *recipes.PhJobParams) (string, error) {
	dir, err := r.newJobDir("ph-" + s.Name)
	if err != nil {
		return "", err
	}
	data := mergeNamelists(configuration.Namelists{
		"inputph": {
			"prefix": prefix,
			"outdir": relaxDir,
			"fildyn": fildyn,
		},
	}, params.InputData)

	var sb strings.Builder
	fmt.Fprintf(&sb, "phonons of %s\n", s.Name)
	if err := renderNamelists(&sb, phNamelists, data); err != nil {
		return "", err
	}
	if err := r.execute(ctx, dir, "ph", r.binaries.Ph, sb.String(), params.ParallelInfo); err != nil {
		return "", err
	}
	return dir, nil
}

// execute writes input to <program>.in in dir and runs binary on it under the launcher.
func (r *Recipes) execute(ctx context.Context, dir, program, binary, input string, parallel recipes.ParallelInfo) error {
	inFile := program + ".in"
	if err := os.WriteFile(filepath.Join(dir, inFile), []byte(input), 0o644); err != nil {
		return errors.WithStack(err)
	}
	argv := parallel.Command(binary, "-in", inFile)
	log.WithFields(log.Fields{"program": program, "dir": dir}).Info("Starting solver")
	return r.runner.Run(ctx, dir, program+".out", argv)
}

func (r *Recipes) newJobDir(name string) (string, error) {
	dir, err := filepath.Abs(filepath.Join(r.resultsDir, name+"-"+util.NewULID()))
	if err != nil {
		return "", errors.WithStack(err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.WithStack(err)
	}
	return dir, nil
}

func requireFile(dir, name string) error {
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		return &flowerrors.ErrNotFound{
			Type:    "file",
			Value:   filepath.Join(dir, name),
			Message: "output of the previous stage is missing",
		}
	}
	return nil
}
