package configuration

import (
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/G-Research/phononflow/internal/common/config"
	"github.com/G-Research/phononflow/internal/common/logging"
)

type Configuration struct {
	Logging logging.Config
	// Port serving /metrics and /health; 0 disables the server
	MetricsPort uint16
	// Root directory under which every stage creates its own job directory
	ResultsDir string `validate:"required"`
	// Label of the executor that stage jobs are submitted to
	Executor   string            `validate:"required"`
	Executors  []ExecutorConfig  `validate:"required,min=1,dive"`
	Structures []StructureConfig `validate:"required,min=1,dive"`
	Espresso   EspressoConfig
	Stages     StagesConfig
}

// ExecutorConfig describes one pool of workers backed by a batch scheduler allocation.
type ExecutorConfig struct {
	Label string `validate:"required"`
	// Maximum number of jobs running concurrently on one node
	MaxWorkers int `validate:"gt=0"`
	// Cores reserved per worker. Values below 1 oversubscribe the node
	CoresPerWorker float64 `validate:"gt=0"`
	Provider       SlurmProviderConfig
}

type SlurmProviderConfig struct {
	Account   string `validate:"required"`
	Qos       string
	Partition string
	// Shell lines run before any worker starts inside an allocation
	WorkerInit string
	// Wall-clock limit of one allocation block, HH:MM:SS
	Walltime      config.Walltime `validate:"gt=0"`
	NodesPerBlock int             `validate:"gt=0"`
	CoresPerNode  int             `validate:"gt=0"`
	InitBlocks    int             `validate:"gte=0"`
	MinBlocks     int             `validate:"gte=0"`
	MaxBlocks     int             `validate:"gt=0"`
	Launcher      string          `validate:"oneof=simple srun"`
}

type StructureConfig struct {
	Element string `validate:"required"`
	Cubic   bool
}

type EspressoConfig struct {
	PseudoDir string
	// Pseudopotential file per element symbol. Lookups ignore case
	Pseudopotentials map[string]string
	Binaries         BinariesConfig
	ParallelInfo     ParallelInfoConfig
}

type BinariesConfig struct {
	Pw     string `validate:"required"`
	Ph     string `validate:"required"`
	Q2r    string `validate:"required"`
	Matdyn string `validate:"required"`
}

// ParallelInfoConfig describes how solver binaries are started under the node's process launcher.
type ParallelInfoConfig struct {
	// Launcher binary, e.g. srun. Empty runs the solver directly
	Binary      string
	Flags       []string
	Nodes       int `validate:"gte=0"`
	Tasks       int `validate:"gte=0"`
	CpusPerTask int `validate:"gte=0"`
}

// Namelists maps a namelist name (control, system, inputph, ...) to its parameters.
type Namelists map[string]map[string]interface{}

type StagesConfig struct {
	GridPhonon GridPhononConfig
	Q2r        JobConfig
	Matdyn     JobConfig
}

type GridPhononConfig struct {
	RelaxJob RelaxJobConfig
	PhJob    JobConfig
}

type RelaxJobConfig struct {
	InputData Namelists
	// Reciprocal space sampling density in 1/Angstrom
	Kspacing  float64 `validate:"gt=0"`
	RelaxCell bool
}

type JobConfig struct {
	InputData Namelists
}

// ExecutorConfig returns the executor called label.
func (c Configuration) ExecutorConfig(label string) (ExecutorConfig, bool) {
	for _, e := range c.Executors {
		if e.Label == label {
			return e, true
		}
	}
	return ExecutorConfig{}, false
}

// ExpandPaths replaces a leading ~ in ResultsDir and the pseudopotential directory with the
// user's home directory.
func (c *Configuration) ExpandPaths() error {
	for _, path := range []*string{&c.ResultsDir, &c.Espresso.PseudoDir} {
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return errors.Wrapf(err, "error expanding path %s", *path)
		}
		*path = expanded
	}
	return nil
}
