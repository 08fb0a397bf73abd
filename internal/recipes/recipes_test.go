package recipes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/phononflow/internal/phononflow/configuration"
)

func TestParallelInfo_Command(t *testing.T) {
	info := ParallelInfo{
		Binary:      "srun",
		Flags:       []string{"-vv", "--hint=nomultithread", "--distribution=block:block"},
		Nodes:       1,
		Tasks:       128,
		CpusPerTask: 1,
	}
	assert.Equal(t,
		[]string{
			"srun", "-vv", "--hint=nomultithread", "--distribution=block:block",
			"-N", "1", "-n", "128", "-c", "1",
			"pw.x", "-in", "pw.in",
		},
		info.Command("pw.x", "-in", "pw.in"))
}

func TestParallelInfo_CommandWithoutLauncher(t *testing.T) {
	info := ParallelInfo{Tasks: 4}
	assert.Equal(t, []string{"q2r.x", "-in", "q2r.in"}, info.Command("q2r.x", "-in", "q2r.in"))
}

func TestParallelInfo_CommandDoesNotAlias(t *testing.T) {
	flags := make([]string, 1, 8)
	flags[0] = "-vv"
	info := ParallelInfo{Binary: "srun", Flags: flags}
	first := info.Command("pw.x")
	second := info.Command("ph.x")
	assert.Equal(t, []string{"srun", "-vv", "pw.x"}, first)
	assert.Equal(t, []string{"srun", "-vv", "ph.x"}, second)
}

func TestNewParams(t *testing.T) {
	stages := configuration.StagesConfig{
		GridPhonon: configuration.GridPhononConfig{
			RelaxJob: configuration.RelaxJobConfig{
				InputData: configuration.Namelists{"system": {"smearing": "cold"}},
				Kspacing:  0.1,
				RelaxCell: true,
			},
			PhJob: configuration.JobConfig{
				InputData: configuration.Namelists{"inputph": {"nq1": 5}},
			},
		},
		Matdyn: configuration.JobConfig{
			InputData: configuration.Namelists{"input": {"dos": true}},
		},
	}
	parallel := configuration.ParallelInfoConfig{Binary: "srun", Tasks: 128}

	params, err := NewParams(stages, parallel)
	require.NoError(t, err)
	assert.Equal(t, 0.1, params.GridPhonon.RelaxJob.Kspacing)
	assert.True(t, params.GridPhonon.RelaxJob.RelaxCell)
	assert.Equal(t, 5, params.GridPhonon.PhJob.InputData["inputph"]["nq1"])
	assert.Equal(t, true, params.Matdyn.InputData["input"]["dos"])
	assert.Equal(t, "srun", params.Q2R.ParallelInfo.Binary)
	assert.Equal(t, 128, params.Matdyn.ParallelInfo.Tasks)
}

func TestNewParams_InvalidKspacing(t *testing.T) {
	_, err := NewParams(configuration.StagesConfig{}, configuration.ParallelInfoConfig{})
	assert.Error(t, err)
}
