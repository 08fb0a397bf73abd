// Package provisioning describes the scheduler allocations backing an executor: how many workers
// they provide and the batch script that requests them.
package provisioning

import (
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/G-Research/phononflow/internal/phononflow/configuration"
)

const (
	SimpleLauncher = "simple"
	SrunLauncher   = "srun"
)

// WorkersPerNode is the number of jobs one node runs concurrently: as many as fit in
// CoresPerNode at CoresPerWorker each, capped at MaxWorkers.
func WorkersPerNode(config configuration.ExecutorConfig) int64 {
	if config.CoresPerWorker <= 0 {
		return int64(config.MaxWorkers)
	}
	fit := math.Floor(float64(config.Provider.CoresPerNode) / config.CoresPerWorker)
	workers := int64(config.MaxWorkers)
	if fit < float64(workers) {
		workers = int64(fit)
	}
	return workers
}

// Capacity is the number of jobs the executor runs concurrently with all blocks allocated. Never below 1.
func Capacity(config configuration.ExecutorConfig) int64 {
	capacity := WorkersPerNode(config) * int64(config.Provider.NodesPerBlock) * int64(config.Provider.MaxBlocks)
	if capacity < 1 {
		return 1
	}
	return capacity
}

// LaunchCommand wraps command so that it starts once per node of a block.
func LaunchCommand(launcher string, nodes int, command string) (string, error) {
	switch launcher {
	case SimpleLauncher, "":
		return command, nil
	case SrunLauncher:
		return fmt.Sprintf("srun --ntasks=%d --ntasks-per-node=1 -l %s", nodes, command), nil
	default:
		return "", errors.Errorf("unknown launcher %q", launcher)
	}
}

var batchScriptTemplate = template.Must(template.New("sbatch").Parse(`#!/bin/bash
#SBATCH --job-name={{ .Label }}
#SBATCH --account={{ .Provider.Account }}
{{- with .Provider.Qos }}
#SBATCH --qos={{ . }}
{{- end }}
{{- with .Provider.Partition }}
#SBATCH --partition={{ . }}
{{- end }}
#SBATCH --nodes={{ .Provider.NodesPerBlock }}
#SBATCH --time={{ .Provider.Walltime }}
#SBATCH --exclusive
{{ with .Provider.WorkerInit }}
{{ . }}
{{- end }}
{{ with .Command }}
{{ . }}
{{ end -}}
`))

type batchScript struct {
	configuration.ExecutorConfig
	Command string
}

// RenderBatchScript returns the sbatch script requesting one block for config. When command is not
// empty it is appended, wrapped by the provider's launcher.
func RenderBatchScript(config configuration.ExecutorConfig, command string) (string, error) {
	if command != "" {
		launched, err := LaunchCommand(config.Provider.Launcher, config.Provider.NodesPerBlock, command)
		if err != nil {
			return "", err
		}
		command = launched
	}
	config.Provider.WorkerInit = strings.TrimSpace(config.Provider.WorkerInit)

	var sb strings.Builder
	if err := batchScriptTemplate.Execute(&sb, batchScript{ExecutorConfig: config, Command: command}); err != nil {
		return "", errors.WithStack(err)
	}
	return sb.String(), nil
}
