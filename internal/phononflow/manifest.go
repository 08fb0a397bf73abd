package phononflow

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/G-Research/phononflow/internal/common/util"
	"github.com/G-Research/phononflow/internal/recipes"
	"github.com/G-Research/phononflow/internal/structure"
)

// Manifest summarises a successful batch: which directory holds the final result of each structure.
type Manifest struct {
	RunId    string          `yaml:"runId"`
	Executor string          `yaml:"executor"`
	Started  time.Time       `yaml:"started"`
	Finished time.Time       `yaml:"finished"`
	Results  []ManifestEntry `yaml:"results"`
}

type ManifestEntry struct {
	Structure string `yaml:"structure"`
	Element   string `yaml:"element"`
	Cubic     bool   `yaml:"cubic"`
	Stage     string `yaml:"stage"`
	DirName   string `yaml:"dirName"`
}

func newManifest(runId, executor string, started, finished time.Time, structures []structure.Structure, results []recipes.StageResult) *Manifest {
	m := &Manifest{
		RunId:    runId,
		Executor: executor,
		Started:  started.UTC(),
		Finished: finished.UTC(),
		Results:  make([]ManifestEntry, len(results)),
	}
	for i, result := range results {
		m.Results[i] = ManifestEntry{
			Structure: structures[i].Name,
			Element:   structures[i].Element,
			Cubic:     structures[i].Cubic,
			Stage:     result.Stage,
			DirName:   result.DirName,
		}
	}
	return m
}

// Summary lists the final directory of each structure as an aligned table.
func (m *Manifest) Summary() string {
	table := util.NewTable("STRUCTURE", "STAGE", "DIRECTORY")
	for _, entry := range m.Results {
		table.Row(entry.Structure, entry.Stage, entry.DirName)
	}
	return table.String()
}

func manifestPath(resultsDir, runId string) string {
	return filepath.Join(resultsDir, fmt.Sprintf("manifest-%s.yaml", runId))
}

// Write stores the manifest as yaml under resultsDir and returns the file written.
func (m *Manifest) Write(resultsDir string) (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return "", errors.WithStack(err)
	}
	path := manifestPath(resultsDir, m.RunId)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.WithStack(err)
	}
	return path, nil
}

// ReadManifest loads a manifest written by Write.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, errors.Wrapf(err, "error parsing manifest %s", path)
	}
	return m, nil
}
