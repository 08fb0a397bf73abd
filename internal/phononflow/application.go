// Package phononflow computes the phonon density of states of a batch of bulk crystals.
package phononflow

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/G-Research/phononflow/internal/common"
	"github.com/G-Research/phononflow/internal/common/app"
	"github.com/G-Research/phononflow/internal/common/flowerrors"
	"github.com/G-Research/phononflow/internal/common/health"
	"github.com/G-Research/phononflow/internal/common/logging"
	"github.com/G-Research/phononflow/internal/common/util"
	"github.com/G-Research/phononflow/internal/engine"
	"github.com/G-Research/phononflow/internal/phononflow/configuration"
	"github.com/G-Research/phononflow/internal/provisioning"
	"github.com/G-Research/phononflow/internal/recipes"
	"github.com/G-Research/phononflow/internal/recipes/espresso"
	"github.com/G-Research/phononflow/internal/structure"
)

var (
	progressInterval = 30 * time.Second
	shutdownTimeout  = 10 * time.Second

	realClock  clock.WithTicker = clock.RealClock{}
	batchClock                  = realClock
)

// Run computes the batch described by config with the Quantum ESPRESSO binaries.
// It returns once every pipeline has finished or a SIGINT or SIGTERM is received.
func Run(config configuration.Configuration) error {
	if err := logging.Configure(config.Logging); err != nil {
		return err
	}
	hook, err := logging.NewPrometheusHook(prometheus.DefaultRegisterer)
	if err != nil {
		return errors.WithMessage(err, "error registering log metrics")
	}
	log.AddHook(hook)

	ctx, cancel := app.CreateContextWithShutdown(context.Background())
	defer cancel()

	startupCompleteCheck := health.NewStartupCompleteChecker()
	shutdownMetricsServer := common.ServeMetrics(config.MetricsPort, health.NewMultiChecker(startupCompleteCheck))
	defer shutdownMetricsServer()

	r := espresso.New(config.Espresso, config.ResultsDir, espresso.ExecRunner{})
	_, err = RunBatch(ctx, config, r, prometheus.DefaultRegisterer, startupCompleteCheck.MarkComplete)
	return err
}

// RunBatch builds every structure, runs their pipelines on the configured executor and writes the
// manifest. ready is called once all input has been validated and the batch has been submitted.
func RunBatch(
	ctx context.Context,
	config configuration.Configuration,
	r recipes.Recipes,
	reg prometheus.Registerer,
	ready func(),
) (*Manifest, error) {
	started := batchClock.Now()
	runId := util.NewRunId()
	logger := log.WithField("runId", runId)

	executorConfig, ok := config.ExecutorConfig(config.Executor)
	if !ok {
		return nil, &flowerrors.ErrNotFound{Type: "executor", Value: config.Executor}
	}
	logProvisioning(logger, executorConfig)

	structures, err := BuildStructures(config.Structures)
	if err != nil {
		return nil, err
	}
	if err := config.CheckPseudopotentials(); err != nil {
		return nil, err
	}
	params, err := recipes.NewParams(config.Stages, config.Espresso.ParallelInfo)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(config.Executors, reg)
	if err != nil {
		return nil, err
	}

	logger.WithField("executors", eng.Labels()).Infof("Submitting %d structures to executor %s", len(structures), config.Executor)
	g, groupCtx := errgroup.WithContext(ctx)
	batch := GridPhononDosSubflow(groupCtx, eng, config.Executor, r, structures, params)
	if ready != nil {
		ready()
	}

	var results []recipes.StageResult
	g.Go(func() error {
		var err error
		results, err = batch.Result(groupCtx)
		return err
	})
	g.Go(func() error {
		logProgress(groupCtx, batch.Done(), eng, batchClock)
		return nil
	})
	if err := g.Wait(); err != nil {
		if eng.Wait(shutdownTimeout) {
			logger.Warnf("Jobs still running %s after the batch was abandoned", shutdownTimeout)
		}
		logging.WithStacktrace(logger, err).Error("Batch failed")
		return nil, err
	}

	manifest := newManifest(runId, config.Executor, started, batchClock.Now(), structures, results)
	path, err := manifest.Write(config.ResultsDir)
	if err != nil {
		return nil, errors.WithMessage(err, "error writing manifest")
	}
	logger.Infof("Batch complete in %s, manifest written to %s\n%s", batchClock.Since(started), path, manifest.Summary())
	return manifest, nil
}

// BuildStructures builds every configured structure. Any unknown element fails the whole batch
// before anything is submitted.
func BuildStructures(configs []configuration.StructureConfig) ([]structure.Structure, error) {
	structures := make([]structure.Structure, 0, len(configs))
	for _, c := range configs {
		s, err := structure.Bulk(c.Element, c.Cubic)
		if err != nil {
			return nil, err
		}
		structures = append(structures, s)
	}
	return structures, nil
}

func logProvisioning(logger *log.Entry, config configuration.ExecutorConfig) {
	logger.WithFields(log.Fields{
		"executor":       config.Label,
		"account":        config.Provider.Account,
		"walltime":       config.Provider.Walltime,
		"workersPerNode": provisioning.WorkersPerNode(config),
		"capacity":       provisioning.Capacity(config),
	}).Info("Provisioning executor")
	script, err := provisioning.RenderBatchScript(config, "")
	if err != nil {
		logger.WithError(err).Warn("Could not render batch script")
		return
	}
	logger.Debugf("Batch script for each block:\n%s", script)
}

func logProgress(ctx context.Context, done <-chan struct{}, eng *engine.Engine, clk clock.WithTicker) {
	ticker := clk.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C():
			for _, s := range eng.Stats() {
				log.WithField("executor", s.Label).Infof(
					"%d of %d jobs finished, %d running on %d workers",
					s.Finished, s.Submitted, s.Running, s.Capacity)
			}
		}
	}
}
