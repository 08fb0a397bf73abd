package phononflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/phononflow/internal/common/flowerrors"
	"github.com/G-Research/phononflow/internal/engine"
	"github.com/G-Research/phononflow/internal/recipes"
	"github.com/G-Research/phononflow/internal/structure"
)

// GridPhononDosSubflow runs relax+phonon, q2r and matdyn for every structure and resolves to the
// final matdyn result of each, in input order.
//
// Each stage is submitted to the executor called label as a separate job. Pipelines of different
// structures run concurrently while the stages of one structure run in order. Every pipeline runs
// to completion; if any of them fails the future resolves to a *multierror.Error holding one
// *flowerrors.ErrStageFailed per failed structure and no results.
func GridPhononDosSubflow(
	ctx context.Context,
	eng *engine.Engine,
	label string,
	r recipes.Recipes,
	structures []structure.Structure,
	params recipes.Params,
) *engine.Future[[]recipes.StageResult] {
	return engine.Subflow(ctx, eng, "grid_phonon_dos_subflow", func(ctx context.Context) ([]recipes.StageResult, error) {
		if len(structures) == 0 {
			return nil, &flowerrors.ErrInvalidArgument{
				Name:    "structures",
				Value:   0,
				Message: "at least one structure is required",
			}
		}

		results := make([]recipes.StageResult, len(structures))
		errs := make([]error, len(structures))
		var wg sync.WaitGroup
		for i := range structures {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = runPipeline(ctx, eng, label, r, structures[i], params)
			}()
		}
		wg.Wait()

		var result *multierror.Error
		for _, err := range errs {
			if err != nil {
				result = multierror.Append(result, err)
			}
		}
		if err := result.ErrorOrNil(); err != nil {
			return nil, err
		}
		return results, nil
	})
}

// runPipeline chains the three stages of one structure, feeding each stage the directory of the
// previous one.
func runPipeline(
	ctx context.Context,
	eng *engine.Engine,
	label string,
	r recipes.Recipes,
	s structure.Structure,
	params recipes.Params,
) (recipes.StageResult, error) {
	logger := log.WithField("structure", s.Name)

	stage := func(name string, fn func(context.Context) (recipes.StageResult, error)) (recipes.StageResult, error) {
		job := engine.Submit(ctx, eng, label, fmt.Sprintf("%s-%s", name, s.Name), fn)
		stageLogger := logger.WithFields(log.Fields{"stage": name, "job": job.Name()})
		stageLogger.Info("Stage submitted")
		result, err := job.Result(ctx)
		if err != nil {
			stageLogger.WithError(err).Error("Stage failed")
			return recipes.StageResult{}, &flowerrors.ErrStageFailed{Structure: s.Name, Stage: name, Cause: err}
		}
		stageLogger.WithField("dir", result.DirName).Info("Stage complete")
		return result, nil
	}

	a, err := stage(recipes.StageGridPhonon, func(ctx context.Context) (recipes.StageResult, error) {
		return r.GridPhononFlow(ctx, s, params.GridPhonon)
	})
	if err != nil {
		return recipes.StageResult{}, err
	}
	b, err := stage(recipes.StageQ2R, func(ctx context.Context) (recipes.StageResult, error) {
		return r.Q2RJob(ctx, a.DirName, params.Q2R)
	})
	if err != nil {
		return recipes.StageResult{}, err
	}
	return stage(recipes.StageMatdyn, func(ctx context.Context) (recipes.StageResult, error) {
		return r.MatdynJob(ctx, b.DirName, params.Matdyn)
	})
}
