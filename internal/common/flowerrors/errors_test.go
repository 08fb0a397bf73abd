package flowerrors

import (
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestExitCodeFromError(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"nil":                             {nil, ExitCodeOK},
		"ErrInvalidArgument":              {&ErrInvalidArgument{}, ExitCodeInvalidArgument},
		"ErrNotFound":                     {&ErrNotFound{}, ExitCodeInvalidArgument},
		"ErrWalltimeExceeded":             {&ErrWalltimeExceeded{}, ExitCodeTimeout},
		"pkg.Error => ErrInvalidArgument": {errors.WithMessage(&ErrInvalidArgument{}, "foo"), ExitCodeInvalidArgument},
		"ErrStageFailed => walltime": {
			&ErrStageFailed{Structure: "Al", Stage: "q2r", Cause: &ErrWalltimeExceeded{Job: "q2r-Al"}},
			ExitCodeTimeout,
		},
		"multierror => walltime": {
			multierror.Append(nil, errors.New("foo"), &ErrWalltimeExceeded{Job: "q2r-Al"}),
			ExitCodeTimeout,
		},
		"ErrStageFailed => ErrNotFound": {
			&ErrStageFailed{Structure: "Al", Stage: "q2r", Cause: &ErrNotFound{Type: "file", Value: "matdyn0"}},
			ExitCodeFailure,
		},
		"multierror => ErrNotFound then walltime": {
			multierror.Append(nil,
				&ErrStageFailed{Structure: "Li", Stage: "grid_phonon", Cause: &ErrNotFound{Type: "pseudopotential", Value: "Li"}},
				&ErrStageFailed{Structure: "Al", Stage: "matdyn", Cause: &ErrWalltimeExceeded{Job: "matdyn-Al"}}),
			ExitCodeTimeout,
		},
		"pkg.Error": {errors.New("foo"), ExitCodeFailure},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCodeFromError(tc.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		`value -1 is invalid for field "maxBlocks"; must be positive`,
		(&ErrInvalidArgument{Name: "maxBlocks", Value: -1, Message: "must be positive"}).Error())
	assert.Equal(t,
		`resource "gpu" of type "executor" does not exist`,
		(&ErrNotFound{Type: "executor", Value: "gpu"}).Error())
	assert.Equal(t,
		"job relax-Al exceeded walltime of 20m0s",
		(&ErrWalltimeExceeded{Job: "relax-Al", Walltime: 20 * time.Minute}).Error())

	cause := errors.New("pw.x exited with status 1")
	err := &ErrStageFailed{Structure: "Cu", Stage: "grid_phonon", Cause: cause}
	assert.Equal(t, "stage grid_phonon failed for structure Cu: pw.x exited with status 1", err.Error())
	assert.True(t, errors.Is(err, cause))
}
