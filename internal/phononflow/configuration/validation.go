package configuration

import (
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/G-Research/phononflow/internal/common/flowerrors"
)

// Validate checks the constraints that struct tags cannot express.
func (c Configuration) Validate() error {
	var result *multierror.Error
	if err := c.Logging.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	labels := map[string]bool{}
	for _, e := range c.Executors {
		if labels[e.Label] {
			result = multierror.Append(result, &flowerrors.ErrInvalidArgument{
				Name:    "executors.label",
				Value:   e.Label,
				Message: "executor labels must be unique",
			})
		}
		labels[e.Label] = true
		p := e.Provider
		if p.InitBlocks > p.MaxBlocks {
			result = multierror.Append(result, &flowerrors.ErrInvalidArgument{
				Name:    "executors.provider.initBlocks",
				Value:   p.InitBlocks,
				Message: "initBlocks cannot exceed maxBlocks",
			})
		}
		if p.MinBlocks > p.MaxBlocks {
			result = multierror.Append(result, &flowerrors.ErrInvalidArgument{
				Name:    "executors.provider.minBlocks",
				Value:   p.MinBlocks,
				Message: "minBlocks cannot exceed maxBlocks",
			})
		}
	}
	if !labels[c.Executor] {
		result = multierror.Append(result, &flowerrors.ErrNotFound{
			Type:    "executor",
			Value:   c.Executor,
			Message: "executor must name one of the configured executors",
		})
	}
	if err := c.CheckPseudopotentials(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// CheckPseudopotentials returns an ErrNotFound for every structure element with no configured
// pseudopotential. Elements are matched ignoring case.
func (c Configuration) CheckPseudopotentials() error {
	available := make(map[string]bool, len(c.Espresso.Pseudopotentials))
	for element := range c.Espresso.Pseudopotentials {
		available[strings.ToLower(element)] = true
	}
	var result *multierror.Error
	for _, s := range c.Structures {
		element := strings.ToLower(s.Element)
		if available[element] {
			continue
		}
		available[element] = true
		result = multierror.Append(result, &flowerrors.ErrNotFound{
			Type:    "pseudopotential",
			Value:   s.Element,
			Message: "add it to espresso.pseudopotentials",
		})
	}
	return result.ErrorOrNil()
}
