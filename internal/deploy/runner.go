package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Script is one deploy step. Scripts run in the order they are registered.
type Script interface {
	Name() string
	Tags() []string
	Run(ctx context.Context, env *Environment) error
}

// Runner executes scripts selected by tag.
type Runner struct {
	scripts []Script
	logger  *slog.Logger
}

// NewRunner creates a runner over scripts, in order.
func NewRunner(logger *slog.Logger, scripts ...Script) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{scripts: scripts, logger: logger}
}

// DefaultScripts returns the mocks, lottery and frontend steps.
func DefaultScripts() []Script {
	return []Script{
		NewMocksScript(),
		NewLotteryScript(),
		FrontendScript{},
	}
}

// Scripts returns the scripts matching any of tags. No tags selects all.
func (r *Runner) Scripts(tags ...string) []Script {
	if len(tags) == 0 {
		return slices.Clone(r.scripts)
	}
	var out []Script
	for _, s := range r.scripts {
		for _, tag := range tags {
			if slices.Contains(s.Tags(), tag) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Run executes the scripts matching tags against env.
func (r *Runner) Run(ctx context.Context, env *Environment, tags ...string) error {
	if err := env.validate(); err != nil {
		return err
	}
	if env.Logger == nil {
		env.Logger = r.logger
	}

	selected := r.Scripts(tags...)
	if len(selected) == 0 {
		return fmt.Errorf("deploy: no scripts match tags %v", tags)
	}

	for _, s := range selected {
		r.logger.Debug("running deploy script",
			slog.String("script", s.Name()),
			slog.String("network", env.Network.Name),
		)
		if err := s.Run(ctx, env); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return nil
}

// Fixture clears the network's recorded deployments and redeploys the
// tagged scripts. Tests call it for a fresh set of contracts.
func (r *Runner) Fixture(ctx context.Context, env *Environment, tags ...string) error {
	if err := env.validate(); err != nil {
		return err
	}
	if err := env.Store.Delete(ctx, env.Network.Name); err != nil {
		return fmt.Errorf("reset deployments: %w", err)
	}
	return r.Run(ctx, env, tags...)
}
