// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package setup

import (
	"context"
	"fmt"
)

// LoopStep is the repeated variant of a step: one execution of the
// loop body, reporting whether another iteration is needed.
type LoopStep interface {
	Name() string
	ExecuteOnce(ctx context.Context, setup *Context) (again bool, err error)
}

// Loop is a Step that owns a sub-sequence of LoopSteps and repeats it
// until no sub-step asks for another iteration. This makes the
// convergence loop composable into an ordinary step sequence.
type Loop struct {
	name  string
	steps []LoopStep
}

// NewLoop builds a Loop with the given name and sub-steps.
func NewLoop(name string, steps ...LoopStep) *Loop {
	return &Loop{name: name, steps: steps}
}

func (l *Loop) Name() string {
	return l.name
}

// Execute repeats the sub-sequence until every sub-step reports it is
// done, or a sub-step fails.
func (l *Loop) Execute(ctx context.Context, setup *Context) error {
	for {
		again := false
		for _, step := range l.steps {
			setup.Logger.Info("execute", "step", step.Name())
			more, err := step.ExecuteOnce(ctx, setup)
			if err != nil {
				return fmt.Errorf("%s: %w", step.Name(), err)
			}
			again = again || more
		}
		if !again {
			return nil
		}
	}
}
