package agentchecker

import (
	"context"

	"github.com/memohai/supportdesk/internal/boot"
	"github.com/memohai/supportdesk/internal/healthcheck"
)

const checkTypeAgent = "agent.state"

// StateReporter exposes the agent lifecycle.
type StateReporter interface {
	State() boot.State
	LastError() error
}

// Checker reports the agent initialization state.
type Checker struct {
	runtime StateReporter
}

func NewChecker(runtime StateReporter) *Checker {
	return &Checker{runtime: runtime}
}

func (c *Checker) ListChecks(context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{ID: checkTypeAgent, Type: checkTypeAgent}
	if c.runtime == nil {
		item.Status = healthcheck.StatusUnknown
		item.Summary = "Agent runtime is not available."
		return []healthcheck.CheckResult{item}
	}
	state := c.runtime.State()
	item.Metadata = map[string]any{"state": string(state)}
	switch state {
	case boot.StateReady:
		item.Status = healthcheck.StatusOK
		item.Summary = "Agent is ready."
	case boot.StateInitFailed:
		item.Status = healthcheck.StatusError
		item.Summary = "Agent initialization failed."
		if err := c.runtime.LastError(); err != nil {
			item.Detail = err.Error()
		}
	default:
		// Lazy init: not having served a chat yet is healthy.
		item.Status = healthcheck.StatusOK
		item.Summary = "Agent is " + string(state) + "."
	}
	return []healthcheck.CheckResult{item}
}
