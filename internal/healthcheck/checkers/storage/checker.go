package storagechecker

import (
	"context"

	"github.com/memohai/supportdesk/internal/healthcheck"
	"github.com/memohai/supportdesk/internal/media"
)

const checkTypeStorage = "storage.provider"

// Checker pings the upload storage backend.
type Checker struct {
	service *media.Service
}

func NewChecker(service *media.Service) *Checker {
	return &Checker{service: service}
}

func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{ID: checkTypeStorage, Type: checkTypeStorage}
	if !c.service.Enabled() {
		item.Status = healthcheck.StatusWarn
		item.Summary = "File uploads are disabled."
		return []healthcheck.CheckResult{item}
	}
	pinger, ok := c.service.Provider().(media.Pinger)
	if !ok {
		item.Status = healthcheck.StatusOK
		item.Summary = "Storage provider configured."
		return []healthcheck.CheckResult{item}
	}
	if err := pinger.Ping(ctx); err != nil {
		item.Status = healthcheck.StatusError
		item.Summary = "Storage provider is unreachable."
		item.Detail = err.Error()
		return []healthcheck.CheckResult{item}
	}
	item.Status = healthcheck.StatusOK
	item.Summary = "Storage provider is reachable."
	return []healthcheck.CheckResult{item}
}
