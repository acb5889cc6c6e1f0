package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/tunewise/tunewise/internal/models"
)

// ExecuteAction performs one approved action through the attached
// actuator. Actuator failure is data in the result, not a returned error;
// only lifecycle violations return an error.
func (b *base) ExecuteAction(ctx context.Context, name string, params models.ActionParams) (models.AgentActionResult, error) {
	restore, err := b.beginTask(models.AgentStateOptimizing)
	if err != nil {
		return models.AgentActionResult{}, err
	}
	defer restore()

	start := time.Now()
	res := models.AgentActionResult{Action: name}

	if b.act == nil {
		res.Success = true
		res.Message = "recorded, no actuator attached"
		res.Duration = time.Since(start)
		return res, nil
	}

	var actErr error
	switch params.Type {
	case models.ChangeRegistry:
		_, actErr = b.act.WriteConfigValue(ctx, params.Domain, params.Key, params.Value)
	case models.ChangeService:
		_, actErr = b.act.SetServiceState(ctx, params.Service, params.Enabled)
	case models.ChangeCompanion:
		actErr = b.act.LaunchCompanion(ctx, params.App)
	case models.ChangeResource:
		// Resource allocations are ledger bookkeeping; nothing to write.
	default:
		actErr = fmt.Errorf("unknown action type %q", params.Type)
	}

	res.Duration = time.Since(start)
	if actErr != nil {
		res.Message = actErr.Error()
		return res, nil
	}
	res.Success = true
	return res, nil
}
