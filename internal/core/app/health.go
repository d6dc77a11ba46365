package app

import (
	"context"

	"autoimport/internal/engine/index"
	"autoimport/internal/shared/observability"
)

// Health reports "up" unless a workspace index is in the error state.
func (a *App) Health(_ context.Context) observability.HealthStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	status := observability.HealthStatus{Status: "up", Workspaces: make(map[string]string, len(a.workspaces))}
	for root, ws := range a.workspaces {
		state := ws.idx.State()
		status.Workspaces[root] = state.String()
		if state == index.StateError {
			status.Status = "degraded"
		}
	}
	return status
}
