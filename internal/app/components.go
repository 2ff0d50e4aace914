package app

import (
	"github.com/stacklok/toolhive-federation/internal/service"
	"github.com/stacklok/toolhive-federation/internal/telemetry"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// FederationService routes schema operations to repository managers
	FederationService service.Service

	// Telemetry owns the tracer and meter providers
	Telemetry *telemetry.Telemetry
}
