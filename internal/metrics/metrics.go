package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TenantResolutions counts host classification outcomes by mode
var TenantResolutions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_tenant_resolutions_total",
		Help: "Tenant resolution attempts by mode and outcome",
	},
	[]string{"mode", "outcome"},
)

// AuthDecisions counts auth gate terminal states
var AuthDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_auth_decisions_total",
		Help: "Auth gate decisions (public, forwarded, redirected)",
	},
	[]string{"decision"},
)

// TokenRefreshes counts identity provider token refresh attempts
var TokenRefreshes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_token_refreshes_total",
		Help: "OAuth refresh token exchanges by outcome",
	},
	[]string{"outcome"},
)

// ProfileFetches counts user profile procedure calls
var ProfileFetches = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_profile_fetches_total",
		Help: "User profile fetches by outcome",
	},
	[]string{"outcome"},
)

// SimulationsApplied counts admin simulation overlays by type
var SimulationsApplied = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_simulations_applied_total",
		Help: "Admin simulation overlays applied by type",
	},
	[]string{"type"},
)
