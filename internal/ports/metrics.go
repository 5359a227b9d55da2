package ports

import (
	"time"

	"gaint-shopify-connector/internal/domain"
)

// MetricsRecorder receives the service's operational measurements
type MetricsRecorder interface {
	ObserveAdminQuery(query string, elapsed time.Duration, err error)
	IncValidation(outcome domain.ResultKind)
	IncGateRejection(field domain.ToggleField)
	SetActiveSessions(n int)
}
