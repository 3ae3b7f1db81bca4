package notifications

import (
	"context"

	"github.com/qcheck-dev/qcheck/internal/domain/record"
)

type HighRiskAlertInput struct {
	Record record.FMEARecord
	Band   string
	// owning user's email, resolved by the caller
	Email string
}

// Notifier delivers a high-risk alert when a write lands a record in the
// Critical badge band. Delivery happens inline with the triggering request,
// there is no queue or retry behind this interface.
type Notifier interface {
	SendHighRiskAlert(ctx context.Context, input HighRiskAlertInput) error
}
