package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier writes the alert to the structured log. Stands in for a mail
// provider until one is wired up.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendHighRiskAlert(ctx context.Context, in HighRiskAlertInput) error {
	n.log.WarnContext(ctx, "high risk fmea record",
		"record_id", in.Record.ID,
		"process", in.Record.ProcessName,
		"rpn", in.Record.RPN,
		"band", in.Band,
		"email", in.Email,
	)
	return nil
}
