package record

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateRecordRequest) FMEARecord {
	now := time.Now().UTC()

	return FMEARecord{
		ID:               uuid.NewString(),
		ProcessName:      req.ProcessName,
		Date:             req.Date,
		PotentialFailure: req.PotentialFailure,
		Severity:         req.Severity,
		Occurrence:       req.Occurrence,
		Detection:        req.Detection,
		RPN:              RPN(req.Severity, req.Occurrence, req.Detection),
		Description:      req.Description,
		UserID:           req.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
