package record

import (
	"errors"
	"time"
)

type FMEARecord struct {
	ID               string    `json:"id"`
	ProcessName      string    `json:"processName"`
	Date             string    `json:"date"`
	PotentialFailure string    `json:"potentialFailure"`
	Severity         int       `json:"severity"`
	Occurrence       int       `json:"occurrence"`
	Detection        int       `json:"detection"`
	RPN              int       `json:"rpn"`
	Description      string    `json:"description,omitempty"`
	UserID           string    `json:"userId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("record not found")

type CreateRecordRequest struct {
	ProcessName      string `json:"processName" binding:"required,min=1,max=200"`
	Date             string `json:"date" binding:"required,datetime=2006-01-02"`
	PotentialFailure string `json:"potentialFailure" binding:"required,min=1,max=1000"`
	Severity         int    `json:"severity" binding:"required,min=1,max=10"`
	Occurrence       int    `json:"occurrence" binding:"required,min=1,max=10"`
	Detection        int    `json:"detection" binding:"required,min=1,max=10"`
	Description      string `json:"description" binding:"omitempty,max=2000"`
	// set from the authenticated identity, never from the body
	UserID string `json:"-"`
}

// partial update, nil means "leave as is". rpn is derived and never accepted
// from a caller.
type UpdateRecordRequest struct {
	ProcessName      *string `json:"processName" binding:"omitnil,min=1,max=200"`
	Date             *string `json:"date" binding:"omitnil,datetime=2006-01-02"`
	PotentialFailure *string `json:"potentialFailure" binding:"omitnil,min=1,max=1000"`
	Severity         *int    `json:"severity" binding:"omitnil,min=1,max=10"`
	Occurrence       *int    `json:"occurrence" binding:"omitnil,min=1,max=10"`
	Detection        *int    `json:"detection" binding:"omitnil,min=1,max=10"`
	Description      *string `json:"description" binding:"omitnil,max=2000"`
}

// TouchesRatings reports whether the partial includes any of the three rating
// fields, which forces an rpn recompute before persistence.
func (r UpdateRecordRequest) TouchesRatings() bool {
	return r.Severity != nil || r.Occurrence != nil || r.Detection != nil
}

// ApplyTo merges the partial over an existing record and returns the merged
// copy with rpn recomputed from whichever ratings ended up effective.
func (r UpdateRecordRequest) ApplyTo(cur FMEARecord) FMEARecord {
	if r.ProcessName != nil {
		cur.ProcessName = *r.ProcessName
	}

	if r.Date != nil {
		cur.Date = *r.Date
	}

	if r.PotentialFailure != nil {
		cur.PotentialFailure = *r.PotentialFailure
	}

	if r.Severity != nil {
		cur.Severity = *r.Severity
	}

	if r.Occurrence != nil {
		cur.Occurrence = *r.Occurrence
	}

	if r.Detection != nil {
		cur.Detection = *r.Detection
	}

	if r.Description != nil {
		cur.Description = *r.Description
	}

	if r.TouchesRatings() {
		cur.RPN = RPN(cur.Severity, cur.Occurrence, cur.Detection)
	}

	return cur
}
