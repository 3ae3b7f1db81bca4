package record

import "testing"

func TestRPNProductAndRange(t *testing.T) {
	for sev := 1; sev <= 10; sev++ {
		for occ := 1; occ <= 10; occ++ {
			for det := 1; det <= 10; det++ {
				got := RPN(sev, occ, det)

				if got != sev*occ*det {
					t.Fatalf("RPN(%d,%d,%d) = %d, want %d", sev, occ, det, got, sev*occ*det)
				}

				if got < 1 || got > 1000 {
					t.Fatalf("RPN(%d,%d,%d) = %d out of [1,1000]", sev, occ, det, got)
				}
			}
		}
	}
}

func TestBadgeBand(t *testing.T) {
	tests := []struct {
		rpn  int
		want string
	}{
		{250, BandCritical},
		{200, BandCritical},
		{199, BandHigh},
		{150, BandHigh},
		{100, BandHigh},
		{99, BandMedium},
		{75, BandMedium},
		{50, BandMedium},
		{49, BandLow},
		{10, BandLow},
		{1, BandLow},
	}

	for _, tt := range tests {
		if got := BadgeBand(tt.rpn); got != tt.want {
			t.Errorf("BadgeBand(%d) = %q, want %q", tt.rpn, got, tt.want)
		}
	}
}

func TestDashboardBand(t *testing.T) {
	tests := []struct {
		rpn  int
		want string
	}{
		// no Critical bucket here: anything at or above 100 is High
		{250, BandHigh},
		{120, BandHigh},
		{100, BandHigh},
		{99, BandMedium},
		{60, BandMedium},
		{50, BandMedium},
		{49, BandLow},
		{10, BandLow},
	}

	for _, tt := range tests {
		if got := DashboardBand(tt.rpn); got != tt.want {
			t.Errorf("DashboardBand(%d) = %q, want %q", tt.rpn, got, tt.want)
		}
	}
}

// the two schemes must stay independently correct and are allowed to disagree
// on records at or above 200.
func TestSchemesDisagreeOnCritical(t *testing.T) {
	if BadgeBand(250) == DashboardBand(250) {
		t.Fatalf("badge and dashboard schemes should disagree at rpn=250, both said %q", BadgeBand(250))
	}
}

func TestUpdateMergeRecomputesRPN(t *testing.T) {
	cur := FMEARecord{
		ProcessName: "Assembly Line A",
		Severity:    5,
		Occurrence:  4,
		Detection:   3,
		RPN:         60,
	}

	// updating a text field alone must leave rpn untouched
	name := "Assembly Line B"
	merged := UpdateRecordRequest{ProcessName: &name}.ApplyTo(cur)

	if merged.RPN != 60 {
		t.Fatalf("rpn changed on text-only update: got %d, want 60", merged.RPN)
	}

	if merged.ProcessName != name {
		t.Fatalf("processName not merged: got %q", merged.ProcessName)
	}

	// updating severity alone must recompute against the existing ratings
	sev := 10
	merged = UpdateRecordRequest{Severity: &sev}.ApplyTo(cur)

	if merged.RPN != 10*4*3 {
		t.Fatalf("rpn not recomputed from existing occurrence/detection: got %d, want %d", merged.RPN, 10*4*3)
	}
}
