package struggle

import (
	"testing"
	"time"

	"github.com/playperu/pacer/internal/pacer"
)

var now = time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)

func eligible(distance, rolling float64) pacer.RunStats {
	return pacer.RunStats{
		ElapsedSeconds:        600,
		DistanceMiles:         distance,
		RollingPaceMinPerMile: rolling,
		IsRunning:             true,
	}
}

func TestEvaluate(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)

	tests := []struct {
		name    string
		in      Input
		want    pacer.TriggerType
		wantHit bool
	}{
		{
			name:    "pace drop at 7.8 percent",
			in:      Input{Stats: eligible(1.2, 9.7), BaselinePace: 9.0, Now: now},
			want:    pacer.TriggerPaceDrop,
			wantHit: true,
		},
		{
			name: "below pace drop threshold",
			in:   Input{Stats: eligible(1.2, 9.0*1.069), BaselinePace: 9.0, Now: now},
		},
		{
			name:    "stall at 2.1 miles 16 percent slower",
			in:      Input{Stats: eligible(2.1, 9.0*1.16), BaselinePace: 9.0, Now: now},
			want:    pacer.TriggerStall,
			wantHit: true,
		},
		{
			name:    "stall at 2.1 miles 18 percent slower",
			in:      Input{Stats: eligible(2.1, 9.0*1.18), BaselinePace: 9.0, Now: now},
			want:    pacer.TriggerStall,
			wantHit: true,
		},
		{
			name:    "10 percent at 2.1 miles is only a pace drop",
			in:      Input{Stats: eligible(2.1, 9.9), BaselinePace: 9.0, Now: now},
			want:    pacer.TriggerPaceDrop,
			wantHit: true,
		},
		{
			name:    "16 percent before mile 2 is a pace drop",
			in:      Input{Stats: eligible(1.9, 9.0*1.16), BaselinePace: 9.0, Now: now},
			want:    pacer.TriggerPaceDrop,
			wantHit: true,
		},
		{
			name: "no baseline yet",
			in:   Input{Stats: eligible(2.5, 12), Now: now},
		},
		{
			name: "too early",
			in: Input{
				Stats:        pacer.RunStats{ElapsedSeconds: 359, DistanceMiles: 1, RollingPaceMinPerMile: 12},
				BaselinePace: 9, Now: now,
			},
		},
		{
			name: "too short",
			in:   Input{Stats: eligible(0.74, 12), BaselinePace: 9, Now: now},
		},
		{
			name: "in cooldown",
			in: Input{
				Stats: eligible(1.2, 12), BaselinePace: 9,
				LastEventTime: now.Add(-179 * time.Second), EventCount: 1, Now: now,
			},
		},
		{
			name: "cooldown elapsed",
			in: Input{
				Stats: eligible(1.2, 12), BaselinePace: 9,
				LastEventTime: now.Add(-180 * time.Second), EventCount: 1, Now: now,
			},
			want:    pacer.TriggerPaceDrop,
			wantHit: true,
		},
		{
			name: "max events reached",
			in:   Input{Stats: eligible(1.2, 12), BaselinePace: 9, EventCount: 6, Now: now},
		},
		{
			name: "late run beats pace drop",
			in: Input{
				Stats: pacer.RunStats{ElapsedSeconds: 1550, DistanceMiles: 2.9, RollingPaceMinPerMile: 12},
				BaselinePace: 9, EstimatedTotal: 30 * time.Minute, Now: now,
			},
			want:    pacer.TriggerLateRun,
			wantHit: true,
		},
		{
			name: "late run needs the 85 percent mark",
			in: Input{
				Stats:          pacer.RunStats{ElapsedSeconds: 1500, DistanceMiles: 2.9, RollingPaceMinPerMile: 9},
				BaselinePace:   9,
				EstimatedTotal: 30 * time.Minute,
				Now:            now,
			},
		},
		{
			name: "late run fires without baseline",
			in: Input{
				Stats:          pacer.RunStats{ElapsedSeconds: 1600, DistanceMiles: 2.9},
				EstimatedTotal: 30 * time.Minute,
				Now:            now,
			},
			want:    pacer.TriggerLateRun,
			wantHit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := d.Evaluate(tt.in)
			if hit != tt.wantHit || got != tt.want {
				t.Errorf("Evaluate = (%q, %v), want (%q, %v)", got, hit, tt.want, tt.wantHit)
			}
		})
	}
}

func TestIntensityCooldown(t *testing.T) {
	d := NewDetector(DefaultConfig(), DefaultIntensityCooldown())
	in := Input{
		Stats:         eligible(1.2, 12),
		BaselinePace:  9,
		LastEventTime: now.Add(-150 * time.Second),
		EventCount:    1,
		Now:           now,
	}

	tests := []struct {
		intensity pacer.Intensity
		wantHit   bool
	}{
		{pacer.IntensityLow, false},
		{pacer.IntensityMedium, false},
		{pacer.IntensityHigh, true},
		{pacer.Intensity(""), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.intensity), func(t *testing.T) {
			in := in
			in.Intensity = tt.intensity
			if _, hit := d.Evaluate(in); hit != tt.wantHit {
				t.Errorf("hit = %v, want %v", hit, tt.wantHit)
			}
		})
	}
}

func TestEvaluateDoesNotMutate(t *testing.T) {
	d := NewDetector(DefaultConfig(), FixedCooldown(time.Minute))
	in := Input{Stats: eligible(1.2, 12), BaselinePace: 9, Now: now}
	before := in
	d.Evaluate(in)
	d.Evaluate(in)
	if in != before {
		t.Errorf("input changed: %+v", in)
	}
	if _, hit := d.Evaluate(in); !hit {
		t.Errorf("repeated evaluation should keep firing without recorded events")
	}
}
