package models

import (
	"errors"
	"testing"
	"time"
)

func TestActivityTypeValid(t *testing.T) {
	if len(ActivityTypes) != 10 {
		t.Fatalf("len(ActivityTypes) = %d, want 10", len(ActivityTypes))
	}
	for _, typ := range ActivityTypes {
		if !typ.Valid() {
			t.Errorf("%q.Valid() = false, want true", typ)
		}
	}

	for _, bad := range []string{"", "Code", "coding", "idle"} {
		if ActivityType(bad).Valid() {
			t.Errorf("%q.Valid() = true, want false", bad)
		}
		if _, err := ParseActivityType(bad); err == nil {
			t.Errorf("ParseActivityType(%q) returned nil error", bad)
		}
	}
}

func TestDurationBetween(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int64
	}{
		{"zero", start, 0},
		{"sub-second", start.Add(999 * time.Millisecond), 0},
		{"truncates", start.Add(4999 * time.Millisecond), 4},
		{"exact", start.Add(5 * time.Second), 5},
		{"negative", start.Add(-time.Second), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DurationBetween(start, tt.end); got != tt.want {
				t.Errorf("DurationBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestActivityLogBeforeCreate(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)

	valid := func() *ActivityLog {
		return &ActivityLog{
			AppName:         "code",
			ActivityType:    ActivityCode,
			StartedAt:       start,
			EndedAt:         start.Add(7 * time.Second),
			DurationSeconds: 7,
		}
	}

	if err := valid().BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate() on valid log error: %v", err)
	}

	unknown := valid()
	unknown.ActivityType = "gaming"
	if err := unknown.BeforeCreate(nil); !errors.Is(err, ErrUnknownActivityType) {
		t.Errorf("unknown type error = %v, want ErrUnknownActivityType", err)
	}

	short := valid()
	short.EndedAt = start.Add(4 * time.Second)
	short.DurationSeconds = 4
	if err := short.BeforeCreate(nil); !errors.Is(err, ErrTooShort) {
		t.Errorf("short log error = %v, want ErrTooShort", err)
	}

	mismatch := valid()
	mismatch.DurationSeconds = 9
	if err := mismatch.BeforeCreate(nil); !errors.Is(err, ErrBadInterval) {
		t.Errorf("mismatched duration error = %v, want ErrBadInterval", err)
	}

	reversed := valid()
	reversed.EndedAt = start.Add(-time.Second)
	if err := reversed.BeforeCreate(nil); !errors.Is(err, ErrBadInterval) {
		t.Errorf("reversed interval error = %v, want ErrBadInterval", err)
	}
}

func TestColorForIsStable(t *testing.T) {
	a := ColorFor("/home/dev/proj")
	b := ColorFor("/home/dev/proj/")
	if a != b {
		t.Errorf("ColorFor differs for equivalent paths: %s vs %s", a, b)
	}
}
