package schedule

import (
	"strings"
	"testing"
	"time"

	"heimdall/model"
)

func TestCrontabDefaults(t *testing.T) {
	got := Crontab(model.ScheduleSpec{})
	if got != "* * * * * * *" {
		t.Errorf("Crontab(empty) = %q, want all wildcards", got)
	}
}

func TestCrontabFields(t *testing.T) {
	spec := model.ScheduleSpec{
		Second: 0,
		Minute: 30,
		Hour:   "*/2",
		Day:    15,
		Month:  "6",
		Year:   2026,
	}
	got := Crontab(spec)
	want := "0 30 */2 15 6 * 2026"
	if got != want {
		t.Errorf("Crontab = %q, want %q", got, want)
	}
}

func TestCrontabFloatFields(t *testing.T) {
	// JSON decoding hands us float64 for numeric fields.
	spec := model.ScheduleSpec{Minute: float64(5), Hour: float64(3)}
	got := Crontab(spec)
	want := "* 5 3 * * * *"
	if got != want {
		t.Errorf("Crontab = %q, want %q", got, want)
	}
}

func TestCrontabDayOfWeekRemap(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{0, "1"}, // platform Monday -> crontab Monday
		{3, "4"},
		{5, "6"},
		{6, "0"}, // platform Sunday -> crontab Sunday
		{nil, "*"},
		{"1-5", "1-5"}, // ranges pass through untouched
	}
	for _, tt := range tests {
		spec := model.ScheduleSpec{DayOfWeek: tt.in}
		fields := strings.Fields(Crontab(spec))
		if got := fields[5]; got != tt.want {
			t.Errorf("day_of_week %v -> %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestComputeHourly(t *testing.T) {
	ref := time.Date(2018, 10, 26, 1, 30, 0, 0, time.UTC)
	win, err := Compute("0 0 * * * * *", ref)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if want := time.Date(2018, 10, 26, 1, 0, 0, 0, time.UTC); !win.Previous.Equal(want) {
		t.Errorf("Previous = %v, want %v", win.Previous, want)
	}
	if want := time.Date(2018, 10, 26, 2, 0, 0, 0, time.UTC); !win.Next.Equal(want) {
		t.Errorf("Next = %v, want %v", win.Next, want)
	}
	if win.Period() != time.Hour {
		t.Errorf("Period = %v, want 1h", win.Period())
	}
}

func TestComputeRefOnFireInstant(t *testing.T) {
	// A reference that is itself a fire time counts as the previous firing.
	ref := time.Date(2018, 10, 26, 1, 0, 0, 0, time.UTC)
	win, err := Compute("0 0 * * * * *", ref)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !win.Previous.Equal(ref) {
		t.Errorf("Previous = %v, want ref %v", win.Previous, ref)
	}
	if want := ref.Add(time.Hour); !win.Next.Equal(want) {
		t.Errorf("Next = %v, want %v", win.Next, want)
	}
}

func TestComputeUnsatisfiable(t *testing.T) {
	// February 30th never occurs.
	ref := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := Compute("0 0 0 30 2 * *", ref); err == nil {
		t.Error("expected error for unsatisfiable schedule")
	}
}

func TestComputeMalformed(t *testing.T) {
	if _, err := Compute("not a schedule", time.Now()); err == nil {
		t.Error("expected error for malformed expression")
	}
}

func TestWindowContains(t *testing.T) {
	prev := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	win := Window{Previous: prev, Next: prev.Add(time.Hour)}

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"previous instant", prev, true},
		{"next instant", win.Next, true},
		{"inside", prev.Add(10 * time.Minute), true},
		{"low buffer start", prev.Add(-time.Hour), true},
		{"inside low buffer", prev.Add(-30 * time.Minute), true},
		{"before low buffer", prev.Add(-time.Hour - time.Second), false},
		{"after next", win.Next.Add(time.Second), false},
	}
	for _, tt := range tests {
		if got := win.Contains(tt.t); got != tt.want {
			t.Errorf("%s: Contains(%v) = %v, want %v", tt.name, tt.t, got, tt.want)
		}
	}
}
