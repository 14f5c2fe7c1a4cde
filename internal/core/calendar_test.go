package core

import "testing"

func TestPeriodKey(t *testing.T) {
	if got := PeriodKey(NewDate(2025, 3, 17)); got != "2025-03" {
		t.Fatalf("expected 2025-03, got %s", got)
	}
	if got := PeriodKey(NewDate(2025, 11, 1)); got != "2025-11" {
		t.Fatalf("expected 2025-11, got %s", got)
	}
}

func TestMonthEnd(t *testing.T) {
	cases := []struct {
		in   Date
		want Date
	}{
		{NewDate(2025, 1, 10), NewDate(2025, 1, 31)},
		{NewDate(2025, 2, 1), NewDate(2025, 2, 28)},
		{NewDate(2024, 2, 15), NewDate(2024, 2, 29)}, // leap year
		{NewDate(2025, 4, 30), NewDate(2025, 4, 30)},
		{NewDate(2025, 12, 1), NewDate(2025, 12, 31)},
	}
	for _, tc := range cases {
		if got := MonthEnd(tc.in); !got.Equal(tc.want.Time) {
			t.Fatalf("MonthEnd(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestMondayOf(t *testing.T) {
	// 2025-06-02 is a Monday.
	cases := []struct {
		in   Date
		want Date
	}{
		{NewDate(2025, 6, 2), NewDate(2025, 6, 2)}, // Monday maps to itself
		{NewDate(2025, 6, 4), NewDate(2025, 6, 2)},
		{NewDate(2025, 6, 8), NewDate(2025, 6, 2)}, // Sunday is day 7 of the same week
		{NewDate(2025, 6, 9), NewDate(2025, 6, 9)},
	}
	for _, tc := range cases {
		if got := MondayOf(tc.in); !got.Equal(tc.want.Time) {
			t.Fatalf("MondayOf(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestPartitionWeeksCoversMonth(t *testing.T) {
	months := []Date{
		NewDate(2025, 6, 1),  // starts on a Sunday
		NewDate(2025, 9, 1),  // starts on a Monday
		NewDate(2025, 2, 1),  // short month
		NewDate(2024, 2, 1),  // leap February
		NewDate(2025, 12, 1), // ends mid-week
	}
	for _, start := range months {
		end := MonthEnd(start)
		spans := PartitionWeeks(start, end)
		if len(spans) == 0 {
			t.Fatalf("%s: no spans", start)
		}
		if !spans[0].Start.Equal(start.Time) {
			t.Fatalf("%s: first span starts at %s", start, spans[0].Start)
		}
		if !spans[len(spans)-1].End.Equal(end.Time) {
			t.Fatalf("%s: last span ends at %s", start, spans[len(spans)-1].End)
		}
		totalDays := 0
		for i, s := range spans {
			if s.Index != i+1 {
				t.Fatalf("%s: span %d has index %d", start, i, s.Index)
			}
			if s.End.Before(s.Start) {
				t.Fatalf("%s: span %d ends before it starts", start, i)
			}
			if i > 0 {
				prev := spans[i-1]
				if !s.Start.Equal(prev.End.AddDays(1).Time) {
					t.Fatalf("%s: gap or overlap between span %d and %d", start, i, i+1)
				}
			}
			totalDays += int(s.End.Sub(s.Start.Time).Hours()/24) + 1
		}
		wantDays := int(end.Sub(start.Time).Hours()/24) + 1
		if totalDays != wantDays {
			t.Fatalf("%s: spans cover %d days, month has %d", start, totalDays, wantDays)
		}
	}
}

func TestPartitionWeeksMidWeekStart(t *testing.T) {
	// June 2025 starts on a Sunday: the first "week" is a single clipped day.
	spans := PartitionWeeks(NewDate(2025, 6, 1), NewDate(2025, 6, 30))
	if len(spans) != 6 {
		t.Fatalf("expected 6 spans, got %d", len(spans))
	}
	if !spans[0].Start.Equal(NewDate(2025, 6, 1).Time) || !spans[0].End.Equal(NewDate(2025, 6, 1).Time) {
		t.Fatalf("first span should be the clipped single Sunday, got %s..%s", spans[0].Start, spans[0].End)
	}
	if !spans[1].Start.Equal(NewDate(2025, 6, 2).Time) || !spans[1].End.Equal(NewDate(2025, 6, 8).Time) {
		t.Fatalf("second span should be a full week, got %s..%s", spans[1].Start, spans[1].End)
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2025, 7, 4)
	b, err := d.MarshalJSON()
	if err != nil || string(b) != `"2025-07-04"` {
		t.Fatalf("marshal: %s (err=%v)", b, err)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %s", back)
	}
}
