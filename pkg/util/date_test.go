package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2023-01-01")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Year() != 2023 || got.Month() != time.January || got.Day() != 1 {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParsePeriod(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	cases := map[string]time.Time{
		"30d": time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC),
		"2w":  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		"6mo": time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC),
		"1y":  time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		"ytd": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"max": {},
	}
	for in, want := range cases {
		got, err := ParsePeriod(in, now)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%s: got %v want %v", in, got, want)
		}
	}
	for _, bad := range []string{"", "abc", "0d", "-1y", "3h"} {
		if _, err := ParsePeriod(bad, now); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("  408920.kq "); got != "408920.KQ" {
		t.Fatalf("unexpected symbol %q", got)
	}
}
