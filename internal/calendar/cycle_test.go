package calendar

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSexagenary(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "甲子"},
		{1, "乙丑"},
		{36, "庚子"},
		{40, "甲辰"},
		{59, "癸亥"},
		{60, "甲子"},
		{-1, "癸亥"},
		{-60, "甲子"},
		{-61, "癸亥"},
		{125, "己巳"},
		{-125, "己未"},
	}

	for _, tt := range tests {
		if got := Sexagenary(tt.n).String(); got != tt.want {
			t.Errorf("Sexagenary(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestGanZhi_IndexRoundTrip(t *testing.T) {
	seen := make(map[string]bool)
	for k := 0; k < CycleLength; k++ {
		g := Sexagenary(k)
		if got := g.Index(); got != k {
			t.Errorf("Sexagenary(%d).Index() = %d", k, got)
		}
		seen[g.String()] = true
	}
	if len(seen) != CycleLength {
		t.Errorf("cycle produced %d distinct terms, want %d", len(seen), CycleLength)
	}
}

func TestGanZhi_IndexInvalidPair(t *testing.T) {
	// 甲 is yang, 丑 is yin: never paired in the cycle.
	g := GanZhi{Stem: 0, Branch: 1}
	if got := g.Index(); got != -1 {
		t.Errorf("Index() of 甲丑 = %d, want -1", got)
	}
}

func TestGanZhi_Add(t *testing.T) {
	g := Sexagenary(58)
	if got := g.Add(3).String(); got != "乙丑" {
		t.Errorf("壬戌.Add(3) = %s, want 乙丑", got)
	}
	if got := g.Add(-59).String(); got != "癸亥" {
		t.Errorf("壬戌.Add(-59) = %s, want 癸亥", got)
	}
}

func TestParseGanZhi(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"庚辰", "庚辰", false},
		{"癸亥", "癸亥", false},
		{"甲丑", "", true},
		{"甲", "", true},
		{"甲子年", "", true},
		{"子甲", "", true},
		{"AB", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGanZhi(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGanZhi(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrMalformedReference) {
					t.Errorf("ParseGanZhi(%q) error = %v, want ErrMalformedReference", tt.input, err)
				}
				return
			}
			if got.String() != tt.want {
				t.Errorf("ParseGanZhi(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestElements(t *testing.T) {
	stemTests := []struct {
		stem Stem
		want Element
	}{
		{0, Wood}, {1, Wood}, {2, Fire}, {5, Earth}, {6, Metal}, {9, Water},
	}
	for _, tt := range stemTests {
		if got := tt.stem.Element(); got != tt.want {
			t.Errorf("%s.Element() = %s, want %s", tt.stem, got, tt.want)
		}
	}

	branchTests := []struct {
		branch Branch
		want   Element
	}{
		{0, Water}, {1, Earth}, {2, Wood}, {5, Fire}, {8, Metal}, {10, Earth}, {11, Water},
	}
	for _, tt := range branchTests {
		if got := tt.branch.Element(); got != tt.want {
			t.Errorf("%s.Element() = %s, want %s", tt.branch, got, tt.want)
		}
	}
}

func TestBranch_AnimalAndHourRange(t *testing.T) {
	if got := Branch(0).Animal(); got != "鼠" {
		t.Errorf("子.Animal() = %s, want 鼠", got)
	}
	if got := Branch(4).Animal(); got != "龙" {
		t.Errorf("辰.Animal() = %s, want 龙", got)
	}
	if got := Branch(7).HourRange(); got != "13:00-14:59" {
		t.Errorf("未.HourRange() = %s, want 13:00-14:59", got)
	}
	if got := Branch(-1).String(); got != "亥" {
		t.Errorf("Branch(-1) = %s, want 亥", got)
	}
}

func TestGanZhi_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]GanZhi{"day": Sexagenary(40)})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"day":"甲辰"}` {
		t.Errorf("Marshal() = %s, want {\"day\":\"甲辰\"}", data)
	}

	var decoded map[string]GanZhi
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["day"] != Sexagenary(40) {
		t.Errorf("Unmarshal() = %s, want 甲辰", decoded["day"])
	}

	if err := json.Unmarshal([]byte(`{"day":"甲丑"}`), &decoded); err == nil {
		t.Error("Unmarshal() of invalid pair succeeded, want error")
	}
}
