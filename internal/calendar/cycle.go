// Package calendar provides sexagenary (GanZhi) calendar calculations:
// lunisolar date conversion, solar terms, and the four pillars.
package calendar

import (
	"fmt"
	"unicode/utf8"
)

// Element is one of the five phases (五行).
type Element int

const (
	Wood Element = iota
	Fire
	Earth
	Metal
	Water
)

var elementNames = [...]string{"木", "火", "土", "金", "水"}

// String returns the traditional character for the element.
func (e Element) String() string {
	if e < Wood || e > Water {
		return fmt.Sprintf("Element(%d)", int(e))
	}
	return elementNames[e]
}

// Stem is a heavenly stem (天干), 0 = 甲 through 9 = 癸.
type Stem int

// Branch is an earthly branch (地支), 0 = 子 through 11 = 亥.
type Branch int

const (
	NumStems    = 10
	NumBranches = 12
	CycleLength = 60
)

var (
	stemNames   = [NumStems]string{"甲", "乙", "丙", "丁", "戊", "己", "庚", "辛", "壬", "癸"}
	branchNames = [NumBranches]string{"子", "丑", "寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥"}
	animalNames = [NumBranches]string{"鼠", "牛", "虎", "兔", "龙", "蛇", "马", "羊", "猴", "鸡", "狗", "猪"}

	branchElements = [NumBranches]Element{
		Water, Earth, Wood, Wood, Earth, Fire, Fire, Earth, Metal, Metal, Earth, Water,
	}

	hourRanges = [NumBranches]string{
		"23:00-00:59", "01:00-02:59", "03:00-04:59", "05:00-06:59",
		"07:00-08:59", "09:00-10:59", "11:00-12:59", "13:00-14:59",
		"15:00-16:59", "17:00-18:59", "19:00-20:59", "21:00-22:59",
	}
)

// String returns the stem character.
func (s Stem) String() string {
	return stemNames[mod(int(s), NumStems)]
}

// Element returns the stem's phase. Stems pair up: 甲乙 wood, 丙丁 fire, ...
func (s Stem) Element() Element {
	return Element(mod(int(s), NumStems) / 2)
}

// IsYang reports whether the stem is yang (even index).
func (s Stem) IsYang() bool {
	return mod(int(s), NumStems)%2 == 0
}

// String returns the branch character.
func (b Branch) String() string {
	return branchNames[mod(int(b), NumBranches)]
}

// Element returns the branch's phase.
func (b Branch) Element() Element {
	return branchElements[mod(int(b), NumBranches)]
}

// Animal returns the zodiac animal tied to the branch.
func (b Branch) Animal() string {
	return animalNames[mod(int(b), NumBranches)]
}

// HourRange returns the civil clock range of the branch's double hour.
func (b Branch) HourRange() string {
	return hourRanges[mod(int(b), NumBranches)]
}

// StemFromRune looks up a stem by its character.
func StemFromRune(r rune) (Stem, bool) {
	for i, name := range stemNames {
		if []rune(name)[0] == r {
			return Stem(i), true
		}
	}
	return 0, false
}

// BranchFromRune looks up a branch by its character.
func BranchFromRune(r rune) (Branch, bool) {
	for i, name := range branchNames {
		if []rune(name)[0] == r {
			return Branch(i), true
		}
	}
	return 0, false
}

// GanZhi is one of the 60 valid stem/branch combinations.
// The zero value is 甲子.
type GanZhi struct {
	Stem   Stem
	Branch Branch
}

// Sexagenary returns the term at position n of the 60-cycle.
// Negative offsets wrap forward: Sexagenary(-1) is 癸亥.
func Sexagenary(n int) GanZhi {
	k := mod(n, CycleLength)
	return GanZhi{Stem: Stem(k % NumStems), Branch: Branch(k % NumBranches)}
}

// Index returns the position of g in the 60-cycle (0 = 甲子).
//
// A pair whose stem and branch parity differ has no position; Index
// returns -1 for it.
func (g GanZhi) Index() int {
	s := mod(int(g.Stem), NumStems)
	b := mod(int(g.Branch), NumBranches)
	if s%2 != b%2 {
		return -1
	}
	// k ≡ s (mod 10) and k ≡ b (mod 12); step through the five candidates.
	for k := s; k < CycleLength; k += NumStems {
		if k%NumBranches == b {
			return k
		}
	}
	return -1
}

// Add returns the term n steps after g.
func (g GanZhi) Add(n int) GanZhi {
	return Sexagenary(g.Index() + n)
}

// String returns the two-character form, e.g. "甲子".
func (g GanZhi) String() string {
	return g.Stem.String() + g.Branch.String()
}

// MarshalText implements encoding.TextMarshaler.
func (g GanZhi) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GanZhi) UnmarshalText(text []byte) error {
	parsed, err := ParseGanZhi(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ParseGanZhi parses a two-character stem/branch pair such as "庚辰".
// Only the 60 valid combinations are accepted.
func ParseGanZhi(s string) (GanZhi, error) {
	if utf8.RuneCountInString(s) != 2 {
		return GanZhi{}, malformedReference("ParseGanZhi", "%q is not a stem/branch pair", s)
	}
	runes := []rune(s)

	stem, ok := StemFromRune(runes[0])
	if !ok {
		return GanZhi{}, malformedReference("ParseGanZhi", "%q is not a heavenly stem", string(runes[0]))
	}
	branch, ok := BranchFromRune(runes[1])
	if !ok {
		return GanZhi{}, malformedReference("ParseGanZhi", "%q is not an earthly branch", string(runes[1]))
	}

	g := GanZhi{Stem: stem, Branch: branch}
	if g.Index() < 0 {
		return GanZhi{}, malformedReference("ParseGanZhi", "%q is not in the sexagenary cycle", s)
	}
	return g, nil
}

// mod is the floored modulo: the result always lies in [0, m).
func mod(n, m int) int {
	r := n % m
	if r < 0 {
		r += m
	}
	return r
}
