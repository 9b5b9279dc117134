package types

import "fmt"

// Verdict is the top-level outcome of a transcode comparison.
type Verdict uint8

const (
	VerdictEquivalent Verdict = iota
	VerdictImproved
	VerdictRegressed
	VerdictMixed
)

// Verdicts lists every verdict.
var Verdicts = []Verdict{VerdictEquivalent, VerdictImproved, VerdictRegressed, VerdictMixed}

func (v Verdict) String() string {
	switch v {
	case VerdictEquivalent:
		return "equivalent"
	case VerdictImproved:
		return "improved"
	case VerdictRegressed:
		return "regressed"
	case VerdictMixed:
		return "mixed"
	default:
		return fmt.Sprintf("verdict(%d)", uint8(v))
	}
}

// ParseVerdict resolves a verdict name.
func ParseVerdict(s string) (Verdict, error) {
	for _, v := range Verdicts {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown verdict %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	if v > VerdictMixed {
		return nil, fmt.Errorf("invalid verdict %d", uint8(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
