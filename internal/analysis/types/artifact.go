package types

import "fmt"

// ArtifactType enumerates the compression artifacts the heuristics engine scores.
type ArtifactType uint8

const (
	ArtifactBlur ArtifactType = iota
	ArtifactBlocking
	ArtifactRinging
	ArtifactBanding
	ArtifactDarkDetailLoss
)

// ArtifactTypes lists every artifact type in evaluation order.
var ArtifactTypes = []ArtifactType{
	ArtifactBlur,
	ArtifactBlocking,
	ArtifactRinging,
	ArtifactBanding,
	ArtifactDarkDetailLoss,
}

func (a ArtifactType) String() string {
	switch a {
	case ArtifactBlur:
		return "blur"
	case ArtifactBlocking:
		return "blocking"
	case ArtifactRinging:
		return "ringing"
	case ArtifactBanding:
		return "banding"
	case ArtifactDarkDetailLoss:
		return "dark_detail_loss"
	default:
		return fmt.Sprintf("artifact(%d)", uint8(a))
	}
}

// Valid reports whether a is one of the known artifact types.
func (a ArtifactType) Valid() bool {
	return a <= ArtifactDarkDetailLoss
}

// ParseArtifactType resolves an artifact name.
func ParseArtifactType(s string) (ArtifactType, error) {
	for _, a := range ArtifactTypes {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown artifact type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a ArtifactType) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid artifact type %d", uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ArtifactType) UnmarshalText(text []byte) error {
	parsed, err := ParseArtifactType(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Level buckets a normalized severity.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// LevelFor buckets a severity in [0,1]: below 0.3 is low, below 0.6 medium.
func LevelFor(severity float64) Level {
	switch {
	case severity < 0.3:
		return LevelLow
	case severity < 0.6:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Impact classifies a comparison delta.
type Impact string

const (
	ImpactWorse   Impact = "worse"
	ImpactBetter  Impact = "better"
	ImpactNeutral Impact = "neutral"
)
