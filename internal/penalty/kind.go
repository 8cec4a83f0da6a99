package penalty

import (
	"strings"

	"github.com/san-kum/forcefit/internal/fitting"
)

// Kind selects the functional form of the penalty.
type Kind int

const (
	Hyperbolic Kind = iota + 1
	Quadratic
	Fuse
	FuseL0
)

var kindNames = map[string]Kind{
	"HYP":        Hyperbolic,
	"HYPER":      Hyperbolic,
	"HYPERBOLIC": Hyperbolic,
	"L1":         Hyperbolic,
	"HYPERBOLA":  Hyperbolic,
	"PARA":       Quadratic,
	"PARABOLA":   Quadratic,
	"PARABOLIC":  Quadratic,
	"L2":         Quadratic,
	"QUADRATIC":  Quadratic,
	"FUSE":       Fuse,
	"FUSION":     Fuse,
	"FUSE_L0":    FuseL0,
	"FUSION_L0":  FuseL0,
}

// ParseKind resolves a case-insensitive penalty name or alias.
func ParseKind(name string) (Kind, error) {
	k, ok := kindNames[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, &fitting.ConfigError{Field: "penalty_type", Value: name, Err: ErrUnknownKind}
	}
	return k, nil
}

func (k Kind) String() string {
	switch k {
	case Hyperbolic:
		return "HYPERBOLIC"
	case Quadratic:
		return "QUADRATIC"
	case Fuse:
		return "FUSE"
	case FuseL0:
		return "FUSE_L0"
	}
	return "UNKNOWN"
}

func (k Kind) Valid() bool { return k >= Hyperbolic && k <= FuseL0 }

// Fused reports whether the kind groups parameters by identifier.
func (k Kind) Fused() bool { return k == Fuse || k == FuseL0 }
