package spatial

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/pdok/gridmap/tile"
)

// Power is the number of child blocks one sheet of a level is split into.
// It is a square of a power of two, so every level spans whole zoom levels.
type Power uint

const (
	PowerNone   Power = 1
	PowerFew    Power = 4
	PowerLow    Power = 16
	PowerMedium Power = 64
	PowerHigh   Power = 256
	PowerExtra  Power = 1024
	PowerUltra  Power = 4096
	PowerMicro  Power = 16384
	PowerNano   Power = 262144
	PowerPico   Power = 1048576
)

var powerNames = map[Power]string{
	PowerNone:   "None",
	PowerFew:    "Few",
	PowerLow:    "Low",
	PowerMedium: "Medium",
	PowerHigh:   "High",
	PowerExtra:  "Extra",
	PowerUltra:  "Ultra",
	PowerMicro:  "Micro",
	PowerNano:   "Nano",
	PowerPico:   "Pico",
}

// ParsePower accepts the names of the powers in any case, e.g. "ultra" or "Medium".
func ParsePower(s string) (Power, error) {
	name := strcase.ToCamel(strings.ToLower(strings.TrimSpace(s)))
	for p, n := range powerNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown power %q", s)
}

func ParsePowers(names []string) ([]Power, error) {
	powers := make([]Power, 0, len(names))
	for _, n := range names {
		p, err := ParsePower(n)
		if err != nil {
			return nil, err
		}
		powers = append(powers, p)
	}
	return powers, nil
}

// LevelSkip is the number of zoom levels between a sheet and its children.
func (p Power) LevelSkip() int {
	return tile.LevelSkip(uint(p))
}

func (p Power) String() string {
	if n, ok := powerNames[p]; ok {
		return n
	}
	return fmt.Sprintf("Power(%d)", uint(p))
}
