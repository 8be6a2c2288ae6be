package compiler

import (
	"fmt"
	"strings"
)

// Strategy selects how filters are compiled.
type Strategy string

const (
	StrategyAuto      Strategy = "auto"
	StrategyGeneral   Strategy = "general"
	StrategyOptimized Strategy = "optimized"
)

// ParseStrategy validates a strategy name. The empty string means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyGeneral:
		return StrategyGeneral, nil
	case StrategyOptimized:
		return StrategyOptimized, nil
	}
	return "", fmt.Errorf("unknown strategy %q (want auto, general or optimized)", s)
}
