package executor

import (
	"sync"

	"github.com/fatih/color"
)

type colorFn = func(format string, a ...interface{}) string

func getTerminalPackageColors() []colorFn {
	return []colorFn{color.CyanString, color.MagentaString, color.GreenString, color.YellowString, color.BlueString}
}

// ColorCache hands out a stable color per package name, so every
// "Compiling"/"Running" status line for units belonging to the same
// package prints in the same color across a run.
type ColorCache struct {
	mu         sync.Mutex
	index      int
	TermColors []colorFn
	Cache      map[string]colorFn
}

func NewColorCache() *ColorCache {
	return &ColorCache{
		TermColors: getTerminalPackageColors(),
		index:      0,
		Cache:      make(map[string]colorFn),
	}
}

// PrefixColor returns a color function for a given package name.
func (c *ColorCache) PrefixColor(name string) colorFn {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn, ok := c.Cache[name]
	if ok {
		return fn
	}
	c.index++
	fn = c.TermColors[positiveMod(c.index, len(c.TermColors))]
	c.Cache[name] = fn
	return fn
}

// positiveMod returns a modulo operator like JavaScript's (always
// non-negative for a positive divisor).
func positiveMod(x, d int) int {
	x = x % d
	if x >= 0 {
		return x
	}
	if d < 0 {
		return x - d
	}
	return x + d
}
