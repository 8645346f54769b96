// Package gfx provides the blit back ends used to compose device layers
// into the client buffer.
package gfx

import (
	"fmt"
	"sort"

	"github.com/NeowayLabs/hdi/hdi"
)

const (
	BackendSoft = "soft"
	// BackendNone leaves every layer to client composition.
	BackendNone = "none"
)

var backends = map[string]func() hdi.Gfx{
	BackendSoft: func() hdi.Gfx { return NewSoft() },
	BackendNone: func() hdi.Gfx { return nil },
}

// New builds the back end called name. The "none" back end is a nil Gfx.
func New(name string) (hdi.Gfx, error) {
	build, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("gfx back end %q: %w", name, hdi.ErrNotSupported)
	}
	return build(), nil
}

// Backends lists the known back end names.
func Backends() []string {
	ret := make([]string, 0, len(backends))
	for name := range backends {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}
