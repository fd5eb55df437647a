package registry

import (
	"context"
	"fmt"
	"plugin"

	"github.com/programme-lv/strbench/internal/algo"
)

// PluginSymbol is the entry point a Go plugin unit exports.
const PluginSymbol = "Search"

// PluginOpener opens Go plugins built with -buildmode=plugin. The runtime
// cannot unload a plugin, so closing a plugin unit only drops the reference.
type PluginOpener struct{}

func (PluginOpener) Ext() string { return ".so" }

func (PluginOpener) Open(_ context.Context, path string) (algo.Unit, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(PluginSymbol)
	if err != nil {
		return nil, err
	}
	switch fn := sym.(type) {
	case func([]byte, int, []byte, int, *float64, *float64) int:
		return algo.Native(fn), nil
	case *func([]byte, int, []byte, int, *float64, *float64) int:
		return algo.Native(*fn), nil
	case *algo.RawSearchFunc:
		return algo.Native(*fn), nil
	}
	return nil, fmt.Errorf("symbol %s has type %T", PluginSymbol, sym)
}
