package registry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/programme-lv/strbench/internal/algo"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Exports a wasm unit must provide.
const (
	WasmSearch = "search"
	WasmAlloc  = "alloc"
	WasmMemory = "memory"
)

// WasmOpener instantiates WebAssembly units in one shared runtime. A
// cancelled invocation context aborts the running search.
type WasmOpener struct {
	rt    wazero.Runtime
	start time.Time
}

func NewWasmOpener(ctx context.Context) (*WasmOpener, error) {
	o := &WasmOpener{start: time.Now()}
	o.rt = wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, o.rt); err != nil {
		o.rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate wasi: %w", err)
	}
	_, err := o.rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func() float64 {
			return float64(time.Since(o.start).Nanoseconds()) / 1e6
		}).
		Export("now_ms").
		Instantiate(ctx)
	if err != nil {
		o.rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate host module: %w", err)
	}
	return o, nil
}

func (o *WasmOpener) Ext() string { return ".wasm" }

func (o *WasmOpener) Close(ctx context.Context) error { return o.rt.Close(ctx) }

func (o *WasmOpener) Open(ctx context.Context, path string) (algo.Unit, error) {
	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return o.OpenBytes(ctx, bin)
}

// OpenBytes compiles and instantiates a unit from its binary.
func (o *WasmOpener) OpenBytes(ctx context.Context, bin []byte) (algo.Unit, error) {
	compiled, err := o.rt.CompileModule(ctx, bin)
	if err != nil {
		return nil, fmt.Errorf("failed to compile wasm unit: %w", err)
	}
	if err := checkExports(compiled); err != nil {
		compiled.Close(ctx)
		return nil, err
	}
	mod, err := o.rt.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName("").WithStartFunctions("_initialize"))
	if err != nil {
		compiled.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate wasm unit: %w", err)
	}
	return &wasmUnit{
		compiled: compiled,
		mod:      mod,
		mem:      mod.ExportedMemory(WasmMemory),
		alloc:    mod.ExportedFunction(WasmAlloc),
		search:   mod.ExportedFunction(WasmSearch),
	}, nil
}

func checkExports(m wazero.CompiledModule) error {
	if _, ok := m.ExportedMemories()[WasmMemory]; !ok {
		return fmt.Errorf("wasm unit does not export %q", WasmMemory)
	}
	fns := m.ExportedFunctions()
	want := map[string][2]int{
		WasmAlloc:  {1, 1},
		WasmSearch: {6, 1},
	}
	for name, arity := range want {
		def, ok := fns[name]
		if !ok {
			return fmt.Errorf("wasm unit does not export %q", name)
		}
		if !allI32(def.ParamTypes(), arity[0]) || !allI32(def.ResultTypes(), arity[1]) {
			return fmt.Errorf("wasm export %q has signature %v -> %v", name, def.ParamTypes(), def.ResultTypes())
		}
	}
	return nil
}

func allI32(types []api.ValueType, n int) bool {
	if len(types) != n {
		return false
	}
	for _, t := range types {
		if t != api.ValueTypeI32 {
			return false
		}
	}
	return true
}

// wasmUnit copies pattern and text into guest memory. The text is copied
// once per distinct host buffer; padding is rewritten on every call.
// The text body of a host buffer must not change between calls.
type wasmUnit struct {
	compiled wazero.CompiledModule
	mod      api.Module
	mem      api.Memory
	alloc    api.Function
	search   api.Function

	out    uint32
	pat    uint32
	patCap int
	text   guestText
}

// guestText is the guest copy of a host text buffer. It keeps the host slice
// referenced, so no later buffer can be allocated at the same address while
// the copy is considered current.
type guestText struct {
	ptr  uint32
	cap  int
	host []byte
}

// holds reports whether the copy was made from text.
func (g *guestText) holds(text []byte) bool {
	if len(text) != len(g.host) {
		return false
	}
	return len(text) == 0 || &text[0] == &g.host[0]
}

func (u *wasmUnit) allocate(ctx context.Context, size int) (uint32, error) {
	res, err := u.alloc.Call(ctx, api.EncodeI32(int32(size)))
	if err != nil {
		return 0, err
	}
	ptr := uint32(api.DecodeI32(res[0]))
	if ptr == 0 {
		return 0, fmt.Errorf("alloc(%d) returned null", size)
	}
	return ptr, nil
}

func (u *wasmUnit) stage(ctx context.Context, pattern, text []byte, n int) error {
	if u.out == 0 {
		p, err := u.allocate(ctx, 16)
		if err != nil {
			return err
		}
		u.out = p
	}
	if len(pattern) > u.patCap {
		p, err := u.allocate(ctx, len(pattern))
		if err != nil {
			return err
		}
		u.pat, u.patCap = p, len(pattern)
	}
	if !u.mem.Write(u.pat, pattern) {
		return fmt.Errorf("pattern does not fit guest memory")
	}

	if !u.text.holds(text) {
		if len(text) > u.text.cap {
			p, err := u.allocate(ctx, len(text))
			if err != nil {
				return err
			}
			u.text.ptr, u.text.cap = p, len(text)
		}
		if !u.mem.Write(u.text.ptr, text) {
			return fmt.Errorf("text does not fit guest memory")
		}
		u.text.host = text
		return nil
	}
	if !u.mem.Write(u.text.ptr+uint32(n), text[n:]) {
		return fmt.Errorf("text does not fit guest memory")
	}
	return nil
}

func (u *wasmUnit) Search(ctx context.Context, pattern, text []byte, n int) (algo.Result, algo.Timing) {
	var t algo.Timing
	if err := u.stage(ctx, pattern, text, n); err != nil {
		return algo.Result{Kind: algo.Fault}, t
	}
	u.mem.WriteFloat64Le(u.out, 0)
	u.mem.WriteFloat64Le(u.out+8, 0)
	res, err := u.search.Call(ctx,
		api.EncodeI32(int32(u.pat)), api.EncodeI32(int32(len(pattern))),
		api.EncodeI32(int32(u.text.ptr)), api.EncodeI32(int32(n)),
		api.EncodeI32(int32(u.out)), api.EncodeI32(int32(u.out+8)))
	if err != nil {
		return algo.Result{Kind: algo.Fault}, t
	}
	t.SearchMs, _ = u.mem.ReadFloat64Le(u.out)
	t.PreMs, _ = u.mem.ReadFloat64Le(u.out + 8)
	return algo.FromRaw(int(api.DecodeI32(res[0]))), t
}

func (u *wasmUnit) Close() error {
	ctx := context.Background()
	err := u.mod.Close(ctx)
	if cerr := u.compiled.Close(ctx); err == nil {
		err = cerr
	}
	return err
}
