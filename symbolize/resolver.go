// Package symbolize turns raw program counters into readable frame
// descriptions. Resolution is attempted in tiers, from line-level
// information down to a bare address:
//
//	func() at file:line [0xaddr]
//	module(symbol+0xoff) [0xaddr]
//	module(+0xoff) [0xaddr]
//	??? [0xaddr]
//
// Resolution may read executable images and run an external line-number
// tool, so it is only done when printing, never at capture time.
package symbolize

import (
	"context"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/tombergan/cstack/config"
)

// Resolver resolves program counters. The zero value is not usable; use
// NewResolver. Exported fields may be replaced before first use.
type Resolver struct {
	// Loader maps addresses to modules and symbols.
	Loader Loader

	// Tool resolves addresses in shared objects to source lines. May be nil.
	Tool LineTool

	// Lines resolves addresses in Go code of the running executable.
	// May be nil.
	Lines func(pc uint64) (*PCInfo, error)

	cache *lru.Cache
}

// NewResolver returns a resolver for the running process.
func NewResolver(cfg *config.Config) (*Resolver, error) {
	cache, err := lru.New(cfg.SymbolCache)
	if err != nil {
		return nil, errors.Wrap(err, "creating symbol cache")
	}
	r := &Resolver{
		Loader: newProcLoader(),
		Lines:  goPCInfo,
		cache:  cache,
	}
	template := cfg.LineTool
	if template == "" {
		template = DefaultLineCommand()
	}
	tool, err := NewExecTool(template, cfg.LineToolTimeout)
	if err != nil {
		// Not fatal: shared objects resolve to symbol level only.
		logf("line tool unavailable: %v", err)
	} else {
		r.Tool = tool
	}
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultResolver *Resolver
)

// Default returns the process-wide resolver, configured from the
// environment on first use.
func Default() *Resolver {
	defaultOnce.Do(func() {
		cfg, err := config.NewConfig()
		if err != nil {
			logf("config: %v; using defaults", err)
			cfg = &config.Config{
				LineToolTimeout: config.DefaultOptionLineToolTimeout,
				SymbolCache:     config.DefaultOptionSymbolCache,
			}
		}
		r, err := NewResolver(cfg)
		if err != nil {
			panic(err) // only fails for a non-positive cache size
		}
		defaultResolver = r
	})
	return defaultResolver
}

// Resolve returns a display string for pc. It never fails; the worst case
// is "??? [0xaddr]".
func (r *Resolver) Resolve(pc uint64) string {
	if r.cache != nil {
		if s, ok := r.cache.Get(pc); ok {
			return s.(string)
		}
	}
	s := r.resolve(pc)
	if r.cache != nil {
		r.cache.Add(pc, s)
	}
	return s
}

func (r *Resolver) resolve(pc uint64) string {
	var info Info
	var ok bool
	if r.Loader != nil {
		info, ok = r.Loader.Lookup(pc)
	}
	if !ok || info.Module == "" {
		verbosef("0x%x: no module", pc)
		return fmt.Sprintf("??? [0x%x]", pc)
	}

	line, err := r.lineLevel(pc, info)
	if err == nil {
		return fmt.Sprintf("%s [0x%x]", line, pc)
	}
	verbosef("0x%x: %v", pc, err)

	if info.Symbol != "" && pc >= info.SymbolAddr {
		return fmt.Sprintf("%s(%s+0x%x) [0x%x]", info.Module, info.Symbol, pc-info.SymbolAddr, pc)
	}
	return fmt.Sprintf("%s(+0x%x) [0x%x]", info.Module, pc-info.ModuleBase, pc)
}

// lineLevel tries the external tool for shared objects and the Go line
// tables for everything else.
func (r *Resolver) lineLevel(pc uint64, info Info) (string, error) {
	if isSharedObject(info.Module) {
		if r.Tool == nil {
			return "", errors.New("no line tool")
		}
		s, err := r.Tool.Lookup(context.Background(), info.Module, pc-info.ModuleBase)
		return s, errors.Wrapf(err, "line tool on %s", info.Module)
	}
	if r.Lines == nil {
		return "", errors.New("no line tables")
	}
	pcinfo, err := r.Lines(pc)
	if err != nil {
		return "", err
	}
	return pcinfo.String(), nil
}

func isSharedObject(path string) bool {
	return strings.HasSuffix(path, ".so") || strings.Contains(path, ".so.") || strings.HasSuffix(path, ".dylib")
}
