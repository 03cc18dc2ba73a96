package symbolize

import (
	"debug/elf"
	"debug/macho"
	"fmt"
	"io"
	"sort"
	"sync"
)

type imageFile interface {
	io.ReaderAt
	io.Closer
}

// symbol is a function symbol from a module's symbol table.
type symbol struct {
	name string
	addr uint64 // link-time address
}

type sortSymbolByAddr []symbol

func (a sortSymbolByAddr) Len() int           { return len(a) }
func (a sortSymbolByAddr) Swap(i, k int)      { a[i], a[k] = a[k], a[i] }
func (a sortSymbolByAddr) Less(i, k int) bool { return a[i].addr < a[k].addr }

// symbolTable is the sorted function symbol list of one module.
type symbolTable struct {
	syms sortSymbolByAddr // kept sorted

	// relative is true if symbol addresses are relative to the module's
	// load base (shared objects and position-independent executables).
	relative bool
}

// find returns the nearest symbol at or below addr, where addr is an
// absolute address in a module loaded at base.
func (t *symbolTable) find(addr, base uint64) (name string, symAddr uint64, ok bool) {
	if t == nil || len(t.syms) == 0 {
		return "", 0, false
	}
	key := addr
	if t.relative {
		if addr < base {
			return "", 0, false
		}
		key = addr - base
	}
	// Binary search for an upper-bound, then take the previous symbol.
	k := sort.Search(len(t.syms), func(k int) bool {
		return key < t.syms[k].addr
	})
	k--
	if k < 0 {
		return "", 0, false
	}
	s := t.syms[k]
	if t.relative {
		return s.name, s.addr + base, true
	}
	return s.name, s.addr, true
}

func newSymbolTable(syms []symbol, relative bool) *symbolTable {
	t := &symbolTable{syms: syms, relative: relative}
	sort.Stable(t.syms)
	return t
}

// loadSymbolTable opens a module image and reads its function symbols.
// Currently supports ELF and Mach-O images.
func loadSymbolTable(path string) (*symbolTable, error) {
	f, err := openImage(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	readers := map[string]func(io.ReaderAt) (*symbolTable, error){
		"elf":   readElf,
		"macho": readMacho,
	}
	for ftype, reader := range readers {
		t, err := reader(f)
		if err == nil {
			verbosef("%s: opened %s image, %d symbols", path, ftype, len(t.syms))
			return t, nil
		}
		verbosef("%s: %s.open: %v", path, ftype, err)
	}
	return nil, fmt.Errorf("%s: unknown image type", path)
}

func readElf(r io.ReaderAt) (*symbolTable, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	var syms []symbol
	add := func(list []elf.Symbol) {
		for _, s := range list {
			if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Value == 0 || s.Name == "" {
				continue
			}
			syms = append(syms, symbol{name: s.Name, addr: s.Value})
		}
	}
	// Stripped objects only carry the dynamic symbol table.
	if list, err := f.Symbols(); err == nil {
		add(list)
	}
	if list, err := f.DynamicSymbols(); err == nil {
		add(list)
	}
	return newSymbolTable(syms, f.Type == elf.ET_DYN), nil
}

func readMacho(r io.ReaderAt) (*symbolTable, error) {
	f, err := macho.NewFile(r)
	if err != nil {
		return nil, err
	}
	if f.Symtab == nil {
		return nil, fmt.Errorf("no symbol table")
	}
	const nStab = 0xe0
	var syms []symbol
	for _, s := range f.Symtab.Syms {
		if s.Sect == 0 || s.Type&nStab != 0 || s.Value == 0 {
			continue
		}
		syms = append(syms, symbol{name: s.Name, addr: s.Value})
	}
	return newSymbolTable(syms, f.Type == macho.TypeDylib), nil
}

// symbolTables caches one symbol table (or a load failure, as nil) per
// module path.
type symbolTables struct {
	mu     sync.Mutex
	tables map[string]*symbolTable
	load   func(path string) (*symbolTable, error)
}

func (c *symbolTables) get(path string) *symbolTable {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[path]; ok {
		return t
	}
	if c.tables == nil {
		c.tables = make(map[string]*symbolTable)
	}
	load := c.load
	if load == nil {
		load = loadSymbolTable
	}
	t, err := load(path)
	if err != nil {
		logf("loading symbols of %s: %v", path, err)
	}
	c.tables[path] = t
	return t
}
