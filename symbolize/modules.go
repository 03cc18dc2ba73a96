package symbolize

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Module describes a loaded executable image: the main program, a shared
// object, or the vDSO.
type Module struct {
	Path string
	Base uint64 // address the image's file offset 0 is mapped at
}

// moduleSegment is one mapped address range of a Module.
type moduleSegment struct {
	start, end uint64 // [start, end)
	module     *Module
}

func (s moduleSegment) String() string {
	return fmt.Sprintf("moduleSegment{0x%x-0x%x, %s base:0x%x}", s.start, s.end, s.module.Path, s.module.Base)
}

// contains reports whether the segment contains the given address.
func (s moduleSegment) contains(addr uint64) bool {
	return s.start <= addr && addr < s.end
}

// moduleMap is a list of mapped segments, sorted by start address and
// non-overlapping.
type moduleMap []moduleSegment

func (mm moduleMap) Len() int           { return len(mm) }
func (mm moduleMap) Swap(i, k int)      { mm[i], mm[k] = mm[k], mm[i] }
func (mm moduleMap) Less(i, k int) bool { return mm[i].start < mm[k].start }

// findModule finds the module mapped at the given address.
func (mm moduleMap) findModule(addr uint64) (*Module, bool) {
	// Binary search for an upper-bound segment, then check
	// if the previous segment contains addr.
	k := sort.Search(len(mm), func(k int) bool {
		return addr < mm[k].start
	})
	k--
	if k >= 0 && mm[k].contains(addr) {
		return mm[k].module, true
	}
	return nil, false
}

// parseProcMaps reads the /proc/<pid>/maps format. Anonymous mappings and
// kernel pseudo-files other than the vDSO are skipped. A module's base is the
// lowest (start - file offset) over its mappings.
func parseProcMaps(r io.Reader) (moduleMap, error) {
	var mm moduleMap
	modules := make(map[string]*Module)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		// 7f2c1a600000-7f2c1a622000 r--p 00000000 fd:01 1835 /usr/lib/libc.so.6
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}
		path := strings.Join(fields[5:], " ")
		if strings.HasPrefix(path, "[") && path != "[vdso]" {
			continue
		}
		bounds := strings.SplitN(fields[0], "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("bad address range %q", fields[0])
		}
		start, err := strconv.ParseUint(bounds[0], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad address range %q: %v", fields[0], err)
		}
		end, err := strconv.ParseUint(bounds[1], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad address range %q: %v", fields[0], err)
		}
		offset, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad offset %q: %v", fields[2], err)
		}
		if end <= start {
			continue
		}

		m := modules[path]
		if m == nil {
			m = &Module{Path: path, Base: start - offset}
			modules[path] = m
		} else if start-offset < m.Base {
			m.Base = start - offset
		}
		mm = append(mm, moduleSegment{start: start, end: end, module: m})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	sort.Sort(mm)
	return mm, nil
}
