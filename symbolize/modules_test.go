package symbolize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaps = `55d0c0a00000-55d0c0a02000 r--p 00000000 fd:01 2359 /usr/bin/prog
55d0c0a02000-55d0c0a08000 r-xp 00002000 fd:01 2359 /usr/bin/prog
55d0c1e00000-55d0c1e21000 rw-p 00000000 00:00 0                          [heap]
7f2c1a600000-7f2c1a628000 r--p 00000000 fd:01 1835 /usr/lib/libc.so.6
7f2c1a628000-7f2c1a7bd000 r-xp 00028000 fd:01 1835 /usr/lib/libc.so.6
7f2c1a7c0000-7f2c1a7c4000 rw-p 00000000 00:00 0
7ffc3a5f0000-7ffc3a611000 rw-p 00000000 00:00 0                          [stack]
7ffc3a7d6000-7ffc3a7d8000 r-xp 00000000 00:00 0                          [vdso]
7f2c1a900000-7f2c1a901000 r--p 00000000 fd:01 99 /opt/my lib/libsp ace.so
`

func TestParseProcMaps(t *testing.T) {
	mm, err := parseProcMaps(strings.NewReader(testMaps))
	require.NoError(t, err)
	require.Len(t, mm, 6)
	for i := 1; i < len(mm); i++ {
		assert.Less(t, mm[i-1].start, mm[i].start, "segments not sorted")
	}

	tests := []struct {
		addr     uint64
		wantPath string
		wantBase uint64
	}{
		{0x55d0c0a00000, "/usr/bin/prog", 0x55d0c0a00000},
		{0x55d0c0a07fff, "/usr/bin/prog", 0x55d0c0a00000},
		{0x7f2c1a630000, "/usr/lib/libc.so.6", 0x7f2c1a600000},
		{0x7ffc3a7d6010, "[vdso]", 0x7ffc3a7d6000},
		{0x7f2c1a900010, "/opt/my lib/libsp ace.so", 0x7f2c1a900000},
		{0x55d0c0a08000, "", 0}, // one past the end
		{0x55d0c1e00010, "", 0}, // heap
		{0x7ffc3a5f0010, "", 0}, // stack
		{0x10, "", 0},
	}
	for _, test := range tests {
		m, ok := mm.findModule(test.addr)
		if test.wantPath == "" {
			assert.False(t, ok, "findModule(0x%x) = %v", test.addr, m)
			continue
		}
		if assert.True(t, ok, "findModule(0x%x)", test.addr) {
			assert.Equal(t, test.wantPath, m.Path)
			assert.Equal(t, test.wantBase, m.Base, "base of %s", m.Path)
		}
	}
}

func TestParseProcMapsBadRange(t *testing.T) {
	_, err := parseProcMaps(strings.NewReader("zzzz-1000 r--p 00000000 fd:01 1 /bin/x\n"))
	assert.Error(t, err)
}

func TestCurrentModulesFindsSelf(t *testing.T) {
	pc := uint64(funcPC(TestCurrentModulesFindsSelf))
	m, ok := currentModules(false).findModule(pc)
	require.True(t, ok, "test binary not in module map")
	assert.NotEmpty(t, m.Path)
	assert.LessOrEqual(t, m.Base, pc)
}
