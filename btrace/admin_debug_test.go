//go:build cstack_debug

package btrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRegistered(t *testing.T) {
	assert.Equal(t, []string{"c_backtrace_clear", "c_backtrace_print"}, AdminCommands())
	clearFn, ok := AdminCommand("c_backtrace_clear")
	require.True(t, ok)
	assert.True(t, clearFn())
	_, ok = AdminCommand("c_backtrace_dump")
	assert.False(t, ok)
}
