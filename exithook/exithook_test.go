package exithook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOrderAndStatus(t *testing.T) {
	var r Registry
	var order []string
	var statuses []int
	for _, name := range []string{"a", "b", "c"} {
		name := name
		r.Register(name, func(_ context.Context, status int) error {
			order = append(order, name)
			statuses = append(statuses, status)
			return nil
		})
	}
	r.Register("nil", nil)

	require.NoError(t, r.Run(context.Background(), 139))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []int{139, 139, 139}, statuses)
	assert.Equal(t, 3, r.Len())
}

func TestRunCollectsFailures(t *testing.T) {
	var r Registry
	ran := 0
	r.Register("fails", func(context.Context, int) error {
		ran++
		return errors.New("disk full")
	})
	r.Register("panics", func(context.Context, int) error {
		ran++
		panic("boom")
	})
	r.Register("ok", func(context.Context, int) error {
		ran++
		return nil
	})

	err := r.Run(context.Background(), 4)
	require.Error(t, err)
	assert.Equal(t, 3, ran)
	assert.Contains(t, err.Error(), "hook fails: disk full")
	assert.Contains(t, err.Error(), "hook panics panicked: boom")
}
