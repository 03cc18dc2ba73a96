//go:build !cstack_nocas

package btrace

var nextSlot = nextSlotCAS
