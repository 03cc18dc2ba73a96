//go:build cstack_nocas

package btrace

// Built for targets without a usable compare-and-swap.
var nextSlot = nextSlotPlain
