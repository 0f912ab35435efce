package intrinsics

import (
	"testing"

	"github.com/blend65/blend65/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_KnownIntrinsic(t *testing.T) {
	sig, ok := Lookup("peek")
	require.True(t, ok)
	assert.Equal(t, types.Byte, sig.Result)
	assert.False(t, sig.HasSideEffect)
}

func TestLookup_UnknownName(t *testing.T) {
	_, ok := Lookup("frobnicate")
	assert.False(t, ok)
}

func TestIsIntrinsic_RejectsShadowing(t *testing.T) {
	assert.True(t, IsIntrinsic("poke"))
	assert.False(t, IsIntrinsic("my_function"))
}

func TestBarrierAndVolatile_AreSequencePoints(t *testing.T) {
	barrier, _ := Lookup("barrier")
	read, _ := Lookup("volatile_read")
	write, _ := Lookup("volatile_write")
	assert.True(t, barrier.IsSequencePoint)
	assert.True(t, read.IsSequencePoint)
	assert.True(t, write.IsSequencePoint)
}

func TestAll_ReturnsEveryRegisteredIntrinsic(t *testing.T) {
	all := All()
	assert.Len(t, all, 19)
}

// TestLookup_StackAndCPUControlIntrinsicsMatchSpecNames guards the closed
// identifier list for the stack/cpu-control family: pha, pla, php, plp,
// sei, cli, nop, brk.
func TestLookup_StackAndCPUControlIntrinsicsMatchSpecNames(t *testing.T) {
	for _, name := range []string{"pha", "pla", "php", "plp", "sei", "cli", "nop", "brk"} {
		_, ok := Lookup(name)
		assert.True(t, ok, "expected %q to be a registered intrinsic", name)
	}
	for _, stale := range []string{"push", "pop", "cli_off", "cli_on"} {
		_, ok := Lookup(stale)
		assert.False(t, ok, "stale intrinsic name %q should no longer be registered", stale)
	}
}
