package feature

import (
	"testing"

	assert "github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	set := Parse("cmd,shell_v2,abb_exec,apex")
	assert.True(t, set.Supports(CMD), "Expected CMD to be supported")
	assert.True(t, set.Supports(ShellV2), "Expected ShellV2 to be supported")
	assert.True(t, set.Supports(AbbExec), "Expected AbbExec to be supported")
	assert.True(t, set.Supports(Apex), "Expected Apex to be supported")
	assert.False(t, set.Supports(StatV2), "Did not expect StatV2 to be supported")
}

func TestParseDropsUnknownTokens(t *testing.T) {
	set := Parse("cmd,some_future_feature,shell_v2")
	assert.Len(t, set, 2, "Unknown tokens should be dropped")
	assert.True(t, set.Supports(CMD), "Expected CMD to be supported")
	assert.True(t, set.Supports(ShellV2), "Expected ShellV2 to be supported")
}

func TestParseEmpty(t *testing.T) {
	set := Parse("")
	assert.Empty(t, set, "Expected an empty set")
}

func TestSupportsAny(t *testing.T) {
	set := Parse("abb_exec")
	assert.True(t, set.SupportsAny(CMD, AbbExec), "Expected at least one match")
	assert.False(t, set.SupportsAny(CMD, Apex), "Expected no match")
}
