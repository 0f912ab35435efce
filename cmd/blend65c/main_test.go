package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blend65/blend65/internal/config"
)

func TestMergeOptions_CLIValueOverridesConfigFile(t *testing.T) {
	fileOpts := config.CompilerOptions{Target: "c64", ExitBehavior: "basic"}
	cliOpts := config.CompilerOptions{ExitBehavior: "reset"}

	merged := mergeOptions(fileOpts, cliOpts)
	assert.Equal(t, "c64", merged.Target)
	assert.Equal(t, "reset", merged.ExitBehavior)
}

func TestMergeOptions_EmptyCLIValueKeepsConfigFile(t *testing.T) {
	fileOpts := config.CompilerOptions{Target: "c64", Optimization: "O2"}
	cliOpts := config.CompilerOptions{}

	merged := mergeOptions(fileOpts, cliOpts)
	assert.Equal(t, "c64", merged.Target)
	assert.Equal(t, "O2", merged.Optimization)
}

func TestTrimExt_RemovesSingleExtension(t *testing.T) {
	assert.Equal(t, "game", trimExt("game.b65"))
}
