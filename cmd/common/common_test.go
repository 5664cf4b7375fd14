package common

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/auriora/feedme-client/pkg/logging"
)

func TestUT_CMD_01_01_StringToLevel_ValidInput_ParsesLevel(t *testing.T) {
	assert.Equal(t, logging.WarnLevel, StringToLevel("warn"))
}

func TestUT_CMD_01_02_StringToLevel_InvalidInput_DefaultsToDebug(t *testing.T) {
	assert.Equal(t, logging.DebugLevel, StringToLevel("not-a-level"))
}

func TestUT_CMD_01_03_LogLevels_ListsAllRecognizedLevels(t *testing.T) {
	levels := LogLevels()
	assert.Contains(t, levels, "debug")
	assert.Contains(t, levels, "warn")
	assert.Contains(t, levels, "fatal")
}

func TestUT_CMD_01_04_Version_IncludesVersionPrefix(t *testing.T) {
	assert.Contains(t, Version(), "v0.1.0rc1")
}
