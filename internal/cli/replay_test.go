package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReplayGolden(t *testing.T) {
	t.Setenv(EnvTokenName, "")
	t.Setenv(EnvTokenSymbol, "")

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name     string
		scenario string
		exitCode int
	}{
		{name: "replay_amalia", scenario: "testdata/scenarios/amalia.yaml", exitCode: ExitSuccess},
		{name: "replay_mismatch", scenario: "testdata/scenarios/mismatch.yaml", exitCode: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, "replay", tt.scenario)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			g.Assert(t, tt.name, []byte(out))
		})
	}
}

func TestReplayJSON(t *testing.T) {
	t.Setenv(EnvTokenName, "")
	t.Setenv(EnvTokenSymbol, "")

	out, err := runCommand(t, "--format", "json", "replay", "testdata/scenarios/amalia.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "35000", resp.Data.TotalSupply)
	assert.Equal(t, "0xC", resp.Data.Owner)
	assert.Len(t, resp.Data.Steps, 11)
	assert.Len(t, resp.Data.Notifications, 6)
	assert.Equal(t, 0, resp.Data.Mismatches)
	assert.Equal(t, "ok", resp.Data.Audit)
}

func TestReplayEnvOverrides(t *testing.T) {
	t.Setenv(EnvTokenName, "RenamedToken")
	t.Setenv(EnvTokenSymbol, "RNM")

	s, err := LoadScenario("testdata/scenarios/mismatch.yaml")
	require.NoError(t, err)
	s.ApplyEnvOverrides()

	result, err := Replay(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "RenamedToken", result.Name)
	assert.Equal(t, "RNM", result.Symbol)
}

func TestReplayInvalidScenario(t *testing.T) {
	_, err := runCommand(t, "replay", "testdata/scenarios/invalid.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestReplayMissingFile(t *testing.T) {
	out, err := runCommand(t, "replay", "testdata/scenarios/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeLoad)
}
