package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint64(DefaultBeginSlot), cfg.Scan.BeginSlot)
	assert.Equal(t, DefaultTopN, cfg.Scan.TopN)
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		begin   uint64
		end     uint64
		topN    int
		wantErr bool
	}{
		{"single slot", 100, 100, 1, false},
		{"range", 100, 200, 10, false},
		{"begin after end", 200, 100, 10, true},
		{"zero top n", 100, 200, 0, true},
		{"negative top n", 100, 200, -3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange(tt.begin, tt.end, tt.topN)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Scan.BeginSlot = 10
	cfg.Scan.EndSlot = 5
	cfg.Scan.TopN = 0
	cfg.RPC.Backend = "grpc"
	cfg.Output.LogLevel = "loud"

	err := cfg.Validate()
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Problems, 4)
	assert.Contains(t, err.Error(), "begin_slot 10 is after end_slot 5")
}

func TestValidate_WaitFinalizedNeedsWebsocket(t *testing.T) {
	cfg := Defaults()
	cfg.Scan.WaitFinalized = true
	cfg.RPC.WSEndpoint = ""

	assert.Error(t, cfg.Validate())
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arbscan.toml")
	content := `
[scan]
begin_slot = 1000
end_slot = 1010
top_n = 3

[rpc]
endpoint = "http://localhost:8899"
retry_delay = "250ms"

[prices]
JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN = "0.8:6"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(1000), cfg.Scan.BeginSlot)
	assert.Equal(t, uint64(1010), cfg.Scan.EndSlot)
	assert.Equal(t, 3, cfg.Scan.TopN)
	assert.Equal(t, "http://localhost:8899", cfg.RPC.Endpoint)
	assert.Equal(t, 250*time.Millisecond, cfg.RPC.RetryDelay.Duration)
	assert.Equal(t, 10*time.Second, cfg.RPC.MaxDelay.Duration, "untouched defaults survive")
	assert.Equal(t, "0.8:6", cfg.Prices["JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"])
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arbscan.yaml")
	content := `
scan:
  begin_slot: 42
  end_slot: 43
  rank_by: value
rpc:
  backend: sdk
  timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.Scan.BeginSlot)
	assert.Equal(t, "value", cfg.Scan.RankBy)
	assert.Equal(t, "sdk", cfg.RPC.Backend)
	assert.Equal(t, 5*time.Second, cfg.RPC.Timeout.Duration)
	require.NoError(t, cfg.Validate())
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arbscan.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o600))

	_, err := Load(path)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ARBSCAN_SCAN_BEGIN_SLOT", "500")
	t.Setenv("ARBSCAN_SCAN_END_SLOT", "600")
	t.Setenv("ARBSCAN_RPC_MAX_DELAY", "1m")
	t.Setenv("ARBSCAN_REDIS_ADDR", "localhost:6379")
	t.Setenv("ARBSCAN_SCAN_TOP_N", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, uint64(500), cfg.Scan.BeginSlot)
	assert.Equal(t, uint64(600), cfg.Scan.EndSlot)
	assert.Equal(t, time.Minute, cfg.RPC.MaxDelay.Duration)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, DefaultTopN, cfg.Scan.TopN, "unparsable values are ignored")
}
