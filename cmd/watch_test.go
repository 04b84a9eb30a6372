package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ExpiredResourceVersionEndsFollow(t *testing.T) {
	payload := filepath.Join(t.TempDir(), "payload.json")
	expired := `{"type":"ERROR","object":{"kind":"Status","apiVersion":"v1","status":"Failure","message":"too old resource version: 3 (90)","reason":"Expired","code":410}}`
	require.NoError(t, os.WriteFile(payload, []byte(expired+"\n"), 0o644))

	out, err := runRoot(t, "watch", "3", "siteconfigs", "--config-path", testConfigDir(t), "--payload-file", payload)
	require.Error(t, err)
	assert.Equal(t, ExitCodeTransport, getExitCode(err))
	assert.Contains(t, out, "resourceVersion: 3")
}
