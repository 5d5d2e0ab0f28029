// Package testing provides shared test scaffolding for higher-level
// steamdsud integration tests: a dsu.Server plus control.Server pair
// bound to ephemeral loopback ports.
package testing

import (
	"log/slog"
	"testing"

	"github.com/nyxbridge/steamdsu/control"
	"github.com/nyxbridge/steamdsu/dsu"

	"github.com/stretchr/testify/require"
)

// TestServer bundles a running dsu.Server and control.Server for
// integration tests that exercise both together.
type TestServer struct {
	DSU     *dsu.Server
	Control *control.Server
	Key     string
}

// NewTestServer starts a dsu.Server on an ephemeral UDP port and a
// control.Server on an ephemeral TCP port, both torn down on test
// cleanup.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	dsuSrv := dsu.New(dsu.WithLogger(slog.Default()))
	require.NoError(t, dsuSrv.Start("127.0.0.1", 0))
	t.Cleanup(func() { _ = dsuSrv.Stop() })

	const key = "integration-test-key"
	controlSrv, err := control.New(dsuSrv, control.ServerConfig{Addr: "127.0.0.1:0", Key: key}, slog.Default())
	require.NoError(t, err)
	require.NoError(t, controlSrv.Start())
	t.Cleanup(controlSrv.Close)

	return &TestServer{DSU: dsuSrv, Control: controlSrv, Key: key}
}
