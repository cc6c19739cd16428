//go:build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

// restartService bounces a compose service so the test can check what
// survived on disk.
func restartService(ctx context.Context, t *testing.T, service string) {
	t.Helper()

	cmd := exec.CommandContext(ctx, "docker", "compose", "restart", service)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose restart %s failed: %v\n%s", service, err, string(out))
	}
}
