package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

// The blackbox tests drive the compiled binary without the llama build tag,
// so every inference path ends in the stub engine.

var (
	binOnce sync.Once
	binPath string
	binErr  error
)

func modelbridgeBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the binary; skipped in -short mode")
	}
	binOnce.Do(func() {
		_, here, _, _ := runtime.Caller(0)
		root := filepath.Dir(filepath.Dir(filepath.Dir(here)))
		dir, err := os.MkdirTemp("", "modelbridge-bin-")
		if err != nil {
			binErr = err
			return
		}
		binPath = filepath.Join(dir, "modelbridge")
		cmd := exec.Command("go", "build", "-o", binPath, "./cmd/modelbridge")
		cmd.Dir = root
		cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
		if out, err := cmd.CombinedOutput(); err != nil {
			binErr = fmt.Errorf("go build: %v\n%s", err, out)
		}
	})
	if binErr != nil {
		t.Fatal(binErr)
	}
	return binPath
}

// dataDirWith lays out <dir>/models with one placeholder file per model id.
func dataDirWith(t *testing.T, modelIDs ...string) string {
	t.Helper()
	dir := t.TempDir()
	models := filepath.Join(dir, "models")
	if err := os.MkdirAll(models, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, id := range modelIDs {
		if err := os.WriteFile(filepath.Join(models, id), []byte("GGUF"), 0o644); err != nil {
			t.Fatalf("write model %s: %v", id, err)
		}
	}
	return dir
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

// runCLI runs one non-serving subcommand against dataDir.
func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(modelbridgeBinary(t), append([]string{"--data-dir", dataDir, "--log-level", "error"}, args...)...)
	cmd.Dir = dataDir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// serveDaemon starts `modelbridge serve` and returns its base URL once
// /healthz answers.
func serveDaemon(t *testing.T, dataDir, model string) string {
	t.Helper()
	addr := freeAddr(t)
	args := []string{"serve", "--addr", addr, "--data-dir", dataDir, "--log-level", "error"}
	if model != "" {
		args = append(args, "--model", model)
	}
	cmd := exec.Command(modelbridgeBinary(t), args...)
	cmd.Dir = dataDir
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start serve: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Signal(os.Interrupt)
		done := make(chan struct{})
		go func() { _ = cmd.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			_ = cmd.Process.Kill()
		}
	})

	base := "http://" + addr
	for deadline := time.Now().Add(5 * time.Second); ; {
		if resp, err := http.Get(base + "/healthz"); err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return base
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("serve did not become healthy on %s", addr)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestBlackbox_ServeWithoutEngine(t *testing.T) {
	base := serveDaemon(t, dataDirWith(t, "alpha.gguf", "beta.gguf"), "alpha.gguf")

	resp, body := httpGet(t, base+"/v1/models")
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		t.Fatalf("/v1/models %d %s", resp.StatusCode, body)
	}
	var models struct {
		Models []struct {
			ID         string `json:"id"`
			Downloaded bool   `json:"downloaded"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &models); err != nil {
		t.Fatalf("/v1/models json: %v body=%s", err, body)
	}
	if len(models.Models) != 2 || !models.Models[0].Downloaded {
		t.Fatalf("unexpected models: %+v", models.Models)
	}

	if resp, _ := httpGet(t, base+"/readyz"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz before init = %d", resp.StatusCode)
	}
	resp, body = httpGet(t, base+"/v1/state")
	if !bytes.Contains(body, []byte(`"initialized":false`)) || !bytes.Contains(body, []byte(`"downloaded":true`)) {
		t.Fatalf("/v1/state %d %s", resp.StatusCode, body)
	}

	// The stub engine makes the implicit init report a missing dependency.
	resp, body = httpPostJSON(t, base+"/v1/complete", []byte(`{"messages":[{"role":"user","content":"hello"}]}`))
	if resp.StatusCode != http.StatusServiceUnavailable || !bytes.HasPrefix(body, []byte(`{"success":false,"error":`)) {
		t.Fatalf("/v1/complete %d %s", resp.StatusCode, body)
	}

	resp, body = httpGet(t, base+"/metrics")
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte("modelbridge_http_requests_total")) {
		t.Fatalf("/metrics %d", resp.StatusCode)
	}
}

func TestBlackbox_NotDownloadedIs404(t *testing.T) {
	base := serveDaemon(t, dataDirWith(t, "alpha.gguf"), "")

	resp, body := httpPostJSON(t, base+"/v1/init", []byte(`{"model":"missing.gguf"}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("/v1/init missing model = %d %s", resp.StatusCode, body)
	}
	resp, body = httpPostJSON(t, base+"/v1/complete", []byte(`{"messages":[{"role":"user","content":"hi"}]}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("/v1/complete without model = %d %s", resp.StatusCode, body)
	}
}

func TestBlackbox_CLI(t *testing.T) {
	dir := dataDirWith(t, "alpha.gguf")

	out, err := runCLI(t, dir, "models")
	if err != nil {
		t.Fatalf("models: %v\n%s", err, out)
	}
	if !strings.Contains(out, "* alpha.gguf") {
		t.Fatalf("models output = %q", out)
	}

	out, err = runCLI(t, dir, "complete")
	if err == nil || !strings.Contains(out, "no chat turns") {
		t.Fatalf("complete without turns: err=%v out=%q", err, out)
	}
}
