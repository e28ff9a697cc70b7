package support

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/MeKo-Tech/boostcascade/internal/testutil"
	"github.com/cucumber/godog"
)

// startServer starts the boostcascade serve command in the background.
func (testCtx *TestContext) startServer(command string) error {
	testCtx.parseServerCommand(command)

	if testCtx.isPortInUse(testCtx.ServerPort) {
		return fmt.Errorf("port %d is already in use", testCtx.ServerPort)
	}

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}

	if parts[0] == "boostcascade" {
		if root, err := testutil.GetProjectRoot(); err == nil {
			parts[0] = filepath.Join(root, "bin", "boostcascade")
		}
	}

	cmd := exec.Command(parts[0], parts[1:]...) //nolint:gosec // G204: scenario-controlled binary path
	cmd.Dir = testCtx.WorkingDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	testCtx.ServerProcess = cmd.Process

	if err := testCtx.waitForServerReady(); err != nil {
		_ = testCtx.StopServerProcess()
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// StopServerProcess stops the running server process.
func (testCtx *TestContext) StopServerProcess() error {
	if testCtx.ServerProcess == nil {
		return nil
	}
	if err := testCtx.ServerProcess.Signal(syscall.SIGTERM); err != nil {
		if killErr := testCtx.ServerProcess.Kill(); killErr != nil {
			return fmt.Errorf("failed to kill server process: %w", killErr)
		}
	}
	_, err := testCtx.ServerProcess.Wait()
	testCtx.ServerProcess = nil
	return err
}

func (testCtx *TestContext) parseServerCommand(command string) {
	testCtx.ServerHost = "localhost"
	testCtx.ServerPort = 8080

	parts := strings.Fields(command)
	for i, part := range parts {
		switch part {
		case "--port", "-p":
			if i+1 < len(parts) {
				if port, err := strconv.Atoi(parts[i+1]); err == nil {
					testCtx.ServerPort = port
				}
			}
		case "--host", "-H":
			if i+1 < len(parts) {
				testCtx.ServerHost = parts[i+1]
			}
		}
	}
}

func (testCtx *TestContext) isPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf(":%d", port), time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (testCtx *TestContext) waitForServerReady() error {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if testCtx.isServerHealthy() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return errors.New("server did not become ready within timeout")
}

func (testCtx *TestContext) isServerHealthy() bool {
	client := &http.Client{Timeout: time.Second}
	url := fmt.Sprintf("http://%s:%d/health", testCtx.ServerHost, testCtx.ServerPort)

	resp, err := client.Get(url) //nolint:gosec // G107: scenario-controlled localhost URL
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (testCtx *TestContext) theServerShouldBeHealthy() error {
	if !testCtx.isServerHealthy() {
		return errors.New("server is not responding healthy to /health")
	}
	return nil
}

func (testCtx *TestContext) theStatusEndpointShouldReportVariant(variant string) error {
	client := &http.Client{Timeout: time.Second}
	url := fmt.Sprintf("http://%s:%d/status", testCtx.ServerHost, testCtx.ServerPort)

	resp, err := client.Get(url) //nolint:gosec // G107: scenario-controlled localhost URL
	if err != nil {
		return fmt.Errorf("requesting /status: %w", err)
	}
	defer resp.Body.Close()

	body := make([]byte, 4096)
	n, _ := resp.Body.Read(body)
	if !strings.Contains(string(body[:n]), variant) {
		return fmt.Errorf("status response does not mention variant %q: %s", variant, body[:n])
	}
	return nil
}

// RegisterServerSteps registers steps that start the progress server as a
// background process and probe its HTTP endpoints.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I start the server with "([^"]*)"$`, func(command string) error {
		return testCtx.startServer(testCtx.substituteTrainVariables(command))
	})
	sc.Step(`^the server should be healthy$`, testCtx.theServerShouldBeHealthy)
	sc.Step(`^the status endpoint should report variant "([^"]*)"$`, testCtx.theStatusEndpointShouldReportVariant)
}
