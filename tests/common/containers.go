package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	portalBuildOnce  sync.Once
	portalBuildError error
	portalContainer  *PortalContainer
	portalOnce       sync.Once
	portalStartErr   error
)

// PortalContainer wraps the coin-portal container under test.
type PortalContainer struct {
	portal testcontainers.Container
	cancel context.CancelFunc
	url    string
}

// URL returns the base URL of the running portal container.
func (p *PortalContainer) URL() string {
	return p.url
}

// CollectLogs saves the container's stdout/stderr to dir/portal.log.
func (p *PortalContainer) CollectLogs(dir string) {
	if p == nil || p.portal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reader, err := p.portal.Logs(ctx)
	if err != nil {
		return
	}
	defer reader.Close()

	logs, err := io.ReadAll(reader)
	if err != nil {
		return
	}
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "portal.log"), logs, 0644)
}

// Cleanup terminates the container with a fresh context.
func (p *PortalContainer) Cleanup() {
	if p == nil {
		return
	}

	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cleanupCancel()

	if p.portal != nil {
		p.portal.Terminate(cleanupCtx)
	}
	if p.cancel != nil {
		p.cancel()
	}
}

// buildPortalImage builds the coin-portal:test image once per test run.
func buildPortalImage() error {
	portalBuildOnce.Do(func() {
		req := testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				FromDockerfile: testcontainers.FromDockerfile{
					Context:    FindProjectRoot(),
					Dockerfile: "tests/docker/Dockerfile",
					Repo:       "coin-portal",
					Tag:        "test",
					KeepImage:  true,
				},
			},
		}

		_, portalBuildError = testcontainers.GenericContainer(context.Background(), req)
		if portalBuildError != nil {
			// Image may have built successfully even if container creation failed
			if strings.Contains(portalBuildError.Error(), "coin-portal:test") {
				portalBuildError = nil
			}
		}
	})
	return portalBuildError
}

// startPortal runs the image with in-memory storage so every run starts
// with an empty portfolio. COIN_TEST_MARKET_URL points it at a market API
// other than the public CoinGecko endpoint.
func startPortal() (*PortalContainer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)

	env := map[string]string{
		"COIN_ENV":         "dev",
		"COIN_SERVER_HOST": "0.0.0.0",
		"COIN_SERVER_PORT": "8080",
		"COIN_BADGER_PATH": ":memory:",
	}
	if u := os.Getenv("COIN_TEST_MARKET_URL"); u != "" {
		env["COIN_MARKET_URL"] = u
	}
	if key := os.Getenv("COINGECKO_API_KEY"); key != "" {
		env["COINGECKO_API_KEY"] = key
	}

	ctr, err := testcontainers.Run(ctx, "coin-portal:test",
		testcontainers.WithExposedPorts("8080/tcp"),
		testcontainers.WithEnv(env),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/api/health").WithPort("8080/tcp").WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start coin-portal: %w", err)
	}

	mappedPort, err := ctr.MappedPort(ctx, "8080/tcp")
	if err != nil {
		ctr.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("get portal mapped port: %w", err)
	}
	host, err := ctr.Host(ctx)
	if err != nil {
		ctr.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("get portal host: %w", err)
	}

	return &PortalContainer{
		portal: ctr,
		cancel: cancel,
		url:    fmt.Sprintf("http://%s:%s", host, mappedPort.Port()),
	}, nil
}

func startOnce() {
	portalOnce.Do(func() {
		if err := buildPortalImage(); err != nil {
			portalStartErr = fmt.Errorf("build portal image: %w", err)
			return
		}
		portalContainer, portalStartErr = startPortal()
	})
}

// StartPortal starts the portal container (one per test process).
// Returns nil when COIN_TEST_URL is set (manual mode, tests use the existing server).
func StartPortal(t *testing.T) *PortalContainer {
	t.Helper()
	if os.Getenv("COIN_TEST_URL") != "" {
		return nil
	}
	startOnce()
	if portalStartErr != nil {
		t.Fatalf("Failed to start test environment: %v", portalStartErr)
	}
	return portalContainer
}

// StartPortalForTestMain is StartPortal for TestMain (no *testing.T).
// Returns (nil, nil) when COIN_TEST_URL is set.
func StartPortalForTestMain() (*PortalContainer, error) {
	if os.Getenv("COIN_TEST_URL") != "" {
		return nil, nil
	}
	startOnce()
	return portalContainer, portalStartErr
}
