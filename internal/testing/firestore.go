// Package testing provides a Firestore emulator harness for store tests.
package testing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/xid"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	emulatorHostEnv     = "FIRESTORE_EMULATOR_HOST"
	emulatorStartupTime = 10 * time.Second
	pollInterval        = 100 * time.Millisecond
	clearDataTimeout    = 10 * time.Second
	httpRequestTimeout  = 1 * time.Second
)

var (
	ErrEmulatorStartTimeout = errors.New("emulator did not start within timeout")
	ErrEmulatorClearFailed  = errors.New("failed to clear emulator data")
)

// FirestoreEmulator is a connection to a Firestore emulator scoped to one
// test. Each instance uses its own project ID so tests never see each other's
// documents.
type FirestoreEmulator struct {
	Host      string
	ProjectID string
	Client    *firestore.Client
	cmd       *exec.Cmd
}

// SetupFirestoreEmulator connects to the emulator named by
// FIRESTORE_EMULATOR_HOST, or starts one with gcloud. The test is skipped
// when neither is available. Cleanup is registered on t.
func SetupFirestoreEmulator(t *testing.T) (*FirestoreEmulator, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Firestore emulator test in short mode")
	}

	ctx := context.Background()
	emulator := &FirestoreEmulator{ProjectID: "test-" + xid.New().String()}

	if host := os.Getenv(emulatorHostEnv); host != "" {
		emulator.Host = host
	} else if err := emulator.start(t); err != nil {
		t.Skipf("Firestore emulator unavailable: %v", err)
	}

	client, err := emulator.newClient(ctx)
	if err != nil {
		emulator.stop()
		t.Fatalf("Failed to create Firestore client: %v", err)
	}
	emulator.Client = client

	t.Cleanup(func() {
		_ = client.Close()
		emulator.stop()
	})

	if err := emulator.ClearData(ctx); err != nil {
		t.Logf("Warning: failed to clear emulator data: %v", err)
	}
	return emulator, ctx
}

func (e *FirestoreEmulator) start(t *testing.T) error {
	t.Helper()

	if _, err := exec.LookPath("gcloud"); err != nil {
		return fmt.Errorf("gcloud not found in PATH: %w", err)
	}

	port, err := freePort()
	if err != nil {
		return err
	}
	e.Host = fmt.Sprintf("localhost:%d", port)

	// #nosec G204 -- arguments are fixed apart from the local port
	e.cmd = exec.Command("gcloud", "emulators", "firestore", "start", "--host-port", e.Host)
	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start emulator: %w", err)
	}
	t.Setenv(emulatorHostEnv, e.Host)

	if err := e.waitReady(); err != nil {
		e.stop()
		return err
	}
	t.Logf("Started Firestore emulator at %s", e.Host)
	return nil
}

func (e *FirestoreEmulator) stop() {
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
		e.cmd = nil
	}
}

func freePort() (int, error) {
	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, fmt.Errorf("failed to find a free port: %w", err)
	}
	defer func() { _ = listener.Close() }()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

func (e *FirestoreEmulator) waitReady() error {
	deadline := time.Now().Add(emulatorStartupTime)
	url := fmt.Sprintf("http://%s/", e.Host)

	for time.Now().Before(deadline) {
		if e.ping(url) {
			return nil
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("%w: %v", ErrEmulatorStartTimeout, emulatorStartupTime)
}

func (e *FirestoreEmulator) ping(url string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), httpRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (e *FirestoreEmulator) newClient(ctx context.Context) (*firestore.Client, error) {
	conn, err := grpc.Dial(e.Host, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	client, err := firestore.NewClient(ctx, e.ProjectID, option.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

// ClearData deletes every document in the emulator project.
func (e *FirestoreEmulator) ClearData(ctx context.Context) error {
	url := fmt.Sprintf("http://%s/emulator/v1/projects/%s/databases/(default)/documents", e.Host, e.ProjectID)

	ctx, cancel := context.WithTimeout(ctx, clearDataTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create clear data request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to clear emulator data: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// A fresh project answers 404 or 500 until its first write.
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotFound, http.StatusInternalServerError:
		return nil
	default:
		return fmt.Errorf("%w: status %d", ErrEmulatorClearFailed, resp.StatusCode)
	}
}
