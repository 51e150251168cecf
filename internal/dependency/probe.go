package dependency

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Probe attempts to load a dependency and returns a handle to it.
type Probe interface {
	Probe(ctx context.Context) (interface{}, error)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) (interface{}, error)

// Probe calls f.
func (f ProbeFunc) Probe(ctx context.Context) (interface{}, error) {
	return f(ctx)
}

// Versioned is implemented by handles that can report their version. Such
// handles are checked against the descriptor's version constraint.
type Versioned interface {
	Version() string
}

// Binary is the handle produced by BinaryProbe.
type Binary struct {
	Name string
	Path string
}

// BinaryProbe looks an executable up on PATH.
type BinaryProbe struct {
	Name string
}

func (p BinaryProbe) Probe(ctx context.Context) (interface{}, error) {
	path, err := exec.LookPath(p.Name)
	if err != nil {
		return nil, fmt.Errorf("executable %s not found in PATH", p.Name)
	}
	return Binary{Name: p.Name, Path: path}, nil
}

// EnvProbe requires a non-empty environment variable. The handle is its value.
type EnvProbe struct {
	Variable string
}

func (p EnvProbe) Probe(ctx context.Context) (interface{}, error) {
	value, ok := os.LookupEnv(p.Variable)
	if !ok || value == "" {
		return nil, fmt.Errorf("environment variable %s is not set", p.Variable)
	}
	return value, nil
}

// FileProbe requires a path to exist. The handle is the path.
type FileProbe struct {
	Path string
}

func (p FileProbe) Probe(ctx context.Context) (interface{}, error) {
	if _, err := os.Stat(p.Path); err != nil {
		return nil, fmt.Errorf("path %s is not accessible: %w", p.Path, err)
	}
	return p.Path, nil
}

// DialProbe requires a TCP endpoint to accept connections. The connection is
// closed immediately; the handle is the address.
type DialProbe struct {
	Address string
	Timeout time.Duration
}

func (p DialProbe) Probe(ctx context.Context) (interface{}, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return nil, fmt.Errorf("cannot reach %s: %w", p.Address, err)
	}
	conn.Close()
	return p.Address, nil
}

// ProbeFromConfig builds a probe from its configuration kind and target.
func ProbeFromConfig(kind, target string) (Probe, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("probe target is required")
	}
	switch strings.ToLower(kind) {
	case "binary", "":
		return BinaryProbe{Name: target}, nil
	case "env":
		return EnvProbe{Variable: target}, nil
	case "file":
		return FileProbe{Path: target}, nil
	case "tcp":
		return DialProbe{Address: target}, nil
	default:
		return nil, fmt.Errorf("unknown probe kind %q (expected binary, env, file or tcp)", kind)
	}
}
