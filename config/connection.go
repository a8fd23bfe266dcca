// Package config loads the kernel connection file and the optional
// ikernel.yaml settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Connection is the connection file written by the frontend. Immutable
// after Load.
type Connection struct {
	Transport       string `json:"transport"`
	IP              string `json:"ip"`
	Key             string `json:"key"`
	SignatureScheme string `json:"signature_scheme"`
	ShellPort       int    `json:"shell_port"`
	ControlPort     int    `json:"control_port"`
	StdinPort       int    `json:"stdin_port"`
	HBPort          int    `json:"hb_port"`
	IOPubPort       int    `json:"iopub_port"`
	KernelName      string `json:"kernel_name,omitempty"`
}

// rawConnection detects missing fields; a present zero port is still
// rejected by Validate.
type rawConnection struct {
	Transport       *string `json:"transport"`
	IP              *string `json:"ip"`
	Key             *string `json:"key"`
	SignatureScheme *string `json:"signature_scheme"`
	ShellPort       *int    `json:"shell_port"`
	ControlPort     *int    `json:"control_port"`
	StdinPort       *int    `json:"stdin_port"`
	HBPort          *int    `json:"hb_port"`
	IOPubPort       *int    `json:"iopub_port"`
	KernelName      string  `json:"kernel_name"`
}

// LoadConnection reads and validates a connection file.
func LoadConnection(path string) (*Connection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read connection file %q: %w", path, err)
	}
	c, err := ParseConnection(data)
	if err != nil {
		return nil, fmt.Errorf("connection file %s: %w", path, err)
	}
	return c, nil
}

// ParseConnection decodes and validates connection file contents.
func ParseConnection(data []byte) (*Connection, error) {
	var raw rawConnection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var missing []string
	str := func(name string, p *string) string {
		if p == nil {
			missing = append(missing, name)
			return ""
		}
		return *p
	}
	port := func(name string, p *int) int {
		if p == nil {
			missing = append(missing, name)
			return 0
		}
		return *p
	}
	c := &Connection{
		Transport:       str("transport", raw.Transport),
		IP:              str("ip", raw.IP),
		Key:             str("key", raw.Key),
		SignatureScheme: str("signature_scheme", raw.SignatureScheme),
		ShellPort:       port("shell_port", raw.ShellPort),
		ControlPort:     port("control_port", raw.ControlPort),
		StdinPort:       port("stdin_port", raw.StdinPort),
		HBPort:          port("hb_port", raw.HBPort),
		IOPubPort:       port("iopub_port", raw.IOPubPort),
		KernelName:      raw.KernelName,
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field values.
func (c *Connection) Validate() error {
	var errs []error
	if c.Transport != "tcp" && c.Transport != "ipc" {
		errs = append(errs, fmt.Errorf("unsupported transport %q", c.Transport))
	}
	if c.IP == "" {
		errs = append(errs, errors.New("ip is empty"))
	}
	for name, p := range map[string]int{
		"shell_port":   c.ShellPort,
		"control_port": c.ControlPort,
		"stdin_port":   c.StdinPort,
		"hb_port":      c.HBPort,
		"iopub_port":   c.IOPubPort,
	} {
		if c.Transport == "tcp" && (p <= 0 || p > 65535) {
			errs = append(errs, fmt.Errorf("%s out of range: %d", name, p))
		}
	}
	return errors.Join(errs...)
}

func (c *Connection) address(port int) string {
	if c.Transport == "ipc" {
		return fmt.Sprintf("ipc://%s-%d", c.IP, port)
	}
	return fmt.Sprintf("%s://%s:%d", c.Transport, c.IP, port)
}

// ShellAddress returns the shell endpoint.
func (c *Connection) ShellAddress() string { return c.address(c.ShellPort) }

// ControlAddress returns the control endpoint.
func (c *Connection) ControlAddress() string { return c.address(c.ControlPort) }

// StdinAddress returns the stdin endpoint.
func (c *Connection) StdinAddress() string { return c.address(c.StdinPort) }

// HeartbeatAddress returns the heartbeat endpoint.
func (c *Connection) HeartbeatAddress() string { return c.address(c.HBPort) }

// IOPubAddress returns the IOPub endpoint.
func (c *Connection) IOPubAddress() string { return c.address(c.IOPubPort) }
