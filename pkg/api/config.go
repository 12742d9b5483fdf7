package api

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/vmlift/vmlift/internal/errx"
)

// Defaults for a freshly created launch configuration. These mirror a
// minimal bootable cloud-hypervisor invocation and are all overridable
// via Update.
const (
	DefaultKernel  = "./vmlinux"
	DefaultDisk    = "./rootfs.img"
	DefaultCmdline = "console=hvc0 root=/dev/vda rw init=/init"
	DefaultCPUs    = "boot=2"
	DefaultMemory  = "size=256M"
	DefaultSerial  = "tty"
	DefaultConsole = "off"
)

// SocketPathFor returns the control socket path for a VM name.
func SocketPathFor(name string) string {
	return fmt.Sprintf("/tmp/%s-api.sock", name)
}

// ConfigPathFor returns the default persisted config path for a VM name.
func ConfigPathFor(name string) string {
	return fmt.Sprintf("/tmp/%s-config.json", name)
}

// NewVMName returns a random VM name for callers that do not supply one.
func NewVMName() string {
	return "vm-" + uuid.New().String()[:8]
}

// DiskSpec describes one block device attachment. It renders as a
// single comma-joined key=value token passed to a repeated --disk flag.
type DiskSpec struct {
	Path     string `json:"path"`
	Readonly bool   `json:"readonly,omitempty"`
	Direct   bool   `json:"direct,omitempty"`
}

// Token renders the disk as cloud-hypervisor expects it, e.g.
// "path=./rootfs.img,readonly=on".
func (d DiskSpec) Token() string {
	parts := []string{"path=" + d.Path}
	if d.Readonly {
		parts = append(parts, "readonly=on")
	}
	if d.Direct {
		parts = append(parts, "direct=on")
	}
	return strings.Join(parts, ",")
}

// Flag is a passthrough launch parameter for flags the typed fields do
// not cover. Passthrough flags always render after the typed fields,
// in the order they were added.
type Flag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LaunchConfig holds the cloud-hypervisor launch parameters for one VM.
// Field declaration order is the render order, so argument lists are
// reproducible across runs.
//
// Unknown parameter names are rejected by construction: the only way to
// pass a flag outside the typed set is the explicit Extra passthrough.
type LaunchConfig struct {
	Kernel    string     `json:"kernel,omitempty"`
	Disks     []DiskSpec `json:"disk,omitempty"`
	Cmdline   string     `json:"cmdline,omitempty"`
	CPUs      string     `json:"cpus,omitempty"`
	Memory    string     `json:"memory,omitempty"`
	Serial    string     `json:"serial,omitempty"`
	Console   string     `json:"console,omitempty"`
	APISocket string     `json:"api-socket,omitempty"`
	Extra     []Flag     `json:"extra,omitempty"`
}

// DefaultLaunchConfig returns the built-in parameter set for a VM name.
func DefaultLaunchConfig(name string) *LaunchConfig {
	return &LaunchConfig{
		Kernel:    DefaultKernel,
		Disks:     []DiskSpec{{Path: DefaultDisk}},
		Cmdline:   DefaultCmdline,
		CPUs:      DefaultCPUs,
		Memory:    DefaultMemory,
		Serial:    DefaultSerial,
		Console:   DefaultConsole,
		APISocket: SocketPathFor(name),
	}
}

// Update merges a partial parameter set into c, last-write-wins per
// field. Zero-valued patch fields leave the current value alone. A
// non-empty Disks patch replaces the whole disk list; Extra flags are
// appended in patch order. Value semantics are not validated here, the
// hypervisor rejects bad values at launch.
func (c *LaunchConfig) Update(patch *LaunchConfig) {
	if patch == nil {
		return
	}
	if patch.Kernel != "" {
		c.Kernel = patch.Kernel
	}
	if len(patch.Disks) > 0 {
		c.Disks = append([]DiskSpec(nil), patch.Disks...)
	}
	if patch.Cmdline != "" {
		c.Cmdline = patch.Cmdline
	}
	if patch.CPUs != "" {
		c.CPUs = patch.CPUs
	}
	if patch.Memory != "" {
		c.Memory = patch.Memory
	}
	if patch.Serial != "" {
		c.Serial = patch.Serial
	}
	if patch.Console != "" {
		c.Console = patch.Console
	}
	if patch.APISocket != "" {
		c.APISocket = patch.APISocket
	}
	if len(patch.Extra) > 0 {
		c.Extra = append(c.Extra, patch.Extra...)
	}
}

// Args renders the configuration as a cloud-hypervisor argument list,
// one "--key value" pair per scalar parameter and one repeated --disk
// flag per disk.
func (c *LaunchConfig) Args() []string {
	var args []string
	appendScalar := func(key, value string) {
		if value != "" {
			args = append(args, "--"+key, value)
		}
	}
	appendScalar("kernel", c.Kernel)
	for _, d := range c.Disks {
		args = append(args, "--disk", d.Token())
	}
	appendScalar("cmdline", c.Cmdline)
	appendScalar("cpus", c.CPUs)
	appendScalar("memory", c.Memory)
	appendScalar("serial", c.Serial)
	appendScalar("console", c.Console)
	appendScalar("api-socket", c.APISocket)
	for _, f := range c.Extra {
		appendScalar(f.Name, f.Value)
	}
	return args
}

// Save serializes the configuration to path as an indented JSON
// document.
func (c *LaunchConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errx.Wrap(ErrSaveConfig, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errx.Wrap(ErrSaveConfig, err)
	}
	return nil
}

// Load replaces c with the configuration stored at path. A missing
// file leaves c untouched and returns an error matching
// ErrConfigNotFound, so callers can keep their defaults.
func (c *LaunchConfig) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errx.With(ErrConfigNotFound, ": %s", path)
		}
		return errx.Wrap(ErrLoadConfig, err)
	}
	var loaded LaunchConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return errx.Wrap(ErrLoadConfig, err)
	}
	*c = loaded
	return nil
}
