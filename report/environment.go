package report

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/host"
)

var (
	osDescriptorOnce sync.Once
	osDescriptor     string
)

// OSDescriptor describes the operating system, e.g. "linux-ubuntu-24.04-amd64 (kernel 6.8.0)".
// It falls back to GOOS/GOARCH when host information is unavailable.
func OSDescriptor() string {
	osDescriptorOnce.Do(func() {
		osDescriptor = describeHost()
	})
	return osDescriptor
}

func describeHost() string {
	fallback := runtime.GOOS + "-" + runtime.GOARCH

	info, err := host.Info()
	if err != nil || info == nil {
		return fallback
	}

	parts := []string{info.OS}
	if info.Platform != "" {
		parts = append(parts, info.Platform)
	}
	if info.PlatformVersion != "" {
		parts = append(parts, info.PlatformVersion)
	}
	arch := info.KernelArch
	if arch == "" {
		arch = runtime.GOARCH
	}
	parts = append(parts, arch)

	desc := strings.Join(parts, "-")
	if info.KernelVersion != "" {
		desc = fmt.Sprintf("%s (kernel %s)", desc, info.KernelVersion)
	}
	return desc
}

// CaptureEnvironment snapshots the environment for a record.
func CaptureEnvironment(baseURL, headless string) Environment {
	return Environment{
		BaseURL:  baseURL,
		Headless: headless,
		Go:       strings.TrimPrefix(runtime.Version(), "go"),
		OS:       OSDescriptor(),
	}
}
