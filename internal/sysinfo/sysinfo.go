// Package sysinfo describes the host a solve ran on, for reports.
package sysinfo

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

type SysInfo struct {
	Platform string `json:"platform"`
	CPU      string `json:"cpu"`
	Cores    int    `json:"cores"`
	RAM      string `json:"ram"`
}

// Collect never fails; fields it cannot read are left as "unknown".
func Collect() SysInfo {
	s := SysInfo{Platform: runtime.GOOS, CPU: "unknown", Cores: runtime.NumCPU(), RAM: "unknown"}
	if h, err := host.Info(); err == nil && h.Platform != "" {
		s.Platform = h.Platform
		if h.PlatformVersion != "" {
			s.Platform += " " + h.PlatformVersion
		}
	}
	if c, err := cpu.Info(); err == nil && len(c) > 0 && c[0].ModelName != "" {
		s.CPU = c[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.RAM = fmt.Sprintf("%d GB", vm.Total/1024/1024/1024)
	}
	return s
}
