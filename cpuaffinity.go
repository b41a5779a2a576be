package dlinfer

import (
	"fmt"
	"sort"
	"strings"
	"syscall"
	"unsafe"
)

const (
	// TDA4VMAllCores is the cpu affinity mask of the dual cortex A72 cores 0-1
	TDA4VMAllCores = uintptr(0b00000011)

	// AM68AAllCores is the cpu affinity mask of the dual cortex A72 cores 0-1
	AM68AAllCores = uintptr(0b00000011)

	// AM69AAllCores is the cpu affinity mask of both quad cortex A72 clusters,
	// cores 0-7
	AM69AAllCores = uintptr(0b11111111)
	// AM69ACluster0 is the cpu affinity mask of the first A72 cluster, cores 0-3
	AM69ACluster0 = uintptr(0b00001111)
	// AM69ACluster1 is the cpu affinity mask of the second A72 cluster, cores 4-7
	AM69ACluster1 = uintptr(0b11110000)

	// AM62AAllCores is the cpu affinity mask of the quad cortex A53 cores 0-3
	AM62AAllCores = uintptr(0b00001111)

	// AM67AAllCores is the cpu affinity mask of the quad cortex A53 cores 0-3
	AM67AAllCores = uintptr(0b00001111)
)

// coreMaskList defines the CPU core mask of all application cores for lookup
// by platform name
var coreMaskList = map[string]uintptr{
	"tda4vm": TDA4VMAllCores,
	"j721e":  TDA4VMAllCores,
	"am68a":  AM68AAllCores,
	"j721s2": AM68AAllCores,
	"am69a":  AM69AAllCores,
	"j784s4": AM69AAllCores,
	"am62a":  AM62AAllCores,
	"am67a":  AM67AAllCores,
	"j722s":  AM67AAllCores,
}

// Platforms returns the sorted list of platform names known to
// SetCPUAffinityByPlatform
func Platforms() []string {

	names := make([]string, 0, len(coreMaskList))

	for name := range coreMaskList {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// PlatformCoreMask returns the CPU affinity mask of all application cores of
// the given platform
func PlatformCoreMask(platform string) (uintptr, error) {

	name := strings.ToLower(strings.TrimSpace(platform))

	mask, ok := coreMaskList[name]

	if !ok {
		return 0, fmt.Errorf("%w: unknown platform: %s", ErrConfiguration, platform)
	}

	return mask, nil
}

// SetCPUAffinity sets the CPU Affinity mask of the program to run on the specified
// cores
func SetCPUAffinity(mask uintptr) error {

	_, _, err := syscall.RawSyscall(syscall.SYS_SCHED_SETAFFINITY, 0,
		unsafe.Sizeof(mask), uintptr(unsafe.Pointer(&mask)))

	if err != 0 {
		return fmt.Errorf("failed to set CPU affinity: %w", err)
	}

	return nil
}

// GetCPUAffinity gets the current CPU Affinity mask the program is running on
func GetCPUAffinity() (uintptr, error) {

	var mask uintptr

	_, _, err := syscall.RawSyscall(syscall.SYS_SCHED_GETAFFINITY, 0,
		unsafe.Sizeof(mask), uintptr(unsafe.Pointer(&mask)))

	if err != 0 {
		return 0, fmt.Errorf("failed to get CPU affinity: %w", err)
	}

	return mask, nil
}

// CPUCoreMask calculates the core mask by passing in the CPU core numbers as a
// slice, eg: []int{0,1,2,3}
func CPUCoreMask(cores []int) uintptr {

	var mask uintptr

	for _, core := range cores {
		mask |= 1 << core
	}

	return mask
}

// SetCPUAffinityByPlatform pins the program to all application cores of the
// given platform, one of am62a|am67a|am68a|am69a|tda4vm or the matching J7
// SoC name
func SetCPUAffinityByPlatform(platform string) error {

	mask, err := PlatformCoreMask(platform)

	if err != nil {
		return err
	}

	return SetCPUAffinity(mask)
}
