package service

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Device is the compute device the model service binds the model to
type Device string

const (
	// DeviceAuto uses an accelerator when the service has one and falls back to cpu
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
	DeviceMPS  Device = "mps"
)

// ParseDevice parses a device name
func ParseDevice(s string) (Device, error) {
	switch d := Device(strings.ToLower(strings.TrimSpace(s))); d {
	case DeviceAuto, DeviceCPU, DeviceCUDA, DeviceMPS:
		return d, nil
	case "":
		return DeviceAuto, nil
	default:
		return "", fmt.Errorf("unknown device %q", s)
	}
}

// NormalizeText returns the NFC form of a premise so equivalent
// encodings of the same tweet reach the model identically.
func NormalizeText(text string) string {
	return norm.NFC.String(text)
}
