// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/videomaker/gpucore"
)

// DeviceHandle provides gpucontext access to a render thread's device.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider so that
// gpucontext-based integrations (for example gg canvases) can be handed
// the device of a videomaker render thread.
type DeviceHandle = gpucontext.DeviceProvider

// Handle returns the DeviceHandle of dev, or NullDeviceHandle when dev
// does not expose one.
func Handle(dev gpucore.Device) DeviceHandle {
	if dev == nil {
		return NullDeviceHandle{}
	}
	if h := dev.Provider(); h != nil {
		return h
	}
	return NullDeviceHandle{}
}

// SurfaceFormat returns the pixel format of the surface dev presents to.
func SurfaceFormat(dev gpucore.Device) gputypes.TextureFormat {
	return Handle(dev).SurfaceFormat()
}

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}
