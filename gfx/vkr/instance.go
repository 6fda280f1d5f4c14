// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/devblok/ninjadev/core"
	vk "github.com/devblok/vulkan"
)

const (
	validationLayer      = "VK_LAYER_KHRONOS_validation"
	debugReportExtension = "VK_EXT_debug_report"
)

// DefaultVulkanApplicationInfo application info describes a Vulkan application
var DefaultVulkanApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   safeString("NINJADEV"),
	PEngineName:        safeString("NINJADEV"),
}

// NewVulkanInstance creates a Vulkan instance. procAddr is the
// vkGetInstanceProcAddr of the windowing library, nil loads the
// system vulkan library instead.
func NewVulkanInstance(appInfo *vk.ApplicationInfo, procAddr unsafe.Pointer, cfg core.InstanceConfiguration) (*VulkanInstance, error) {
	cfg = withDebug(cfg)

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, fmt.Errorf("vk.SetDefaultGetInstanceProcAddr(): %w", err)
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vk.Init(): %w", err)
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: safeStrings(cfg.Extensions),
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     safeStrings(cfg.Layers),
	}

	var instance vk.Instance
	if err := Error(vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, fmt.Errorf("vk.CreateInstance(): %w", err)
	}
	vk.InitInstance(instance)

	physicalDevices, err := enumerateDevices(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, fmt.Errorf("vkr.enumerateDevices(): %w", err)
	}

	return &VulkanInstance{
		configuration:    cfg,
		instance:         instance,
		availableDevices: physicalDevices,
	}, nil
}

// withDebug adds the validation layer and debug report
// extension when debugging is requested, without duplicates.
func withDebug(cfg core.InstanceConfiguration) core.InstanceConfiguration {
	out := core.InstanceConfiguration{
		DebugMode:  cfg.DebugMode,
		Extensions: append([]string(nil), cfg.Extensions...),
		Layers:     append([]string(nil), cfg.Layers...),
	}
	if !cfg.DebugMode {
		return out
	}
	if !contains(out.Layers, validationLayer) {
		out.Layers = append(out.Layers, validationLayer)
	}
	if !contains(out.Extensions, debugReportExtension) {
		out.Extensions = append(out.Extensions, debugReportExtension)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// VulkanInstance describes a Vulkan API Instance
type VulkanInstance struct {
	configuration core.InstanceConfiguration

	availableDevices []vk.PhysicalDevice
	surface          vk.Surface
	instance         vk.Instance
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	devices, err := enumerate(func(count *uint32, out []vk.PhysicalDevice) vk.Result {
		return vk.EnumeratePhysicalDevices(instance, count, out)
	})
	if err != nil {
		return nil, fmt.Errorf("vulkan physical device enumeration failed: %w", err)
	}
	if len(devices) == 0 {
		return nil, errors.New("no vulkan capable physical devices found")
	}
	return devices, nil
}

func deviceExtensions(device vk.PhysicalDevice) ([]string, error) {
	props, err := enumerate(func(count *uint32, out []vk.ExtensionProperties) vk.Result {
		return vk.EnumerateDeviceExtensionProperties(device, "", count, out)
	})
	names := make([]string, 0, len(props))
	for _, ext := range props {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, err
}

func deviceLayers(device vk.PhysicalDevice) ([]string, error) {
	props, err := enumerate(func(count *uint32, out []vk.LayerProperties) vk.Result {
		return vk.EnumerateDeviceLayerProperties(device, count, out)
	})
	names := make([]string, 0, len(props))
	for _, layer := range props {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, err
}

// deviceMemory sums up the size of every memory heap of device
func deviceMemory(device vk.PhysicalDevice) uint64 {
	var mem vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(device, &mem)
	mem.Deref()

	var total uint64
	for _, heap := range mem.MemoryHeaps[:mem.MemoryHeapCount] {
		heap.Deref()
		total += uint64(heap.Size)
	}
	return total
}

// PhysicalDevicesInfo describes every enumerated physical device.
// A device whose extensions or layers can't be listed is marked invalid.
func (v *VulkanInstance) PhysicalDevicesInfo() []core.PhysicalDeviceInfo {
	infos := make([]core.PhysicalDeviceInfo, 0, len(v.availableDevices))
	for _, device := range v.availableDevices {
		props := deviceProperties(device)
		info := core.PhysicalDeviceInfo{
			ID:            int(props.DeviceID),
			VendorID:      int(props.VendorID),
			Name:          vk.ToString(props.DeviceName[:]),
			Type:          deviceTypeName(props.DeviceType),
			DriverVersion: int(props.DriverVersion),
			Memory:        deviceMemory(device),
		}

		var extErr, layerErr error
		info.Extensions, extErr = deviceExtensions(device)
		info.Layers, layerErr = deviceLayers(device)
		info.Invalid = extErr != nil || layerErr != nil

		infos = append(infos, info)
	}
	return infos
}

func deviceProperties(device vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &props)
	props.Deref()
	props.Limits.Deref()
	return props
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "IntegratedGpu"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "DiscreteGpu"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "VirtualGpu"
	case vk.PhysicalDeviceTypeCpu:
		return "Cpu"
	default:
		return "Other"
	}
}

// SetSurface sets the surface created by the windowing library
func (v *VulkanInstance) SetSurface(pSurface unsafe.Pointer) {
	v.surface = vk.SurfaceFromPointer(uintptr(pSurface))
}

// Surface returns the presentation surface
func (v *VulkanInstance) Surface() vk.Surface {
	if v.surface == nil {
		return vk.NullSurface
	}
	return v.surface
}

// Instance returns internal vk.Instance
func (v *VulkanInstance) Instance() vk.Instance {
	return v.instance
}

// Extensions returns the enabled instance extensions
func (v *VulkanInstance) Extensions() []string {
	return v.configuration.Extensions
}

// Layers returns the enabled instance layers
func (v *VulkanInstance) Layers() []string {
	return v.configuration.Layers
}

// AvailableDevices returns the enumerated physical devices
func (v *VulkanInstance) AvailableDevices() []vk.PhysicalDevice {
	return v.availableDevices
}

// Destroy destroys the surface, if any, and the instance
func (v *VulkanInstance) Destroy() {
	if v.surface != nil {
		vk.DestroySurface(v.instance, v.surface, nil)
		v.surface = nil
	}
	v.availableDevices = nil
	vk.DestroyInstance(v.instance, nil)
}
