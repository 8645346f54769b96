// Package drm provides access to a DRM (Direct Rendering Manager) device
// node: opening cards, driver version, capabilities, client capabilities,
// master ownership, vblank waits and PRIME/GEM buffer handles.
//
// Mode setting objects (CRTCs, connectors, planes, properties and atomic
// requests) live in the mode subpackage.
package drm
