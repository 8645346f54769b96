package drm

import (
	"github.com/NeowayLabs/hdi/ioctl"
)

const IOCTLBase = 'd'

var (
	// DRM_IOWR(0x00, struct drm_version)
	IOCTLVersion = ioctl.IOWR[version](IOCTLBase, 0x00)

	// DRM_IOW(0x09, struct drm_gem_close)
	IOCTLGemClose = ioctl.IOW[sysGemClose](IOCTLBase, 0x09)

	// DRM_IOWR(0x0c, struct drm_get_cap)
	IOCTLGetCap = ioctl.IOWR[capability](IOCTLBase, 0x0c)

	// DRM_IOW(0x0d, struct drm_set_client_cap)
	IOCTLSetClientCap = ioctl.IOW[capability](IOCTLBase, 0x0d)

	// DRM_IO(0x1e)
	IOCTLSetMaster = ioctl.IO(IOCTLBase, 0x1e)

	// DRM_IO(0x1f)
	IOCTLDropMaster = ioctl.IO(IOCTLBase, 0x1f)

	// DRM_IOWR(0x2d, struct drm_prime_handle)
	IOCTLPrimeHandleToFD = ioctl.IOWR[sysPrimeHandle](IOCTLBase, 0x2d)

	// DRM_IOWR(0x2e, struct drm_prime_handle)
	IOCTLPrimeFDToHandle = ioctl.IOWR[sysPrimeHandle](IOCTLBase, 0x2e)

	// DRM_IOWR(0x3a, union drm_wait_vblank)
	IOCTLWaitVBlank = ioctl.IOWR[sysWaitVBlank](IOCTLBase, 0x3a)
)
