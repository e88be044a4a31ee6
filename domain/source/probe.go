package source

import (
	"fmt"

	"gocv.io/x/gocv"
)

// DeviceInfo describes one discovered capture device.
type DeviceInfo struct {
	Index       int
	Width       int
	Height      int
	Description string
}

// ProbeDevices opens indices 0..maxIndex-1 and reports every device that
// answers, so the two rig cameras can be located after replugging.
func ProbeDevices(maxIndex int) []DeviceInfo {
	if maxIndex <= 0 {
		maxIndex = 10
	}
	var found []DeviceInfo
	for idx := 0; idx < maxIndex; idx++ {
		vc, err := gocv.VideoCaptureDevice(idx)
		if err != nil {
			continue
		}
		w := int(vc.Get(gocv.VideoCaptureFrameWidth))
		h := int(vc.Get(gocv.VideoCaptureFrameHeight))
		if w > 0 && h > 0 {
			found = append(found, DeviceInfo{
				Index:       idx,
				Width:       w,
				Height:      h,
				Description: fmt.Sprintf("%dx%d @ %.0ffps", w, h, vc.Get(gocv.VideoCaptureFPS)),
			})
		}
		vc.Close()
	}
	return found
}
