//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation
#import <AVFoundation/AVFoundation.h>

int authorizationStatus(int video) {
    AVMediaType media = video ? AVMediaTypeVideo : AVMediaTypeAudio;
    return (int)[AVCaptureDevice authorizationStatusForMediaType:media];
}

void requestAccess(int video) {
    AVMediaType media = video ? AVMediaTypeVideo : AVMediaTypeAudio;
    [AVCaptureDevice requestAccessForMediaType:media completionHandler:^(BOOL granted) {}];
}
*/
import "C"

const (
	statusNotDetermined = 0
	statusAuthorized    = 3
)

// platformAuthorized checks AVFoundation authorization. An undetermined
// status triggers the system prompt and reports not authorized; the next
// check after the operator answers sees the decision.
func platformAuthorized(d Device) bool {
	video := C.int(0)
	if d == Camera {
		video = 1
	}

	switch int(C.authorizationStatus(video)) {
	case statusAuthorized:
		return true
	case statusNotDetermined:
		C.requestAccess(video)
	}
	return false
}
