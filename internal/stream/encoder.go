// Package stream turns the engine's emitted frames into an encoded
// video stream: an RTP/UDP sender for live use and a WebM recorder for
// captures to disk.
package stream

import (
	"fmt"
	"sort"
	"strings"
)

// EncoderStage builds the encoder portion of a pipeline for one of the
// supported encoder elements. fps sizes the keyframe interval, bitrate
// is in kbps.
func EncoderStage(encoder string, fps, bitrateKbps int) (string, error) {
	if fps < 1 {
		fps = 1
	}
	switch encoder {
	case "x264enc":
		return fmt.Sprintf(
			"x264enc tune=zerolatency speed-preset=ultrafast key-int-max=%d bitrate=%d",
			fps, bitrateKbps), nil
	case "nvh264enc":
		return fmt.Sprintf("nvh264enc bitrate=%d gop-size=%d", bitrateKbps, fps), nil
	case "x265enc":
		gop := fps * 2
		if gop < 30 {
			gop = 30
		}
		return fmt.Sprintf(
			"x265enc speed-preset=veryfast key-int-max=%d bitrate=%d option-string=\"repeat-headers=1:aud=1:scenecut=0\"",
			gop, bitrateKbps), nil
	case "nvh265enc":
		return fmt.Sprintf("nvh265enc bitrate=%d gop-size=%d", bitrateKbps, fps), nil
	case "vaapih265enc":
		return fmt.Sprintf(
			"vaapih265enc rate-control=cbr bitrate=%d keyframe-period=%d",
			bitrateKbps, fps), nil
	case "v4l2h265enc":
		// v4l2 takes its bitrate in bps through the control interface.
		return fmt.Sprintf(
			"v4l2h265enc extra-controls=\"controls,video_bitrate=%d000\"",
			bitrateKbps), nil
	case "vp8enc":
		return fmt.Sprintf(
			"vp8enc deadline=1 cpu-used=8 end-usage=cbr target-bitrate=%d000",
			bitrateKbps), nil
	case "vp9enc":
		return fmt.Sprintf(
			"vp9enc deadline=1 cpu-used=8 end-usage=cbr target-bitrate=%d000",
			bitrateKbps), nil
	}
	return "", fmt.Errorf("unsupported encoder %q (supported: %s)",
		encoder, strings.Join(SupportedEncoders(), ", "))
}

// RTPStage returns the parse+payload fragment matching the encoder's
// codec.
func RTPStage(encoder string) (string, error) {
	switch encoder {
	case "x264enc", "nvh264enc":
		return "h264parse config-interval=1 ! rtph264pay pt=96 config-interval=1 mtu=1200", nil
	case "x265enc", "nvh265enc", "vaapih265enc", "v4l2h265enc":
		return "h265parse config-interval=1 ! rtph265pay pt=96 config-interval=1 mtu=1200", nil
	case "vp8enc":
		return "rtpvp8pay pt=96 mtu=1200", nil
	case "vp9enc":
		return "rtpvp9pay pt=96 mtu=1200", nil
	}
	return "", fmt.Errorf("unsupported encoder %q (supported: %s)",
		encoder, strings.Join(SupportedEncoders(), ", "))
}

// SupportedEncoders lists the encoder element names the sender accepts.
func SupportedEncoders() []string {
	names := []string{
		"x264enc", "nvh264enc",
		"x265enc", "nvh265enc", "vaapih265enc", "v4l2h265enc",
		"vp8enc", "vp9enc",
	}
	sort.Strings(names)
	return names
}
