package stream

import (
	"strings"
	"testing"
)

func TestEncoderStageKnownEncoders(t *testing.T) {
	cases := []struct {
		name     string
		encoder  string
		fps      int
		bitrate  int
		contains []string
	}{
		{
			"x264 zerolatency with kbps bitrate",
			"x264enc", 30, 8000,
			[]string{"x264enc", "tune=zerolatency", "speed-preset=ultrafast", "key-int-max=30", "bitrate=8000"},
		},
		{
			"x265 doubles gop with floor of 30",
			"x265enc", 10, 8000,
			[]string{"x265enc", "key-int-max=30", "bitrate=8000", "repeat-headers=1"},
		},
		{
			"x265 gop tracks fps above floor",
			"x265enc", 60, 8000,
			[]string{"key-int-max=120"},
		},
		{
			"nvenc h264 gop from fps",
			"nvh264enc", 60, 6000,
			[]string{"nvh264enc", "bitrate=6000", "gop-size=60"},
		},
		{
			"vaapi h265 cbr",
			"vaapih265enc", 30, 8000,
			[]string{"vaapih265enc", "rate-control=cbr", "bitrate=8000", "keyframe-period=30"},
		},
		{
			"v4l2 takes bps through extra-controls",
			"v4l2h265enc", 30, 8000,
			[]string{"video_bitrate=8000000"},
		},
		{
			"vp8 takes bps target-bitrate",
			"vp8enc", 10, 4000,
			[]string{"vp8enc", "deadline=1", "target-bitrate=4000000"},
		},
		{
			"zero fps clamped to one",
			"x264enc", 0, 1000,
			[]string{"key-int-max=1"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stage, err := EncoderStage(tc.encoder, tc.fps, tc.bitrate)
			if err != nil {
				t.Fatalf("EncoderStage(%q) error: %v", tc.encoder, err)
			}
			for _, want := range tc.contains {
				if !strings.Contains(stage, want) {
					t.Errorf("stage %q missing %q", stage, want)
				}
			}
		})
	}
}

func TestEncoderStageUnknownEncoder(t *testing.T) {
	_, err := EncoderStage("magicenc", 30, 8000)
	if err == nil {
		t.Fatal("expected error for unknown encoder")
	}
	// The error should list what is supported so the CLI message is
	// actionable.
	for _, name := range SupportedEncoders() {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention supported encoder %q", err, name)
		}
	}
}

func TestRTPStageMatchesCodec(t *testing.T) {
	cases := []struct {
		encoder string
		want    string
	}{
		{"x264enc", "rtph264pay"},
		{"nvh264enc", "rtph264pay"},
		{"x265enc", "rtph265pay"},
		{"nvh265enc", "rtph265pay"},
		{"vaapih265enc", "rtph265pay"},
		{"v4l2h265enc", "rtph265pay"},
		{"vp8enc", "rtpvp8pay"},
		{"vp9enc", "rtpvp9pay"},
	}
	for _, tc := range cases {
		t.Run(tc.encoder, func(t *testing.T) {
			stage, err := RTPStage(tc.encoder)
			if err != nil {
				t.Fatalf("RTPStage(%q) error: %v", tc.encoder, err)
			}
			if !strings.Contains(stage, tc.want) {
				t.Errorf("RTPStage(%q) = %q, want payloader %q", tc.encoder, stage, tc.want)
			}
		})
	}

	if _, err := RTPStage("magicenc"); err == nil {
		t.Fatal("expected error for unknown encoder")
	}
}
