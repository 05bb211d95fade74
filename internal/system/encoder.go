package system

import (
	"fmt"
	"os/exec"
	"strings"
)

// hardware encoders in order of preference; libx264 is the fallback
var hardwareEncoders = []string{"h264_videotoolbox", "h264_nvenc"}

// DetectH264Encoder asks ffmpeg which H.264 encoders are built in.
func DetectH264Encoder(ffmpegPath string) string {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	out, err := exec.Command(ffmpegPath, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) string {
	for _, name := range hardwareEncoders {
		if strings.Contains(listing, name) {
			return name
		}
	}
	return "libx264"
}

// DefaultQuality is the quality value QualityArgs expects for encoder when
// nothing is configured.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}

// QualityArgs maps one quality number onto encoder-specific flags:
// VideoToolbox bitrate = q*100 kbit/s, NVENC constant quality, x264 CRF.
func QualityArgs(encoder string, quality int, preset string) []string {
	args := []string{"-c:v", encoder}
	switch encoder {
	case "h264_videotoolbox":
		return append(args, "-b:v", fmt.Sprintf("%dk", quality*100))
	case "h264_nvenc":
		return append(args, "-cq", fmt.Sprintf("%d", quality))
	}
	if preset == "" {
		preset = "medium"
	}
	return append(args, "-crf", fmt.Sprintf("%d", quality), "-preset", preset)
}
