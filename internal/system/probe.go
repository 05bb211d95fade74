package system

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ErrProbeFailed wraps every ffprobe failure.
var ErrProbeFailed = errors.New("probe failed")

// FallbackAudioDuration is used when an audio file cannot be probed.
const FallbackAudioDuration = 10.0

// MediaInfo is what the pipeline needs to know about a media file.
type MediaInfo struct {
	Duration float64
	Width    int
	Height   int
	HasVideo bool
	HasAudio bool
	Codec    string
}

// Prober reads media metadata.
type Prober interface {
	Probe(path string) (*MediaInfo, error)
}

// FFprobe runs ffprobe from PATH through ffmpeg-go.
type FFprobe struct {
	Timeout time.Duration
}

func (p FFprobe) Probe(path string) (*MediaInfo, error) {
	out, err := ffmpeg.ProbeWithTimeout(path, p.Timeout, ffmpeg.KwArgs{})
	if err != nil {
		return nil, errors.Wrapf(ErrProbeFailed, "%s: %v", path, err)
	}
	info, err := ParseProbe([]byte(out))
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return info, nil
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Duration   string `json:"duration"`
	NbFrames   string `json:"nb_frames"`
	RFrameRate string `json:"r_frame_rate"`
}

// ParseProbe decodes ffprobe's -show_format -show_streams JSON. Duration is
// taken from the container, then the first stream that reports one, then
// frame count over frame rate of the video stream.
func ParseProbe(data []byte) (*MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(ErrProbeFailed, err.Error())
	}

	info := &MediaInfo{}
	var video *probeStream
	for i := range out.Streams {
		s := &out.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil {
				video = s
			}
			info.HasVideo = true
		case "audio":
			info.HasAudio = true
		}
	}
	if video != nil {
		info.Width, info.Height, info.Codec = video.Width, video.Height, video.CodecName
	}

	info.Duration = parseSeconds(out.Format.Duration)
	for i := 0; info.Duration <= 0 && i < len(out.Streams); i++ {
		info.Duration = parseSeconds(out.Streams[i].Duration)
	}
	if info.Duration <= 0 && video != nil {
		frames, _ := strconv.ParseFloat(video.NbFrames, 64)
		if rate := frameRate(video.RFrameRate); frames > 0 && rate > 0 {
			info.Duration = frames / rate
		}
	}
	if info.Duration <= 0 {
		return nil, errors.Wrap(ErrProbeFailed, "could not determine duration")
	}
	return info, nil
}

func parseSeconds(s string) float64 {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func frameRate(s string) float64 {
	nums := strings.Split(s, "/")
	if len(nums) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(nums[0], 64)
	den, err2 := strconv.ParseFloat(nums[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// AudioDuration never fails: unreadable audio is treated as
// FallbackAudioDuration seconds long.
func AudioDuration(p Prober, path string, logger zerolog.Logger) float64 {
	info, err := p.Probe(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Float64("fallback", FallbackAudioDuration).
			Msg("audio duration unknown, using fallback")
		return FallbackAudioDuration
	}
	return info.Duration
}

// VideoDuration has no fallback.
func VideoDuration(p Prober, path string) (float64, error) {
	info, err := p.Probe(path)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}
