package engine

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ivlev/takeone/internal/providers/slack"
	"github.com/ivlev/takeone/internal/source"
)

// minWinConfidence is the lowest model confidence accepted as a win.
const minWinConfidence = 0.5

type SlackRequest struct {
	Path        string
	Filename    string
	ContentType string
	Comment     string
}

// ShareToSlack posts a finished file to the configured channel.
func (e *Engine) ShareToSlack(ctx context.Context, req SlackRequest) (*slack.File, error) {
	if e.sharer == nil {
		return nil, disabled("Slack is not configured. Set SLACK_BOT_TOKEN and SLACK_CHANNEL_ID")
	}
	if err := nonEmpty(req.Path, "video"); err != nil {
		return nil, err
	}
	f, err := os.Open(req.Path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	name := strings.TrimSpace(req.Filename)
	if name == "" {
		name = "video.mp4"
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}
	comment := req.Comment
	if strings.TrimSpace(comment) == "" {
		comment = slack.DefaultComment(name)
	}

	file, err := e.sharer.Share(ctx, slack.Upload{
		Filename:    name,
		ContentType: contentType,
		Size:        fi.Size(),
		Body:        f,
		Comment:     comment,
	})
	if err != nil {
		return nil, provider("slack", err)
	}
	e.log.Info().Str("file", file.ID).Str("name", name).Int64("bytes", fi.Size()).Msg("shared to slack")
	return file, nil
}

// ShareAnalysis is a confirmed customer win with its cropped screenshot.
type ShareAnalysis struct {
	CroppedImage  string  `json:"croppedImage"`
	Summary       string  `json:"summary"`
	Confidence    float64 `json:"confidence"`
	Channel       string  `json:"channel"`
	HighlightText string  `json:"highlightText"`
	Reason        string  `json:"reason"`
}

// AnalyzeShare asks the vision model whether a screenshot is a customer
// win and crops it to the praise.
func (e *Engine) AnalyzeShare(ctx context.Context, data []byte, contentType string) (*ShareAnalysis, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, invalid("Please upload a valid image file.")
	}
	if len(data) == 0 {
		return nil, invalid("Empty file received.")
	}
	img, err := source.Decode(data)
	if err != nil {
		return nil, invalid("Unable to read image.")
	}
	if e.analyzer == nil {
		return nil, disabled("OPENAI_API_KEY is not configured")
	}

	a, err := e.analyzer.Analyze(ctx, data, contentType)
	if err != nil {
		return nil, provider("vision", err)
	}
	if !a.IsWin || a.Confidence < minWinConfidence {
		reason := a.Reason
		if reason == "" {
			reason = "Unable to confirm this is a customer win."
		}
		return nil, errors.WithStack(&Error{Kind: ErrNotAWin, Detail: reason})
	}

	box := source.Full
	if a.CropBox != nil {
		box = source.Box{XMin: a.CropBox.XMin, YMin: a.CropBox.YMin, XMax: a.CropBox.XMax, YMax: a.CropBox.YMax}
	} else if found, ok := source.ContentBox(img); ok {
		// no box from the model: fall back to the edge-dense region
		box = found
	}
	url, err := source.PNGDataURL(source.Crop(img, box))
	if err != nil {
		return nil, err
	}
	channel := a.Channel
	if channel == "" {
		channel = "unknown"
	}
	e.log.Info().Float64("confidence", a.Confidence).Str("channel", channel).Msg("customer win confirmed")
	return &ShareAnalysis{
		CroppedImage:  url,
		Summary:       a.Summary,
		Confidence:    a.Confidence,
		Channel:       channel,
		HighlightText: a.HighlightText,
		Reason:        a.Reason,
	}, nil
}
