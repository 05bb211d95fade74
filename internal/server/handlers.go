package server

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/ivlev/takeone/internal/composer"
	"github.com/ivlev/takeone/internal/engine"
	"github.com/ivlev/takeone/internal/overlay"
	"github.com/ivlev/takeone/internal/timeline"
)

type healthBody struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", Service: "TakeOne API", Version: Version})
}

func introText(r *http.Request) overlay.Text {
	return overlay.Text{
		Team: r.FormValue("team"),
		Name: r.FormValue("full_name"),
		Role: r.FormValue("role"),
	}
}

func cardText(r *http.Request) overlay.Text {
	return overlay.Text{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
}

func personaText(r *http.Request) overlay.Text {
	return overlay.Text{
		Name:     r.FormValue("name"),
		Title:    r.FormValue("title"),
		Industry: r.FormValue("industry"),
	}
}

func closingText(r *http.Request) overlay.Text {
	return overlay.Text{
		Title:        r.FormValue("title"),
		Subtitle:     r.FormValue("subtitle"),
		Email:        r.FormValue("email"),
		TeamName:     r.FormValue("teamName"),
		DirectorName: r.FormValue("directorName"),
	}
}

func noText(*http.Request) overlay.Text { return overlay.Text{} }

// renderSegment serves one template. media lists the upload fields the
// route reads, named after the template's media slots.
func (s *Server) renderSegment(kind composer.Kind, text func(*http.Request) overlay.Text, media ...composer.Media) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseForm(w, r); err != nil {
			s.fail(w, r, err)
			return
		}
		defer cleanupForm(r)

		duration, err := formFloat(r, "duration", 0)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		scratch, err := s.engine.NewScratch(string(kind))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		var m engine.Media
		ups := make([]upload, 0, len(media))
		for _, slot := range media {
			u := upload{field: string(slot), name: string(slot)}
			switch slot {
			case composer.MediaImage:
				u.check, u.dst = checkImage, &m.Image
			case composer.MediaAudio:
				u.check, u.dst = checkAudio, &m.Audio
			case composer.MediaVideo:
				u.dst = &m.Video
			}
			ups = append(ups, u)
		}
		if err := saveAll(r, scratch, ups); err != nil {
			_ = scratch.Remove()
			s.fail(w, r, err)
			return
		}

		res, err := s.engine.Render(r.Context(), engine.RenderRequest{
			Kind:     kind,
			Media:    m,
			Text:     text(r),
			Duration: duration,
			Scratch:  scratch,
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.sendFile(w, r, res, "video/mp4")
	}
}

func (s *Server) concatenate(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	defer cleanupForm(r)

	watermark, err := formBool(r, "watermark")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	paths := make([]string, engine.MaxSegments)
	segs := make([]timeline.Segment, engine.MaxSegments)
	var ups []upload
	for i := range engine.MaxSegments {
		field := fmt.Sprintf("segment_%d", i)
		if formFile(r, field) == nil {
			continue
		}
		order := i
		if v := strings.TrimSpace(r.FormValue(fmt.Sprintf("order_%d", i))); v != "" {
			if order, err = strconv.Atoi(v); err != nil {
				s.fail(w, r, badRequest(fmt.Sprintf("Invalid order_%d", i)))
				return
			}
		}
		segs[i].Order = order
		if v := r.FormValue(fmt.Sprintf("kind_%d", i)); strings.TrimSpace(v) != "" {
			if segs[i].Kind, err = composer.ParseKind(v); err != nil {
				s.fail(w, r, badRequest(fmt.Sprintf("Invalid kind_%d: %s", i, v)))
				return
			}
		}
		ups = append(ups, upload{field: field, name: field, dst: &paths[i]})
	}

	scratch, err := s.engine.NewScratch("concat")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := saveAll(r, scratch, ups); err != nil {
		_ = scratch.Remove()
		s.fail(w, r, err)
		return
	}
	var present []timeline.Segment
	for i, p := range paths {
		if p != "" {
			segs[i].Path = p
			present = append(present, segs[i])
		}
	}

	res, err := s.engine.Concatenate(r.Context(), engine.ConcatRequest{
		Segments:  present,
		Filename:  r.FormValue("final_filename"),
		Watermark: watermark,
		TeamName:  r.FormValue("team_name"),
		Reencode:  true,
		Scratch:   scratch,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.sendFile(w, r, res, "video/mp4")
}

func (s *Server) trim(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	defer cleanupForm(r)

	start, err := formFloat(r, "start", -1)
	if err != nil {
		s.fail(w, r, badRequest("Invalid start/end times"))
		return
	}
	end, err := formFloat(r, "end", -1)
	if err != nil {
		s.fail(w, r, badRequest("Invalid start/end times"))
		return
	}
	reencode, err := formBool(r, "reencode")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	scratch, err := s.engine.NewScratch("trim")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var path string
	if err := saveAll(r, scratch, []upload{{field: "video", name: "source", dst: &path}}); err != nil {
		_ = scratch.Remove()
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.Trim(r.Context(), engine.TrimRequest{
		Path:     path,
		Start:    start,
		End:      end,
		Reencode: reencode != nil && *reencode,
		Scratch:  scratch,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.sendFile(w, r, res, "video/mp4")
}

func (s *Server) enhanceAudio(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	defer cleanupForm(r)

	scratch, err := s.engine.NewScratch("enhance")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var path, name string
	if fh := formFile(r, "audio"); fh != nil {
		name = fh.Filename
	}
	if err := saveAll(r, scratch, []upload{{field: "audio", name: "source", check: checkAudio, dst: &path}}); err != nil {
		_ = scratch.Remove()
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.Enhance(r.Context(), engine.EnhanceRequest{Path: path, Name: name, Scratch: scratch})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	h := w.Header()
	h.Set("X-Audio-Duration", strconv.FormatFloat(res.Duration, 'f', 3, 64))
	h.Set("X-Audio-Enhancements", strings.Join(res.Enhancements, ","))
	if res.TranscriptID != "" {
		h.Set("X-Audio-Transcript-Id", res.TranscriptID)
	}
	s.sendFile(w, r, &res.Result, "audio/webm")
}

type slackResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	FileInfo slackFile `json:"file_info"`
}

type slackFile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

func (s *Server) shareToSlack(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	defer cleanupForm(r)

	fh := formFile(r, "file")
	if fh == nil {
		s.fail(w, r, badRequest("No video file provided"))
		return
	}
	scratch, err := s.engine.NewScratch("slack")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer scratch.Remove()

	var path string
	if err := saveAll(r, scratch, []upload{{field: "file", name: "share", dst: &path}}); err != nil {
		s.fail(w, r, err)
		return
	}
	filename := strings.TrimSpace(r.FormValue("filename"))
	if filename == "" {
		filename = fh.Filename
	}

	file, err := s.engine.ShareToSlack(r.Context(), engine.SlackRequest{
		Path:        path,
		Filename:    filename,
		ContentType: contentType(fh),
		Comment:     r.FormValue("initial_comment"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slackResponse{
		Success:  true,
		Message:  "Video shared to Slack successfully!",
		FileInfo: slackFile{ID: file.ID, Name: file.Name, Title: file.Title},
	})
}

func (s *Server) processShare(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	defer cleanupForm(r)

	fh := formFile(r, "file")
	if fh == nil {
		s.fail(w, r, badRequest("Please upload a valid image file."))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxShareImage+1))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(data) > maxShareImage {
		s.fail(w, r, badRequest("Image is too large."))
		return
	}

	analysis, err := s.engine.AnalyzeShare(r.Context(), data, contentType(fh))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// sendFile streams a result and releases its scratch directory afterwards.
func (s *Server) sendFile(w http.ResponseWriter, r *http.Request, res *engine.Result, contentType string) {
	defer res.Release()

	f, err := os.Open(res.Path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	http.ServeContent(w, r, res.Filename, fi.ModTime(), f)
}
