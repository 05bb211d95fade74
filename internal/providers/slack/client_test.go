package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestShare(t *testing.T) {
	var steps []string
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		steps = append(steps, r.URL.Path)
		switch r.URL.Path {
		case "/files.getUploadURLExternal":
			if r.Header.Get("Authorization") != "Bearer xoxb-1" {
				t.Errorf("auth = %q", r.Header.Get("Authorization"))
			}
			r.ParseForm()
			if r.Form.Get("filename") != "final.mp4" || r.Form.Get("length") != "5" {
				t.Errorf("form = %v", r.Form)
			}
			w.Write([]byte(`{"ok":true,"upload_url":"` + srv.URL + `/upload/F1","file_id":"F1"}`))
		case "/upload/F1":
			file, hdr, err := r.FormFile("file")
			if err != nil {
				t.Errorf("form file: %v", err)
				return
			}
			data, _ := io.ReadAll(file)
			if string(data) != "video" || hdr.Filename != "final.mp4" {
				t.Errorf("upload %q %q", data, hdr.Filename)
			}
		case "/files.completeUploadExternal":
			r.ParseForm()
			var files []map[string]string
			json.Unmarshal([]byte(r.Form.Get("files")), &files)
			if len(files) != 1 || files[0]["id"] != "F1" || files[0]["title"] != "final.mp4" {
				t.Errorf("files = %v", files)
			}
			if r.Form.Get("channel_id") != "C1" || r.Form.Get("initial_comment") != "🎬 New video generated: final.mp4" {
				t.Errorf("form = %v", r.Form)
			}
			w.Write([]byte(`{"ok":true,"files":[{"id":"F1","name":"final.mp4","title":"final.mp4"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c, err := NewClient(Options{BotToken: "xoxb-1", ChannelID: "C1", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	f, err := c.Share(context.Background(), Upload{Filename: "final.mp4", Size: 5, Body: strings.NewReader("video")})
	if err != nil {
		t.Fatal(err)
	}
	if f.ID != "F1" || f.Name != "final.mp4" {
		t.Errorf("file = %+v", f)
	}
	if strings.Join(steps, " ") != "/files.getUploadURLExternal /upload/F1 /files.completeUploadExternal" {
		t.Errorf("steps = %v", steps)
	}
}

func TestShareAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"not_in_channel"}`))
	}))
	defer srv.Close()
	c, _ := NewClient(Options{BotToken: "t", ChannelID: "C", BaseURL: srv.URL})
	_, err := c.Share(context.Background(), Upload{Body: strings.NewReader("")})
	if !errors.Is(err, ErrAPI) || !strings.Contains(err.Error(), "not_in_channel") {
		t.Errorf("err = %v", err)
	}
}

func TestNewClientValidates(t *testing.T) {
	if _, err := NewClient(Options{ChannelID: "C"}); err == nil {
		t.Error("missing token accepted")
	}
	if _, err := NewClient(Options{BotToken: "t"}); err == nil {
		t.Error("missing channel accepted")
	}
}
