// Package slack uploads files to a channel with the external upload flow:
// reserve an upload URL, send the bytes, then complete and share.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultBaseURL = "https://slack.com/api"
	defaultTimeout = 120 * time.Second
)

// ErrAPI is a Slack response with ok=false.
var ErrAPI = errors.New("slack api error")

type Options struct {
	BotToken   string
	ChannelID  string
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	token   string
	channel string
	baseURL string
	client  *http.Client
}

// File describes the uploaded file as Slack reports it.
type File struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Upload is one file to share.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Comment     string
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BotToken) == "" {
		return nil, errors.New("slack bot token is required")
	}
	if strings.TrimSpace(opts.ChannelID) == "" {
		return nil, errors.New("slack channel id is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		token:   strings.TrimSpace(opts.BotToken),
		channel: strings.TrimSpace(opts.ChannelID),
		baseURL: baseURL,
		client:  client,
	}, nil
}

// DefaultComment is posted with the file when the caller gives none.
func DefaultComment(filename string) string {
	return fmt.Sprintf("🎬 New video generated: %s", filename)
}

// Share runs the three upload steps and returns the shared file.
func (c *Client) Share(ctx context.Context, u Upload) (*File, error) {
	if u.Filename == "" {
		u.Filename = "video.mp4"
	}
	if u.ContentType == "" {
		u.ContentType = "video/mp4"
	}
	if u.Comment == "" {
		u.Comment = DefaultComment(u.Filename)
	}

	var reserve struct {
		apiResponse
		UploadURL string `json:"upload_url"`
		FileID    string `json:"file_id"`
	}
	form := url.Values{"filename": {u.Filename}, "length": {strconv.FormatInt(u.Size, 10)}}
	if err := c.call(ctx, "files.getUploadURLExternal", form, &reserve); err != nil {
		return nil, err
	}
	if err := reserve.check("files.getUploadURLExternal"); err != nil {
		return nil, err
	}

	if err := c.send(ctx, reserve.UploadURL, u); err != nil {
		return nil, err
	}

	filesParam, err := json.Marshal([]map[string]string{{"id": reserve.FileID, "title": u.Filename}})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var complete struct {
		apiResponse
		Files []File `json:"files"`
	}
	form = url.Values{
		"files":           {string(filesParam)},
		"channel_id":      {c.channel},
		"initial_comment": {u.Comment},
	}
	if err := c.call(ctx, "files.completeUploadExternal", form, &complete); err != nil {
		return nil, err
	}
	if err := complete.check("files.completeUploadExternal"); err != nil {
		return nil, err
	}
	if len(complete.Files) == 0 {
		return &File{ID: reserve.FileID}, nil
	}
	return &complete.Files[0], nil
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (r apiResponse) check(method string) error {
	if r.OK {
		return nil
	}
	msg := r.Error
	if msg == "" {
		msg = "unknown error"
	}
	return errors.Wrapf(ErrAPI, "%s: %s", method, msg)
}

func (c *Client) call(ctx context.Context, method string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, method)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "%s: decode (status %d)", method, resp.StatusCode)
	}
	return nil
}

// send streams the file as multipart form data to the reserved URL.
func (c *Client) send(ctx context.Context, uploadURL string, u Upload) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, strings.ReplaceAll(u.Filename, `"`, "")))
		h.Set("Content-Type", u.ContentType)
		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, u.Body)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, pr)
	if err != nil {
		pr.CloseWithError(err)
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.client.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return errors.Wrap(err, "upload file")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrAPI, "upload file: status %d", resp.StatusCode)
	}
	return nil
}
