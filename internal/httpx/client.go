// Package httpx wraps the marketplace REST API: bearer-token auth, JSON and
// multipart bodies, a secondary-base-URL fallback for network/404/405
// failures, and the global forced-logout hook on any 401.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/collabry/collabry-go/pkg/apperr"
)

const defaultTimeout = 20 * time.Second

type Client struct {
	base     string
	fallback string
	httpc    *http.Client
	token    func() string
	onUnauth func()
	once     sync.Once
	log      zerolog.Logger
}

type Options struct {
	BaseURL         string
	FallbackBaseURL string
	Timeout         time.Duration
	// Token is called per request; an empty result sends no Authorization
	// header.
	Token func() string
	// OnUnauthorized fires at most once per client, on the first 401.
	OnUnauthorized func()
	Logger         zerolog.Logger
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base:     strings.TrimRight(opts.BaseURL, "/"),
		fallback: strings.TrimRight(opts.FallbackBaseURL, "/"),
		httpc:    &http.Client{Timeout: timeout},
		token:    opts.Token,
		onUnauth: opts.OnUnauthorized,
		log:      opts.Logger,
	}
}

// BaseURL returns the primary REST base.
func (c *Client) BaseURL() string { return c.base }

// WSBaseURL derives the websocket endpoint from the primary base by swapping
// the scheme and appending the fixed /ws path.
func (c *Client) WSBaseURL() (string, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInvalidArgument, "invalid base url", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidArgument, "encoding request body", err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", data, out)
}

func (c *Client) PatchJSON(ctx context.Context, path string, body, out any) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return apperr.Wrap(apperr.CodeInvalidArgument, "encoding request body", err)
		}
	}
	return c.do(ctx, http.MethodPatch, path, "application/json", data, out)
}

func (c *Client) DeleteJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, "", nil, out)
}

// GetBytes fetches a raw asset (attachment download path). The reported
// content type is returned alongside the body.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeInvalidArgument, "building request", err)
	}
	c.authorize(req)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, "", apperr.Transport("fetching asset", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		c.fireUnauthorized()
		return nil, "", apperr.Unauthorized("session rejected")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", apperr.New(apperr.CodeInternal, fmt.Sprintf("asset fetch returned %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", apperr.Transport("reading asset body", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Upload is one file part of a multipart send.
type Upload struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// PostMultipart sends form fields plus file parts. The body is buffered so
// the fallback retry can resend it unchanged.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, files []Upload, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return apperr.Wrap(apperr.CodeInternal, "writing form field", err)
		}
	}
	for _, f := range files {
		field := f.Field
		if field == "" {
			field = "files"
		}
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
		if f.ContentType != "" {
			hdr.Set("Content-Type", f.ContentType)
		}
		part, err := mw.CreatePart(hdr)
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, "creating form part", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return apperr.Wrap(apperr.CodeInternal, "writing form part", err)
		}
	}
	if err := mw.Close(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "finalizing multipart body", err)
	}
	return c.do(ctx, http.MethodPost, path, mw.FormDataContentType(), buf.Bytes(), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	resp, err := c.attempt(ctx, c.base, method, path, contentType, body)
	if c.fallback != "" && shouldFallback(resp, err) {
		if resp != nil {
			drain(resp)
		}
		c.log.Debug().Str("path", path).Msg("primary endpoint failed, retrying against fallback")
		resp, err = c.attempt(ctx, c.fallback, method, path, contentType, body)
	}
	if err != nil {
		if ctx.Err() != nil {
			return apperr.Wrap(apperr.CodeDeadlineExceeded, "request cancelled", ctx.Err())
		}
		return apperr.Transport("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.fireUnauthorized()
		return apperr.Unauthorized("session rejected")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.CodeMalformedPayload, "decoding response body", err)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, base, method, path, contentType string, body []byte) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, rdr)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.authorize(req)
	return c.httpc.Do(req)
}

func (c *Client) authorize(req *http.Request) {
	if c.token == nil {
		return
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

func (c *Client) fireUnauthorized() {
	c.once.Do(func() {
		c.log.Warn().Msg("received 401, forcing logout")
		if c.onUnauth != nil {
			c.onUnauth()
		}
	})
}

func (c *Client) decodeError(resp *http.Response) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
	msg := payload.Error
	if msg == "" {
		msg = payload.Message
	}
	if msg == "" {
		msg = fmt.Sprintf("server returned %d", resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return apperr.NotFound(msg)
	case http.StatusBadRequest:
		return apperr.InvalidArg(msg)
	default:
		return apperr.Internal(msg)
	}
}

func shouldFallback(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusMethodNotAllowed
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
