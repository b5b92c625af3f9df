package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/nickpending/devicelab/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrDisallowedType is returned when a file does not match any allowed
// upload pattern. The server enforces the same rule.
var ErrDisallowedType = errors.New("file type not allowed")

// StatusError is returned when the server answers with a 4xx or 5xx status.
// Message is the server's plain-text body.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return e.Message
}

// APIClient handles HTTP communication with the device-lab master server
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	allowed    []string
	log        logrus.FieldLogger
}

// Allocation is the last job that reserved a device.
type Allocation struct {
	IP             string `json:"ip"`
	User           string `json:"user"`
	JenkinsJobLink string `json:"jenkinsJobLink"`
}

// HeldBy names the user holding a remote control session.
type HeldBy struct {
	Name string `json:"name"`
}

// Device is one status card from GET /devices
type Device struct {
	IP               string      `json:"ip"`
	Connected        bool        `json:"connected"`
	DeviceType       string      `json:"deviceType"`
	SDKVersion       string      `json:"sdkVersion"`
	Manufacturer     string      `json:"manufacturer"`
	MarketName       string      `json:"marketName"`
	Model            string      `json:"model"`
	ImageURL         string      `json:"imageUrl"`
	BrowserVersion   string      `json:"browserVersion"`
	Free             bool        `json:"free"`
	Android          bool        `json:"android"`
	AllocatedTo      *Allocation `json:"allocatedTo,omitempty"`
	URL              string      `json:"url"`
	OwnedBy          string      `json:"ownedBy"`
	StfSessionHeldBy *HeldBy     `json:"stfSessionHeldBy,omitempty"`
}

// State returns "offline", "free" or "busy".
func (d Device) State() string {
	switch {
	case !d.Connected:
		return "offline"
	case d.Free:
		return "free"
	default:
		return "busy"
	}
}

// Name returns the best display name the server gave us.
func (d Device) Name() string {
	if d.MarketName != "" {
		return d.MarketName
	}
	return d.Model
}

// Platform returns "Android" or "iOS".
func (d Device) Platform() string {
	if d.Android {
		return "Android"
	}
	return "iOS"
}

// HasControlURL reports whether the device has a remote control page.
// iOS devices report "#".
func (d Device) HasControlURL() bool {
	return d.URL != "" && d.URL != "#"
}

// NewClient creates a client from the loaded configuration
func NewClient(cfg *config.Config) *APIClient {
	c := NewClientWithURL(cfg.Server.URL, cfg.GetTimeout())
	c.allowed = append([]string(nil), cfg.Upload.Allowed...)
	return c
}

// NewClientWithURL creates a client for baseURL with the default upload patterns
func NewClientWithURL(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		allowed:    config.Default().Upload.Allowed,
		log:        logrus.StandardLogger(),
	}
}

// SetLogger replaces the request logger.
func (c *APIClient) SetLogger(log logrus.FieldLogger) {
	c.log = log
}

// BaseURL returns the server address without a trailing slash.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// AllowedPatterns returns the upload patterns in use.
func (c *APIClient) AllowedPatterns() []string {
	return append([]string(nil), c.allowed...)
}

// Allowed reports whether name matches one of patterns. Matching is done on
// the base name and ignores case.
func Allowed(patterns []string, name string) bool {
	base := strings.ToLower(filepath.Base(name))
	for _, p := range patterns {
		ok, err := doublestar.Match(strings.ToLower(p), base)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Devices fetches the device status list.
func (c *APIClient) Devices(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := c.getJSON(ctx, "/devices", nil, &devices); err != nil {
		return nil, fmt.Errorf("failed to fetch devices: %w", err)
	}
	return devices, nil
}

// ListFiles returns the URLs of the files uploaded to dir, newest first.
func (c *APIClient) ListFiles(ctx context.Context, dir string) ([]string, error) {
	q := url.Values{}
	q.Set("prefix", dir)
	var files []string
	if err := c.getJSON(ctx, "/files", q, &files); err != nil {
		return nil, fmt.Errorf("failed to list files in %q: %w", dir, err)
	}
	return files, nil
}

// ListAllFiles lists every directory concurrently. The first error cancels
// the remaining requests.
func (c *APIClient) ListAllFiles(ctx context.Context, dirs []string) (map[string][]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	out := make(map[string][]string, len(dirs))
	for _, dir := range dirs {
		g.Go(func() error {
			files, err := c.ListFiles(ctx, dir)
			if err != nil {
				return err
			}
			mu.Lock()
			out[dir] = files
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload sends the file at filePath into dir and returns the URL the server
// stored it under.
func (c *APIClient) Upload(ctx context.Context, filePath, dir string) (string, error) {
	if !Allowed(c.allowed, filePath) {
		return "", fmt.Errorf("%s: %w (allowed: %s)", filepath.Base(filePath), ErrDisallowedType, strings.Join(c.allowed, ", "))
	}
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return c.UploadReader(ctx, filepath.Base(filePath), f, dir)
}

// UploadReader sends r as a file called name into dir.
func (c *APIClient) UploadReader(ctx context.Context, name string, r io.Reader, dir string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if err := w.WriteField("directory", dir); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return strings.TrimSpace(string(resp)), nil
}

// Status returns the server's liveness text.
func (c *APIClient) Status(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("status check failed: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

// FileName returns the last path element of a file URL.
func FileName(fileURL string) string {
	if u, err := url.Parse(fileURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(fileURL)
}

func (c *APIClient) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	target := c.baseURL + endpoint
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// do sends req with a fresh request id and returns the body of a successful
// response.
func (c *APIClient) do(req *http.Request) ([]byte, error) {
	id := uuid.NewString()
	req.Header.Set("X-Request-ID", id)
	log := c.log.WithFields(logrus.Fields{
		"request_id": id,
		"method":     req.Method,
		"path":       req.URL.Path,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("request failed")
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	log = log.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).Round(time.Millisecond),
	})
	if resp.StatusCode >= 400 {
		log.Warn("server returned error")
		return nil, &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	log.Debug("request complete")
	return body, nil
}
