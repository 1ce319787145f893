package soliscloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/berfenger/solisagility/internal/core/domain"

	"go.uber.org/zap"
)

const (
	contentTypeJSON = "application/json;charset=UTF-8"

	pathInverterDetail = "/v1/api/inverterDetail"
	pathInverterList   = "/v1/api/inverterList"
	pathInverterDay    = "/v1/api/inverterDay"
	pathAtRead         = "/v2/api/atRead"
	pathControl        = "/v2/api/control"
)

// Client performs signed calls against the SolisCloud platform API.
type Client struct {
	endpoint   string
	inverterSn string
	signer     Signer
	httpClient *http.Client
	now        func() time.Time
	loc        *time.Location
	logger     *zap.Logger
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLocation sets the installation time zone used for day queries and
// clock synchronisation.
func WithLocation(loc *time.Location) ClientOption {
	return func(c *Client) {
		c.loc = loc
	}
}

// WithNow pins the clock used for the Time header.
func WithNow(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

func NewClient(endpoint, inverterSn string, signer Signer, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		inverterSn: inverterSn,
		signer:     signer,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
		loc:        time.Local,
		logger:     logger.With(zap.String("component", "soliscloud")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether serial, key and secret are all present.
func (c *Client) Configured() bool {
	return c.inverterSn != "" && c.signer.KeyID != "" && c.signer.Secret != ""
}

func (c *Client) InverterSn() string {
	return c.inverterSn
}

func (c *Client) location() *time.Location {
	return c.loc
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// post signs and sends a request and returns the raw data member of the
// response envelope.
func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, domain.ErrMissingCredentials
	}
	date := c.now().UTC().Format(http.TimeFormat)
	sig, err := c.signer.Sign(http.MethodPost, path, contentTypeJSON, body, date)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(sig.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrTransport, path, err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Time", date)
	req.Header.Set("Authorization", sig.Authorization)
	req.Header.Set("Content-MD5", sig.ContentMD5)
	req.ContentLength = int64(len(sig.Body))

	c.logger.Debug("soliscloud@post: request", zap.String("path", path), zap.ByteString("body", sig.Body))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrTransport, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", domain.ErrTransport, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", domain.ErrTransport, path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: invalid response: %v", domain.ErrVendor, path, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("%w: %s: response has no data (%s %s)", domain.ErrVendor, path, env.Code, env.Msg)
	}
	return env.Data, nil
}

// FirmwareVersion resolves the station of the inverter and returns the first
// non-empty software version reported for it.
func (c *Client) FirmwareVersion(ctx context.Context) (string, error) {
	data, err := c.post(ctx, pathInverterDetail, map[string]string{"sn": c.inverterSn})
	if err != nil {
		return "", err
	}
	var detail struct {
		StationID flexString `json:"stationId"`
	}
	if err := json.Unmarshal(data, &detail); err != nil || detail.StationID == "" {
		return "", fmt.Errorf("%w: inverter detail without stationId", domain.ErrVendor)
	}

	data, err = c.post(ctx, pathInverterList, map[string]string{"stationId": string(detail.StationID)})
	if err != nil {
		return "", err
	}
	var list struct {
		Page struct {
			Records []struct {
				InverterSoftwareVersion string `json:"inverterSoftwareVersion"`
			} `json:"records"`
		} `json:"page"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return "", fmt.Errorf("%w: invalid inverter list: %v", domain.ErrVendor, err)
	}
	for _, r := range list.Page.Records {
		if r.InverterSoftwareVersion != "" {
			return r.InverterSoftwareVersion, nil
		}
	}
	return "", fmt.Errorf("%w: inverter list without software version", domain.ErrVendor)
}

// ReadSettings returns the legacy settings string of the inverter.
func (c *Client) ReadSettings(ctx context.Context) (string, error) {
	data, err := c.post(ctx, pathAtRead, map[string]any{"inverterSn": c.inverterSn, "cid": cidSettingsRead})
	if err != nil {
		return "", err
	}
	var read struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(data, &read); err != nil || read.Msg == "" {
		return "", fmt.Errorf("%w: settings read without msg", domain.ErrVendor)
	}
	if failed(read.Msg) {
		return "", fmt.Errorf("%w: settings read failed: %s", domain.ErrVendor, read.Msg)
	}
	return read.Msg, nil
}

// Control writes one value to the given command id.
func (c *Client) Control(ctx context.Context, cid int, value string) error {
	data, err := c.post(ctx, pathControl, map[string]any{"inverterSn": c.inverterSn, "cid": cid, "value": value})
	if err != nil {
		return err
	}
	if msg, ok := controlFailure(data); ok {
		return fmt.Errorf("%w: control cid %d rejected: %s", domain.ErrVendor, cid, msg)
	}
	return nil
}

// controlFailure looks for a fail/error message in the control response data,
// which is either a string, an object or a list of objects with a msg member.
func controlFailure(data json.RawMessage) (string, bool) {
	var text string
	if json.Unmarshal(data, &text) == nil {
		return text, failed(text)
	}
	var one struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(data, &one) == nil {
		return one.Msg, failed(one.Msg)
	}
	var many []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(data, &many) == nil {
		for _, m := range many {
			if failed(m.Msg) {
				return m.Msg, true
			}
		}
	}
	return "", false
}

func failed(msg string) bool {
	m := strings.ToLower(strings.TrimSpace(msg))
	return strings.HasPrefix(m, "fail") || strings.HasPrefix(m, "error")
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(strings.Trim(string(b), `"`))
	return nil
}
