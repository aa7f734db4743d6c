// Package rest implements the management console's REST/XML interface:
// session logon/logoff, managed system and VIOS queries, and the performance
// monitoring preference toggles.
package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

const (
	logonPath      = "/rest/api/web/Logon"
	sessionHeader  = "X-API-Session"
	webContentType = "application/vnd.ibm.powervm.web+xml; type=LogonRequest"
	uomContentType = "application/vnd.ibm.powervm.uom+xml"
)

// Config holds the REST client configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// InsecureSkipVerify disables TLS certificate verification. Consoles
	// commonly run with self-signed certificates.
	InsecureSkipVerify bool

	// Timeout bounds a single REST round trip.
	Timeout time.Duration
}

// Client is a session-holding client of the console's REST interface. It is
// not safe for concurrent use; one client serves one invocation.
type Client struct {
	baseURL string
	config  Config
	http    *http.Client
	session string
}

// logonRequest is the XML body of the session logon call.
type logonRequest struct {
	XMLName       xml.Name `xml:"LogonRequest"`
	Xmlns         string   `xml:"xmlns,attr"`
	SchemaVersion string   `xml:"schemaVersion,attr"`
	UserID        string   `xml:"UserID"`
	Password      string   `xml:"Password"`
}

type logonResponse struct {
	XMLName    xml.Name `xml:"LogonResponse"`
	APISession string   `xml:"X-API-Session"`
}

// NewClient creates a REST client and opens a session against the console.
// The returned client must be released with Logoff on every exit path.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Port == 0 {
		cfg.Port = 12443
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	c := &Client{
		baseURL: fmt.Sprintf("https://%s:%d", cfg.Host, cfg.Port),
		config:  cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}, // #nosec G402
			},
		},
	}
	if err := c.logon(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) logon(ctx context.Context) error {
	body, err := xml.Marshal(logonRequest{
		Xmlns:         "http://www.ibm.com/xmlns/systems/power/firmware/web/mc/2012_10/",
		SchemaVersion: "V1_0",
		UserID:        c.config.User,
		Password:      c.config.Password,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal logon request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+logonPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", webContentType)
	req.Header.Set("Accept", "application/vnd.ibm.powervm.web+xml; type=LogonResponse")

	resp, err := c.http.Do(req)
	if err != nil {
		return &hmc.ConsoleError{Op: "rest logon", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &hmc.ConsoleError{Op: "rest logon", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &hmc.ConsoleError{
			Op:     "rest logon",
			Code:   hmc.ExtractCode(string(data)),
			Output: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(data)),
		}
	}

	var lr logonResponse
	if err := xml.Unmarshal(data, &lr); err != nil {
		return &hmc.ConsoleError{Op: "rest logon", Err: err}
	}
	c.session = lr.APISession
	log.Debug().Str("host", c.config.Host).Msg("REST session established")
	return nil
}

// Logoff releases the REST session. Callers log a logoff failure as a
// warning rather than returning it, so it can never mask an earlier error.
func (c *Client) Logoff() error {
	if c.session == "" {
		return nil
	}
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+logonPath, nil)
	if err != nil {
		return err
	}
	req.Header.Set(sessionHeader, c.session)
	resp, err := c.http.Do(req)
	if err != nil {
		return &hmc.ConsoleError{Op: "rest logoff", Err: err}
	}
	defer resp.Body.Close()
	c.session = ""
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &hmc.ConsoleError{Op: "rest logoff", Output: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return nil
}

// get performs one session-authenticated GET and returns the body.
func (c *Client) get(ctx context.Context, path, accept string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, accept, nil)
}

func (c *Client) do(ctx context.Context, method, path, accept string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set(sessionHeader, c.session)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if body != nil {
		req.Header.Set("Content-Type", uomContentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &hmc.ConsoleError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &hmc.ConsoleError{Op: method + " " + path, Err: err}
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return data, nil
	case http.StatusNotFound:
		return nil, nil
	}
	return nil, &hmc.ConsoleError{
		Op:     method + " " + path,
		Code:   hmc.ExtractCode(string(data)),
		Output: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(data)),
	}
}

func truncate(data []byte) string {
	const max = 512
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
