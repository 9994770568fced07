// Package client implements the srpweb CLI's connection to the login
// service: the WebSocket authentication exchange and the HTTP session
// endpoints.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/marspr/srp-web/internal/cli/config"
	"github.com/marspr/srp-web/pkg/protocol"
	"github.com/marspr/srp-web/pkg/srp"
)

const defaultHTTPTimeout = 30 * time.Second

// ErrAuthenticationFailed is returned when the exchange ends without the
// server confirming. The server never says which check failed.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Client talks to one srpweb daemon.
type Client struct {
	baseURL string
	wsURL   string
	// httpClient serves the session endpoints; dialClient shares its
	// transport but carries no Timeout, since the WebSocket dial takes
	// its deadline from the context.
	httpClient *http.Client
	dialClient *http.Client
	srpConfig  *srp.Config
	codec      *protocol.Codec
}

// Login is the result of a successful authentication.
type Login struct {
	Username string
	// SessionKey is the shared key K. The CLI does not persist it.
	SessionKey []byte
	// Token is the bearer token for the session endpoints.
	Token string
}

// New creates a client from the CLI configuration.
func New(cfg *config.Config) (*Client, error) {
	srpCfg, err := cfg.SRPConfig()
	if err != nil {
		return nil, err
	}
	codec, err := cfg.Codec()
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS13}
	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert) // #nosec G304 - path comes from user config
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = pool
	}
	if cfg.Insecure {
		tlsConfig.InsecureSkipVerify = true
	}

	httpScheme, wsScheme := "https", "wss"
	if cfg.NoTLS {
		httpScheme, wsScheme = "http", "ws"
	}

	transport := &http.Transport{TLSClientConfig: tlsConfig}
	return &Client{
		baseURL: fmt.Sprintf("%s://%s", httpScheme, cfg.Address()),
		wsURL:   fmt.Sprintf("%s://%s/auth", wsScheme, cfg.Address()),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   defaultHTTPTimeout,
		},
		dialClient: &http.Client{Transport: transport},
		srpConfig:  srpCfg,
		codec:      codec,
	}, nil
}

// Authenticate runs one SRP exchange over a fresh WebSocket connection
// and returns the session key and bearer token.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*Login, error) {
	driver, err := srp.NewClientDriver(c.srpConfig, username, password, 0)
	if err != nil {
		return nil, err
	}

	conn, err := c.dial(ctx)
	if err != nil {
		driver.Abort(err)
		return nil, err
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithDeadline(ctx, driver.Deadline())
	defer cancel()

	hello, err := driver.Start()
	if err != nil {
		return nil, err
	}
	if err := c.send(ctx, conn, hello); err != nil {
		driver.Abort(err)
		return nil, err
	}

	var token string
	for {
		var env protocol.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			driver.Abort(err)
			// A policy-violation close is the server's generic rejection.
			if websocket.CloseStatus(err) == websocket.StatusPolicyViolation {
				return nil, ErrAuthenticationFailed
			}
			return nil, fmt.Errorf("reading server frame: %w", err)
		}
		if env.Type == protocol.TypeError && env.Error != nil {
			driver.Abort(env.Error)
			return nil, fmt.Errorf("%w: %s", ErrAuthenticationFailed, env.Error.Code)
		}
		if env.Type == protocol.TypeConfirm {
			token = protocol.ConfirmToken(&env)
		}

		msg, err := c.codec.Decode(&env)
		if err != nil {
			driver.Abort(err)
			return nil, err
		}
		reply, verdict, err := driver.Handle(msg)
		if err != nil {
			return nil, err
		}
		if verdict != nil {
			if !verdict.Authenticated {
				return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, verdict.Reason)
			}
			conn.Close(websocket.StatusNormalClosure, "")
			return &Login{
				Username:   verdict.Username,
				SessionKey: verdict.Key,
				Token:      token,
			}, nil
		}
		if reply != nil {
			if err := c.send(ctx, conn, reply); err != nil {
				driver.Abort(err)
				return nil, err
			}
		}
	}
}

// Register enrolls a locally derived record with the daemon. The password
// never travels; only the salt and verifier do.
func (c *Client) Register(ctx context.Context, rec *srp.UserRecord) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	env, err := c.codec.EncodeRegister(rec)
	if err != nil {
		return err
	}
	if err := wsjson.Write(ctx, conn, env); err != nil {
		return fmt.Errorf("sending enrollment: %w", err)
	}

	var reply protocol.Envelope
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		return fmt.Errorf("reading enrollment reply: %w", err)
	}
	switch {
	case reply.Type == protocol.TypeRegistered:
		conn.Close(websocket.StatusNormalClosure, "")
		return nil
	case reply.Type == protocol.TypeError && reply.Error != nil:
		return reply.Error
	default:
		return fmt.Errorf("unexpected enrollment reply %q", reply.Type)
	}
}

// Whoami fetches the session identity for a bearer token.
func (c *Client) Whoami(ctx context.Context, token string) (*protocol.SessionInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/session", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting session info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var info protocol.SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("parsing session info: %w", err)
	}
	return &info, nil
}

// Logout invalidates a bearer token on the daemon.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/session", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting logout: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.wsURL, &websocket.DialOptions{
		HTTPClient: c.dialClient,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.wsURL, err)
	}
	return conn, nil
}

func (c *Client) send(ctx context.Context, conn *websocket.Conn, msg srp.Message) error {
	env, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}
	if err := wsjson.Write(ctx, conn, env); err != nil {
		return fmt.Errorf("sending frame: %w", err)
	}
	return nil
}

// apiError decodes a protocol error body, falling back to the HTTP
// status.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr protocol.ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		return &apiErr
	}
	return fmt.Errorf("server returned %s", resp.Status)
}
