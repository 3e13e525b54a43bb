// Package alert implements a single-shot authenticated alert request
// to a configured master. A raw zeromq REQ socket has no equivalent
// readily available, so this is a deliberate, documented substitution
// (see DESIGN.md): github.com/nats-io/nats.go's Conn.Request stands in
// for the single synchronous round trip, and
// golang.org/x/crypto/nacl/secretbox implements the authenticated
// symmetric-encryption envelope the wire format calls for
// ({enc: "aes", load: ...}).
package alert

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/crypto/nacl/secretbox"
)

// Client sends alert requests to a configured master over NATS
// request/reply, encrypting the payload with a pre-shared key.
type Client struct {
	conn    *nats.Conn
	subject string
	key     [32]byte
}

// envelope is the wire format exchanged with the alert master: {enc, load}.
type envelope struct {
	Enc  string `json:"enc"`
	Load string `json:"load"`
}

// payload is the alert body: severity is carried both lowercased and
// uppercased, matching the (host, severity, SEVERITY, category, msg)
// shape the alert master expects.
type payload struct {
	Cmd      string `json:"cmd"`
	Host     string `json:"host"`
	Severity string `json:"severity"`
	SEVERITY string `json:"SEVERITY"`
	Category string `json:"category"`
	Msg      string `json:"msg"`
}

// Dial connects to natsURL and builds a Client that addresses
// alerts to masterAddr (the resolved alert_master) under
// presharedKey, the secretbox key shared with the alert master.
func Dial(natsURL, masterAddr string, presharedKey [32]byte) (*Client, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("alert: connect to %s: %w", natsURL, err)
	}
	subject := "monitor.alert." + strings.ReplaceAll(masterAddr, ".", "-")
	return &Client{conn: conn, subject: subject, key: presharedKey}, nil
}

// Close releases the underlying NATS connection.
func (c *Client) Close() {
	c.conn.Close()
}

// Send performs a single round trip: encrypt {cmd: "_alert", host,
// severity, SEVERITY, category, msg}, request/reply over NATS, decrypt
// the response, return its payload.
func (c *Client) Send(ctx context.Context, host, severity, category, msg string) (map[string]any, error) {
	body := payload{
		Cmd:      "_alert",
		Host:     host,
		Severity: strings.ToLower(severity),
		SEVERITY: strings.ToUpper(severity),
		Category: category,
		Msg:      msg,
	}
	reqEnv, err := c.encrypt(body)
	if err != nil {
		return nil, fmt.Errorf("alert: encrypt request: %w", err)
	}
	reqBytes, err := json.Marshal(reqEnv)
	if err != nil {
		return nil, fmt.Errorf("alert: marshal envelope: %w", err)
	}

	msgReply, err := c.conn.RequestWithContext(ctx, c.subject, reqBytes)
	if err != nil {
		return nil, fmt.Errorf("alert: request: %w", err)
	}

	var replyEnv envelope
	if err := json.Unmarshal(msgReply.Data, &replyEnv); err != nil {
		return nil, fmt.Errorf("alert: unmarshal reply envelope: %w", err)
	}
	var out map[string]any
	if err := c.decrypt(replyEnv, &out); err != nil {
		return nil, fmt.Errorf("alert: decrypt reply: %w", err)
	}
	return out, nil
}

func (c *Client) encrypt(v any) (envelope, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return envelope{}, err
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return envelope{}, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &c.key)
	return envelope{Enc: "aes", Load: base64.StdEncoding.EncodeToString(sealed)}, nil
}

func (c *Client) decrypt(env envelope, out any) error {
	sealed, err := base64.StdEncoding.DecodeString(env.Load)
	if err != nil {
		return fmt.Errorf("decode load: %w", err)
	}
	if len(sealed) < 24 {
		return fmt.Errorf("ciphertext too short")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &c.key)
	if !ok {
		return fmt.Errorf("authentication failed")
	}
	return json.Unmarshal(plain, out)
}

// requestTimeout is the default synchronous round-trip deadline when
// the caller doesn't bound its own context.
const requestTimeout = 10 * time.Second

// SendDefault is Send with requestTimeout applied, for callers (such
// as a probe function) that don't need a custom deadline.
func (c *Client) SendDefault(host, severity, category, msg string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return c.Send(ctx, host, severity, category, msg)
}
