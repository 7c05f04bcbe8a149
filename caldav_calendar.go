package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
	log "github.com/sirupsen/logrus"
)

const mirrorIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// IDCollisionError means a freshly generated mirror identifier already
// addresses a resource on the server. The create is abandoned instead of
// overwriting whatever lives there.
type IDCollisionError struct {
	ID string
}

func (e *IDCollisionError) Error() string {
	return fmt.Sprintf("mirror id %s already exists", e.ID)
}

// CalDAVMirror maintains the mirror collection over plain HTTP: GET the
// collection URL for the whole calendar document, PUT and DELETE individual
// <id>.ics resources beneath it.
type CalDAVMirror struct {
	client   webdav.HTTPClient
	baseURL  string
	idLength int
}

func NewCalDAVMirror(serverURL, username, password string, idLength int) (*CalDAVMirror, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid mirror URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid mirror URL %q: missing http(s) scheme", serverURL)
	}

	var httpClient webdav.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	if username != "" && password != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, username, password)
	}

	return &CalDAVMirror{
		client:   httpClient,
		baseURL:  strings.TrimRight(base.String(), "/"),
		idLength: idLength,
	}, nil
}

// List fetches and decodes the entire mirror collection. Individually
// malformed records are logged and skipped; one bad record cannot hide the
// rest of the mirror.
func (c *CalDAVMirror) List(ctx context.Context) ([]MirrorEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching mirror calendar: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("fetching mirror calendar: %w", err)
	}

	events, bad, err := decodeCalendar(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding mirror calendar: %w", err)
	}
	for _, derr := range bad {
		log.WithField("record", derr.UID).Warnf("skipping unusable mirror record: %v", derr)
	}
	return events, nil
}

// Create writes the event as a new resource under a fresh random
// identifier. If-None-Match guards the write: a 412 from the server means
// the identifier is already taken, which is fatal for this create.
func (c *CalDAVMirror) Create(ctx context.Context, event Event) (string, error) {
	id, err := newMirrorID(c.idLength)
	if err != nil {
		return "", fmt.Errorf("generating mirror id: %w", err)
	}
	body, err := encodeEvent(event, id)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.eventURL(id), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/calendar; charset=utf-8")
	req.Header.Set("If-None-Match", "*")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("creating mirror event %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusPreconditionFailed {
		return "", &IDCollisionError{ID: id}
	}
	if err := checkStatus(resp, http.StatusCreated, http.StatusNoContent, http.StatusOK); err != nil {
		return "", fmt.Errorf("creating mirror event %s: %w", id, err)
	}
	return id, nil
}

// Delete removes one mirror resource. A resource that is already gone
// counts as success; an aborted earlier cycle may have deleted it.
func (c *CalDAVMirror) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.eventURL(id), nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("deleting mirror event %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil
	}
	if err := checkStatus(resp, http.StatusOK, http.StatusNoContent, http.StatusAccepted); err != nil {
		return fmt.Errorf("deleting mirror event %s: %w", id, err)
	}
	return nil
}

func (c *CalDAVMirror) eventURL(id string) string {
	return c.baseURL + "/" + id + ".ics"
}

func checkStatus(resp *http.Response, want ...int) error {
	for _, code := range want {
		if resp.StatusCode == code {
			return nil
		}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("mirror authorization failed: %s", resp.Status)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
}

// newMirrorID returns a fixed-length random alphanumeric identifier.
// Uniqueness is probabilistic; Create detects collisions at the store
// instead of trusting the odds.
func newMirrorID(length int) (string, error) {
	id := make([]byte, length)
	for i := range id {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(mirrorIDAlphabet))))
		if err != nil {
			return "", err
		}
		id[i] = mirrorIDAlphabet[n.Int64()]
	}
	return string(id), nil
}
