package httpqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/romanqed/pipeteer"
)

// Client is a pipeteer.RawQueue backed by a remote queue server reached
// over HTTP. BaseURL is also the queue's StorageID, so a Transaction
// enrolling two Clients pointed at the same server still degrades to
// sequential best-effort commits: the wire protocol has no transaction
// endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a Client against baseURL (e.g.
// "http://workflows:8080/queues/double-results"). If httpClient is nil,
// http.DefaultClient is used.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

func (c *Client) StorageID() string {
	return c.BaseURL
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, pipeteer.WrapInfra(err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, pipeteer.WrapInfra(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, pipeteer.WrapInfra(err)
	}
	return resp, nil
}

func asQueueError(resp *http.Response, key string) error {
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNotFound:
		var body notFoundBody
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Key == "" {
			body.Key = key
		}
		return &pipeteer.NotFoundError{Key: body.Key}
	default:
		var body queueErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Message == "" {
			body.Message = fmt.Sprintf("httpqueue: unexpected status %d", resp.StatusCode)
		}
		return pipeteer.WrapInfra(fmt.Errorf("%s", body.Message))
	}
}

func (c *Client) Push(ctx context.Context, key string, value json.RawMessage) error {
	resp, err := c.do(ctx, http.MethodPost, "/write/"+url.PathEscape(key), value)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return asQueueError(resp, key)
	}
	return nil
}

func (c *Client) Pop(ctx context.Context, key string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/read/item/"+url.PathEscape(key), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return asQueueError(resp, key)
	}
	return nil
}

func (c *Client) Read(ctx context.Context, key string, reserve pipeteer.Reservation) (json.RawMessage, error) {
	path := "/read/item/" + url.PathEscape(key) + reserveQuery(reserve)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, asQueueError(resp, key)
	}
	var value json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		return nil, pipeteer.WrapInfra(err)
	}
	return value, nil
}

func (c *Client) ReadAny(ctx context.Context, reserve pipeteer.Reservation) (string, json.RawMessage, error) {
	path := "/read/item" + reserveQuery(reserve)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, asQueueError(resp, "")
	}
	var pair *itemPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return "", nil, pipeteer.WrapInfra(err)
	}
	if pair == nil {
		return "", nil, &pipeteer.NotFoundError{Key: ""}
	}
	return pair.Key, pair.Value, nil
}

func (c *Client) WaitAny(ctx context.Context, reserve pipeteer.Reservation) (string, json.RawMessage, error) {
	return pipeteer.WaitAnyRaw(ctx, c, reserve)
}

func (c *Client) Keys(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/read/keys", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, asQueueError(resp, "")
	}
	var keys []string
	if err := json.NewDecoder(resp.Body).Decode(&keys); err != nil {
		return nil, pipeteer.WrapInfra(err)
	}
	return keys, nil
}

// Has is implemented in terms of Read, since the protocol has no
// dedicated existence check.
func (c *Client) Has(ctx context.Context, key string) (bool, error) {
	_, err := c.Read(ctx, key, pipeteer.None)
	if err == nil {
		return true, nil
	}
	if pipeteer.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// Items is implemented by listing keys and reading each in turn; the
// protocol has no bulk-reserve endpoint.
func (c *Client) Items(ctx context.Context, reserve pipeteer.Reservation, max int) iter.Seq2[string, json.RawMessage] {
	return func(yield func(string, json.RawMessage) bool) {
		keys, err := c.Keys(ctx)
		if err != nil {
			return
		}
		for i, key := range keys {
			if max > 0 && i >= max {
				return
			}
			value, err := c.Read(ctx, key, reserve)
			if err != nil {
				continue
			}
			if !yield(key, value) {
				return
			}
		}
	}
}

func (c *Client) Clear(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodDelete, "/read/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return asQueueError(resp, "")
	}
	return nil
}

func reserveQuery(reserve pipeteer.Reservation) string {
	if reserve <= 0 {
		return ""
	}
	return "?reserve=" + strconv.FormatFloat(time.Duration(reserve).Seconds(), 'f', -1, 64)
}
