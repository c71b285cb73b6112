// Package ipfs talks to a Kubo-compatible RPC API. It implements the content
// store and name service the deployment orchestrator publishes through.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/KeystonCloud/satellite/internal/model"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type addResponse struct {
	Hash string `json:"Hash"`
}

type keyListResponse struct {
	Keys []model.NamingKey `json:"Keys"`
}

type resolveResponse struct {
	Path string `json:"Path"`
}

// Add stores data and returns its CID.
func (c *Client) Add(ctx context.Context, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "deploy.bin")
	if err != nil {
		return "", fmt.Errorf("create add form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write add form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close add form: %w", err)
	}

	var out addResponse
	if err := c.post(ctx, "add", nil, &body, mw.FormDataContentType(), &out); err != nil {
		return "", err
	}
	if out.Hash == "" {
		return "", fmt.Errorf("add: empty hash in response")
	}
	return out.Hash, nil
}

func (c *Client) ListKeys(ctx context.Context) ([]model.NamingKey, error) {
	var out keyListResponse
	if err := c.post(ctx, "key/list", nil, nil, "", &out); err != nil {
		return nil, err
	}
	return out.Keys, nil
}

// GenKey creates an ed25519 key named name.
func (c *Client) GenKey(ctx context.Context, name string) (model.NamingKey, error) {
	q := url.Values{"arg": {name}, "type": {"ed25519"}}
	var out model.NamingKey
	if err := c.post(ctx, "key/gen", q, nil, "", &out); err != nil {
		return model.NamingKey{}, err
	}
	return out, nil
}

// Publish points the name owned by keyName at /ipfs/<cid>.
func (c *Client) Publish(ctx context.Context, keyName, cid string) (model.PublishedName, error) {
	q := url.Values{"key": {keyName}, "arg": {"/ipfs/" + cid}}
	var out model.PublishedName
	if err := c.post(ctx, "name/publish", q, nil, "", &out); err != nil {
		return model.PublishedName{}, err
	}
	return out, nil
}

// Resolve returns the CID a name currently points at.
func (c *Client) Resolve(ctx context.Context, name string) (string, error) {
	var out resolveResponse
	if err := c.post(ctx, "name/resolve", url.Values{"arg": {name}}, nil, "", &out); err != nil {
		return "", err
	}
	cid, ok := strings.CutPrefix(out.Path, "/ipfs/")
	if !ok || cid == "" {
		return "", fmt.Errorf("name/resolve: unexpected path %q", out.Path)
	}
	return cid, nil
}

// Cat returns the content stored under cid.
func (c *Client) Cat(ctx context.Context, cid string) ([]byte, error) {
	resp, err := c.do(ctx, "cat", url.Values{"arg": {cid}}, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cat: read body: %w", err)
	}
	return data, nil
}

func (c *Client) post(ctx context.Context, command string, query url.Values, body io.Reader, contentType string, out any) error {
	resp, err := c.do(ctx, command, query, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", command, err)
	}
	return nil
}

// do issues a POST to /api/v0/<command>. The caller closes the body of a
// successful response; non-2xx responses are returned as errors.
func (c *Client) do(ctx context.Context, command string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := fmt.Sprintf("%s/api/v0/%s", c.baseURL, command)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", command, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", command, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s: status %d: %s", command, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return resp, nil
}
