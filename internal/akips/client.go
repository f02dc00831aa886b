// Package akips talks to the AKiPS api-db endpoint. The endpoint is a
// fixed external contract: one GET per command, a line-oriented text
// response, credentials passed as the api-ro password.
package akips

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haught/akips-inventory/internal/config"
	"github.com/haught/akips-inventory/internal/log"
)

const requestTimeout = 30 * time.Second

// Cache is the optional response cache consulted before each request.
type Cache interface {
	Get(url string) ([]string, bool)
	Put(url string, lines []string) error
}

// Member is one host line from a group membership query.
type Member struct {
	Name string
	IP   string
}

// Client issues api-db queries.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	cache      Cache
}

// NewClient builds a client from the configuration. cache may be nil.
func NewClient(cfg *config.Config, cache Cache) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &Client{
		baseURL:  cfg.Host,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		cache: cache,
	}, nil
}

// DeviceGroups returns all group names: the device groups followed by
// the device super groups, in server order.
func (c *Client) DeviceGroups(ctx context.Context) ([]string, error) {
	groups, err := c.fetchLines(ctx, "list+device+group")
	if err != nil {
		return nil, err
	}
	super, err := c.fetchLines(ctx, "list+device+super+group")
	if err != nil {
		return nil, err
	}
	return append(groups, super...), nil
}

// GroupMembers returns the up hosts in a group. A member line's first
// space-separated field is the host name and its last comma-separated
// field is the IP; lines without both are skipped with a warning.
func (c *Client) GroupMembers(ctx context.Context, group string) ([]Member, error) {
	cmd := "mget+*+*+ping4+PING.icmpState+value+/up/+any+group+" + escapeArg(group)
	lines, err := c.fetchLines(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("listing members of group %s: %w", group, err)
	}

	members := make([]Member, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		comma := strings.LastIndex(line, ",")
		if comma < 0 {
			log.Warn("Skipping malformed member record", "group", group, "line", line)
			continue
		}
		members = append(members, Member{
			Name: fields[0],
			IP:   strings.TrimSpace(line[comma+1:]),
		})
	}
	return members, nil
}

// escapeArg percent-encodes one api-db command argument. Spaces encode
// as %20, never "+": api-db treats "+" as the token separator.
func escapeArg(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// fetchLines runs one api-db command and returns the response split
// into lines. The cache, when present, is keyed by the full URL, so a
// changed host, password, or command never serves stale data.
func (c *Client) fetchLines(ctx context.Context, cmds string) ([]string, error) {
	reqURL := fmt.Sprintf("%s/api-db?password=%s;cmds=%s", c.baseURL, url.QueryEscape(c.password), cmds)

	if c.cache != nil {
		if lines, ok := c.cache.Get(reqURL); ok {
			log.Debug("Using cached api-db response", "cmds", cmds)
			return lines, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building api-db request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("akips api-db request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("akips authentication failed: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("akips api-db returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading api-db response: %w", err)
	}

	text := strings.TrimRight(string(body), "\n")
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}

	if c.cache != nil {
		if err := c.cache.Put(reqURL, lines); err != nil {
			log.Warn("Failed to cache api-db response", "error", err)
		}
	}
	return lines, nil
}
