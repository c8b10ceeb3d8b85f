package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const (
	fetchMaxResponseSize = 5 * 1024 * 1024
	fetchDefaultTimeout  = 30 * time.Second
	fetchMaxTimeout      = 120 * time.Second
)

// FetchURLTool is the "fetch_url" built-in. It rejects loopback/private/
// link-local/multicast destinations by IP and by the hostname's addresses as
// resolved before the request. The HTTP client resolves the hostname again
// when it connects, so that connection is not pinned to the checked
// addresses.
type FetchURLTool struct {
	allowDomains []string
	denyDomains  []string
}

func NewFetchURLTool(allowDomains, denyDomains []string) *FetchURLTool {
	return &FetchURLTool{allowDomains: allowDomains, denyDomains: denyDomains}
}

func (t *FetchURLTool) Name() string { return "fetch_url" }

func (t *FetchURLTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: "Fetches a URL over GET with a bounded timeout, rejecting requests to internal network ranges.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"url": {"type": "string"},
				"format": {"type": "string", "enum": ["text", "markdown", "html"]},
				"timeout": {"type": "integer"}
			},
			"required": ["url", "format"]
		}`),
	}
}

type fetchURLInput struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Timeout int    `json:"timeout,omitempty"`
}

func (t *FetchURLTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *Context) (*Result, *Error) {
	var in fetchURLInput
	if err := json.Unmarshal([]byte(argumentsJSON), &in); err != nil {
		return nil, InvalidArguments("malformed fetch_url arguments: " + err.Error())
	}
	if in.Format != "text" && in.Format != "markdown" && in.Format != "html" {
		return nil, InvalidArguments("format must be text, markdown, or html")
	}

	parsed, err := url.Parse(in.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, InvalidArguments("url must be a fully-formed http:// or https:// URL")
	}

	if denied := matchesDomain(parsed.Hostname(), t.denyDomains); denied {
		return nil, Denied("hostname is explicitly denied by policy")
	}
	if len(t.allowDomains) > 0 && !matchesDomain(parsed.Hostname(), t.allowDomains) {
		return nil, Denied("hostname is not in the allowlist")
	}

	if err := rejectUnsafeHost(ctx, parsed.Hostname()); err != nil {
		return nil, Denied(err.Error())
	}

	if toolCtx != nil && toolCtx.Approval != nil {
		if err := toolCtx.Approval.RequestApproval(ctx, "fetch "+in.URL, map[string]any{"url": in.URL}); err != nil {
			return nil, Denied(err.Error())
		}
	}

	timeout := fetchDefaultTimeout
	if in.Timeout > 0 {
		timeout = time.Duration(in.Timeout) * time.Second
		if timeout > fetchMaxTimeout {
			timeout = fetchMaxTimeout
		}
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, in.URL, nil)
	if err != nil {
		return nil, ExecutionFailed(err.Error())
	}
	req.Header.Set("User-Agent", "buddyx/1.0")

	client := http.DefaultClient
	if toolCtx != nil && toolCtx.HTTP != nil {
		client = toolCtx.HTTP
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, ExecutionFailed(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ExecutionFailed(fmt.Sprintf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxResponseSize+1))
	if err != nil {
		return nil, ExecutionFailed(err.Error())
	}
	if len(body) > fetchMaxResponseSize {
		return nil, ExecutionFailed("response exceeds 5MB limit")
	}

	content := string(body)
	contentType := resp.Header.Get("Content-Type")
	isHTML := strings.Contains(contentType, "text/html")

	var output string
	switch in.Format {
	case "markdown":
		if isHTML {
			if output, err = htmlToMarkdown(content); err != nil {
				return nil, ExecutionFailed(err.Error())
			}
		} else {
			output = content
		}
	case "text":
		if isHTML {
			if output, err = htmlToText(content); err != nil {
				return nil, ExecutionFailed(err.Error())
			}
		} else {
			output = content
		}
	default:
		output = content
	}

	payload := map[string]any{"url": in.URL, "content_type": contentType, "output": output}
	respBody, _ := json.Marshal(payload)
	return &Result{Output: string(respBody), Metadata: payload}, nil
}

func matchesDomain(host string, list []string) bool {
	for _, d := range list {
		if strings.EqualFold(host, d) || strings.HasSuffix(strings.ToLower(host), "."+strings.ToLower(d)) {
			return true
		}
	}
	return false
}

// rejectUnsafeHost resolves host and rejects it if any resolved address
// (or the literal host itself) is loopback, private, link-local, or
// multicast.
func rejectUnsafeHost(ctx context.Context, host string) error {
	if ip := net.ParseIP(host); ip != nil {
		return rejectUnsafeIP(ip)
	}

	var resolver net.Resolver
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("resolving hostname: %w", err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("hostname resolved to no addresses")
	}
	for _, a := range addrs {
		if err := rejectUnsafeIP(a.IP); err != nil {
			return err
		}
	}
	return nil
}

func rejectUnsafeIP(ip net.IP) error {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() {
		return fmt.Errorf("destination address %s is in a disallowed network range", ip)
	}
	return nil
}

func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, iframe, object, embed").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

func htmlToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "*",
	})
	converter.Remove("script", "style", "meta", "link")
	return converter.ConvertString(html)
}
