// Package web is the HTTP client backend the Web actor dispatches to:
// request execution (spec.md §4.6 "Web: owns one HTTP client ... must
// provide request/response with elapsed duration") plus the supplemented
// `oauth2_client_credentials` action.
package web

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/chorbdd/chor/pkg/world"
)

// Backend wraps a single fasthttp.Client shared across every request a
// scenario's Web actor makes, matching the one-client-per-scenario
// lifecycle described for Terminal's PTY.
type Backend struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// New returns a Backend bounded by the suite's timeout setting.
func New(timeout time.Duration) *Backend {
	return &Backend{
		client:  &fasthttp.Client{Name: "chor"},
		timeout: timeout,
	}
}

// MethodFor maps a Web action verb to its HTTP method.
func MethodFor(verb string) string {
	switch verb {
	case "http_get":
		return fasthttp.MethodGet
	case "http_post":
		return fasthttp.MethodPost
	case "http_put":
		return fasthttp.MethodPut
	case "http_patch":
		return fasthttp.MethodPatch
	case "http_delete":
		return fasthttp.MethodDelete
	default:
		return fasthttp.MethodGet
	}
}

// Do issues one request carrying the world's accumulated headers and
// cookies, and returns the response recorded into World.Response.
func (b *Backend) Do(method, url, body string, headers, cookies map[string]string) (world.HTTPResponse, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if len(cookies) > 0 {
		var sb strings.Builder
		first := true
		for k, v := range cookies {
			if !first {
				sb.WriteString("; ")
			}
			first = false
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(v)
		}
		req.Header.Set("Cookie", sb.String())
	}
	if body != "" {
		req.SetBodyString(body)
		if len(req.Header.ContentType()) == 0 {
			req.Header.SetContentType("application/json")
		}
	}

	start := time.Now()
	err := b.client.DoTimeout(req, resp, b.timeout)
	elapsed := time.Since(start)
	if err != nil {
		return world.HTTPResponse{}, fmt.Errorf("web: request failed: %w", err)
	}

	respHeaders := map[string]string{}
	resp.Header.VisitAll(func(key, value []byte) {
		respHeaders[string(key)] = string(value)
	})

	bodyCopy := append([]byte(nil), resp.Body()...)

	return world.HTTPResponse{
		Present: true,
		Status:  resp.StatusCode(),
		Headers: respHeaders,
		Body:    bodyCopy,
		Elapsed: elapsed,
	}, nil
}

// ClientCredentialsToken performs the OAuth2 client_credentials grant and
// returns the bearer access token, mirroring the teacher's
// shared.OAuth2Tool.clientCredentialsFlow.
func ClientCredentialsToken(tokenURL, clientID, clientSecret string, scopes []string) (string, error) {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	token, err := cfg.Token(context.Background())
	if err != nil {
		return "", fmt.Errorf("web: oauth2 client_credentials flow failed: %w", err)
	}
	return token.AccessToken, nil
}
