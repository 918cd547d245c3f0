// Package netx holds small HTTP helpers for endpoints outside the Google
// API client libraries.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// PostForm sends form as application/x-www-form-urlencoded and expects a
// 200 OK. On any other status the error carries the response body.
func PostForm(ctx context.Context, client *http.Client, endpoint string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed: %s; body: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return nil
}
