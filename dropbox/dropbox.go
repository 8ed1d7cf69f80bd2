// Package dropbox is a minimal Dropbox HTTP API v2 client covering what
// press-release ingestion needs: listing a folder, downloading its files
// and locating a folder by name under the configured root.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf16"
)

// Default endpoint bases. RPC calls and content downloads use different
// hosts on Dropbox.
const (
	defaultAPIURL     = "https://api.dropboxapi.com/2"
	defaultContentURL = "https://content.dropboxapi.com/2"
)

// ErrNoToken is returned by New when no access token is configured.
var ErrNoToken = errors.New("dropbox: access token required")

// Client talks to the Dropbox API v2 with a fixed access token.
type Client struct {
	// APIURL and ContentURL point at the RPC and content hosts. Tests
	// override them; production code leaves the defaults.
	APIURL     string
	ContentURL string

	token  string
	httpc  *http.Client
	logger *slog.Logger
}

// New builds a Client for the given access token.
func New(token string, logger *slog.Logger) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		APIURL:     defaultAPIURL,
		ContentURL: defaultContentURL,
		token:      token,
		httpc:      &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}, nil
}

// Entry is one item of a folder listing.
type Entry struct {
	Tag         string `json:".tag"`
	Name        string `json:"name"`
	PathDisplay string `json:"path_display"`
	Size        int64  `json:"size,omitempty"`
}

type listFolderResponse struct {
	Entries []Entry `json:"entries"`
	Cursor  string  `json:"cursor"`
	HasMore bool    `json:"has_more"`
}

// ListFolder lists the immediate contents of a Dropbox folder, following
// pagination cursors until the listing is complete.
func (c *Client) ListFolder(ctx context.Context, path string) ([]Entry, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var out listFolderResponse
	if err := c.rpc(ctx, "/files/list_folder", map[string]string{"path": path}, &out); err != nil {
		return nil, fmt.Errorf("list folder %s: %w", path, err)
	}
	entries := out.Entries
	for out.HasMore {
		next := listFolderResponse{}
		if err := c.rpc(ctx, "/files/list_folder/continue", map[string]string{"cursor": out.Cursor}, &next); err != nil {
			return nil, fmt.Errorf("list folder %s: %w", path, err)
		}
		entries = append(entries, next.Entries...)
		out = next
	}
	return entries, nil
}

// DownloadFile fetches one file to localPath.
func (c *Client) DownloadFile(ctx context.Context, dropboxPath, localPath string) error {
	arg, err := headerSafeJSON(map[string]string{"path": dropboxPath})
	if err != nil {
		return fmt.Errorf("download %s: %w", dropboxPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ContentURL+"/files/download", nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", dropboxPath, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Dropbox-API-Arg", arg)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", dropboxPath, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: %s", dropboxPath, readAPIError(resp))
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("download %s: %w", dropboxPath, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("download %s: %w", dropboxPath, err)
	}
	return nil
}

// DownloadFolder downloads every file of a Dropbox folder into localDir,
// creating the directory if needed. Subfolders are not descended into.
// Returns localDir.
func (c *Client) DownloadFolder(ctx context.Context, dropboxPath, localDir string) (string, error) {
	if !strings.HasPrefix(dropboxPath, "/") {
		dropboxPath = "/" + dropboxPath
	}
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", fmt.Errorf("download folder %s: %w", dropboxPath, err)
	}

	entries, err := c.ListFolder(ctx, dropboxPath)
	if err != nil {
		return "", err
	}

	n := 0
	for _, e := range entries {
		if e.Tag != "file" {
			continue
		}
		if err := c.DownloadFile(ctx, e.PathDisplay, filepath.Join(localDir, e.Name)); err != nil {
			return "", err
		}
		n++
	}
	c.logger.Info("dropbox folder downloaded", "path", dropboxPath, "files", n)
	return localDir, nil
}

// FindFolderByName searches for a folder whose name contains folderName,
// first directly under searchPath and then one level deeper (the month
// folders). Returns the full Dropbox path, or "" when nothing matches.
// Listing errors on individual subfolders are skipped.
func (c *Client) FindFolderByName(ctx context.Context, folderName, searchPath string) (string, error) {
	entries, err := c.ListFolder(ctx, searchPath)
	if err != nil {
		return "", err
	}

	for _, e := range entries {
		if e.Tag == "folder" && strings.Contains(e.Name, folderName) {
			return e.PathDisplay, nil
		}
	}
	for _, e := range entries {
		if e.Tag != "folder" {
			continue
		}
		sub, err := c.ListFolder(ctx, e.PathDisplay)
		if err != nil {
			c.logger.Warn("dropbox subfolder listing failed", "path", e.PathDisplay, "error", err)
			continue
		}
		for _, s := range sub {
			if s.Tag == "folder" && strings.Contains(s.Name, folderName) {
				return s.PathDisplay, nil
			}
		}
	}
	return "", nil
}

// rpc runs one JSON-in JSON-out call against the API host.
func (c *Client) rpc(ctx context.Context, endpoint string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New(readAPIError(resp))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// headerSafeJSON marshals v with every non-ASCII rune escaped, since the
// result travels in an HTTP header (Dropbox-API-Arg).
func headerSafeJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range string(raw) {
		switch {
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
		case r > 0x7E:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func readAPIError(resp *http.Response) string {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		return resp.Status
	}
	return resp.Status + ": " + msg
}
