// Package ftpup publishes processed release artifacts to the web server
// over FTP, creating the month/folder directory structure as needed.
package ftpup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/ezwire/presskit/config"
	"github.com/ezwire/presskit/release"
)

// Result reports one upload run. Error carries the first failure verbatim
// so notifications can relay it.
type Result struct {
	Success  bool   `json:"success"`
	Uploaded int    `json:"uploaded"`
	Error    string `json:"error,omitempty"`
}

// conn is the slice of the FTP client the uploader drives. *ftp.ServerConn
// satisfies it.
type conn interface {
	Login(user, password string) error
	ChangeDir(path string) error
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

// Uploader uploads release artifacts with one FTP configuration.
type Uploader struct {
	cfg    config.FTP
	logger *slog.Logger
}

// New builds an Uploader.
func New(cfg config.FTP, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{cfg: cfg, logger: logger}
}

// RemotePath expands the remote path template for one release. Spaces stay
// literal; FTP paths are not URL-encoded.
func (u *Uploader) RemotePath(folderName, monthFolder string) string {
	p := strings.ReplaceAll(u.cfg.RemotePathTemplate, "{month_folder}", monthFolder)
	return strings.ReplaceAll(p, "{folder_name}", folderName)
}

// Upload connects, logs in, ensures the remote directory structure and
// stores every file. The first failure aborts the run; Uploaded counts the
// files stored before it.
func (u *Uploader) Upload(ctx context.Context, files []release.Upload, folderName, monthFolder string) Result {
	addr := net.JoinHostPort(u.cfg.Host, strconv.Itoa(u.cfg.Port))
	timeout := time.Duration(u.cfg.TimeoutSeconds) * time.Second

	c, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
	if err != nil {
		return Result{Error: fmt.Sprintf("connect %s: %v", addr, err)}
	}
	res := u.run(c, files, folderName, monthFolder)
	if res.Success {
		u.logger.Info("ftp upload complete", "host", u.cfg.Host, "files", res.Uploaded,
			"remote_path", u.RemotePath(folderName, monthFolder))
	}
	return res
}

func (u *Uploader) run(c conn, files []release.Upload, folderName, monthFolder string) Result {
	defer c.Quit()

	var res Result
	if err := c.Login(u.cfg.Username, u.cfg.Password); err != nil {
		res.Error = fmt.Sprintf("login: %v", err)
		return res
	}

	remote := u.RemotePath(folderName, monthFolder)
	if err := ensureDirs(c, remote); err != nil {
		res.Error = err.Error()
		return res
	}

	for _, f := range files {
		name := f.RemoteName
		if name == "" {
			name = filepath.Base(f.LocalPath)
		}
		if err := storFile(c, f.LocalPath, remote+name); err != nil {
			res.Error = err.Error()
			return res
		}
		res.Uploaded++
	}
	res.Success = true
	return res
}

// ensureDirs walks the remote path segment by segment, creating every
// directory that cannot be entered, then returns to the root.
func ensureDirs(c conn, remotePath string) error {
	current := ""
	for _, d := range strings.Split(strings.Trim(remotePath, "/"), "/") {
		if d == "" {
			continue
		}
		current += "/" + d
		if err := c.ChangeDir(current); err != nil {
			if err := c.MakeDir(current); err != nil {
				return fmt.Errorf("mkdir %s: %v", current, err)
			}
		}
	}
	return c.ChangeDir("/")
}

func storFile(c conn, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %v", localPath, err)
	}
	defer f.Close()
	if err := c.Stor(remotePath, f); err != nil {
		return fmt.Errorf("stor %s: %v", remotePath, err)
	}
	return nil
}
