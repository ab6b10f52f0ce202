package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"bcp-export/internal/export"

	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"
)

var ErrIncompleteCredentials = errors.New("ftp credentials incomplete")

// FTPServer is one delivery destination.
type FTPServer struct {
	Name     string
	Host     string
	Port     int
	Username string
	Password string
}

// Complete reports whether the host and login are all set.
func (s FTPServer) Complete() bool {
	return s.Host != "" && s.Username != "" && s.Password != ""
}

func (s FTPServer) Addr() string {
	port := s.Port
	if port == 0 {
		port = 21
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(port))
}

// FTPConn is the part of an FTP session delivery needs.
type FTPConn interface {
	ChangeDir(path string) error
	MakeDir(path string) error
	NameList(path string) ([]string, error)
	Stor(path string, r io.Reader) error
	Quit() error
}

// FTPDialer opens a logged in session.
type FTPDialer func(ctx context.Context, server FTPServer) (FTPConn, error)

// DialFTP connects with jlaffaye/ftp and logs in.
func DialFTP(timeout time.Duration) FTPDialer {
	return func(ctx context.Context, server FTPServer) (FTPConn, error) {
		conn, err := ftp.Dial(server.Addr(),
			ftp.DialWithContext(ctx),
			ftp.DialWithTimeout(timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", server.Addr(), err)
		}
		if err := conn.Login(server.Username, server.Password); err != nil {
			_ = conn.Quit()
			return nil, fmt.Errorf("login %s: %w", server.Addr(), err)
		}
		return conn, nil
	}
}

// FTPDelivery uploads archives to FTP destinations.
type FTPDelivery struct {
	dial FTPDialer
}

func NewFTPDelivery(dial FTPDialer) *FTPDelivery {
	return &FTPDelivery{dial: dial}
}

// Deliver stores data as <dir>/<base>.zip, or the first free <base>(n).zip,
// creating missing directories on the way. The session is always closed.
// It returns the remote path written.
func (d *FTPDelivery) Deliver(ctx context.Context, server FTPServer, dir, base string, data []byte) (string, error) {
	if !server.Complete() {
		return "", fmt.Errorf("%s: %w", server.Name, ErrIncompleteCredentials)
	}

	log := zap.L().With(zap.String("destination", server.Name), zap.String("dir", dir))

	conn, err := d.dial(ctx, server)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			log.Debug("ftp quit", zap.Error(err))
		}
	}()

	if err := ensureDir(conn, dir); err != nil {
		return "", err
	}

	existing, err := conn.NameList(".")
	if err != nil {
		// some servers answer an empty directory with an error
		log.Warn("ftp list failed, assuming empty directory", zap.Error(err))
		existing = nil
	}

	name := export.UniqueName(base, existing)
	if err := conn.Stor(name, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("store %s: %w", name, err)
	}

	remote := path.Join(dir, name)
	log.Info("archive delivered", zap.String("path", remote), zap.Int("bytes", len(data)))
	return remote, nil
}

// ensureDir walks from the root into dir one segment at a time, making the
// segments that do not exist.
func ensureDir(conn FTPConn, dir string) error {
	if strings.HasPrefix(dir, "/") {
		if err := conn.ChangeDir("/"); err != nil {
			return fmt.Errorf("cwd /: %w", err)
		}
	}
	for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
		if seg == "" {
			continue
		}
		if err := conn.ChangeDir(seg); err == nil {
			continue
		}
		if err := conn.MakeDir(seg); err != nil {
			return fmt.Errorf("mkd %s: %w", seg, err)
		}
		if err := conn.ChangeDir(seg); err != nil {
			return fmt.Errorf("cwd %s: %w", seg, err)
		}
	}
	return nil
}
