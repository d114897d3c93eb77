package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"

	"github.com/sqlitedrop/sqlitedrop/pkg/filesystem"
)

// opener returns an SFTP client together with whatever must be closed
// once the client is no longer needed.
type opener func(ctx context.Context) (*sftp.Client, io.Closer, error)

// Filesystem implements filesystem.Acquirer and filesystem.Inspector over
// SFTP. Every session owns its own SSH connection.
type Filesystem struct {
	open   opener
	logger zerolog.Logger
}

var (
	_ filesystem.Acquirer  = (*Filesystem)(nil)
	_ filesystem.Inspector = (*Filesystem)(nil)
	_ filesystem.Session   = (*sftpSession)(nil)
)

// NewFilesystem creates an SFTP filesystem that dials through client.
func NewFilesystem(client *Client, logger zerolog.Logger) *Filesystem {
	return newFilesystem(func(ctx context.Context) (*sftp.Client, io.Closer, error) {
		conn, err := client.Dial(ctx)
		if err != nil {
			return nil, nil, err
		}

		sftpClient, err := sftp.NewClient(conn)
		if err != nil {
			_ = conn.Close()
			return nil, nil, &TransportError{
				Op:          "sftp-init",
				Err:         fmt.Errorf("failed to create SFTP client: %w", err),
				IsTemporary: true,
				IsAuthError: false,
			}
		}
		return sftpClient, conn, nil
	}, logger)
}

func newFilesystem(open opener, logger zerolog.Logger) *Filesystem {
	return &Filesystem{
		open:   open,
		logger: logger.With().Str("component", "fs-sftp").Logger(),
	}
}

// Acquire opens a new SFTP session.
func (f *Filesystem) Acquire(ctx context.Context) (filesystem.Session, error) {
	client, conn, err := f.open(ctx)
	if err != nil {
		return nil, err
	}
	f.logger.Debug().Msg("SFTP session opened")
	return &sftpSession{client: client, conn: conn, logger: f.logger}, nil
}

// Exists opens a short-lived session to check whether path exists.
func (f *Filesystem) Exists(ctx context.Context, path string) (bool, error) {
	session, err := f.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer session.Close()

	return session.Exists(ctx, path)
}

// Size opens a short-lived session to read the size of path.
func (f *Filesystem) Size(ctx context.Context, path string) (int64, error) {
	session, err := f.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer session.Close()

	return session.Size(ctx, path)
}

type sftpSession struct {
	client *sftp.Client
	conn   io.Closer
	logger zerolog.Logger
}

func (s *sftpSession) Exists(_ context.Context, path string) (bool, error) {
	_, err := s.client.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, classify("sftp-stat", fmt.Errorf("%s: %w", path, err))
}

func (s *sftpSession) Size(_ context.Context, path string) (int64, error) {
	info, err := s.client.Stat(path)
	if err != nil {
		return 0, classify("sftp-stat", fmt.Errorf("%s: %w", path, err))
	}
	return info.Size(), nil
}

func (s *sftpSession) Touch(_ context.Context, path string) error {
	file, err := s.client.OpenFile(path, os.O_WRONLY|os.O_CREATE)
	if err != nil {
		return classify("sftp-create", fmt.Errorf("%s: %w", path, err))
	}
	if err := file.Close(); err != nil {
		return classify("sftp-create", fmt.Errorf("%s: %w", path, err))
	}

	now := time.Now()
	if err := s.client.Chtimes(path, now, now); err != nil {
		return classify("sftp-chtimes", fmt.Errorf("%s: %w", path, err))
	}
	return nil
}

func (s *sftpSession) Write(_ context.Context, path string, data []byte) error {
	file, err := s.client.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return classify("sftp-write", fmt.Errorf("%s: %w", path, err))
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return classify("sftp-write", fmt.Errorf("%s: %w", path, err))
	}
	if err := file.Close(); err != nil {
		return classify("sftp-write", fmt.Errorf("%s: %w", path, err))
	}

	s.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("wrote file")
	return nil
}

func (s *sftpSession) Delete(_ context.Context, path string) error {
	if err := s.client.Remove(path); err != nil {
		return classify("sftp-remove", fmt.Errorf("%s: %w", path, err))
	}
	return nil
}

// Close ends the SFTP session and its SSH connection.
func (s *sftpSession) Close() error {
	err := s.client.Close()
	if s.conn != nil {
		err = errors.Join(err, s.conn.Close())
	}
	return err
}
