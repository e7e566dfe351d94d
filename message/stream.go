// SPDX-License-Identifier: ice License 1.0

package message

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

func NewStream(content string) Stream {
	return &stream{reader: strings.NewReader(content), content: &content, size: int64(len(content)), sizeKnown: true}
}

// NewFileStream doesn't touch the file until the first read, so a missing file only fails then.
func NewFileStream(path string) Stream {
	return &stream{path: path, open: func() (io.ReadCloser, error) {
		return os.Open(path) //nolint:gosec // The path is chosen by the gateway, not by the client.
	}}
}

// NewLazyStream opens its source on the first read; Close releases whatever was opened.
func NewLazyStream(size int64, open func() (io.ReadCloser, error)) Stream {
	return &stream{open: open, size: size, sizeKnown: true}
}

func NewReaderStream(r io.Reader) Stream {
	s := &stream{reader: r}
	if closer, ok := r.(io.Closer); ok {
		s.closer = closer
	}
	switch sized := r.(type) {
	case interface{ Size() int64 }:
		s.size, s.sizeKnown = sized.Size(), true
	case *os.File:
		if stat, err := sized.Stat(); err == nil && stat.Mode().IsRegular() {
			s.size, s.sizeKnown = stat.Size(), true
		}
	}

	return s
}

func (s *stream) Read(p []byte) (int, error) {
	if s.detached {
		return 0, ErrStreamDetached
	}
	if s.reader == nil {
		if s.open == nil {
			return 0, io.EOF
		}
		if err := s.openSource(); err != nil {
			return 0, err
		}
	}

	return s.reader.Read(p) //nolint:wrapcheck // io.EOF has to reach the caller as is.
}

func (s *stream) openSource() error {
	rc, err := s.open()
	if err != nil {
		return errors.Wrapf(err, "failed to open stream %v", s.path)
	}
	s.reader, s.closer = rc, rc

	return nil
}

func (s *stream) Close() error {
	if s.detached {
		return nil
	}
	s.detached = true
	if s.closer == nil {
		return nil
	}

	return errors.Wrap(s.closer.Close(), "failed to close stream")
}

func (s *stream) Size() (int64, bool) {
	if s.sizeKnown {
		return s.size, true
	}
	if s.path != "" {
		if stat, err := os.Stat(s.path); err == nil {
			return stat.Size(), true
		}
	}

	return 0, false
}

func (s *stream) Path() string {
	return s.path
}

func (s *stream) String() string {
	switch {
	case s.content != nil:
		return *s.content
	case s.path != "":
		content, err := os.ReadFile(s.path)
		if err != nil {
			return ""
		}

		return string(content)
	case s.detached:
		return ""
	case s.reader == nil:
		if s.open == nil || s.openSource() != nil {
			return ""
		}
	}
	if seeker, ok := s.reader.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return ""
		}
	}
	content, err := io.ReadAll(s.reader)
	if err != nil {
		return ""
	}

	return string(content)
}
