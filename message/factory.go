// SPDX-License-Identifier: ice License 1.0

package message

import (
	"io"

	"github.com/pkg/errors"
)

//nolint:gochecknoglobals // Compile time checks.
var (
	_ ServerRequestFactory = (*Factory)(nil)
	_ URIFactory           = (*Factory)(nil)
	_ UploadedFileFactory  = (*Factory)(nil)
	_ StreamFactory        = (*Factory)(nil)
)

func NewFactory() *Factory {
	return new(Factory)
}

func (*Factory) CreateServerRequest(method string, u URI, serverParams map[string]string) (ServerRequest, error) {
	return NewServerRequest(method, u, serverParams)
}

func (*Factory) CreateURI(raw string) (URI, error) {
	return ParseURI(raw)
}

func (*Factory) CreateUploadedFile(
	stream Stream, size int64, uploadError UploadError, clientFilename, clientMediaType string,
) (UploadedFile, error) {
	return NewUploadedFile(stream, size, uploadError, clientFilename, clientMediaType)
}

func (*Factory) CreateStream(content string) Stream {
	return NewStream(content)
}

func (*Factory) CreateStreamFromFile(filename string) (Stream, error) {
	if filename == "" {
		return nil, errors.New("empty filename")
	}

	return NewFileStream(filename), nil
}

func (*Factory) CreateStreamFromReader(r io.Reader) Stream {
	return NewReaderStream(r)
}
