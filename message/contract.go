// SPDX-License-Identifier: ice License 1.0

package message

import (
	"io"
	"net/url"

	"github.com/pkg/errors"
)

// Public API.

const (
	UploadErrOK UploadError = iota
	UploadErrIniSize
	UploadErrFormSize
	UploadErrPartial
	UploadErrNoFile
	_
	UploadErrNoTmpDir
	UploadErrCantWrite
	UploadErrExtension
)

var (
	ErrInvalidURI             = errors.New("invalid uri")
	ErrInvalidPort            = errors.New("invalid port")
	ErrInvalidMethod          = errors.New("invalid method")
	ErrInvalidProtocolVersion = errors.New("invalid protocol version")
	ErrInvalidHeader          = errors.New("invalid header")
	ErrInvalidUploadedFiles   = errors.New("invalid uploaded files")
	ErrUploadFailed           = errors.New("upload failed")
	ErrAlreadyMoved           = errors.New("uploaded file already moved")
	ErrStreamDetached         = errors.New("stream detached")
)

type (
	// UploadError mirrors the error codes a CGI gateway reports for every uploaded file.
	UploadError int

	URI interface {
		Scheme() string
		UserInfo() string
		Host() string
		// Port is 0 when absent or when it is the standard port of the scheme.
		Port() int
		Authority() string
		Path() string
		Query() string
		Fragment() string

		WithScheme(scheme string) URI
		WithUserInfo(user, password string) URI
		WithHost(host string) URI
		WithPort(port int) (URI, error)
		WithPath(path string) URI
		WithQuery(query string) URI
		WithFragment(fragment string) URI

		String() string
	}

	Stream interface {
		io.ReadCloser
		// Size returns false when the size can't be determined without consuming the stream.
		Size() (int64, bool)
		// Path is the file the stream reads from, if any.
		Path() string
		// String reads the whole stream from its beginning, when possible; errors yield "".
		String() string
	}

	UploadedFile interface {
		Stream() (Stream, error)
		MoveTo(targetPath string) error
		Size() int64
		UploadError() UploadError
		ClientFilename() string
		ClientMediaType() string
	}

	// UploadedFiles mirrors the nesting of the submitted form fields.
	// Every value is either an UploadedFile or another UploadedFiles.
	UploadedFiles map[string]any

	HeaderField struct {
		Name   string   `json:"name" msgpack:"name"`
		Values []string `json:"values" msgpack:"values"`
	}

	// Header is an ordered, case-insensitive multimap; the first spelling of a name is kept.
	Header struct {
		fields []HeaderField
	}

	ServerRequest interface {
		Method() string
		URI() URI
		ProtocolVersion() string
		Header() Header
		HeaderLine(name string) string
		Body() Stream
		ServerParams() map[string]string
		CookieParams() map[string]string
		QueryParams() url.Values
		// ParsedBody is nil when no body was parsed.
		ParsedBody() map[string]any
		UploadedFiles() UploadedFiles
		Attributes() map[string]any
		Attribute(name string) (any, bool)

		WithMethod(method string) (ServerRequest, error)
		WithURI(uri URI, preserveHost bool) ServerRequest
		WithProtocolVersion(version string) (ServerRequest, error)
		WithHeader(name string, values ...string) (ServerRequest, error)
		WithAddedHeader(name string, values ...string) (ServerRequest, error)
		WithoutHeader(name string) ServerRequest
		WithBody(body Stream) ServerRequest
		WithCookieParams(cookies map[string]string) ServerRequest
		WithQueryParams(query url.Values) ServerRequest
		WithParsedBody(body map[string]any) ServerRequest
		WithUploadedFiles(files UploadedFiles) (ServerRequest, error)
		WithAttribute(name string, value any) ServerRequest
		WithoutAttribute(name string) ServerRequest
	}

	ServerRequestFactory interface {
		CreateServerRequest(method string, uri URI, serverParams map[string]string) (ServerRequest, error)
	}
	URIFactory interface {
		CreateURI(raw string) (URI, error)
	}
	UploadedFileFactory interface {
		CreateUploadedFile(stream Stream, size int64, uploadError UploadError, clientFilename, clientMediaType string) (UploadedFile, error)
	}
	StreamFactory interface {
		CreateStream(content string) Stream
		CreateStreamFromFile(filename string) (Stream, error)
		CreateStreamFromReader(r io.Reader) Stream
	}

	// Factory builds every message component with the default implementations of this package.
	Factory struct{}

	// Description is a serializable view of a ServerRequest.
	Description struct {
		Attributes      map[string]any    `json:"attributes,omitempty" msgpack:"attributes,omitempty"`
		CookieParams    map[string]string `json:"cookieParams,omitempty" msgpack:"cookieParams,omitempty"`
		QueryParams     url.Values        `json:"queryParams,omitempty" msgpack:"queryParams,omitempty"`
		ParsedBody      map[string]any    `json:"parsedBody,omitempty" msgpack:"parsedBody,omitempty"`
		UploadedFiles   map[string]any    `json:"uploadedFiles,omitempty" msgpack:"uploadedFiles,omitempty"`
		Method          string            `json:"method" msgpack:"method"`
		URI             string            `json:"uri" msgpack:"uri"`
		ProtocolVersion string            `json:"protocolVersion" msgpack:"protocolVersion"`
		Body            string            `json:"body,omitempty" msgpack:"body,omitempty"`
		Headers         []HeaderField     `json:"headers,omitempty" msgpack:"headers,omitempty"`
	}
	FileDescription struct {
		ClientFilename  string      `json:"clientFilename" msgpack:"clientFilename"`
		ClientMediaType string      `json:"clientMediaType" msgpack:"clientMediaType"`
		Size            int64       `json:"size" msgpack:"size"`
		UploadError     UploadError `json:"error" msgpack:"error"`
	}
)

// Private API.

const (
	defaultProtocolVersion = "1.1"
	hostHeader             = "Host"
	schemeHTTP             = "http"
	schemeHTTPS            = "https"
	maxPort                = 65535
	userInfoSeparator      = ":"
	// Bytes kept as-is in a path, on top of the unreserved ones; anything else is percent-encoded.
	pathSafeBytes = "!$&'()*+,;=:@/%"
	// Query and fragment also allow '?'.
	querySafeBytes = pathSafeBytes + "?"
)

//nolint:gochecknoglobals // Immutable lookup table.
var standardPorts = map[string]int{
	schemeHTTP:  80,
	schemeHTTPS: 443,
	"ftp":       21,
	"ws":        80,
	"wss":       443,
}

type (
	uri struct {
		scheme   string
		userInfo string
		host     string
		path     string
		query    string
		fragment string
		port     int
	}
	stream struct {
		reader    io.Reader
		closer    io.Closer
		open      func() (io.ReadCloser, error)
		content   *string
		path      string
		size      int64
		sizeKnown bool
		detached  bool
	}
	uploadedFile struct {
		stream          Stream
		clientFilename  string
		clientMediaType string
		size            int64
		uploadError     UploadError
		moved           bool
	}
	serverRequest struct {
		uri             URI
		body            Stream
		serverParams    map[string]string
		cookieParams    map[string]string
		queryParams     url.Values
		parsedBody      map[string]any
		uploadedFiles   UploadedFiles
		attributes      map[string]any
		method          string
		protocolVersion string
		header          Header
	}
)
