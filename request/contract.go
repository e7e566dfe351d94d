// SPDX-License-Identifier: ice License 1.0

package request

import (
	"io"
	"net/url"

	"github.com/pkg/errors"

	"github.com/ice-blockchain/envrequest/environment"
	"github.com/ice-blockchain/envrequest/message"
)

// Public API.

var (
	ErrMissingMethod   = errors.New("cannot determine HTTP method")
	ErrInvalidFileSpec = errors.New("invalid value in files specification")
	ErrInvalidURI      = errors.New("cannot determine URI")
	ErrInvalidBody     = errors.New("cannot parse request body")
)

type (
	// Creator builds immutable server requests out of environment snapshots.
	// It keeps no state between calls, so it can be shared between goroutines.
	Creator interface {
		// FromEnvironment builds the request described by env and the already parsed parts of in.
		FromEnvironment(env environment.Environment, in *Input) (message.ServerRequest, error)
		// FromGlobals builds the request a CGI gateway hands over through env and stdin,
		// parsing cookies, query, form/JSON body and uploaded files itself.
		// A missing REQUEST_METHOD defaults to the configured method.
		FromGlobals(env environment.Environment, stdin io.Reader) (message.ServerRequest, error)
		URIFromEnvironment(env environment.Environment) (message.URI, error)
		HeadersFromEnvironment(env environment.Environment) []message.HeaderField
	}
	// Input holds the request parts that don't come from the environment snapshot.
	Input struct {
		Cookies    map[string]string
		Query      url.Values
		ParsedBody map[string]any
		// Files accepts message.UploadedFile, FileSpec, raw CGI file specs (maps with a "tmp_name" key)
		// and any nesting of maps/slices of those.
		Files   map[string]any
		Body    message.Stream
		Headers []message.HeaderField
	}
	// FileSpec describes one uploaded file the way a CGI gateway reports it.
	FileSpec struct {
		Name    string              `json:"name" yaml:"name"`
		Type    string              `json:"type" yaml:"type"`
		TmpName string              `json:"tmp_name" yaml:"tmp_name"` //nolint:tagliatelle // CGI naming.
		Size    int64               `json:"size" yaml:"size"`
		Error   message.UploadError `json:"error" yaml:"error"`
	}
	// Factories are the collaborators that build message components; nil ones default to message.NewFactory().
	Factories struct {
		ServerRequest message.ServerRequestFactory
		URI           message.URIFactory
		UploadedFile  message.UploadedFileFactory
		Stream        message.StreamFactory
	}
	Config struct {
		ProtocolVersion    string `yaml:"protocolVersion"`
		DefaultScheme      string `yaml:"defaultScheme"`
		DefaultMethod      string `yaml:"defaultMethod"`
		UploadDir          string `yaml:"uploadDir"`
		MaxMultipartMemory int64  `yaml:"maxMultipartMemory"`
		// MaxFileSize is the largest accepted upload, in bytes; 0 means unlimited.
		MaxFileSize int64 `yaml:"maxFileSize"`
	}
)

// Private API.

const (
	requestMethodKey  = "REQUEST_METHOD"
	requestSchemeKey  = "REQUEST_SCHEME"
	httpsKey          = "HTTPS"
	httpHostKey       = "HTTP_HOST"
	serverNameKey     = "SERVER_NAME"
	serverPortKey     = "SERVER_PORT"
	requestURIKey     = "REQUEST_URI"
	queryStringKey    = "QUERY_STRING"
	serverProtocolKey = "SERVER_PROTOCOL"
	contentTypeKey    = "CONTENT_TYPE"
	contentLengthKey  = "CONTENT_LENGTH"
	httpCookieKey     = "HTTP_COOKIE"

	httpHeaderPrefix     = "HTTP_"
	contentHeaderPrefix  = "CONTENT_"
	redirectPrefix       = "REDIRECT_"
	protocolPrefix       = "HTTP/"
	httpsOn              = "on"
	hostHeader           = "Host"
	filesKeyPrefix       = "files"
	tmpNameField         = "tmp_name"
	nameField            = "name"
	typeField            = "type"
	sizeField            = "size"
	errorField           = "error"
	uploadFilePattern    = "upload-*"
	formURLEncoded       = "application/x-www-form-urlencoded"
	multipartFormData    = "multipart/form-data"
	applicationJSON      = "application/json"
	defaultMaxMultipart  = 32 << 20
	defaultProtocol      = "1.1"
	defaultScheme        = "http"
	defaultGlobalsMethod = "GET"
)

type (
	creator struct {
		factories *Factories
		cfg       *Config
	}
	applicationConfig struct {
		ServerRequest Config `yaml:"serverRequest"`
	}
)
