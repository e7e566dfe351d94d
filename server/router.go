// SPDX-License-Identifier: ice License 1.0

package server

import (
	"context"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/envrequest/log"
	"github.com/ice-blockchain/envrequest/message"
	"github.com/ice-blockchain/envrequest/request"
	"github.com/ice-blockchain/envrequest/terror"
)

// RootHandler serves handleRequest with the immutable server request built out of the live one.
func RootHandler[RESP any](handleRequest func(context.Context, message.ServerRequest) (*Response[RESP], *Response[ErrorResponse])) func(*gin.Context) { //nolint:lll // .
	return func(ginCtx *gin.Context) {
		ctx, cancel := withEndpointTimeout(ginCtx.Request.Context())
		defer cancel()
		if ginCtx.Request.ProtoMajor < 2 { //nolint:mnd,gomnd // .
			log.Debug(fmt.Sprintf("suboptimal http version used for %[1]T", new(RESP)), "expected", "HTTP/2.0", "actual", ginCtx.Request.Proto)
		}
		req, failure := BuildServerRequest(ginCtx)
		if failure != nil {
			log.Error(errors.Wrap(failure.Data.InternalErr(), "building server request failed"), "Response", failure)
			ginCtx.JSON(processErrorResponse(ginCtx, ctx, failure))

			return
		}
		defer releaseUploads(req.UploadedFiles())
		success, failure := handleRequest(ctx, req)
		if failure != nil {
			log.Error(errors.Wrap(failure.Data.InternalErr(), "endpoint failed"), "method", req.Method(), "uri", req.URI().String(), "Response", failure)
			ginCtx.JSON(processErrorResponse(ginCtx, ctx, failure))

			return
		}
		for k, v := range success.Headers {
			ginCtx.Header(k, v)
		}
		if success.Data != nil {
			ginCtx.JSON(success.Code, success.Data)
		} else {
			ginCtx.Status(success.Code)
		}
	}
}

// BuildServerRequest turns the live request into an immutable server request, tagged with requestId and clientIp attributes.
func BuildServerRequest(ginCtx *gin.Context) (message.ServerRequest, *Response[ErrorResponse]) {
	in, failure := inputFromHTTP(ginCtx)
	if failure != nil {
		return nil, failure
	}
	req, err := Creator(ginCtx.Request.Context()).FromEnvironment(EnvironmentFromHTTP(ginCtx.Request), in)
	if err != nil {
		return nil, BuildFailure(err)
	}
	requestID := ginCtx.GetHeader(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ginCtx.Header(RequestIDHeader, requestID)

	return req.WithAttribute(RequestIDAttribute, requestID).WithAttribute(ClientIPAttribute, ginCtx.ClientIP()), nil
}

func EchoHandler() func(*gin.Context) {
	return RootHandler(func(_ context.Context, req message.ServerRequest) (*Response[message.Description], *Response[ErrorResponse]) {
		return OK(message.Describe(req)), nil
	})
}

func RegisterHealthCheck(router *Router, state State) {
	router.GET("health-check", RootHandler(func(ctx context.Context, req message.ServerRequest) (*Response[map[string]any], *Response[ErrorResponse]) { //nolint:lll // .
		if err := state.CheckHealth(ctx); err != nil {
			return nil, Unexpected(errors.Wrapf(err, "health check failed"))
		}
		clientIP, _ := req.Attribute(ClientIPAttribute)

		return OK(&map[string]any{ClientIPAttribute: clientIP}), nil
	}))
}

func WithCreator(ctx context.Context, creator request.Creator) context.Context {
	return context.WithValue(ctx, creatorCtxValueKey, creator) //nolint:staticcheck,revive // .
}

// Creator is the request.Creator the server was started with, or one with the defaults outside of a Server.
func Creator(ctx context.Context) request.Creator {
	if creator, ok := ctx.Value(creatorCtxValueKey).(request.Creator); ok {
		return creator
	}

	return defaultCreator
}

func withEndpointTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if cfg.DefaultEndpointTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, cfg.DefaultEndpointTimeout)
}

//nolint:funlen // .
func inputFromHTTP(ginCtx *gin.Context) (*request.Input, *Response[ErrorResponse]) {
	r := ginCtx.Request
	in := &request.Input{Query: r.URL.Query()}
	for _, name := range slices.Sorted(maps.Keys(r.Header)) {
		in.Headers = append(in.Headers, message.HeaderField{Name: name, Values: slices.Clone(r.Header[name])})
	}
	if cookies := r.Cookies(); len(cookies) > 0 {
		in.Cookies = make(map[string]string, len(cookies))
		for _, cookie := range cookies {
			if _, found := in.Cookies[cookie.Name]; !found {
				in.Cookies[cookie.Name] = cookie.Value
			}
		}
	}
	if ginCtx.ContentType() == multipartType {
		form, err := ginCtx.MultipartForm()
		if err != nil {
			return nil, UnprocessableEntity(errors.Wrap(err, "invalid multipart form"), "INVALID_BODY")
		}
		files, err := uploadedFiles(form.File)
		if err != nil {
			return nil, UnprocessableEntity(err, "INVALID_FILES")
		}
		in.ParsedBody, in.Files = request.NestValues(form.Value), files

		return in, nil
	}
	raw, err := ginCtx.GetRawData()
	if err != nil {
		return nil, UnprocessableEntity(errors.Wrap(err, "failed to read body"), "INVALID_BODY")
	}
	in.Body = message.NewStream(string(raw))
	if len(raw) == 0 {
		return in, nil
	}
	switch ginCtx.ContentType() {
	case jsonMediaType:
		var parsed any
		if err = binding.JSON.BindBody(raw, &parsed); err != nil {
			return nil, UnprocessableEntity(errors.Wrap(err, "malformed json"), "INVALID_BODY")
		}
		if object, isObject := parsed.(map[string]any); isObject {
			in.ParsedBody = object
		}
	case formMediaType:
		values, pErr := url.ParseQuery(string(raw))
		if pErr != nil {
			log.Warn("malformed form body, keeping the parsable pairs", "error", pErr.Error())
		}
		in.ParsedBody = request.NestValues(values)
	}

	return in, nil
}

func uploadedFiles(headers map[string][]*multipart.FileHeader) (map[string]any, error) {
	files := make(map[string][]message.UploadedFile, len(headers))
	for name, fileHeaders := range headers {
		for _, fileHeader := range fileHeaders {
			stream := message.NewLazyStream(fileHeader.Size, func() (io.ReadCloser, error) {
				return fileHeader.Open() //nolint:wrapcheck // The stream wraps it.
			})
			uploaded, err := message.NewUploadedFile(stream, fileHeader.Size, message.UploadErrOK,
				fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
			if err != nil {
				return nil, errors.Wrapf(err, "failed to handle uploaded %v", fileHeader.Filename)
			}
			files[name] = append(files[name], uploaded)
		}
	}

	return request.Nest(files), nil
}

// releaseUploads closes whatever upload streams the handler opened and left open.
func releaseUploads(files message.UploadedFiles) {
	for _, value := range files {
		switch v := value.(type) {
		case message.UploadedFiles:
			releaseUploads(v)
		case message.UploadedFile:
			if stream, err := v.Stream(); err == nil {
				log.Error(errors.Wrapf(stream.Close(), "failed to close upload %v", v.ClientFilename()))
			}
		}
	}
}

// BuildFailure is the negative response for an error returned while building a server request.
func BuildFailure(err error) *Response[ErrorResponse] {
	var data map[string]any
	if tErr := terror.As(err); tErr != nil {
		data = tErr.Data
	}
	switch {
	case errors.Is(err, request.ErrMissingMethod), errors.Is(err, request.ErrInvalidURI):
		return BadRequest(err, "INVALID_REQUEST", data)
	case errors.Is(err, message.ErrInvalidMethod), errors.Is(err, message.ErrInvalidHeader):
		return BadRequest(err, "INVALID_REQUEST", data)
	case errors.Is(err, request.ErrInvalidFileSpec):
		return UnprocessableEntity(err, "INVALID_FILES", data)
	case errors.Is(err, request.ErrInvalidBody):
		return UnprocessableEntity(err, "INVALID_BODY", data)
	default:
		return Unexpected(err)
	}
}

func processErrorResponse(ginCtx *gin.Context, ctx context.Context, failure *Response[ErrorResponse]) (int, *ErrorResponse) { //nolint:revive // .
	err := failure.Data.InternalErr()
	if errors.Is(err, ginCtx.Request.Context().Err()) {
		return http.StatusServiceUnavailable, &ErrorResponse{Error: "service is shutting down"}
	}
	if errors.Is(err, ctx.Err()) {
		return http.StatusGatewayTimeout, &ErrorResponse{Error: "request timed out"}
	}
	if failure.Code <= 0 {
		return http.StatusInternalServerError, &ErrorResponse{Error: "oops, something went wrong"}
	}

	return failure.Code, failure.Data
}
