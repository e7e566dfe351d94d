// SPDX-License-Identifier: ice License 1.0

package request

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/envrequest/environment"
	"github.com/ice-blockchain/envrequest/log"
	"github.com/ice-blockchain/envrequest/message"
	"github.com/ice-blockchain/envrequest/terror"
)

func (c *creator) FromGlobals(env environment.Environment, stdin io.Reader) (message.ServerRequest, error) {
	method := env.Value(requestMethodKey)
	if method == "" {
		method = c.cfg.DefaultMethod
	}
	in := &Input{
		Headers: c.HeadersFromEnvironment(env),
		Cookies: parseCookies(env.Value(httpCookieKey)),
		Query:   parseQuery(env.Value(queryStringKey)),
	}
	if err := c.parseBody(env, stdin, in); err != nil {
		return nil, err
	}
	req, err := c.build(method, env, in)
	if err != nil {
		discardSpecs(in.Files)
	}

	return req, err
}

// DiscardUploads removes the temporary files behind uploads that were not moved.
func DiscardUploads(files message.UploadedFiles) error {
	var result *multierror.Error
	for _, value := range files {
		switch v := value.(type) {
		case message.UploadedFiles:
			result = multierror.Append(result, DiscardUploads(v))
		case message.UploadedFile:
			stream, err := v.Stream()
			if err != nil || stream.Path() == "" {
				continue
			}
			if cErr := stream.Close(); cErr != nil {
				result = multierror.Append(result, errors.Wrapf(cErr, "failed to close %v", stream.Path()))
			}
			if rErr := os.Remove(stream.Path()); rErr != nil && !errors.Is(rErr, os.ErrNotExist) {
				result = multierror.Append(result, errors.Wrapf(rErr, "failed to remove %v", stream.Path()))
			}
		}
	}

	return result.ErrorOrNil()
}

func parseCookies(line string) map[string]string {
	if line == "" {
		return nil
	}
	parsed := (&http.Request{Header: http.Header{"Cookie": {line}}}).Cookies()
	cookies := make(map[string]string, len(parsed))
	for _, cookie := range parsed {
		if _, found := cookies[cookie.Name]; !found {
			cookies[cookie.Name] = cookie.Value
		}
	}
	if len(parsed) == 0 {
		log.Warn("no valid cookies found", "cookie", line)
	}

	return cookies
}

func parseQuery(query string) url.Values {
	values, err := url.ParseQuery(query)
	if err != nil {
		log.Warn("malformed query, keeping the parsable pairs", "query", query, "error", err.Error())
	}

	return values
}

func (c *creator) parseBody(env environment.Environment, stdin io.Reader, in *Input) error {
	if stdin == nil {
		return nil
	}
	body := stdin
	if rawLength := env.Value(contentLengthKey); rawLength != "" {
		length, err := strconv.ParseInt(rawLength, 10, 64)
		if err != nil || length < 0 {
			return terror.Wrap(ErrInvalidBody, "invalid content length "+strconv.Quote(rawLength), map[string]any{"key": contentLengthKey})
		}
		body = io.LimitReader(stdin, length)
	}
	contentType := env.Value(contentTypeKey)
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil && contentType != "" {
		log.Warn("unparsable content type, treating the body as raw", "contentType", contentType, "error", err.Error())
	}
	if mediaType == multipartFormData {
		return c.parseMultipart(body, params["boundary"], in)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return terror.Wrap(ErrInvalidBody, errors.Wrap(err, "failed to read body").Error(), nil)
	}
	in.Body = c.factories.Stream.CreateStream(string(raw))
	switch mediaType {
	case formURLEncoded:
		in.ParsedBody = NestValues(parseQuery(string(raw)))
	case applicationJSON:
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		var parsed any
		if err = json.Unmarshal(raw, &parsed); err != nil {
			return terror.Wrap(ErrInvalidBody, errors.Wrap(err, "malformed json").Error(), map[string]any{"contentType": contentType})
		}
		if object, isObject := parsed.(map[string]any); isObject {
			in.ParsedBody = object
		}
	}

	return nil
}

//nolint:funlen // .
func (c *creator) parseMultipart(body io.Reader, boundary string, in *Input) error {
	if boundary == "" {
		return terror.Wrap(ErrInvalidBody, "multipart body without boundary", nil)
	}
	var (
		reader   = multipart.NewReader(body, boundary)
		values   = make(url.Values)
		files    = make(map[string][]any)
		inMemory int64
	)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			discardSpecs(files)

			return terror.Wrap(ErrInvalidBody, errors.Wrap(err, "malformed multipart body").Error(), nil)
		}
		name := part.FormName()
		if name == "" {
			continue
		}
		if filename, isFile := partFilename(part); isFile {
			files[name] = append(files[name], c.storePart(part, filename))

			continue
		}
		value, err := io.ReadAll(io.LimitReader(part, c.cfg.MaxMultipartMemory-inMemory+1))
		if err == nil && int64(len(value)) > c.cfg.MaxMultipartMemory-inMemory {
			err = errors.Errorf("form values exceed %v bytes", c.cfg.MaxMultipartMemory)
		}
		if err != nil {
			discardSpecs(files)

			return terror.Wrap(ErrInvalidBody, err.Error(), map[string]any{"field": name})
		}
		inMemory += int64(len(value))
		values.Add(name, string(value))
	}
	in.Body = c.factories.Stream.CreateStream("")
	in.ParsedBody = NestValues(values)
	in.Files = Nest(files)

	return nil
}

// partFilename tells file parts apart from values, including file inputs submitted empty (filename="").
func partFilename(part *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	filename, isFile := params["filename"]
	if isFile {
		filename = part.FileName()
	}

	return filename, isFile
}

func (c *creator) storePart(part *multipart.Part, filename string) FileSpec {
	spec := FileSpec{Name: filename, Type: part.Header.Get("Content-Type")}
	if filename == "" {
		spec.Error = message.UploadErrNoFile

		return spec
	}
	tmp, err := os.CreateTemp(c.cfg.UploadDir, uploadFilePattern)
	if err != nil {
		log.Warn("could not create temporary upload file", "uploadDir", c.cfg.UploadDir, "error", err.Error())
		spec.Error = message.UploadErrCantWrite

		return spec
	}
	var src io.Reader = part
	if c.cfg.MaxFileSize > 0 {
		src = io.LimitReader(part, c.cfg.MaxFileSize+1)
	}
	size, err := io.Copy(tmp, src)
	err = multierror.Append(err, tmp.Close()).ErrorOrNil()
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		spec.Error = message.UploadErrPartial
	case err != nil:
		log.Warn("could not store upload", "filename", filename, "error", err.Error())
		spec.Error = message.UploadErrCantWrite
	case c.cfg.MaxFileSize > 0 && size > c.cfg.MaxFileSize:
		spec.Error = message.UploadErrFormSize
	default:
		spec.TmpName, spec.Size = tmp.Name(), size

		return spec
	}
	if rErr := os.Remove(tmp.Name()); rErr != nil {
		log.Warn("could not remove rejected upload", "tmpName", tmp.Name(), "error", rErr.Error())
	}

	return spec
}

// discardSpecs removes the temporary files of uploads stored for a request that was never built.
func discardSpecs(tree any) {
	if spec, isSpec := tree.(FileSpec); isSpec {
		if spec.TmpName != "" {
			log.Error(errors.Wrapf(os.Remove(spec.TmpName), "failed to remove %v", spec.TmpName))
		}

		return
	}
	_, children, _ := entries(tree)
	for _, child := range children {
		discardSpecs(child)
	}
}
