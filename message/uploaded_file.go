// SPDX-License-Identifier: ice License 1.0

package message

import (
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

func NewUploadedFile(
	stream Stream, size int64, uploadError UploadError, clientFilename, clientMediaType string,
) (UploadedFile, error) {
	if !uploadError.Valid() {
		return nil, errors.Wrapf(ErrUploadFailed, "unknown upload error code %v", int(uploadError))
	}
	if size < 0 {
		return nil, errors.Wrapf(ErrUploadFailed, "negative size %v", size)
	}
	if stream == nil {
		if uploadError == UploadErrOK {
			return nil, errors.Wrap(ErrUploadFailed, "successful upload without a stream")
		}
		stream = NewStream("")
	}

	return &uploadedFile{
		stream:          stream,
		size:            size,
		uploadError:     uploadError,
		clientFilename:  clientFilename,
		clientMediaType: clientMediaType,
	}, nil
}

func (e UploadError) Valid() bool {
	return e >= UploadErrOK && e <= UploadErrExtension && e != UploadErrNoFile+1
}

func (f *uploadedFile) Stream() (Stream, error) {
	if err := f.checkAvailable(); err != nil {
		return nil, err
	}

	return f.stream, nil
}

func (f *uploadedFile) MoveTo(targetPath string) error {
	if err := f.checkAvailable(); err != nil {
		return err
	}
	if targetPath == "" {
		return errors.New("empty target path")
	}
	if source := f.stream.Path(); source != "" {
		if err := os.Rename(source, targetPath); err == nil {
			f.moved = true

			return nil
		}
	}
	if err := f.copyTo(targetPath); err != nil {
		return errors.Wrapf(err, "failed to move uploaded file to %v", targetPath)
	}
	f.moved = true

	return nil
}

func (f *uploadedFile) copyTo(targetPath string) error {
	target, err := os.Create(targetPath) //nolint:gosec // The caller decides where the upload goes.
	if err != nil {
		return errors.Wrap(err, "failed to create target")
	}
	_, err = io.Copy(target, f.stream)

	//nolint:wrapcheck // Already wrapped.
	return multierror.Append(
		errors.Wrap(err, "failed to copy"),
		errors.Wrap(target.Close(), "failed to close target"),
		errors.Wrap(f.stream.Close(), "failed to close source"),
	).ErrorOrNil()
}

func (f *uploadedFile) checkAvailable() error {
	if f.uploadError != UploadErrOK {
		return errors.Wrapf(ErrUploadFailed, "upload error code %v", int(f.uploadError))
	}
	if f.moved {
		return ErrAlreadyMoved
	}

	return nil
}

func (f *uploadedFile) Size() int64 {
	return f.size
}

func (f *uploadedFile) UploadError() UploadError {
	return f.uploadError
}

func (f *uploadedFile) ClientFilename() string {
	return f.clientFilename
}

func (f *uploadedFile) ClientMediaType() string {
	return f.clientMediaType
}
