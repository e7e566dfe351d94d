// SPDX-License-Identifier: ice License 1.0

package request

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/goccy/go-reflect"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/envrequest/log"
	"github.com/ice-blockchain/envrequest/message"
	"github.com/ice-blockchain/envrequest/terror"
)

// normalizeFiles turns every leaf of the tree into a message.UploadedFile, keeping its shape.
func (c *creator) normalizeFiles(files map[string]any) (message.UploadedFiles, error) {
	normalized := make(message.UploadedFiles, len(files))
	for _, key := range slices.Sorted(maps.Keys(files)) {
		child, err := c.normalizeTree(filesKeyPrefix+"."+key, files[key])
		if err != nil {
			return nil, err
		}
		normalized[key] = child
	}

	return normalized, nil
}

func (c *creator) normalizeTree(path string, value any) (any, error) {
	switch v := value.(type) {
	case message.UploadedFile:
		return v, nil
	case FileSpec:
		return c.createUploadedFile(path, &v)
	case *FileSpec:
		if v != nil {
			return c.createUploadedFile(path, v)
		}
	}
	keys, children, ok := entries(value)
	if !ok {
		return nil, invalidFileSpec(path, fmt.Sprintf("unexpected %T", value))
	}
	if tmpName := children[tmpNameField]; tmpName != nil {
		return c.normalizeRawSpec(path, children, tmpName)
	}
	normalized := make(message.UploadedFiles, len(keys))
	for _, key := range keys {
		child, err := c.normalizeTree(path+"."+key, children[key])
		if err != nil {
			return nil, err
		}
		normalized[key] = child
	}

	return normalized, nil
}

// normalizeRawSpec handles both {"tmp_name": "/tmp/x", ...} and the nested form a gateway produces
// for field names like file[a][], where every field of the spec is itself a tree of the same shape.
func (c *creator) normalizeRawSpec(path string, spec map[string]any, tmpName any) (any, error) {
	if tmp, isLeaf := tmpName.(string); isLeaf {
		fileSpec, err := toFileSpec(spec, tmp)
		if err != nil {
			return nil, invalidFileSpec(path, err.Error())
		}

		return c.createUploadedFile(path, fileSpec)
	}
	keys, tmpNames, ok := entries(tmpName)
	if !ok {
		return nil, invalidFileSpec(path, fmt.Sprintf("unexpected %T as %v", tmpName, tmpNameField))
	}
	normalized := make(message.UploadedFiles, len(keys))
	for _, key := range keys {
		sub := map[string]any{tmpNameField: tmpNames[key]}
		for _, field := range []string{nameField, typeField, sizeField, errorField} {
			if spec[field] == nil {
				continue
			}
			_, values, isTree := entries(spec[field])
			if !isTree {
				return nil, invalidFileSpec(path+"."+field, fmt.Sprintf("%v has to be nested like %v", field, tmpNameField))
			}
			sub[field] = values[key]
		}
		child, err := c.normalizeRawSpec(path+"."+key, sub, tmpNames[key])
		if err != nil {
			return nil, err
		}
		normalized[key] = child
	}

	return normalized, nil
}

func (c *creator) createUploadedFile(path string, spec *FileSpec) (message.UploadedFile, error) {
	file, err := c.factories.UploadedFile.CreateUploadedFile(
		c.tmpStream(spec.TmpName), spec.Size, spec.Error, spec.Name, spec.Type)
	if err != nil {
		return nil, invalidFileSpec(path, err.Error())
	}

	return file, nil
}

// tmpStream never fails: a tmp file that can't be opened yields an empty stream.
func (c *creator) tmpStream(tmpName string) message.Stream {
	if tmpName == "" {
		return c.factories.Stream.CreateStream("")
	}
	stream, err := c.factories.Stream.CreateStreamFromFile(tmpName)
	if err != nil {
		log.Warn("could not open uploaded file, using an empty stream", "tmpName", tmpName, "error", err.Error())

		return c.factories.Stream.CreateStream("")
	}

	return stream
}

func toFileSpec(spec map[string]any, tmpName string) (*FileSpec, error) {
	var (
		fileSpec = &FileSpec{TmpName: tmpName}
		err      error
	)
	if fileSpec.Name, err = stringField(spec, nameField); err != nil {
		return nil, err
	}
	if fileSpec.Type, err = stringField(spec, typeField); err != nil {
		return nil, err
	}
	if fileSpec.Size, err = intField(spec, sizeField); err != nil {
		return nil, err
	}
	uploadError, err := intField(spec, errorField)
	if err != nil {
		return nil, err
	}
	fileSpec.Error = message.UploadError(uploadError)

	return fileSpec, nil
}

func stringField(spec map[string]any, field string) (string, error) {
	switch v := spec[field].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", errors.Errorf("%v is a %T, not a string", field, v)
	}
}

// Gateways report numbers either as strings or as numbers, both are accepted if integral.
func intField(spec map[string]any, field string) (int64, error) {
	value := spec[field]
	if value == nil {
		return 0, nil
	}
	if s, isString := value.(string); isString {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() { //nolint:exhaustive // Everything else is not an integer.
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u), nil
		}
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
			return int64(f), nil
		}
	}

	return 0, errors.Errorf("%v is not an integer: %#v", field, value)
}

// entries lists the children of a string-keyed map or of a slice/array, in a stable order.
func entries(value any) (keys []string, children map[string]any, ok bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() { //nolint:exhaustive // Only containers have entries.
	case reflect.Map:
		children = make(map[string]any, rv.Len())
		for _, key := range rv.MapKeys() {
			if key.Kind() != reflect.String {
				return nil, nil, false
			}
			children[key.String()] = rv.MapIndex(key).Interface()
			keys = append(keys, key.String())
		}
		slices.Sort(keys)
	case reflect.Slice, reflect.Array:
		children = make(map[string]any, rv.Len())
		for ix := range rv.Len() {
			key := strconv.Itoa(ix)
			children[key] = rv.Index(ix).Interface()
			keys = append(keys, key)
		}
	default:
		return nil, nil, false
	}

	return keys, children, true
}

func invalidFileSpec(path, reason string) error {
	return terror.Wrap(ErrInvalidFileSpec, reason, map[string]any{"key": path})
}
