// SPDX-License-Identifier: ice License 1.0

package message

import (
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/http/httpguts"
)

func NewHeader(fields ...HeaderField) (Header, error) {
	var (
		h   Header
		err error
	)
	for _, field := range fields {
		if h, err = h.WithAdded(field.Name, field.Values...); err != nil {
			return Header{}, err
		}
	}

	return h, nil
}

func (h Header) Len() int {
	return len(h.fields)
}

func (h Header) Names() []string {
	names := make([]string, 0, len(h.fields))
	for _, field := range h.fields {
		names = append(names, field.Name)
	}

	return names
}

func (h Header) Fields() []HeaderField {
	fields := make([]HeaderField, 0, len(h.fields))
	for _, field := range h.fields {
		fields = append(fields, HeaderField{Name: field.Name, Values: slices.Clone(field.Values)})
	}

	return fields
}

func (h Header) Has(name string) bool {
	return h.index(name) >= 0
}

func (h Header) Values(name string) []string {
	if ix := h.index(name); ix >= 0 {
		return slices.Clone(h.fields[ix].Values)
	}

	return nil
}

func (h Header) Line(name string) string {
	if ix := h.index(name); ix >= 0 {
		return strings.Join(h.fields[ix].Values, ", ")
	}

	return ""
}

// With replaces every value of name, keeping its position if it was already present.
func (h Header) With(name string, values ...string) (Header, error) {
	normalized, err := normalizeHeader(name, values)
	if err != nil {
		return Header{}, err
	}
	fields := h.Fields()
	if ix := h.index(name); ix >= 0 {
		fields[ix].Values = normalized
	} else {
		fields = append(fields, HeaderField{Name: name, Values: normalized})
	}

	return Header{fields: fields}, nil
}

// WithAdded appends values to name, or adds name at the end if it wasn't present.
func (h Header) WithAdded(name string, values ...string) (Header, error) {
	normalized, err := normalizeHeader(name, values)
	if err != nil {
		return Header{}, err
	}
	fields := h.Fields()
	if ix := h.index(name); ix >= 0 {
		fields[ix].Values = append(fields[ix].Values, normalized...)
	} else {
		fields = append(fields, HeaderField{Name: name, Values: normalized})
	}

	return Header{fields: fields}, nil
}

func (h Header) Without(name string) Header {
	ix := h.index(name)
	if ix < 0 {
		return h
	}
	fields := h.Fields()

	return Header{fields: slices.Delete(fields, ix, ix+1)}
}

// withHostFrom puts the host (and non-standard port) of u first, as the Host header.
func (h Header) withHostFrom(u URI) Header {
	host := u.Host()
	if host == "" {
		return h
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != 0 {
		host += ":" + strconv.Itoa(port)
	}
	fields := h.Without(hostHeader).Fields()

	return Header{fields: append([]HeaderField{{Name: hostHeader, Values: []string{host}}}, fields...)}
}

func (h Header) index(name string) int {
	for ix := range h.fields {
		if strings.EqualFold(h.fields[ix].Name, name) {
			return ix
		}
	}

	return -1
}

func normalizeHeader(name string, values []string) ([]string, error) {
	if !httpguts.ValidHeaderFieldName(name) {
		return nil, errors.Wrapf(ErrInvalidHeader, "name %q", name)
	}
	if len(values) == 0 {
		return nil, errors.Wrapf(ErrInvalidHeader, "no values for %q", name)
	}
	normalized := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.Trim(value, " \t")
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, errors.Wrapf(ErrInvalidHeader, "value %q of %q", value, name)
		}
		normalized = append(normalized, value)
	}

	return normalized, nil
}
