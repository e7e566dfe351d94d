// SPDX-License-Identifier: ice License 1.0

package message

// Bodies larger than that, or of unknown size, are left out of descriptions.
const maxDescribedBodySize = 64 << 10

func Describe(req ServerRequest) *Description {
	desc := &Description{
		Attributes:      req.Attributes(),
		CookieParams:    req.CookieParams(),
		QueryParams:     req.QueryParams(),
		ParsedBody:      req.ParsedBody(),
		UploadedFiles:   describeUploadedFiles(req.UploadedFiles()),
		Method:          req.Method(),
		URI:             req.URI().String(),
		ProtocolVersion: req.ProtocolVersion(),
		Headers:         req.Header().Fields(),
	}
	if body := req.Body(); body != nil {
		if size, known := body.Size(); known && size > 0 && size <= maxDescribedBodySize {
			desc.Body = body.String()
		}
	}

	return desc
}

func describeUploadedFiles(files UploadedFiles) map[string]any {
	desc := make(map[string]any, len(files))
	for key, value := range files {
		switch v := value.(type) {
		case UploadedFiles:
			desc[key] = describeUploadedFiles(v)
		case UploadedFile:
			desc[key] = &FileDescription{
				ClientFilename:  v.ClientFilename(),
				ClientMediaType: v.ClientMediaType(),
				Size:            v.Size(),
				UploadError:     v.UploadError(),
			}
		}
	}

	return desc
}
