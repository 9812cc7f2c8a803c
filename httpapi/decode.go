package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
)

var errBadBody = errors.New("malformed request body")

// decodeBody fills dst from a JSON body, or from form values when the
// request is not JSON. formFields maps form keys to destinations.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, formFields map[string]*string) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return errBadBody
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return errBadBody
	}
	for key, ptr := range formFields {
		*ptr = r.PostForm.Get(key)
	}
	return nil
}
