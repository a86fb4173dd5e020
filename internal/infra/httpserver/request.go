package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	appanalysis "github.com/bryanwahyu/piracy-text/internal/application/analysis"
	domain "github.com/bryanwahyu/piracy-text/internal/domain/analysis"
	"github.com/bryanwahyu/piracy-text/internal/middleware"
)

const (
	// room for the other multipart fields on top of the file itself
	formOverhead  = 1 << 20
	maxJSONBody   = 2 << 20
	multipartMemo = 8 << 20
)

// parseProcessRequest reads text and/or a PDF from JSON, multipart or
// urlencoded bodies. The returned cleanup must always be called.
func parseProcessRequest(w http.ResponseWriter, req *http.Request, maxUpload int64) (appanalysis.ProcessCommand, func(), error) {
	var cmd appanalysis.ProcessCommand
	cleanup := func() {}

	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		req.Body = http.MaxBytesReader(w, req.Body, maxUpload+formOverhead)
		if err := req.ParseMultipartForm(multipartMemo); err != nil {
			return cmd, cleanup, bodyError(err, "invalid multipart payload")
		}
		cleanup = func() { req.MultipartForm.RemoveAll() }
		cmd.Text = middleware.SanitizeString(req.FormValue("text"))

		file, header, err := req.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			return cmd, cleanup, nil
		}
		if err != nil {
			return cmd, cleanup, badRequest("invalid file upload")
		}
		removeForm := cleanup
		cleanup = func() {
			file.Close()
			removeForm()
		}
		cmd.File = upload(file, header)
		return cmd, cleanup, nil

	case "application/x-www-form-urlencoded":
		req.Body = http.MaxBytesReader(w, req.Body, maxJSONBody)
		if err := req.ParseForm(); err != nil {
			return cmd, cleanup, bodyError(err, "invalid form payload")
		}
		cmd.Text = middleware.SanitizeString(req.PostFormValue("text"))
		return cmd, cleanup, nil

	default:
		var body struct {
			Text string `json:"text"`
		}
		dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxJSONBody))
		if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return cmd, cleanup, bodyError(err, "invalid JSON body")
		}
		cmd.Text = middleware.SanitizeString(body.Text)
		return cmd, cleanup, nil
	}
}

func upload(file multipart.File, header *multipart.FileHeader) *appanalysis.Upload {
	return &appanalysis.Upload{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
}

func bodyError(err error, msg string) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
		return domain.ErrFileTooLarge
	}
	return badRequest("%s", msg)
}
