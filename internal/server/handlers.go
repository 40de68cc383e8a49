package server

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"curiousqa/pkg/curiouscat"
	"curiousqa/pkg/errors"
	"curiousqa/pkg/export"
	"curiousqa/pkg/scraper"

	"github.com/gookit/validate"
)

// Exporter builds the workbook for one normalized username
type Exporter interface {
	Export(ctx context.Context, username string) (*bytes.Buffer, error)
}

type indexData struct {
	Action    string
	Field     string
	MaxLength int
}

// downloadForm is the POSTed form body
type downloadForm struct {
	UserInput string `validate:"required|maxLen:128" label:"username"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.index.Execute(w, indexData{
		Action:    DownloadPath,
		Field:     FormField,
		MaxLength: curiouscat.MaxUsernameLength,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to render index")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	// urlencoded and multipart bodies are both accepted
	err := r.ParseMultipartForm(maxFormSize)
	if err != nil && !stderrors.Is(err, http.ErrNotMultipart) {
		httpError(w, http.StatusBadRequest, "could not read form")
		return
	}

	form := downloadForm{UserInput: r.PostFormValue(FormField)}
	v := validate.Struct(&form)
	if !v.Validate() {
		httpError(w, http.StatusBadRequest, v.Errors.One())
		return
	}

	username, err := scraper.Normalize(form.UserInput)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid username")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	buf, err := s.exporter.Export(ctx, username)
	if err != nil {
		status := errors.HTTPStatus(err)
		s.logger.WithError(err).WarnWithFields("Download failed", map[string]interface{}{
			"username":   username,
			"status":     status,
			"request_id": RequestIDFrom(r.Context()),
		})
		httpError(w, status, downloadMessage(status))
		return
	}

	h := w.Header()
	h.Set("Content-Type", export.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename(username)))
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.WithError(err).Warn("Client went away during download")
	}
}

func downloadMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid username"
	case http.StatusBadGateway:
		return "CuriousCat could not be reached or returned an error, try again later"
	case http.StatusGatewayTimeout:
		return "CuriousCat took too long to respond, try again later"
	default:
		return "export failed"
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = fmt.Fprintln(w, msg)
}
