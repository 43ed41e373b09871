package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/kalambet/talkscope/internal/analysis"
	"github.com/kalambet/talkscope/internal/transcript"
)

const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeFileTooLarge   = "FILE_TOO_LARGE"

	// uploadFormField is the multipart field carrying the transcript.
	uploadFormField = "file"
	// multipartOverhead covers boundaries and part headers on top of the
	// file size limit.
	multipartOverhead = 64 << 10
	// formMemory is how much of a multipart body is buffered in memory
	// before spilling to temp files.
	formMemory = 8 << 20

	encodingMessage = "check the file encoding; it must be UTF-8"
)

var (
	errMissingFile = errors.New(`multipart field "file" is required`)
	errTooLarge    = errors.New("uploaded file is too large")
)

// readUpload returns the bytes of the "file" part, at most limit bytes.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	defer r.Body.Close()

	if err := r.ParseMultipartForm(formMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errTooLarge
		}
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile(uploadFormField)
	if err != nil {
		return nil, errMissingFile
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errTooLarge
	}
	return data, nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errTooLarge) {
		httpError(w, http.StatusRequestEntityTooLarge, codeFileTooLarge, "%v", err)
		return
	}
	httpError(w, http.StatusBadRequest, codeInvalidRequest, "%v", err)
}

func statusForCode(code string) int {
	switch code {
	case analysis.CodeInsufficientData, analysis.CodeEncodingError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func handleAnalyze(deps Deps, level analysis.DetailLevel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Analysis-ID", id)

		data, err := readUpload(w, r, int64(deps.Config.Server.MaxUploadBytes))
		if err != nil {
			writeUploadError(w, err)
			return
		}

		text, err := transcript.Decode(data)
		if err != nil {
			slog.Info("rejecting upload", "analysis_id", id, "error", err)
			httpError(w, http.StatusBadRequest, analysis.CodeEncodingError, encodingMessage)
			return
		}

		res, err := deps.Analyzer.Analyze(r.Context(), analysis.Request{
			ID:         id,
			Transcript: text,
			Level:      level,
		})
		if err != nil {
			code := analysis.Code(err)
			httpError(w, statusForCode(code), code, "%v", err)
			return
		}

		w.Header().Set("X-Analysis-Model", res.Model)
		writeJSON(w, http.StatusOK, res.Data)
	}
}

// handleValidate always answers 200; problems are reported in the body.
func handleValidate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := readUpload(w, r, int64(deps.Config.Server.MaxUploadBytes))
		if err != nil {
			writeJSON(w, http.StatusOK, transcript.Validation{Valid: false, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, transcript.ValidateBytes(data))
	}
}
