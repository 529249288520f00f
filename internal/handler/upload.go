package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/kdduha/glowu/backend/internal/gateway"
	"github.com/kdduha/glowu/backend/internal/models"
	"github.com/kdduha/glowu/backend/internal/service"
	"github.com/kdduha/glowu/backend/internal/upload"
)

const (
	imageField = "image"
	queryField = "query"

	apologyTemplate = "We apologize, but we encountered an issue with our AI service: %s. Please try again later."
)

type advisorService interface {
	Advise(ctx context.Context, img *upload.Image, query string) *service.Advice
}

type imageValidator interface {
	Validate(data []byte) (*upload.Image, error)
	MaxBytes() int64
}

type UploadHandler struct {
	logger    *zap.Logger
	validator imageValidator
	service   advisorService
}

func NewUploadHandler(logger *zap.Logger, validator imageValidator, service advisorService) *UploadHandler {
	return &UploadHandler{
		logger:    logger,
		validator: validator,
		service:   service,
	}
}

// UploadAndQuery godoc
// @Summary Analyse a selfie and recommend products
// @Description Runs a skin analysis and a product recommendation on the uploaded photo.
// @Description Model failures do not change the status: the affected field carries an apology text instead.
// @Tags advice
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Facial photo"
// @Param query formData string true "Free-text question"
// @Success 200 {object} models.AdviceResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /upload_and_query [post]
func (h *UploadHandler) UploadAndQuery(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.validator.MaxBytes() + 1<<20); err != nil {
		h.fail(w, http.StatusInternalServerError, unexpectedDetail(err), err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	query, ok := formValue(r, queryField)
	if !ok {
		h.fail(w, http.StatusUnprocessableEntity, queryField+": field required", nil)
		return
	}

	data, err := h.readImage(r)
	if errors.Is(err, http.ErrMissingFile) {
		h.fail(w, http.StatusBadRequest, imageField+": field required", err)
		return
	}
	if err != nil {
		h.fail(w, http.StatusInternalServerError, unexpectedDetail(err), err)
		return
	}

	img, err := h.validator.Validate(data)
	switch {
	case errors.Is(err, upload.ErrEmptyUpload):
		h.fail(w, http.StatusBadRequest, "Empty file", err)
		return
	case errors.Is(err, upload.ErrInvalidImage):
		h.fail(w, http.StatusBadRequest, fmt.Sprintf("Invalid image format: %s", err), err)
		return
	case err != nil:
		h.fail(w, http.StatusInternalServerError, unexpectedDetail(err), err)
		return
	}

	advice := h.service.Advise(r.Context(), img, query)

	writeJSON(w, http.StatusOK, models.AdviceResponse{
		Analysis:        present(advice.Analysis),
		Recommendations: present(advice.Recommendations),
	})
}

func (h *UploadHandler) readImage(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile(imageField)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.validator.MaxBytes()+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

func (h *UploadHandler) fail(w http.ResponseWriter, status int, detail string, err error) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("detail", detail),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	h.logger.Error("upload_and_query failed", fields...)

	writeJSON(w, status, models.ErrorResponse{Detail: detail})
}

// present embeds a failed model call as apology text so the response stays 200.
func present(res gateway.Result) string {
	if res.Failed() {
		return fmt.Sprintf(apologyTemplate, res.Err)
	}
	return res.Text
}

// formValue treats an empty field like a missing one.
func formValue(r *http.Request, key string) (string, bool) {
	values := r.MultipartForm.Value[key]
	if len(values) == 0 || values[0] == "" {
		return "", false
	}
	return values[0], true
}

func unexpectedDetail(err error) string {
	return fmt.Sprintf("An unexpected error occurred: %s", err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to encode: %s", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
