package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kdduha/glowu/backend/internal/gateway"
	"github.com/kdduha/glowu/backend/internal/models"
	"github.com/kdduha/glowu/backend/internal/service"
	"github.com/kdduha/glowu/backend/internal/upload"
)

type fakeAdvisor struct {
	mu     sync.Mutex
	calls  int
	query  string
	img    *upload.Image
	advice *service.Advice
}

func (f *fakeAdvisor) Advise(ctx context.Context, img *upload.Image, query string) *service.Advice {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.query = query
	f.img = img
	return f.advice
}

func okAdvice() *service.Advice {
	return &service.Advice{
		Analysis:        gateway.Result{Task: service.TaskAnalysis, Text: "## Skin Type\nCombination"},
		Recommendations: gateway.Result{Task: service.TaskRecommendations, Text: "## Skincare Routine\nCleanser"},
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	src.Set(2, 2, color.RGBA{G: 180, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	return buf.Bytes()
}

type formPart struct {
	name     string
	filename string
	data     []byte
}

func multipartRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename != "" {
			fw, err := mw.CreateFormFile(p.name, p.filename)
			require.NoError(t, err)
			_, err = fw.Write(p.data)
			require.NoError(t, err)
			continue
		}
		require.NoError(t, mw.WriteField(p.name, string(p.data)))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_and_query", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func imagePart(data []byte) formPart {
	return formPart{name: imageField, filename: "selfie.png", data: data}
}

func queryPart(q string) formPart {
	return formPart{name: queryField, data: []byte(q)}
}

func serve(t *testing.T, h *UploadHandler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.UploadAndQuery(rec, req)
	return rec
}

func newTestHandler(t *testing.T, advisor *fakeAdvisor) *UploadHandler {
	return NewUploadHandler(zaptest.NewLogger(t), upload.NewValidator(0, 0), advisor)
}

func TestUploadAndQuerySuccess(t *testing.T) {
	advisor := &fakeAdvisor{advice: okAdvice()}
	h := newTestHandler(t, advisor)
	data := pngBytes(t)

	rec := serve(t, h, multipartRequest(t, imagePart(data), queryPart("flaky cheeks")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{
		"analysis":        "## Skin Type\nCombination",
		"recommendations": "## Skincare Routine\nCleanser",
	}, body)

	assert.Equal(t, 1, advisor.calls)
	assert.Equal(t, "flaky cheeks", advisor.query)
	require.NotNil(t, advisor.img)
	assert.Equal(t, "png", advisor.img.Format)
	assert.Equal(t, data, advisor.img.Data)
}

func TestUploadAndQueryDegradesPerField(t *testing.T) {
	tests := []struct {
		name            string
		analysisErr     error
		recommendErr    error
		wantAnalysis    string
		wantRecommended string
	}{
		{
			name:            "analysis fails",
			analysisErr:     errors.New("429 quota exceeded"),
			wantAnalysis:    "We apologize, but we encountered an issue with our AI service: 429 quota exceeded. Please try again later.",
			wantRecommended: "## Skincare Routine\nCleanser",
		},
		{
			name:            "recommendations fail",
			recommendErr:    errors.New("deadline exceeded"),
			wantAnalysis:    "## Skin Type\nCombination",
			wantRecommended: "We apologize, but we encountered an issue with our AI service: deadline exceeded. Please try again later.",
		},
		{
			name:            "both fail",
			analysisErr:     errors.New("a"),
			recommendErr:    errors.New("b"),
			wantAnalysis:    "We apologize, but we encountered an issue with our AI service: a. Please try again later.",
			wantRecommended: "We apologize, but we encountered an issue with our AI service: b. Please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advice := okAdvice()
			if tt.analysisErr != nil {
				advice.Analysis = gateway.Result{
					Task: service.TaskAnalysis,
					Err:  &gateway.Error{Task: service.TaskAnalysis, Cause: tt.analysisErr},
				}
			}
			if tt.recommendErr != nil {
				advice.Recommendations = gateway.Result{
					Task: service.TaskRecommendations,
					Err:  &gateway.Error{Task: service.TaskRecommendations, Cause: tt.recommendErr},
				}
			}
			h := newTestHandler(t, &fakeAdvisor{advice: advice})

			rec := serve(t, h, multipartRequest(t, imagePart(pngBytes(t)), queryPart("q")))

			require.Equal(t, http.StatusOK, rec.Code)
			var body models.AdviceResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantAnalysis, body.Analysis)
			assert.Equal(t, tt.wantRecommended, body.Recommendations)
		})
	}
}

func TestUploadAndQueryRejects(t *testing.T) {
	tests := []struct {
		name         string
		validator    *upload.Validator
		request      func(t *testing.T) *http.Request
		wantStatus   int
		wantDetail   string
		detailPrefix bool
	}{
		{
			name: "empty image",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, imagePart(nil), queryPart("q"))
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "Empty file",
		},
		{
			name: "text file",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, imagePart([]byte("definitely not a picture")), queryPart("q"))
			},
			wantStatus:   http.StatusBadRequest,
			wantDetail:   "Invalid image format: ",
			detailPrefix: true,
		},
		{
			name: "truncated png",
			request: func(t *testing.T) *http.Request {
				data := pngBytes(t)
				return multipartRequest(t, imagePart(data[:len(data)/2]), queryPart("q"))
			},
			wantStatus:   http.StatusBadRequest,
			wantDetail:   "Invalid image format: ",
			detailPrefix: true,
		},
		{
			name:      "oversized image",
			validator: upload.NewValidator(16, 0),
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, imagePart(pngBytes(t)), queryPart("q"))
			},
			wantStatus:   http.StatusBadRequest,
			wantDetail:   "Invalid image format: file size exceeds limit",
			detailPrefix: true,
		},
		{
			name: "missing image",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, queryPart("q"))
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "image: field required",
		},
		{
			name: "missing query",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, imagePart(pngBytes(t)))
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "query: field required",
		},
		{
			name: "empty query",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, imagePart(pngBytes(t)), queryPart(""))
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "query: field required",
		},
		{
			name: "not multipart",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/upload_and_query", strings.NewReader(`{"query":"q"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantStatus:   http.StatusInternalServerError,
			wantDetail:   "An unexpected error occurred: ",
			detailPrefix: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advisor := &fakeAdvisor{advice: okAdvice()}
			validator := tt.validator
			if validator == nil {
				validator = upload.NewValidator(0, 0)
			}
			h := NewUploadHandler(zaptest.NewLogger(t), validator, advisor)

			rec := serve(t, h, tt.request(t))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.detailPrefix {
				assert.True(t, strings.HasPrefix(body.Detail, tt.wantDetail), "detail %q", body.Detail)
			} else {
				assert.Equal(t, tt.wantDetail, body.Detail)
			}
			assert.Zero(t, advisor.calls, "model must not be called for rejected uploads")
		})
	}
}

type generatorFunc func(ctx context.Context, prompt string, img *upload.Image) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string, img *upload.Image) (string, error) {
	return f(ctx, prompt, img)
}

func TestUploadAndQueryThroughGateway(t *testing.T) {
	const apology = "We apologize, but we encountered an issue with our AI service: %s. Please try again later."

	tests := []struct {
		name                string
		analysisErr         error
		recommendationErr   error
		analysisPanics      bool
		wantAnalysis        string
		wantRecommendations string
	}{
		{
			name:                "both succeed",
			wantAnalysis:        "analysis of dry cheeks",
			wantRecommendations: "routine for dry cheeks",
		},
		{
			name:                "recommendation call fails",
			recommendationErr:   errors.New("503 model overloaded"),
			wantAnalysis:        "analysis of dry cheeks",
			wantRecommendations: fmt.Sprintf(apology, "503 model overloaded"),
		},
		{
			name:                "analysis call panics",
			analysisPanics:      true,
			wantAnalysis:        fmt.Sprintf(apology, "panic: nil candidate"),
			wantRecommendations: "routine for dry cheeks",
		},
		{
			name:                "analysis returns no text",
			analysisErr:         gateway.ErrEmptyResponse,
			wantAnalysis:        fmt.Sprintf(apology, gateway.ErrEmptyResponse),
			wantRecommendations: "routine for dry cheeks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := generatorFunc(func(ctx context.Context, prompt string, img *upload.Image) (string, error) {
				query := strings.TrimPrefix(prompt[strings.LastIndex(prompt, "User query: "):], "User query: ")
				if strings.HasPrefix(prompt, service.AnalysisPrompt) {
					if tt.analysisPanics {
						panic("nil candidate")
					}
					if tt.analysisErr != nil {
						return "", tt.analysisErr
					}
					return "analysis of " + query, nil
				}
				if tt.recommendationErr != nil {
					return "", tt.recommendationErr
				}
				return "routine for " + query, nil
			})

			logger := zaptest.NewLogger(t)
			advisor := service.NewAdvisorService(logger, gateway.New(generator, logger))
			h := NewUploadHandler(logger, upload.NewValidator(0, 0), advisor)

			rec := serve(t, h, multipartRequest(t, imagePart(pngBytes(t)), queryPart("dry cheeks")))

			require.Equal(t, http.StatusOK, rec.Code)
			var body models.AdviceResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantAnalysis, body.Analysis)
			assert.Equal(t, tt.wantRecommendations, body.Recommendations)
		})
	}
}
