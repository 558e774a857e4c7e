// internal/service/creative/interfaces/http_handler.go
package interfaces

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"adforge/internal/pkg/logger"
	"adforge/internal/service/creative/application"
	"adforge/internal/service/creative/domain"
)

const serviceName = "creative-service"

// maxReferenceBytes caps the uploaded reference image at 16 MiB.
const maxReferenceBytes = 16 << 20

// CreativeHandler exposes the run intake and read endpoints.
type CreativeHandler struct {
	service *application.CreativeApplicationService
}

func NewCreativeHandler(service *application.CreativeApplicationService) *CreativeHandler {
	return &CreativeHandler{service: service}
}

// RegisterRoutes registers all routes on the mux.
func (h *CreativeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ad_runs", h.adRuns)
	mux.HandleFunc("/ad_runs/", h.getAdRun)
}

func (h *CreativeHandler) adRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.CreateAdRun")
	defer span.End()

	req, err := parseCreateRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("product.id", req.ProductID))

	resp, err := h.service.RequestAdRun(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrRunLocked) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("Run intake failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(resp)
}

func (h *CreativeHandler) getAdRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.GetAdRun")
	defer span.End()

	runID := strings.TrimPrefix(r.URL.Path, "/ad_runs/")
	if runID == "" || strings.Contains(runID, "/") {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("run.id", runID))

	summary, err := h.service.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("run_id", runID).Msg("Run read failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// parseCreateRequest accepts either multipart form data (reference_image as
// a file field) or a JSON body with the image base64-encoded.
func parseCreateRequest(r *http.Request) (*application.CreateRunRequest, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxReferenceBytes); err != nil {
			return nil, errors.New("invalid multipart form: " + err.Error())
		}
		file, _, err := r.FormFile("reference_image")
		if err != nil {
			return nil, errors.New("reference_image file field is required")
		}
		defer file.Close()
		imageBytes, err := io.ReadAll(io.LimitReader(file, maxReferenceBytes))
		if err != nil {
			return nil, errors.New("could not read reference image")
		}
		count, _ := strconv.Atoi(r.FormValue("generation_count"))
		return &application.CreateRunRequest{
			ProductID:       r.FormValue("product_id"),
			ReferenceImage:  imageBytes,
			GenerationCount: count,
		}, nil
	}

	var body struct {
		ProductID       string `json:"product_id"`
		ReferenceImage  string `json:"reference_image"` // base64
		GenerationCount int    `json:"generation_count"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxReferenceBytes)).Decode(&body); err != nil {
		return nil, errors.New("invalid JSON body: " + err.Error())
	}
	imageBytes, err := base64.StdEncoding.DecodeString(body.ReferenceImage)
	if err != nil {
		return nil, errors.New("reference_image must be base64-encoded")
	}
	return &application.CreateRunRequest{
		ProductID:       body.ProductID,
		ReferenceImage:  imageBytes,
		GenerationCount: body.GenerationCount,
	}, nil
}
