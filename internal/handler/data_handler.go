package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// multipartOverhead is the slack allowed on top of the file limit for
// boundaries and part headers.
const multipartOverhead = 1 << 20

// allowedUploadTypes are the part Content-Types accepted by the upload route.
var allowedUploadTypes = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/json": true,
}

// ============================================================
// Ingestion
// ============================================================

func uploadHandler(svc *service.IngestionService, maxBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/data/upload")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				handleServiceError(w, &domain.ErrPayloadTooLarge{Limit: maxBytes}, logger)
				return
			}
			writeError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		defer file.Close()

		if header.Size > maxBytes {
			handleServiceError(w, &domain.ErrPayloadTooLarge{Limit: maxBytes}, logger)
			return
		}

		contentType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
		span.SetAttributes(
			attribute.String("file.name", header.Filename),
			attribute.String("file.content_type", contentType),
		)
		if !allowedUploadTypes[contentType] {
			handleServiceError(w, &domain.ErrUnsupportedFormat{Format: contentType}, logger)
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read uploaded file")
			return
		}

		result, err := svc.UploadFile(ctx, OwnerIDFromContext(ctx), header.Filename, data)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}

func manualEntryHandler(svc *service.IngestionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/data/manual")
		defer span.End()

		// json.Number keeps amounts exactly as the client sent them.
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var req domain.ManualEntryRequest
		if err := dec.Decode(&req); err != nil || len(req.Data) == 0 {
			writeError(w, http.StatusBadRequest, "Invalid data format")
			return
		}

		result, err := svc.SaveManual(ctx, OwnerIDFromContext(ctx), req.Data)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}

func listRecordsHandler(svc *service.IngestionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/data")
		defer span.End()

		records, err := svc.ListRecords(ctx, OwnerIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, records)
	}
}

// ============================================================
// Dashboard
// ============================================================

func dashboardHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/data/dashboard")
		defer span.End()

		year := 0
		if v := r.URL.Query().Get("year"); v != "" {
			y, err := strconv.Atoi(v)
			if err != nil || y < 1 || y > 9999 {
				writeError(w, http.StatusBadRequest, "year must be a valid calendar year")
				return
			}
			year = y
		}

		summary, err := svc.Summarize(ctx, OwnerIDFromContext(ctx), year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, summary)
	}
}
