package alertsink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/sentrylab/vigil/pkg/logger"
)

// Request size limits.
const (
	maxAlertBody = 64 << 10
	maxImageBody = 20 << 20
)

// Server exposes the alert ingestion routes consumed by the pipeline's
// dispatcher.
type Server struct {
	relay  Relay
	logger logger.Logger
}

// NewServer creates an alert sink server relaying through relay.
func NewServer(relay Relay) *Server {
	return &Server{
		relay:  relay,
		logger: logger.Get().Named("alertsink"),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/send_alert", s.handleSendAlert)
	mux.HandleFunc("/send_image", s.handleSendImage)
	mux.HandleFunc("/health", s.handleHealth)
}

// alertRequest mirrors the /send_alert body.
type alertRequest struct {
	Message string `json:"message"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleSendAlert handles POST /send_alert requests.
func (s *Server) handleSendAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeStatus(w, http.StatusMethodNotAllowed, "error", "method not allowed")
		return
	}

	var req alertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAlertBody)).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest, "error", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeStatus(w, http.StatusBadRequest, "error", "message must not be empty")
		return
	}

	if err := s.relay.SendMessage(r.Context(), req.Message); err != nil {
		s.logger.Error(r.Context(), "failed to relay alert",
			logger.String("message", req.Message),
			logger.Error(err),
		)
		writeStatus(w, http.StatusInternalServerError, "error", "failed to send alert")
		return
	}

	s.logger.Info(r.Context(), "alert relayed", logger.String("message", req.Message))
	writeStatus(w, http.StatusOK, "success", "Alert sent successfully.")
}

// handleSendImage handles POST /send_image requests. The image arrives
// as a multipart file field; the caption as a form field or query
// parameter. Non-image uploads are rejected.
func (s *Server) handleSendImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeStatus(w, http.StatusMethodNotAllowed, "error", "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBody)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeStatus(w, http.StatusBadRequest, "error", "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, "error", "unreadable file")
		return
	}
	if len(data) == 0 {
		writeStatus(w, http.StatusBadRequest, "error", "empty file")
		return
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		writeStatus(w, http.StatusUnsupportedMediaType, "error", "file is not an image")
		return
	}

	caption := r.FormValue("caption")
	if caption == "" {
		caption = r.URL.Query().Get("caption")
	}

	if err := s.relay.SendPhoto(r.Context(), caption, data); err != nil {
		s.logger.Error(r.Context(), "failed to relay image",
			logger.String("filename", header.Filename),
			logger.Int("bytes", len(data)),
			logger.Error(err),
		)
		writeStatus(w, http.StatusInternalServerError, "error", "failed to send image")
		return
	}

	s.logger.Info(r.Context(), "image relayed",
		logger.String("filename", header.Filename),
		logger.Int("bytes", len(data)),
	)
	writeStatus(w, http.StatusOK, "success", "Image sent successfully.")
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeStatus(w, http.StatusMethodNotAllowed, "error", "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func writeStatus(w http.ResponseWriter, code int, status, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(statusResponse{Status: status, Message: message})
}
