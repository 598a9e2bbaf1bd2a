// Package server exposes the predictor over HTTP for UI and advisory
// collaborators. It serves the prediction object only; rendering,
// maps and knowledge-base lookups live in those collaborators.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/wqzhao/snakeid/internal/classes"
	"github.com/wqzhao/snakeid/internal/predictor"
	"github.com/wqzhao/snakeid/internal/preprocess"
)

// maxUploadBytes caps the multipart form size for image uploads.
const maxUploadBytes = 10 << 20

// Server handles prediction requests against one loaded model.
type Server struct {
	pred        *predictor.Predictor
	reg         *classes.Registry
	defaultTopK int
	log         *zap.Logger
}

// New builds a server around a ready predictor.
func New(pred *predictor.Predictor, reg *classes.Registry, defaultTopK int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultTopK < 1 {
		defaultTopK = 1
	}
	return &Server{pred: pred, reg: reg, defaultTopK: defaultTopK, log: log}
}

// Routes returns the HTTP handler with CORS enabled on every route.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.cors(s.health))
	mux.HandleFunc("/predict", s.cors(s.predict))
	return mux
}

func (s *Server) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// predictResponse is the wire shape consumed by the map and advisory
// panels: the best class plus the full ranked list.
type predictResponse struct {
	Class       string            `json:"class"`
	Confidence  float32           `json:"confidence"`
	Predictions []predictor.Score `json:"predictions"`
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()

	topK := s.defaultTopK
	if v := r.FormValue("top_k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "top_k must be an integer", http.StatusBadRequest)
			return
		}
		topK = k
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read image", http.StatusBadRequest)
		return
	}

	s.log.Info("prediction request",
		zap.String("file", header.Filename),
		zap.Int64("bytes", header.Size),
		zap.Int("top_k", topK))

	sample := preprocess.Sample{Path: header.Filename, Data: data, Label: -1}
	pred, err := s.pred.PredictOne(sample, topK)
	switch {
	case errors.Is(err, predictor.ErrInvalidTopK):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, predictor.ErrPreprocessingFailed):
		http.Error(w, "Invalid image format. Supported: JPEG, PNG, GIF, WebP", http.StatusBadRequest)
		return
	case err != nil:
		s.log.Error("prediction failed", zap.Error(err))
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	top := pred.Top()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(predictResponse{
		Class:       top.Label.CommonName,
		Confidence:  top.Probability,
		Predictions: pred.TopK,
	})
}
