package handlers

import (
	"net/http"

	"github.com/kozaktomas/class-attendance/internal/config"
	"github.com/kozaktomas/class-attendance/internal/database"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse exposes the settings a client needs to capture usable photos
type ConfigResponse struct {
	Tolerance    float64 `json:"tolerance"`
	EmbeddingDim int     `json:"embedding_dim"`
	MinImageDim  int     `json:"min_image_dim"`
	MinFaceDim   int     `json:"min_face_dim"`
	TimeZone     string  `json:"timezone"`
	Storage      string  `json:"storage"`
	Writable     bool    `json:"writable"`
}

// Get returns the public configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	rc := h.config.Recognition
	respondJSON(w, http.StatusOK, ConfigResponse{
		Tolerance:    rc.Tolerance,
		EmbeddingDim: rc.EmbeddingDim,
		MinImageDim:  rc.MinImageDim,
		MinFaceDim:   rc.MinFaceDim,
		TimeZone:     h.config.Attendance.Location().String(),
		Storage:      database.BackendName(),
		Writable:     database.IsInitialized(),
	})
}
