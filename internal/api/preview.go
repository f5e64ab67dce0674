package api

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// registerPreviewRoutes registers the MJPEG preview stream. This is a raw
// mux handler: multipart streaming does not fit Huma's response model.
func (s *Server) registerPreviewRoutes() {
	s.mux.HandleFunc("GET /api/preview", s.handlePreview)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !s.previewAuthorized(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="Camera Control API"`)
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	if s.hub == nil {
		http.Error(w, "Preview not available", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	const boundary = "frame"
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	frames, cancel := s.hub.Subscribe()
	defer cancel()

	s.logger.Debug("Preview client connected", "remote_addr", r.RemoteAddr)
	defer s.logger.Debug("Preview client disconnected", "remote_addr", r.RemoteAddr)

	// Replay the last frame so the client shows an image before the next
	// one arrives.
	if last := s.hub.LastFrame(); last != nil {
		if err := writeFrame(w, boundary, last); err != nil {
			return
		}
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := writeFrame(w, boundary, frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, boundary string, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}

// previewAuthorized validates basic auth for the raw preview handler, which
// sits outside the Huma middleware chain.
func (s *Server) previewAuthorized(r *http.Request) bool {
	if s.options.AuthUsername == "" || s.options.AuthPassword == "" {
		return true
	}

	if user, pass, ok := r.BasicAuth(); ok {
		return user == s.options.AuthUsername && pass == s.options.AuthPassword
	}

	// Image tags cannot set headers, accept ?auth=<base64> too.
	if queryAuth := r.URL.Query().Get("auth"); queryAuth != "" {
		decoded, err := base64.StdEncoding.DecodeString(queryAuth)
		if err != nil {
			return false
		}
		parts := strings.SplitN(string(decoded), ":", 2)
		return len(parts) == 2 &&
			parts[0] == s.options.AuthUsername && parts[1] == s.options.AuthPassword
	}

	return false
}
