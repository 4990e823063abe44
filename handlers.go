package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/laplace-pym/ndtview/ndt"
)

// newHTTPServer creates the HTTP surface: status and pose endpoints, map
// rendering, trajectory export, coordinate persistence, and lifecycle
// control of the localizer and the feed.
func newHTTPServer(app *App) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		snap := app.State.Snapshot()
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			Localizer string    `json:"localizer"`
			Feed      string    `json:"feed"`
			HasMap    bool      `json:"hasMap"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			Localizer: snap.Localizer,
			Feed:      snap.Feed,
			HasMap:    app.Cloud != nil && app.Cloud.Len() > 0,
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(app.State.Snapshot()); err != nil {
			log.Printf("Error encoding status: %v", err)
		}
	})

	mux.HandleFunc("/pose", func(w http.ResponseWriter, r *http.Request) {
		pose := app.State.Pose()
		if pose == nil {
			http.Error(w, "No pose received yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(pose); err != nil {
			log.Printf("Error encoding pose: %v", err)
		}
	})

	mux.HandleFunc("/log", func(w http.ResponseWriter, r *http.Request) {
		n := 100
		if v := r.URL.Query().Get("n"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 0 {
				http.Error(w, "Invalid n parameter", http.StatusBadRequest)
				return
			}
			n = parsed
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(app.State.LogTail(n)); err != nil {
			log.Printf("Error encoding log tail: %v", err)
		}
	})

	mux.HandleFunc("/map.png", func(w http.ResponseWriter, r *http.Request) {
		if app.Cloud == nil || app.Cloud.Len() == 0 {
			http.Error(w, "No map loaded", http.StatusServiceUnavailable)
			return
		}
		img := app.newRenderer().Render()
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, img); err != nil {
			log.Printf("Error encoding map PNG: %v", err)
		}
	})

	mux.HandleFunc("/map.svg", func(w http.ResponseWriter, r *http.Request) {
		if app.Cloud == nil || app.Cloud.Len() == 0 {
			http.Error(w, "No map loaded", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := app.newVectorRenderer().RenderToSVG(w); err != nil {
			log.Printf("Error rendering map SVG: %v", err)
		}
	})

	mux.HandleFunc("/track.geojson", func(w http.ResponseWriter, r *http.Request) {
		tolerance := 0.0
		if v := r.URL.Query().Get("tolerance"); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil || parsed < 0 {
				http.Error(w, "Invalid tolerance parameter", http.StatusBadRequest)
				return
			}
			tolerance = parsed
		}
		data, err := app.Track.GeoJSON(tolerance)
		if err != nil {
			http.Error(w, "Track export failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write(data)
	})

	mux.HandleFunc("/localizer/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		if err := app.StartLocalizer(); err != nil {
			if errors.Is(err, ndt.ErrAlreadyRunning) {
				http.Error(w, "Localizer already running", http.StatusConflict)
				return
			}
			http.Error(w, fmt.Sprintf("Start failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintln(w, "localizer starting")
	})

	mux.HandleFunc("/localizer/stop", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		// Stopping a running localizer loses the current alignment, so the
		// caller must confirm explicitly.
		if r.URL.Query().Get("confirm") != "1" {
			http.Error(w, "Add ?confirm=1 to stop the localizer", http.StatusBadRequest)
			return
		}
		if err := app.StopLocalizer(); err != nil {
			http.Error(w, fmt.Sprintf("Stop failed: %v", err), http.StatusInternalServerError)
			return
		}
		fmt.Fprintln(w, "localizer stopped")
	})

	mux.HandleFunc("/feed/restart", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		if err := app.RestartFeed(); err != nil {
			http.Error(w, fmt.Sprintf("Feed restart failed: %v", err), http.StatusBadGateway)
			return
		}
		fmt.Fprintln(w, "feed restarted")
	})

	mux.HandleFunc("/gps/save", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
		lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
		alt, errAlt := strconv.ParseFloat(r.URL.Query().Get("alt"), 64)
		if errLon != nil || errLat != nil || errAlt != nil {
			http.Error(w, "lon, lat, and alt query parameters are required", http.StatusBadRequest)
			return
		}

		if err := app.SaveCoordinates(lon, lat, alt); err != nil {
			http.Error(w, fmt.Sprintf("Save failed: %v", err), http.StatusInternalServerError)
			return
		}
		fmt.Fprintln(w, "coordinates saved")
	})

	mux.HandleFunc("/gps/latest", func(w http.ResponseWriter, r *http.Request) {
		rec, ok, err := ndt.ReadLatest(filepath.Dir(app.Config.GPS.LogPath))
		if err != nil {
			http.Error(w, fmt.Sprintf("Read failed: %v", err), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "No coordinates saved yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		out := struct {
			Timestamp string  `json:"timestamp"`
			Lon       float64 `json:"lon"`
			Lat       float64 `json:"lat"`
			Alt       float64 `json:"alt"`
			Roll      float64 `json:"roll"`
			Pitch     float64 `json:"pitch"`
			Yaw       float64 `json:"yaw"`
		}{
			Timestamp: rec.Timestamp.Format(time.RFC3339),
			Lon:       rec.Lon,
			Lat:       rec.Lat,
			Alt:       rec.Alt,
			Roll:      rec.Roll,
			Pitch:     rec.Pitch,
			Yaw:       rec.Yaw,
		}
		if err := json.NewEncoder(w).Encode(out); err != nil {
			log.Printf("Error encoding latest record: %v", err)
		}
	})

	return logRequests(mux)
}

// logRequests logs one tagged line per request
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
