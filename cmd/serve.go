package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbanclimate-lab/lczmap/internal/lcz"
	"github.com/urbanclimate-lab/lczmap/internal/pipeline"
	"github.com/urbanclimate-lab/lczmap/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		mux := buildMux(env)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown. The signal context is already canceled here, so
		// drain on a fresh deadline instead.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// analyzeRequest is the POST /api/analyze body. Either place or bbox
// (min lon, min lat, max lon, max lat) identifies the area.
type analyzeRequest struct {
	Place  string    `json:"place"`
	BBox   []float64 `json:"bbox,omitempty"`
	Factor int       `json:"factor"`
}

// buildMux assembles the API routes. env may be nil in tests; the analysis
// and run endpoints then report the service unavailable.
func buildMux(env *pipelineEnv) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/classes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, lcz.All())
	})

	mux.HandleFunc("POST /api/analyze", func(w http.ResponseWriter, r *http.Request) {
		if env == nil || env.Pipeline == nil {
			http.Error(w, `{"error":"pipeline unavailable"}`, http.StatusServiceUnavailable)
			return
		}

		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		boundary, err := boundaryFromRequest(req)
		if err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
			return
		}

		factor := req.Factor
		if factor == 0 {
			factor = cfg.Aggregate.Factor
		}

		result, err := env.Pipeline.Run(r.Context(), pipeline.Request{
			Boundary: boundary,
			Factor:   factor,
		})
		if err != nil {
			zap.L().Error("api analysis failed",
				zap.String("boundary", boundary.Label()),
				zap.Error(err),
			)
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusUnprocessableEntity)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})

	mux.HandleFunc("GET /api/runs", func(w http.ResponseWriter, r *http.Request) {
		if env == nil || env.Store == nil {
			http.Error(w, `{"error":"store unavailable"}`, http.StatusServiceUnavailable)
			return
		}

		runs, err := env.Store.ListRuns(r.Context(), store.RunFilter{
			Status: store.RunStatus(r.URL.Query().Get("status")),
			Place:  r.URL.Query().Get("place"),
			Limit:  50,
		})
		if err != nil {
			http.Error(w, `{"error":"list runs failed"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	mux.HandleFunc("GET /api/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if env == nil || env.Store == nil {
			http.Error(w, `{"error":"store unavailable"}`, http.StatusServiceUnavailable)
			return
		}

		run, err := env.Store.GetRun(r.Context(), r.PathValue("id"))
		if err != nil {
			http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	return mux
}

// boundaryFromRequest maps the request body onto a boundary source. A bbox
// wins over a place name when both are present.
func boundaryFromRequest(req analyzeRequest) (pipeline.BoundarySource, error) {
	if len(req.BBox) > 0 {
		if len(req.BBox) != 4 {
			return nil, eris.New("bbox must be [min lon, min lat, max lon, max lat]")
		}
		minX, minY, maxX, maxY := req.BBox[0], req.BBox[1], req.BBox[2], req.BBox[3]
		if minX >= maxX || minY >= maxY {
			return nil, eris.New("bbox is empty")
		}
		poly := geom.NewPolygon(geom.XY)
		if _, err := poly.SetCoords([][]geom.Coord{{
			{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
		}}); err != nil {
			return nil, eris.Wrap(err, "bbox polygon")
		}
		return pipeline.BoundaryPolygon{Geom: poly, CRS: "EPSG:4326"}, nil
	}
	if req.Place == "" {
		return nil, eris.New("place or bbox is required")
	}
	return pipeline.PlaceName{Name: req.Place}, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
