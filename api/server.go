package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sashashura/netbox"
	"github.com/sashashura/netbox/domain"
)

// Server exposes the application over HTTP.
type Server struct {
	app     *netbox.App
	logger  zerolog.Logger
	token   string // Static bearer token; empty disables auth.
	router  *chi.Mux
	metrics *metrics
}

// NewServer builds the router with the full middleware stack and route set.
func NewServer(app *netbox.App) *Server {
	s := &Server{
		app:    app,
		logger: app.Logger,
	}
	if app.Config != nil {
		s.token = app.Config.AuthToken
	}
	s.metrics = newMetrics(s)
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(s.metrics.middleware)
	r.Use(writeLimit(httprate.Limit(600, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))))

	compressor := chimiddleware.NewCompressor(5, "application/json", "image/svg+xml", "text/csv")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	r.Use(compressor.Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", s.metrics.handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/status", s.status)

		r.Route("/dcim", func(r chi.Router) {
			r.Route("/sites", func(r chi.Router) {
				r.Get("/", s.listSites)
				r.Post("/", s.createSite)
				r.Get("/{id}", s.getSite)
				r.Put("/{id}", s.updateSite)
				r.Delete("/{id}", s.deleteSite)
			})
			r.Route("/racks", func(r chi.Router) {
				r.Get("/", s.listRacks)
				r.Post("/", s.createRack)
				r.Get("/{id}", s.getRack)
				r.Put("/{id}", s.updateRack)
				r.Delete("/{id}", s.deleteRack)
				r.Get("/{id}/elevation", s.rackElevation)
				r.Get("/{id}/reservations", s.listRackReservations)
				r.Post("/{id}/reservations", s.createRackReservation)
			})
			r.Delete("/rack-reservations/{id}", s.deleteRackReservation)
			r.Route("/device-types", func(r chi.Router) {
				r.Get("/", s.listDeviceTypes)
				r.Post("/", s.createDeviceType)
				r.Post("/import", s.importDeviceType)
				r.Get("/{id}", s.getDeviceType)
				r.Put("/{id}", s.updateDeviceType)
				r.Delete("/{id}", s.deleteDeviceType)
			})
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.listDevices)
				r.Post("/", s.createDevice)
				r.Get("/{id}", s.getDevice)
				r.Put("/{id}", s.updateDevice)
				r.Delete("/{id}", s.deleteDevice)
			})
			r.Route("/interfaces", func(r chi.Router) {
				r.Get("/", s.listInterfaces)
				r.Post("/", s.createInterface)
				r.Get("/{id}", s.getInterface)
				r.Put("/{id}", s.updateInterface)
				r.Delete("/{id}", s.deleteInterface)
				r.Get("/{id}/trace", s.traceInterface)
				r.Get("/{id}/connected-device", s.connectedDevice)
			})
			r.Get("/connected-device", s.connectedDeviceByName)
			r.Route("/cables", func(r chi.Router) {
				r.Get("/", s.listCables)
				r.Post("/", s.createCable)
				r.Get("/{id}", s.getCable)
				r.Put("/{id}", s.updateCable)
				r.Delete("/{id}", s.deleteCable)
			})
		})

		r.Route("/ipam", func(r chi.Router) {
			r.Route("/prefixes", func(r chi.Router) {
				r.Get("/", s.listPrefixes)
				r.Post("/", s.createPrefix)
				r.Get("/{id}", s.getPrefix)
				r.Put("/{id}", s.updatePrefix)
				r.Delete("/{id}", s.deletePrefix)
				r.Get("/{id}/available-prefixes", s.availablePrefixes)
				r.Post("/{id}/available-prefixes", s.allocatePrefix)
				r.Get("/{id}/available-ips", s.availableIPs)
				r.Post("/{id}/available-ips", s.allocateIP)
				r.Get("/{id}/utilization", s.prefixUtilization)
			})
			r.Route("/ip-addresses", func(r chi.Router) {
				r.Get("/", s.listIPAddresses)
				r.Post("/", s.createIPAddress)
				r.Get("/{id}", s.getIPAddress)
				r.Put("/{id}", s.updateIPAddress)
				r.Delete("/{id}", s.deleteIPAddress)
			})
			r.Route("/vlans", func(r chi.Router) {
				r.Get("/", s.listVLANs)
				r.Post("/", s.createVLAN)
				r.Get("/{id}", s.getVLAN)
				r.Put("/{id}", s.updateVLAN)
				r.Delete("/{id}", s.deleteVLAN)
			})
		})

		r.Route("/virtualization", func(r chi.Router) {
			r.Route("/clusters", func(r chi.Router) {
				r.Get("/", s.listClusters)
				r.Post("/", s.createCluster)
				r.Get("/{id}", s.getCluster)
				r.Put("/{id}", s.updateCluster)
				r.Delete("/{id}", s.deleteCluster)
			})
			r.Route("/virtual-machines", func(r chi.Router) {
				r.Get("/", s.listVirtualMachines)
				r.Post("/", s.createVirtualMachine)
				r.Get("/{id}", s.getVirtualMachine)
				r.Put("/{id}", s.updateVirtualMachine)
				r.Delete("/{id}", s.deleteVirtualMachine)
			})
		})

		r.Route("/extras", func(r chi.Router) {
			r.Get("/changelog", s.listChanges)
			r.Route("/webhooks", func(r chi.Router) {
				r.Get("/", s.listWebhooks)
				r.Post("/", s.createWebhook)
				r.Get("/{id}", s.getWebhook)
				r.Put("/{id}", s.updateWebhook)
				r.Delete("/{id}", s.deleteWebhook)
			})
			r.Route("/scripts", func(r chi.Router) {
				r.Get("/", s.listScripts)
				r.Post("/", s.createScript)
				r.Get("/{id}", s.getScript)
				r.Put("/{id}", s.updateScript)
				r.Delete("/{id}", s.deleteScript)
				r.Post("/{id}/run", s.runScript)
			})
			r.Route("/image-attachments", func(r chi.Router) {
				r.Get("/", s.listAttachments)
				r.Post("/", s.createAttachment)
				r.Get("/{id}", s.getAttachment)
				r.Delete("/{id}", s.deleteAttachment)
			})
		})

		r.Post("/import/{kind}", s.importCSV)
	})

	return r
}

// status summarizes the instance: per-kind object counts and the number of
// webhook deliveries dropped since start.
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":                     "ok",
		"webhook_deliveries_dropped": s.app.Webhooks.Dropped(),
	}
	if counter, ok := s.app.Repo.(objectCounter); ok {
		counts, err := counter.CountObjects()
		if err != nil {
			s.writeError(w, err)
			return
		}
		objects := make(map[string]int, len(counts))
		for kind, count := range counts {
			objects[string(kind)] = count
		}
		body["objects"] = objects
	}
	writeJSON(w, http.StatusOK, body)
}

// writeLimit applies the rate limiter to mutating methods only; reads pass
// through unthrottled.
func writeLimit(limit func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
				limited.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// requestLogger emits one structured log line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(wrapped, r)

		s.logger.Info().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}

// authenticate enforces the static bearer token on /api routes. An empty
// configured token disables authentication.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.token {
			writeErrorStatus(w, http.StatusUnauthorized, errors.New("missing or invalid bearer token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actor names the writer recorded in changelog entries.
func (s *Server) actor(r *http.Request) string {
	if s.token != "" {
		return "api-token"
	}
	return "anonymous"
}

// commit runs the write pipeline around a repository mutation: validator
// scripts first, then the write, then the changelog entry with its hook and
// webhook fan-out. A rejected or failed validation leaves the store
// untouched.
func (s *Server) commit(r *http.Request, kind domain.ObjectKind, objectID uuid.UUID,
	action domain.ChangeAction, pre, post any, write func() error) error {

	change, err := netbox.NewChange(kind, objectID, action, s.actor(r), pre, post)
	if err != nil {
		return err
	}
	if err := s.app.ValidateChange(change); err != nil {
		return err
	}
	if err := write(); err != nil {
		return err
	}
	return s.app.Record(change)
}
