// Package portal serves the HTML configuration page: WiFi credentials, MQTT
// broker and topics, credential wipe, and a live status view. It renders
// forms and parses them; applying the values is delegated to the Applier.
package portal

import (
	"context"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/wjvent/gate-controller/internal/creds"
	"github.com/wjvent/gate-controller/internal/status"
)

// Applier carries portal actions into the rest of the daemon. The portal
// itself never touches storage, the radio, or the broker connection.
type Applier interface {
	// Current returns the values shown in the forms.
	Current(ctx context.Context) (creds.WiFi, creds.MQTT, creds.Mode, error)
	// ApplyWiFi saves credentials and starts a connection attempt.
	ApplyWiFi(ctx context.Context, w creds.WiFi) error
	// ApplyMQTT saves the broker configuration and restarts the MQTT link.
	// Empty fields leave the stored value unchanged.
	ApplyMQTT(ctx context.Context, m creds.MQTT) error
	// Wipe erases all credentials and requests a restart into config mode.
	Wipe(ctx context.Context) error
}

// Server serves the configuration portal.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	applier    Applier
	log        *zap.Logger

	mu      sync.Mutex
	message string
}

// New creates a Server.
func New(addr string, tracker *status.Tracker, applier Applier, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		tracker: tracker,
		applier: applier,
		log:     log,
		message: "Enter WiFi and MQTT parameters, then save.",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status.json", s.handleJSON)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) setMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

func (s *Server) currentMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("wipe") == "1" {
			s.handleWipe(w, r)
			return
		}
		s.render(w, r)
	case http.MethodPost:
		s.handleApply(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	wifi, mq, mode, err := s.applier.Current(r.Context())
	if err != nil {
		s.log.Error("load current config", zap.Error(err))
		http.Error(w, "config unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, pageData{
		Message:  s.currentMessage(),
		WiFi:     wifi,
		MQTT:     mq,
		Mode:     mode.String(),
		Snapshot: s.tracker.Snapshot(),
	})
}

// handleApply processes the act=wifi and act=mqtt forms and redirects back
// to the page (POST-redirect-GET).
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	switch r.PostForm.Get("act") {
	case "wifi":
		ssid := r.PostForm.Get("ssid")
		if ssid == "" {
			s.setMessage("SSID is empty. Enter a valid SSID.")
			break
		}
		cred := creds.WiFi{SSID: ssid, Passphrase: r.PostForm.Get("pass")}
		if err := s.applier.ApplyWiFi(r.Context(), cred); err != nil {
			s.log.Error("apply wifi", zap.Error(err))
			s.setMessage("Saving WiFi settings failed: " + err.Error())
			break
		}
		s.setMessage("WiFi saved. Connecting to '" + ssid + "'...")
	case "mqtt":
		m := creds.MQTT{
			Broker:         r.PostForm.Get("broker"),
			CommandTopic:   r.PostForm.Get("t1"),
			StatusTopic:    r.PostForm.Get("t2"),
			TelemetryTopic: r.PostForm.Get("t3"),
		}
		if err := s.applier.ApplyMQTT(r.Context(), m); err != nil {
			s.log.Error("apply mqtt", zap.Error(err))
			s.setMessage("Saving MQTT settings failed: " + err.Error())
			break
		}
		s.setMessage("MQTT parameters updated.")
	default:
		s.setMessage("Unknown action.")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleWipe(w http.ResponseWriter, r *http.Request) {
	if err := s.applier.Wipe(r.Context()); err != nil {
		s.log.Error("wipe credentials", zap.Error(err))
		http.Error(w, "wipe failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<html><body><h3>Credentials erased.</h3><p>Restarting...</p></body></html>"))
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}
