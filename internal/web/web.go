// Package web serves the prediction log over HTTP: a single page listing
// today's picks, plus a health endpoint.
package web

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/pucksense/nhlbets/internal/hockey"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PredictionReader is the slice of the store the server reads.
type PredictionReader interface {
	PredictionsByDate(date time.Time) ([]hockey.Prediction, error)
}

// Server renders the prediction page.
type Server struct {
	reader PredictionReader
	log    *logrus.Logger
	tmpl   *template.Template
	now    func() time.Time
}

// NewServer builds a Server. The embedded template parses at startup so a
// broken template fails the boot, not the first request.
func NewServer(reader PredictionReader, log *logrus.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &Server{
		reader: reader,
		log:    log,
		tmpl:   tmpl,
		now:    time.Now,
	}, nil
}

// Router wires the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return r
}

type indexData struct {
	Date        string
	Predictions []hockey.Prediction
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	today := hockey.DateOnly(s.now().UTC())
	preds, err := s.reader.PredictionsByDate(today)
	if err != nil {
		s.log.WithError(err).Error("loading predictions")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data := indexData{
		Date:        today.Format("2006-01-02"),
		Predictions: preds,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html.tmpl", data); err != nil {
		s.log.WithError(err).Error("rendering prediction page")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
