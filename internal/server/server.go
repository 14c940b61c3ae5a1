// Package server exposes the comparison pipeline over HTTP. It owns request
// framing and translating the error taxonomy into transport responses; the
// pipeline itself stays transport-agnostic.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/bidwise/rfp-analyzer/internal/ai"
	"github.com/bidwise/rfp-analyzer/internal/apperr"
	"github.com/bidwise/rfp-analyzer/internal/pipeline"
)

const maxUploadBytes = 32 << 20

// Runner runs one comparison request.
type Runner interface {
	Run(ctx context.Context, rfp, proposal pipeline.Input) (*ai.ComparisonResult, error)
}

// Server handles analyze requests over HTTP.
type Server struct {
	runner Runner
	logger *zap.Logger
}

func New(runner Runner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{runner: runner, logger: logger}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/analyze", s.handleAnalyze)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintln(w, "ok")
}

// uploadMeta holds optional form fields that override the uploaded filenames
// as document names.
type uploadMeta struct {
	RFPName      string `mapstructure:"rfp_name"`
	ProposalName string `mapstructure:"proposal_name"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, apperr.Input(err, "parsing multipart form"))
		return
	}

	rfp, err := readPart(r, "rfp_file")
	if err != nil {
		s.writeError(w, err)
		return
	}

	proposal, err := readPart(r, "proposal_file")
	if err != nil {
		s.writeError(w, err)
		return
	}

	meta, err := decodeMeta(r.MultipartForm)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if meta.RFPName != "" {
		rfp.Name = meta.RFPName
	}
	if meta.ProposalName != "" {
		proposal.Name = meta.ProposalName
	}

	s.logger.Info("analyze request",
		zap.String("rfp", rfp.Name),
		zap.String("proposal", proposal.Name),
	)

	result, err := s.runner.Run(r.Context(), rfp, proposal)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Warn("writing analyze response", zap.Error(err))
	}
}

func readPart(r *http.Request, field string) (pipeline.Input, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return pipeline.Input{}, apperr.Inputf("missing %q file field", field)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return pipeline.Input{}, apperr.Input(err, fmt.Sprintf("reading %q upload", field))
	}

	return pipeline.Input{Name: header.Filename, Raw: raw}, nil
}

func decodeMeta(form *multipart.Form) (*uploadMeta, error) {
	values := map[string]any{}
	if form != nil {
		for key, list := range form.Value {
			if len(list) > 0 {
				values[key] = list[0]
			}
		}
	}

	var meta uploadMeta
	if err := mapstructure.Decode(values, &meta); err != nil {
		return nil, apperr.Input(err, "decoding form fields")
	}
	return &meta, nil
}

// writeError maps the error taxonomy onto HTTP statuses: input problems are
// client-correctable, missing indexes are not found, upstream model failures
// are bad gateways, everything else is internal.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kindName := "internal"

	if kind, ok := apperr.KindOf(err); ok {
		kindName = kind.String()
		switch kind {
		case apperr.KindInput:
			status = http.StatusBadRequest
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindDependency, apperr.KindSchema:
			status = http.StatusBadGateway
		case apperr.KindConfig:
			status = http.StatusInternalServerError
		}
	}

	s.logger.Warn("analyze request failed",
		zap.String("kind", kindName),
		zap.Int("status", status),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  kindName,
		"detail": err.Error(),
	})
}
