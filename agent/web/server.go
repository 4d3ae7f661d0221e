package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
	requestx "github.com/tanpawarit/hotel-finder/agent/request"
)

//go:embed templates/index.html
var templateFiles embed.FS

const (
	dateLayout     = "2006-01-02"
	defaultAdults  = 2
	maxRequestBody = 64 << 10
)

// Runner runs the crew on a rendered request and returns the final answer.
type Runner interface {
	Run(ctx context.Context, req contractx.RenderedRequest) (string, error)
}

type Server struct {
	runner  Runner
	builder *requestx.Builder
	cfg     Config
	page    *template.Template
	now     func() time.Time
}

func NewServer(runner Runner, builder *requestx.Builder, cfg Config) (*Server, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if builder == nil {
		return nil, errors.New("request builder is required")
	}

	page, err := template.ParseFS(templateFiles, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	return &Server{
		runner:  runner,
		builder: builder,
		cfg:     cfg,
		page:    page,
		now:     time.Now,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /search", s.handleSearchForm)
	mux.HandleFunc("POST /api/search", s.handleSearchAPI)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.withMiddleware(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("web server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown web server: %w", err)
	}
	return <-errCh
}

type pageData struct {
	Placeholder string
	Location    string
	CheckIn     string
	CheckOut    string
	Adults      int
	MinAdults   int
	MaxAdults   int

	Message string
	Result  string
	Failure *failureView
}

type failureView struct {
	Notice string
	Cause  string
	Hints  []string
}

func (s *Server) defaultPage() pageData {
	today := s.now()
	return pageData{
		Placeholder: requestx.LocationPlaceholder,
		CheckIn:     today.Format(dateLayout),
		CheckOut:    today.AddDate(0, 0, 1).Format(dateLayout),
		Adults:      defaultAdults,
		MinAdults:   requestx.MinAdults,
		MaxAdults:   requestx.MaxAdults,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, s.defaultPage())
}

func (s *Server) handleSearchForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	data := s.defaultPage()
	data.Location = r.PostFormValue("location")
	data.CheckIn = r.PostFormValue("check_in")
	data.CheckOut = r.PostFormValue("check_out")
	data.Adults, _ = strconv.Atoi(strings.TrimSpace(r.PostFormValue("adults")))

	result, err := s.search(r.Context(), searchInput{
		Location: data.Location,
		CheckIn:  data.CheckIn,
		CheckOut: data.CheckOut,
		Adults:   data.Adults,
	})
	switch {
	case err == nil:
		data.Result = result
		s.renderPage(w, r, http.StatusOK, data)
	case isValidation(err):
		data.Message, _ = validationMessage(err)
		s.renderPage(w, r, http.StatusUnprocessableEntity, data)
	default:
		data.Failure = &failureView{Notice: failureNotice, Cause: err.Error(), Hints: troubleshootingHints}
		s.renderPage(w, r, http.StatusBadGateway, data)
	}
}

type searchInput struct {
	Location string `json:"location"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Adults   int    `json:"adults"`
}

type searchResponse struct {
	Result string `json:"result"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Stage   string   `json:"stage,omitempty"`
	Cause   string   `json:"cause,omitempty"`
	Hints   []string `json:"hints,omitempty"`
}

func (s *Server) handleSearchAPI(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var in searchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_json", Message: err.Error()})
		return
	}

	result, err := s.search(r.Context(), in)
	if err == nil {
		writeJSON(w, http.StatusOK, searchResponse{Result: result})
		return
	}

	if msg, ok := validationMessage(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: validationCode(err), Message: msg})
		return
	}

	resp := errorResponse{
		Error:   "pipeline_execution_failed",
		Message: failureNotice,
		Cause:   err.Error(),
		Hints:   troubleshootingHints,
	}
	var pe *contractx.PipelineError
	if errors.As(err, &pe) {
		resp.Stage = pe.Stage
	}
	writeJSON(w, http.StatusBadGateway, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// search validates the input and blocks on the crew run. Errors are either
// Request Builder failures or a *contractx.PipelineError.
func (s *Server) search(ctx context.Context, in searchInput) (string, error) {
	_, rendered, err := s.builder.Build(requestx.Form{
		Location: in.Location,
		CheckIn:  parseDate(in.CheckIn),
		CheckOut: parseDate(in.CheckOut),
		Adults:   in.Adults,
	})
	if err != nil {
		return "", err
	}

	zerolog.Ctx(ctx).Info().Str("request", rendered.Text).Msg("search submitted")

	result, err := s.runner.Run(ctx, rendered)
	if err != nil {
		if !errors.Is(err, contractx.ErrPipelineExecution) {
			err = contractx.NewPipelineError(contractx.StageOrchestrate, err)
		}
		return "", err
	}
	return result, nil
}

func isValidation(err error) bool {
	_, ok := validationMessage(err)
	return ok
}

// parseDate returns the zero time for input it cannot read, which the
// Request Builder rejects as an invalid date range.
func parseDate(v string) time.Time {
	t, err := time.Parse(dateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("render page")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
