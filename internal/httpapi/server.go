package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelbridge/internal/envelope"
	"modelbridge/internal/wire"
	"modelbridge/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *session.Controller satisfies it.
type Service interface {
	Complete(ctx context.Context, turns []types.ChatTurn, opts types.GenerationOptions, tools []types.ToolSpec, onToken func(string)) (types.CompletionResult, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Init(ctx context.Context, modelID string, contextSize int) error
	Download(ctx context.Context, modelID string, onProgress func(float64)) error
	Stop()
	Reset(ctx context.Context) error
	Destroy(ctx context.Context) error
	GetModels(ctx context.Context, forceRefresh bool) ([]types.Model, error)
	State() types.SessionState
	Ready() bool
}

// completeRequest carries the wire payloads verbatim; they are handed to the
// tolerant parsers rather than decoded here.
type completeRequest struct {
	Messages json.RawMessage `json:"messages"`
	Options  json.RawMessage `json:"options"`
	Tools    json.RawMessage `json:"tools"`
	Stream   bool            `json:"stream"`
}

// malformedHeader lists fields the parsers skipped while keeping the rest of
// the payload.
const malformedHeader = "X-Malformed-Fields"

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if c := settings.CORS; c.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: c.Origins,
			AllowedMethods: c.Methods,
			AllowedHeaders: c.Headers,
			ExposedHeaders: []string{malformedHeader, "X-Request-Id"},
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/complete", completeHandler(svc))
		r.Post("/embed", embedHandler(svc))
		r.Post("/init", initHandler(svc))
		r.Post("/download", downloadHandler(svc))
		r.Post("/stop", func(w http.ResponseWriter, r *http.Request) {
			svc.Stop()
			writeJSON(w, http.StatusAccepted, map[string]any{"success": true})
		})
		r.Post("/reset", lifecycleHandler("reset", svc.Reset))
		r.Delete("/session", lifecycleHandler("destroy", svc.Destroy))
		r.Get("/models", modelsHandler(svc))
		r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.State())
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not initialized"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// completeHandler godoc
// @Summary      Run a chat completion
// @Description  Parses messages, options and tools with the tolerant wire parsers and runs one generation. With "stream": true the response is NDJSON: one {"token":...} line per token followed by the completion envelope.
// @Tags         session
// @Accept       json
// @Produce      json
// @Success      200  {string}  string  "completion envelope"
// @Failure      400  {string}  string  "error envelope"
// @Failure      409  {string}  string  "error envelope"
// @Router       /v1/complete [post]
func completeHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, "complete")
		var req completeRequest
		if !decodeJSON(w, r, &req) {
			logEnd(r, lvl, "complete", http.StatusBadRequest, start, errors.New("invalid body"))
			return
		}
		turns, opts, tools, perr := parseCompletePayload(req)
		if len(turns) == 0 {
			if perr == nil {
				perr = wire.ErrMalformedPayload("messages", "no chat turns")
			}
			writeErrorEnvelope(w, http.StatusBadRequest, perr.Error())
			logEnd(r, lvl, "complete", http.StatusBadRequest, start, perr)
			return
		}
		if fields := wire.MalformedFields(perr); len(fields) > 0 {
			w.Header().Set(malformedHeader, strings.Join(fields, ","))
		}
		stream := req.Stream || r.URL.Query().Get("stream") == "1"

		ctx, cancel := handlerContext(r, settings.CompleteTimeout)
		defer cancel()

		var nd *ndjsonWriter
		var onToken func(string)
		if stream {
			nd = newNDJSON(w, "complete")
			onToken = func(tok string) {
				line := envelope.RenderToken(tok)
				logToken(r, lvl, line)
				nd.line(line)
			}
		}
		res, err := svc.Complete(ctx, turns, opts, tools, onToken)
		if err != nil {
			// Client went away; nobody is left to answer.
			if r.Context().Err() != nil {
				return
			}
			status := statusFor(err)
			if nd != nil && nd.started {
				nd.line(envelope.RenderError(err.Error()))
			} else {
				writeErrorEnvelope(w, status, err.Error())
			}
			logEnd(r, lvl, "complete", status, start, err)
			return
		}
		body := envelope.RenderCompletion(res)
		if nd != nil {
			nd.line(body)
		} else {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, body+"\n")
		}
		logEnd(r, lvl, "complete", http.StatusOK, start, nil)
	}
}

// parseCompletePayload runs the wire parsers over the raw request fields.
// Absent options and tools keep their defaults.
func parseCompletePayload(req completeRequest) ([]types.ChatTurn, types.GenerationOptions, []types.ToolSpec, error) {
	var errs []error
	turns, err := wire.ParseMessages(rawText(req.Messages))
	if err != nil {
		errs = append(errs, err)
	}
	opts := types.NewGenerationOptions()
	if raw := rawText(req.Options); raw != "" {
		var oerr error
		opts, oerr = wire.ParseOptions(raw)
		if oerr != nil {
			errs = append(errs, oerr)
		}
	}
	var tools []types.ToolSpec
	if raw := rawText(req.Tools); raw != "" {
		var terr error
		tools, terr = wire.ParseTools(raw)
		if terr != nil {
			errs = append(errs, terr)
		}
	}
	return turns, opts, tools, errors.Join(errs...)
}

// rawText returns the payload text of a request field. Producers may send the
// payload inline or as a JSON string holding it.
func rawText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil {
			return inner
		}
	}
	return s
}

// embedHandler godoc
// @Summary  Embed text
// @Tags     session
// @Accept   json
// @Produce  json
// @Param    request  body  types.EmbedRequest  true  "Text to embed"
// @Success  200  {string}  string  "embedding envelope"
// @Router   /v1/embed [post]
func embedHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		start := time.Now()
		var req types.EmbedRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ctx, cancel := handlerContext(r, 0)
		defer cancel()
		vec, err := svc.Embed(ctx, req.Text)
		if err != nil {
			status := statusFor(err)
			writeErrorEnvelope(w, status, err.Error())
			logEnd(r, lvl, "embed", status, start, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(envelope.RenderEmbedding(vec) + "\n"))
		logEnd(r, lvl, "embed", http.StatusOK, start, nil)
	}
}

// initHandler godoc
// @Summary  Bind the native handle for a model
// @Tags     session
// @Accept   json
// @Produce  json
// @Param    request  body  types.InitRequest  true  "Model and context size"
// @Success  200  {object}  types.SessionState
// @Router   /v1/init [post]
func initHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		start := time.Now()
		var req types.InitRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ctx, cancel := handlerContext(r, 0)
		defer cancel()
		if err := svc.Init(ctx, req.Model, req.ContextSize); err != nil {
			status := statusFor(err)
			writeErrorEnvelope(w, status, err.Error())
			logEnd(r, lvl, "init", status, start, err)
			return
		}
		writeJSON(w, http.StatusOK, svc.State())
		logEnd(r, lvl, "init", http.StatusOK, start, nil)
	}
}

// downloadHandler godoc
// @Summary      Download a model
// @Description  Streams NDJSON progress lines {"model":...,"progress":0.00} and ends with {"success":true,"model":...}.
// @Tags         models
// @Accept       json
// @Produce      application/x-ndjson
// @Param        request  body  types.DownloadRequest  true  "Model id"
// @Router       /v1/download [post]
func downloadHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		start := time.Now()
		var req types.DownloadRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ctx, cancel := handlerContext(r, 0)
		defer cancel()
		nd := newNDJSON(w, "download")
		err := svc.Download(ctx, req.Model, func(p float64) {
			nd.line(envelope.RenderProgress(req.Model, p))
		})
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			status := statusFor(err)
			if nd.started {
				nd.line(envelope.RenderError(err.Error()))
			} else {
				writeErrorEnvelope(w, status, err.Error())
			}
			logEnd(r, lvl, "download", status, start, err)
			return
		}
		done, _ := json.Marshal(map[string]any{"success": true, "model": req.Model})
		nd.line(string(done))
		logEnd(r, lvl, "download", http.StatusOK, start, nil)
	}
}

// modelsHandler godoc
// @Summary  List the model catalog
// @Tags     models
// @Produce  json
// @Param    refresh  query  bool  false  "Bypass the cached catalog"
// @Success  200  {object}  types.ModelsResponse
// @Router   /v1/models [get]
func modelsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		start := time.Now()
		force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
		models, err := svc.GetModels(r.Context(), force)
		if err != nil {
			status := statusFor(err)
			writeErrorEnvelope(w, status, err.Error())
			logEnd(r, lvl, "models", status, start, err)
			return
		}
		if models == nil {
			models = []types.Model{}
		}
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
		logEnd(r, lvl, "models", http.StatusOK, start, nil)
	}
}

// lifecycleHandler serves reset and destroy, which differ only in the call.
func lifecycleHandler(op string, fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		start := time.Now()
		ctx, cancel := handlerContext(r, 0)
		defer cancel()
		if err := fn(ctx); err != nil {
			status := statusFor(err)
			writeErrorEnvelope(w, status, err.Error())
			logEnd(r, lvl, op, status, start, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		logEnd(r, lvl, op, http.StatusOK, start, nil)
	}
}

// decodeJSON enforces the content type and body limit, writing the error
// envelope itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeErrorEnvelope(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, settings.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeErrorEnvelope(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
