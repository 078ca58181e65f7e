package graph

import (
	"context"
	"net"
	"net/http"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// maxBodyBytes ограничивает размер тела запроса.
const maxBodyBytes = 1 << 20

// Limiter ограничивает частоту мутаций для клиента.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Handler - GraphQL-сервер gqlgen с ограничением частоты мутаций.
type Handler struct {
	srv     *handler.Server
	limiter Limiter
	log     zerolog.Logger
}

// NewHandler собирает обработчик. limiter может быть nil.
func NewHandler(r *Resolver, limiter Limiter) *Handler {
	h := &Handler{
		limiter: limiter,
		log:     r.Log.With().Str("component", "graphql").Logger(),
	}

	srv := handler.New(NewExecutor(Schema(), r))
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})
	srv.SetQueryCache(lru.New(1000))
	srv.Use(extension.Introspection{})
	srv.Use(extension.AutomaticPersistedQuery{
		Cache: lru.New(100),
	})
	srv.SetErrorPresenter(h.presentError)
	srv.SetRecoverFunc(h.recoverPanic)
	srv.AroundOperations(h.limitMutations)

	h.srv = srv
	return h
}

type stateKey struct{}

// requestState - данные HTTP-запроса, нужные внутри операции.
type requestState struct {
	clientIP string
	limited  bool
}

func stateFrom(ctx context.Context) *requestState {
	s, _ := ctx.Value(stateKey{}).(*requestState)
	return s
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	state := &requestState{clientIP: clientIP(r)}
	ctx := context.WithValue(r.Context(), stateKey{}, state)
	h.srv.ServeHTTP(&statusWriter{ResponseWriter: w, state: state}, r.WithContext(ctx))
}

// limitMutations пропускает мутацию, только если лимитер разрешил её для клиента.
func (h *Handler) limitMutations(ctx context.Context, next graphql.OperationHandler) graphql.ResponseHandler {
	oc := graphql.GetOperationContext(ctx)
	if oc.Operation == nil || oc.Operation.Operation != ast.Mutation || h.allow(ctx) {
		return next(ctx)
	}

	if state := stateFrom(ctx); state != nil {
		state.limited = true
	}
	return graphql.OneShot(&graphql.Response{
		Errors: gqlerror.List{{
			Message:    "rate limit exceeded",
			Extensions: map[string]interface{}{"code": codeRateLimited},
		}},
	})
}

// allow спрашивает лимитер. Сбой лимитера не блокирует запрос.
func (h *Handler) allow(ctx context.Context) bool {
	if h.limiter == nil {
		return true
	}
	var key string
	if state := stateFrom(ctx); state != nil {
		key = state.clientIP
	}
	allowed, err := h.limiter.Allow(ctx, key)
	if err != nil {
		h.log.Warn().Err(err).Str("request_id", requestID(ctx)).Msg("rate limiter unavailable, allowing request")
		return true
	}
	return allowed
}

// statusWriter отдает 429 вместо 200, если операция отклонена лимитером.
type statusWriter struct {
	http.ResponseWriter
	state       *requestState
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if w.state.limited && code == http.StatusOK {
		code = http.StatusTooManyRequests
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// clientIP берет адрес из RemoteAddr, который уже выставлен middleware.RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
