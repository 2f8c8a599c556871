package groupme

import (
	"GroupMeBot/internal/app/relay"
	"GroupMeBot/internal/service/events"
	"GroupMeBot/internal/service/gate"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cmd/server работает с сервером через events.EventServer
var _ events.EventServer = (*CallbackServer)(nil)

const (
	CallbackPath = "/callback"
	HealthPath   = "/health"

	maxBodyBytes = 1 << 20
)

// Config параметры сервера вебхуков.
type Config struct {
	BindAddr  string
	BotName   string
	BotIDSet  bool
	APIKeySet bool
	// HandlerTimeout — максимальное время обработки одного вебхука
	// (запрос к модели плюс отправка ответа). Им же ограничено ожидание при остановке.
	HandlerTimeout time.Duration
}

// HandlerBudget возвращает время на обработку вебхука с запасом на чтение тела и запись ответа.
func HandlerBudget(completion, notify time.Duration) time.Duration {
	return completion + notify + 5*time.Second
}

// GroupCounter сообщает число отслеживаемых групп для /health.
type GroupCounter interface {
	Groups() int
}

// CallbackServer принимает вебхуки GroupMe и отвечает всегда 200,
// чтобы платформа не повторяла доставку.
type CallbackServer struct {
	cfg    Config
	srv    *http.Server
	relay  *relay.Relay
	out    relay.Sender
	groups GroupCounter
	logger *zap.SugaredLogger

	started  atomic.Bool
	addr     atomic.Value // фактический адрес слушателя
	stopOnce sync.Once
	stopErr  error
	served   chan struct{} // закрывается, когда Serve вернулся
}

func NewCallbackServer(cfg Config, rl *relay.Relay, out relay.Sender, groups GroupCounter, logger *zap.SugaredLogger) *CallbackServer {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "0.0.0.0:8000"
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = HandlerBudget(30*time.Second, 10*time.Second)
	}
	s := &CallbackServer{cfg: cfg, relay: rl, out: out, groups: groups, logger: logger, served: make(chan struct{})}

	s.srv = &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// обработка вебхука ждёт ответ модели и отправку в GroupMe
		WriteTimeout: cfg.HandlerTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler возвращает маршруты сервера.
func (s *CallbackServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)
	mux.HandleFunc(HealthPath, s.handleHealth)
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// Start открывает порт и обслуживает запросы в отдельной горутине.
// Отмена ctx запускает остановку; Stop дожидается её завершения.
func (s *CallbackServer) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		s.started.Store(false)
		return fmt.Errorf("callback server listen: %w", err)
	}
	s.addr.Store(ln.Addr().String())

	go func() {
		defer close(s.served)
		s.logger.Infow("CallbackServer listening", "addr", ln.Addr().String(), "path", CallbackPath)
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("CallbackServer stopped with error", "error", err)
		} else {
			s.logger.Infow("CallbackServer stopped")
		}
	}()

	// Watch for context cancellation to stop the server
	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

// Stop ждёт завершения обрабатываемых вебхуков (не дольше HandlerTimeout).
// Повторные и конкурентные вызовы ждут ту же остановку и возвращают её результат.
func (s *CallbackServer) Stop(ctx context.Context) error {
	if !s.started.Load() {
		return nil
	}
	s.stopOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeoutCause(ctx, s.cfg.HandlerTimeout, errors.New("callback-server shutdown timeout"))
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warnw("graceful shutdown error", "error", err)
			s.stopErr = s.srv.Close()
		}
		<-s.served
	})
	return s.stopErr
}

// Addr возвращает адрес слушателя после Start, до него — настроенный.
func (s *CallbackServer) Addr() string {
	if a, ok := s.addr.Load().(string); ok {
		return a
	}
	return s.cfg.BindAddr
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed; use POST", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	log := s.logger.With("request_id", uuid.NewString())

	// ошибка чтения трактуется как пустое тело
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warnw("failed to read body", "error", err)
		body = nil
	}

	var act gate.Action
	if ev, ok := gate.Parse(body); ok {
		log.Infow("Webhook received",
			"sender", ev.Name,
			"type", ev.SenderType,
			"group", ev.GroupID,
			"text", truncate(ev.Text, 100),
		)
		act = gate.Decide(ev)
	} else {
		log.Infow("Received empty or non-JSON payload", "remote", r.RemoteAddr, "bytes", len(body))
		act = gate.Ignore(gate.ReasonMalformed)
	}

	status := s.relay.Handle(r.Context(), act, s.out)
	log.Debugw("Webhook handled", "status", string(status))
	writeJSON(w, map[string]any{"status": status})
}

func (s *CallbackServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed; use GET", http.StatusMethodNotAllowed)
		return
	}
	groups := 0
	if s.groups != nil {
		groups = s.groups.Groups()
	}
	writeJSON(w, map[string]any{
		"status":      "running",
		"bot_name":    s.cfg.BotName,
		"bot_id_set":  s.cfg.BotIDSet,
		"api_key_set": s.cfg.APIKeySet,
		"groups":      groups,
	})
}

func (s *CallbackServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, "<h2>GroupMe AI Bot is running!</h2>")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
