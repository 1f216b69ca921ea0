// Command ingress exposes POST /order: it validates an incoming order
// request (base58 user id, positive price and quantity with at most six
// fractional digits, BUY/SELL side) and pushes it, with its decimal strings
// unchanged, onto ORDER_QUEUE for the matching engine to consume.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/MDub3y/Hybrid-PERP-DEX/internal/config"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/domain"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/fixedpoint"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/obs"
	"github.com/MDub3y/Hybrid-PERP-DEX/internal/queue"
)

type server struct {
	log   *zap.SugaredLogger
	queue *queue.Client
}

func (s *server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.WireOrder
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if _, err := domain.ParseAccountID(req.UserID); err != nil {
		respondError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	if price, err := fixedpoint.FromDecimalString(req.Price); err != nil || price == 0 {
		respondError(w, http.StatusBadRequest, "invalid price")
		return
	}
	if qty, err := fixedpoint.FromDecimalString(req.Quantity); err != nil || qty == 0 {
		respondError(w, http.StatusBadRequest, "invalid quantity")
		return
	}
	if _, err := domain.ParseSide(req.Side); err != nil {
		respondError(w, http.StatusBadRequest, "side must be \"BUY\" or \"SELL\"")
		return
	}

	payload, err := json.Marshal(req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "encode order")
		return
	}

	if err := s.queue.Push(r.Context(), queue.OrderQueue, payload); err != nil {
		s.log.Errorw("push order failed", "err", err)
		respondError(w, http.StatusInternalServerError, "queue unavailable")
		return
	}

	s.log.Infow("order queued", "user_id", req.UserID, "side", req.Side, "price", req.Price, "quantity", req.Quantity)
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func main() {
	cfg := config.LoadFromEnv("")

	logger, err := obs.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		sugar.Fatalw("connect redis", "err", err)
	}
	defer q.Close()

	s := &server{log: sugar, queue: q}

	router := mux.NewRouter()
	router.HandleFunc("/order", s.handleSubmitOrder).Methods(http.MethodPost)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	handler := cors.Default().Handler(router)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("ingress listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("listen", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}
