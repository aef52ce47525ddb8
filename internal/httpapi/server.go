// Package httpapi exposes read-only ledger views over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"guild-ledger/internal/analytics"
	"guild-ledger/internal/economy"
	"guild-ledger/internal/leveling"
	"guild-ledger/internal/ranking"
	"guild-ledger/internal/storage"
)

type EconomyReader interface {
	Leaderboard(ctx context.Context, guildID uint64, category economy.Category, limit int) (economy.LeaderboardResult, error)
}

type LevelReader interface {
	Leaderboard(ctx context.Context, guildID uint64, limit int) (leveling.LeaderboardResult, error)
}

type StatsReader interface {
	EconomyReport(ctx context.Context, guildID uint64) (analytics.EconomyReport, error)
	TransactionReport(ctx context.Context, guildID uint64, since time.Time) (analytics.TransactionReport, error)
}

type Handler struct {
	economy      EconomyReader
	levels       LevelReader
	stats        StatsReader
	logger       *zap.Logger
	defaultLimit int
}

func NewHandler(econ EconomyReader, levels LevelReader, stats StatsReader, defaultLimit int, logger *zap.Logger) *Handler {
	return &Handler{economy: econ, levels: levels, stats: stats, defaultLimit: defaultLimit, logger: logger}
}

func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.Health)
	r.Route("/guilds/{guildID}", func(r chi.Router) {
		r.Get("/leaderboard/{category}", h.EconomyLeaderboard)
		r.Get("/levels", h.LevelLeaderboard)
		r.Get("/stats", h.Stats)
	})
	return r
}

// NewServer wraps the router with the timeouts used in production.
func NewServer(addr string, h *Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

type entryResponse struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Value  int64  `json:"value"`
}

type leaderboardResponse struct {
	GuildID  string          `json:"guild_id"`
	Category string          `json:"category"`
	Entries  []entryResponse `json:"entries"`
}

type statsResponse struct {
	GuildID        string           `json:"guild_id"`
	Users          int              `json:"users"`
	Circulation    int64            `json:"circulation"`
	TotalEarned    int64            `json:"total_earned"`
	TotalSpent     int64            `json:"total_spent"`
	RichestUserID  string           `json:"richest_user_id,omitempty"`
	RichestBalance int64            `json:"richest_balance"`
	Transactions   int              `json:"transactions"`
	Credits        int64            `json:"credits"`
	Debits         int64            `json:"debits"`
	ByReason       map[string]int64 `json:"by_reason"`
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) EconomyLeaderboard(w http.ResponseWriter, r *http.Request) {
	guildID, limit, ok := h.guildAndLimit(w, r)
	if !ok {
		return
	}
	category := economy.Category(chi.URLParam(r, "category"))
	result, err := h.economy.Leaderboard(r.Context(), guildID, category, limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !result.OK {
		writeError(w, http.StatusBadRequest, string(result.Reason))
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		GuildID:  storage.FormatID(guildID),
		Category: string(category),
		Entries:  toEntries(result.Entries),
	})
}

func (h *Handler) LevelLeaderboard(w http.ResponseWriter, r *http.Request) {
	guildID, limit, ok := h.guildAndLimit(w, r)
	if !ok {
		return
	}
	result, err := h.levels.Leaderboard(r.Context(), guildID, limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !result.OK {
		writeError(w, http.StatusBadRequest, string(result.Reason))
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		GuildID:  storage.FormatID(guildID),
		Category: "xp",
		Entries:  toEntries(result.Entries),
	})
}

// Stats reports the guild economy plus the transactions of the last
// "hours" hours (default 24).
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	guildID, err := storage.ParseID(chi.URLParam(r, "guildID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid guild id")
		return
	}
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if hours, err = strconv.Atoi(raw); err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "invalid hours")
			return
		}
	}

	econ, err := h.stats.EconomyReport(r.Context(), guildID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	txs, err := h.stats.TransactionReport(r.Context(), guildID, time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	resp := statsResponse{
		GuildID:        storage.FormatID(guildID),
		Users:          econ.Users,
		Circulation:    econ.Circulation,
		TotalEarned:    econ.TotalEarned,
		TotalSpent:     econ.TotalSpent,
		RichestBalance: econ.RichestBalance,
		Transactions:   txs.Total,
		Credits:        txs.Credits,
		Debits:         txs.Debits,
		ByReason:       make(map[string]int64, len(txs.ByReason)),
	}
	if econ.Users > 0 {
		resp.RichestUserID = storage.FormatID(econ.RichestUserID)
	}
	for reason, total := range txs.ByReason {
		resp.ByReason[reason] = total.Sum
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) guildAndLimit(w http.ResponseWriter, r *http.Request) (uint64, int, bool) {
	guildID, err := storage.ParseID(chi.URLParam(r, "guildID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid guild id")
		return 0, 0, false
	}
	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return 0, 0, false
		}
	}
	return guildID, limit, true
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	h.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func toEntries(entries []ranking.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for i, e := range entries {
		out = append(out, entryResponse{Rank: i + 1, UserID: storage.FormatID(e.UserID), Value: e.Value})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
