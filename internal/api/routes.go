package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rawblock/smurfing-engine/internal/config"
	"github.com/rawblock/smurfing-engine/internal/engine"
	"github.com/rawblock/smurfing-engine/internal/heuristics"
	"github.com/rawblock/smurfing-engine/internal/ledger"
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// maxUploadBytes caps a ledger upload.
const maxUploadBytes = 64 << 20

// LedgerStore is the optional database behind ledger import and reload.
type LedgerStore interface {
	ImportTransfers(ctx context.Context, txs []models.Transaction) (int64, error)
	LoadTransfers(ctx context.Context) ([]models.Transaction, error)
	Ping(ctx context.Context) error
}

// Deps is everything the router needs. Store may be nil.
type Deps struct {
	Config  *config.Config
	Session *engine.Session
	Alerts  *heuristics.AlertManager
	Hub     *Hub
	Store   LedgerStore
	Limiter *RateLimiter
	Logger  *zap.Logger
}

type APIHandler struct {
	session  *engine.Session
	alerts   *heuristics.AlertManager
	store    LedgerStore
	decimals int32
	logger   *zap.Logger
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))

	// CORS: ALLOWED_ORIGINS=https://a.example,https://b.example, or empty / * for any origin.
	allowedOrigins := d.Config.AllowedOrigins
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range allowedOrigins {
				if allowed == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		session:  d.Session,
		alerts:   d.Alerts,
		store:    d.Store,
		decimals: d.Config.ValueDecimals,
		logger:   d.Logger.Named("api"),
	}

	api := r.Group("/api/v1")
	{
		api.GET("/health", handler.handleHealth)
		api.GET("/stream", d.Hub.Subscribe)
	}

	protected := api.Group("")
	protected.Use(AuthMiddleware(d.Config.APIAuthToken, d.Logger))
	if d.Limiter != nil {
		protected.Use(d.Limiter.Middleware())
	}
	{
		protected.POST("/ledger", handler.handleUploadLedger)
		protected.POST("/ledger/reload", handler.handleReloadLedger)
		protected.POST("/analyze", handler.handleAnalyze)
		protected.GET("/summary", handler.handleSummary)

		protected.GET("/wallets", handler.handleListWallets)
		protected.GET("/wallets/:address", handler.handleGetWallet)
		protected.GET("/wallets/:address/transactions", handler.handleWalletTransactions)
		protected.GET("/wallets/:address/temporal", handler.handleWalletTemporal)
		protected.GET("/wallets/:address/heatmap", handler.handleHeatmap)
		protected.PUT("/wallets/:address/flag", handler.handleSetFlag)

		protected.GET("/heatmap", handler.handleHeatmap)
		protected.GET("/graph", handler.handleDisplayGraph)

		protected.GET("/seeds", handler.handleListSeeds)
		protected.POST("/seeds", handler.handleAddSeed)
		protected.DELETE("/seeds", handler.handleClearSeeds)
		protected.DELETE("/seeds/:id", handler.handleRemoveSeed)
		protected.POST("/subgraph", handler.handleExpandSubgraph)

		protected.GET("/guard/patterns", handler.handleListPatterns)
		protected.GET("/guard/zero-day", handler.handleZeroDay)
		protected.POST("/guard/learn", handler.handleLearn)

		protected.GET("/alerts", handler.handleListAlerts)
	}

	return r
}

// requestLogger logs one line per request through zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()))
	}
}

// respondError maps engine errors onto HTTP statuses.
func (h *APIHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNoLedger):
		c.JSON(http.StatusConflict, gin.H{"error": "No ledger loaded", "hint": "POST a CSV to /api/v1/ledger first"})
	case errors.Is(err, engine.ErrUnknownWallet), errors.Is(err, engine.ErrUnknownSeed):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidFlag):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "details": err.Error()})
	}
}

// handleUploadLedger accepts a CSV either as multipart field "file" or as
// the raw request body. ?persist=true also writes it to the database.
func (h *APIHandler) handleUploadLedger(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	var body io.Reader = c.Request.Body
	source := "upload"
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing multipart field \"file\""})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable upload", "details": err.Error()})
			return
		}
		defer f.Close()
		body, source = f, fh.Filename
	}

	parsed, err := ledger.Parse(body, ledger.Options{ValueDecimals: h.decimals})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ledger", "details": err.Error()})
		return
	}

	var persisted int64
	if c.Query("persist") == "true" {
		if h.store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not connected"})
			return
		}
		if persisted, err = h.store.ImportTransfers(c.Request.Context(), parsed.Transactions); err != nil {
			h.respondError(c, err)
			return
		}
	}

	summary, err := h.session.Load(source, parsed.Transactions)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":   summary,
		"skipped":   parsed.Skipped,
		"persisted": persisted,
	})
}

// handleReloadLedger replaces the session ledger with the database copy.
func (h *APIHandler) handleReloadLedger(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not connected"})
		return
	}
	txs, err := h.store.LoadTransfers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	summary, err := h.session.Load("database", txs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *APIHandler) handleAnalyze(c *gin.Context) {
	summary, err := h.session.Analyze()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *APIHandler) handleSummary(c *gin.Context) {
	summary, err := h.session.Summary()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleListWallets returns wallets by descending suspicion.
// GET /api/v1/wallets?minScore=30&limit=100
func (h *APIHandler) handleListWallets(c *gin.Context) {
	minScore, _ := strconv.Atoi(c.DefaultQuery("minScore", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 5000 {
		limit = 100
	}

	wallets, err := h.session.Wallets(minScore, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": wallets, "count": len(wallets)})
}

func (h *APIHandler) handleGetWallet(c *gin.Context) {
	w, err := h.session.Wallet(c.Param("address"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *APIHandler) handleWalletTransactions(c *gin.Context) {
	txs, err := h.session.WalletTransactions(c.Param("address"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": txs, "count": len(txs)})
}

func (h *APIHandler) handleWalletTemporal(c *gin.Context) {
	res, err := h.session.Temporal(c.Param("address"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleHeatmap serves the 7×24 grid for one wallet, or the whole ledger
// on the route without an address.
func (h *APIHandler) handleHeatmap(c *gin.Context) {
	cells, err := h.session.Heatmap(c.Param("address"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cells": cells})
}

func (h *APIHandler) handleDisplayGraph(c *gin.Context) {
	g, err := h.session.DisplayGraph()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// handleListAlerts returns recent alerts, newest first.
// GET /api/v1/alerts?limit=50 or ?minSeverity=high
func (h *APIHandler) handleListAlerts(c *gin.Context) {
	if sev := c.Query("minSeverity"); sev != "" {
		c.JSON(http.StatusOK, gin.H{"data": h.alerts.GetAlertsBySeverity(sev)})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	c.JSON(http.StatusOK, gin.H{"data": h.alerts.GetRecentAlerts(limit)})
}

// handleHealth returns engine status for service discovery
func (h *APIHandler) handleHealth(c *gin.Context) {
	dbConnected := false
	if h.store != nil {
		dbConnected = h.store.Ping(c.Request.Context()) == nil
	}

	resp := gin.H{
		"status":      "operational",
		"engine":      "Smurfing Forensics Engine",
		"dbConnected": dbConnected,
		"capabilities": gin.H{
			"suspicion_scoring":  true,
			"temporal_analysis":  true,
			"subgraph_expansion": true,
			"adaptive_guard":     true,
		},
	}
	if summary, err := h.session.Summary(); err == nil {
		resp["ledger"] = summary
	}
	c.JSON(http.StatusOK, resp)
}
