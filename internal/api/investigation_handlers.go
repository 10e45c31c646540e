package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/smurfing-engine/internal/engine"
	"github.com/rawblock/smurfing-engine/internal/heuristics"
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Investigation API Handlers: seeds, subgraphs, verdicts and learning
// ════════════════════════════════════════════════════════════════════

// subgraphRequest is the body of POST /api/v1/subgraph. An empty seedIds
// list expands from every registered seed.
type subgraphRequest struct {
	SeedIDs     []string            `json:"seedIds"`
	K           int                 `json:"k" binding:"required,min=1,max=5"`
	MinValue    float64             `json:"minValue" binding:"min=0"`
	MinAge      int64               `json:"minAge" binding:"min=0"`
	MaxAge      int64               `json:"maxAge" binding:"min=0"`
	EntityTypes []models.EntityType `json:"entityTypes"`
	Direction   models.Direction    `json:"direction" binding:"omitempty,oneof=forward backward bidirectional"`
}

// PUT /api/v1/wallets/:address/flag
// Records an investigator verdict. An empty flag clears it.
func (h *APIHandler) handleSetFlag(c *gin.Context) {
	var req struct {
		Flag models.ManualFlag `json:"flag"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	w, err := h.session.SetManualFlag(c.Param("address"), req.Flag)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// GET /api/v1/seeds
func (h *APIHandler) handleListSeeds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.session.Seeds()})
}

// POST /api/v1/seeds
// Registers a seed wallet. Re-adding an existing address returns it with 200.
func (h *APIHandler) handleAddSeed(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
		Label   string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	seed, created := h.session.AddSeed(req.Address, req.Label)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"seed": seed, "created": created})
}

// DELETE /api/v1/seeds/:id
func (h *APIHandler) handleRemoveSeed(c *gin.Context) {
	if err := h.session.RemoveSeed(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/v1/seeds
func (h *APIHandler) handleClearSeeds(c *gin.Context) {
	h.session.ClearSeeds()
	c.Status(http.StatusNoContent)
}

// POST /api/v1/subgraph
// Expands a k-hop subgraph around the selected seeds and returns it with
// the per-seed inverse topology.
func (h *APIHandler) handleExpandSubgraph(c *gin.Context) {
	var req subgraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.MaxAge > 0 && req.MinAge > req.MaxAge {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minAge must not exceed maxAge"})
		return
	}

	res, err := h.session.Expand(req.SeedIDs, heuristics.ExpansionConfig{
		K:           req.K,
		MinValue:    req.MinValue,
		MinAge:      req.MinAge,
		MaxAge:      req.MaxAge,
		EntityTypes: req.EntityTypes,
		Direction:   req.Direction,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/v1/guard/patterns
func (h *APIHandler) handleListPatterns(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Library())
}

// GET /api/v1/guard/zero-day
func (h *APIHandler) handleZeroDay(c *gin.Context) {
	candidates, err := h.session.ZeroDay()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": candidates, "count": len(candidates)})
}

// POST /api/v1/guard/learn
// Confirms a wallet as an example of a named laundering pattern.
func (h *APIHandler) handleLearn(c *gin.Context) {
	var req engine.LearnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	pattern, err := h.session.Learn(req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pattern": pattern})
}
