package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-box/internal/export"
	"recipe-box/internal/ingredient"
	"recipe-box/internal/metrics"
	"recipe-box/internal/planner"
	"recipe-box/internal/shopping"
)

type handler struct {
	planner   *planner.Orchestrator
	dataPaths []string
	logger    *zap.Logger
}

// ListResponse is the shopping list as the client renders it.
type ListResponse struct {
	Sections      []shopping.Section `json:"sections"`
	Counts        shopping.Counts    `json:"counts"`
	Error         string             `json:"error,omitempty"`
	LastOperation string             `json:"last_operation,omitempty"`
}

// PlanResponse is the meal plan as the client renders it.
type PlanResponse struct {
	PlanID  string          `json:"plan_id"`
	Entries []planner.Entry `json:"entries"`
	Error   string          `json:"error,omitempty"`
}

type addItemRequest struct {
	Name     string   `json:"name" binding:"required"`
	Quantity *float64 `json:"quantity"`
	Unit     string   `json:"unit"`
}

type addRecipeRequest struct {
	Day string `json:"day"`
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"runtime":   metrics.GetSysHealth(h.dataPaths...),
	})
}

func (h *handler) shoppingList(c *gin.Context) {
	if c.Query("refresh") == "true" {
		if err := h.planner.Refresh(c.Request.Context()); err != nil {
			h.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, h.listResponse())
}

func (h *handler) exportList(c *gin.Context) {
	var buf bytes.Buffer
	sections := h.planner.Sections()

	switch format := c.DefaultQuery("format", "xlsx"); format {
	case "xlsx":
		if err := export.WriteXLSX(&buf, sections); err != nil {
			h.fail(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="shopping-list.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	case "csv":
		if err := export.WriteCSV(&buf, sections); err != nil {
			h.fail(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="shopping-list.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown export format %q", format)})
	}
}

func (h *handler) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unit, err := ingredient.ParseUnit(req.Unit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.planner.AddManualItem(c.Request.Context(), req.Name, req.Quantity, unit); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.listResponse())
}

func (h *handler) toggleItem(c *gin.Context) {
	if err := h.planner.ToggleItem(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.listResponse())
}

func (h *handler) deleteItem(c *gin.Context) {
	if err := h.planner.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.listResponse())
}

func (h *handler) clearChecked(c *gin.Context) {
	if err := h.planner.ClearChecked(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.listResponse())
}

func (h *handler) mealPlan(c *gin.Context) {
	c.JSON(http.StatusOK, h.planResponse())
}

func (h *handler) addRecipe(c *gin.Context) {
	var req addRecipeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := h.planner.RecipeAdded(c.Request.Context(), c.Param("id"), req.Day); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.planResponse())
}

func (h *handler) removeRecipe(c *gin.Context) {
	if err := h.planner.RecipeRemoved(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.planResponse())
}

func (h *handler) clearPlan(c *gin.Context) {
	if err := h.planner.ClearAll(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.planResponse())
}

func (h *handler) retry(c *gin.Context) {
	if err := h.planner.RetryLastOperation(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.listResponse())
}

func (h *handler) clearError(c *gin.Context) {
	h.planner.ClearError()
	c.Status(http.StatusNoContent)
}

func (h *handler) listResponse() ListResponse {
	state := h.planner.State()
	return ListResponse{
		Sections:      shopping.GroupSections(state.Items),
		Counts:        shopping.CountItems(state.Items),
		Error:         state.Error,
		LastOperation: state.LastOperation,
	}
}

func (h *handler) planResponse() PlanResponse {
	state := h.planner.State()
	return PlanResponse{PlanID: h.planner.PlanID(), Entries: state.Entries, Error: state.Error}
}

func (h *handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case shopping.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, shopping.ErrNotFound), errors.Is(err, planner.ErrRecipeNotFound):
		return http.StatusNotFound
	case errors.Is(err, planner.ErrNothingToRetry):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
