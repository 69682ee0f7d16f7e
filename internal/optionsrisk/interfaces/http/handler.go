// 包 http 负责处理组合风险分析相关的 HTTP 请求。
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"

	"github.com/wyfcoding/optionsrisk/internal/optionsrisk/application"
	"github.com/wyfcoding/optionsrisk/internal/optionsrisk/domain"
)

// AnalyticsHandler 组合风险分析的 HTTP 处理器。
type AnalyticsHandler struct {
	cmd   *application.AnalyticsCommandService
	query *application.AnalyticsQueryService
}

// NewAnalyticsHandler 创建 HTTP 处理器。
func NewAnalyticsHandler(cmd *application.AnalyticsCommandService, query *application.AnalyticsQueryService) *AnalyticsHandler {
	return &AnalyticsHandler{cmd: cmd, query: query}
}

// RegisterRoutes 注册路由。
func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/analytics")
	{
		api.POST("/portfolio", h.AnalyzePortfolio)
		api.GET("/portfolio", h.GetPortfolio)
		api.POST("/portfolio/scenarios", h.ProjectScenarios)
		api.POST("/portfolio/refresh", h.RefreshPortfolio)
		api.POST("/chain/sort", h.SortChain)
		api.GET("/chain", h.FetchChain)
		api.POST("/surface/summary", h.SummarizeSurface)
		api.GET("/surface", h.FetchSurface)
	}
}

type portfolioRequest struct {
	AccountID string                  `json:"accountId"`
	Positions []domain.PositionGreeks `json:"positions"`
}

type scenariosRequest struct {
	Positions    []domain.PositionGreeks `json:"positions"`
	PriceChanges []float64               `json:"priceChanges"`
}

type chainSortRequest struct {
	Entries         []domain.OptionsChainEntry `json:"entries"`
	SortBy          string                     `json:"sortBy"`
	Direction       string                     `json:"direction"`
	UnderlyingPrice float64                    `json:"underlyingPrice"`
}

type surfaceRequest struct {
	Points []domain.IVSurfacePoint `json:"points"`
}

type refreshRequest struct {
	AccountID string `json:"accountId"`
}

// AnalyzePortfolio 对请求体中的持仓快照做即时分析。
func (h *AnalyticsHandler) AnalyzePortfolio(c *gin.Context) {
	var req portfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.query.AnalyzePortfolio(c.Request.Context(), req.AccountID, req.Positions)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to analyze portfolio", "account_id", req.AccountID, "error", err)
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// GetPortfolio 返回账户最近一次摄入的分析记录。
func (h *AnalyticsHandler) GetPortfolio(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "account_id is required", "")
		return
	}

	dto, err := h.query.GetPortfolio(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// ProjectScenarios 计算价格情景损益表。
func (h *AnalyticsHandler) ProjectScenarios(c *gin.Context) {
	var req scenariosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	results, err := h.query.ProjectScenarios(c.Request.Context(), req.Positions, req.PriceChanges)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to project scenarios", "error", err)
		response.Error(c, err)
		return
	}
	response.Success(c, results)
}

// RefreshPortfolio 从行情协作方拉取最新快照并摄入。
func (h *AnalyticsHandler) RefreshPortfolio(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	if req.AccountID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "accountId is required", "")
		return
	}

	dto, err := h.cmd.RefreshPortfolio(c.Request.Context(), req.AccountID)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to refresh portfolio", "account_id", req.AccountID, "error", err)
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// SortChain 稳定排序期权链并附带近价/实值标记。
func (h *AnalyticsHandler) SortChain(c *gin.Context) {
	var req chainSortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	entries, err := h.query.SortChain(
		c.Request.Context(),
		req.Entries,
		domain.SortField(req.SortBy),
		domain.SortDirection(req.Direction),
		req.UnderlyingPrice,
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, entries)
}

// FetchChain 按标的从行情协作方拉取期权链并排序展示。
func (h *AnalyticsHandler) FetchChain(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "symbol is required", "")
		return
	}
	underlyingPrice, _ := strconv.ParseFloat(c.Query("underlying_price"), 64)

	entries, err := h.query.FetchChain(
		c.Request.Context(),
		symbol,
		domain.SortField(c.DefaultQuery("sort_by", string(domain.SortByStrike))),
		domain.SortDirection(c.DefaultQuery("direction", string(domain.SortAscending))),
		underlyingPrice,
	)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to fetch options chain", "symbol", symbol, "error", err)
		response.Error(c, err)
		return
	}
	response.Success(c, entries)
}

// FetchSurface 按标的从行情协作方拉取波动率曲面并汇总。
func (h *AnalyticsHandler) FetchSurface(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "symbol is required", "")
		return
	}

	summary, err := h.query.FetchSurface(c.Request.Context(), symbol)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to fetch volatility surface", "symbol", symbol, "error", err)
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

// SummarizeSurface 计算波动率曲面汇总统计。
func (h *AnalyticsHandler) SummarizeSurface(c *gin.Context) {
	var req surfaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	summary, err := h.query.SummarizeSurface(c.Request.Context(), req.Points)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}
