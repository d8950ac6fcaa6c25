// Package interfaces 风险计算服务接口层
package interfaces

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/riskmonitor/internal/risk/application"
	"github.com/wyfcoding/riskmonitor/internal/risk/domain"
	"github.com/wyfcoding/riskmonitor/pkg/response"
)

// HTTPHandler HTTP 接口处理器
type HTTPHandler struct {
	riskService *application.RiskService
}

// NewHTTPHandler 创建 HTTP 处理器
func NewHTTPHandler(riskService *application.RiskService) *HTTPHandler {
	return &HTTPHandler{riskService: riskService}
}

// RegisterRoutes 注册路由
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	risk := r.Group("/risk")
	{
		risk.POST("/credit", h.CalculateCreditRisk)
		risk.POST("/market", h.CalculateMarketRisk)
		risk.GET("/market/:portfolio_id", h.GetMarketRisk)
		risk.POST("/stress", h.RunStressTest)
		risk.POST("/liquidity", h.AssessLiquidity)
	}
}

// CalculateCreditRisk 计算信用风险
func (h *HTTPHandler) CalculateCreditRisk(c *gin.Context) {
	var params application.CreditRiskParams
	if err := c.ShouldBindJSON(&params); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	record, err := h.riskService.CalculateCreditRisk(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, record)
}

// CalculateMarketRisk 计算市场风险（VaR 与预期损失）
func (h *HTTPHandler) CalculateMarketRisk(c *gin.Context) {
	var params application.MarketRiskParams
	if err := c.ShouldBindJSON(&params); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	record, err := h.riskService.CalculateMarketRisk(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, record)
}

// GetMarketRisk 查询市场风险，结果过期时自动重算
func (h *HTTPHandler) GetMarketRisk(c *gin.Context) {
	params := application.MarketRiskParams{
		PortfolioID: c.Param("portfolio_id"),
		Confidence:  0.95,
		Method:      domain.VaRMethodHistorical,
		HorizonDays: 1,
	}

	record, err := h.riskService.GetMarketRisk(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, record)
}

// StressTestRequest 压力测试请求
type StressTestRequest struct {
	PortfolioID string                  `json:"portfolio_id" binding:"required"`
	Scenarios   []domain.StressScenario `json:"scenarios" binding:"required"`
}

// RunStressTest 运行压力测试场景
func (h *HTTPHandler) RunStressTest(c *gin.Context) {
	var req StressTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	results, err := h.riskService.RunStressTest(c.Request.Context(), req.PortfolioID, req.Scenarios)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, results)
}

// AssessLiquidity 计算流动性覆盖率与净稳定资金比率
func (h *HTTPHandler) AssessLiquidity(c *gin.Context) {
	var params application.LiquidityParams
	if err := c.ShouldBindJSON(&params); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.riskService.AssessLiquidity(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

// writeError 领域校验错误映射为 400，其余为 500
func writeError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrInsufficientData) {
		response.BadRequest(c, err.Error())
		return
	}
	response.InternalError(c, err.Error())
}
