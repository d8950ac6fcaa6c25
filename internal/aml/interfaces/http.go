// Package interfaces 交易监控引擎接口层
package interfaces

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/riskmonitor/internal/aml/application"
	"github.com/wyfcoding/riskmonitor/internal/aml/domain"
	"github.com/wyfcoding/riskmonitor/pkg/response"
)

// HTTPHandler HTTP 接口处理器
type HTTPHandler struct {
	monitor    *application.MonitorService
	assessment *application.AssessmentService
	alerts     domain.AlertRepository
	reports    domain.ReportRepository
}

// NewHTTPHandler 创建 HTTP 处理器
func NewHTTPHandler(
	monitor *application.MonitorService,
	assessment *application.AssessmentService,
	alerts domain.AlertRepository,
	reports domain.ReportRepository,
) *HTTPHandler {
	return &HTTPHandler{
		monitor:    monitor,
		assessment: assessment,
		alerts:     alerts,
		reports:    reports,
	}
}

// RegisterRoutes 注册路由
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	aml := r.Group("/aml")
	{
		aml.POST("/transactions/evaluate", h.EvaluateTransaction)
		aml.POST("/assessments/run", h.RunAssessment)
		aml.GET("/alerts/:alert_no", h.GetAlert)
		aml.POST("/alerts/:alert_no/acknowledge", h.AcknowledgeAlert)
		aml.POST("/alerts/:alert_no/resolve", h.ResolveAlert)
		aml.POST("/alerts/:alert_no/dismiss", h.DismissAlert)
		aml.GET("/customers/:customer_id/alerts", h.ListCustomerAlerts)
		aml.GET("/reports/:report_no", h.GetReport)
	}
}

// EvaluateTransactionRequest 交易评估请求
type EvaluateTransactionRequest struct {
	TransactionID string              `json:"transaction_id" binding:"required"`
	CustomerID    string              `json:"customer_id" binding:"required"`
	Type          string              `json:"type" binding:"required"`
	Amount        decimal.Decimal     `json:"amount" binding:"required"`
	Currency      string              `json:"currency" binding:"required"`
	AmountUSD     decimal.Decimal     `json:"amount_usd" binding:"required"`
	Counterparty  domain.Counterparty `json:"counterparty"`
	Channel       string              `json:"channel"`
	BookingTime   time.Time           `json:"booking_time" binding:"required"`
	ValueDate     time.Time           `json:"value_date"`
}

// EvaluateTransaction 评估单笔交易
func (h *HTTPHandler) EvaluateTransaction(c *gin.Context) {
	var req EvaluateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	tx := &domain.Transaction{
		TransactionID: req.TransactionID,
		CustomerID:    req.CustomerID,
		Type:          domain.TransactionType(req.Type),
		Amount:        req.Amount,
		Currency:      req.Currency,
		AmountUSD:     req.AmountUSD,
		Counterparty:  req.Counterparty,
		Channel:       req.Channel,
		Status:        domain.TransactionStatusPending,
		BookingTime:   req.BookingTime,
		ValueDate:     req.ValueDate,
	}

	result, err := h.monitor.EvaluateTransaction(c.Request.Context(), tx)
	if err != nil {
		if errors.Is(err, application.ErrCustomerNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, err.Error())
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"result":      result,
		"transaction": tx,
	})
}

// RunAssessmentRequest 批量评估请求
type RunAssessmentRequest struct {
	Limit int `json:"limit"`
}

// RunAssessment 触发一次周期性批量评估
func (h *HTTPHandler) RunAssessment(c *gin.Context) {
	var req RunAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Limit <= 0 {
		req.Limit = 1000
	}

	result, err := h.assessment.RunPeriodicAssessment(c.Request.Context(), time.Now(), req.Limit)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, result)
}

// GetAlert 查询告警
func (h *HTTPHandler) GetAlert(c *gin.Context) {
	alert, err := h.alerts.FindByAlertNo(c.Request.Context(), c.Param("alert_no"))
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if alert == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, "alert not found")
		return
	}
	response.Success(c, alert)
}

// AlertActionRequest 告警处置请求
type AlertActionRequest struct {
	Operator string `json:"operator" binding:"required"`
	Notes    string `json:"notes"`
}

// AcknowledgeAlert 确认告警
func (h *HTTPHandler) AcknowledgeAlert(c *gin.Context) {
	h.transitionAlert(c, func(alert *domain.RiskAlert, req AlertActionRequest) error {
		return alert.Acknowledge(req.Operator, time.Now())
	})
}

// ResolveAlert 关闭告警（已处理）
func (h *HTTPHandler) ResolveAlert(c *gin.Context) {
	h.transitionAlert(c, func(alert *domain.RiskAlert, req AlertActionRequest) error {
		return alert.Resolve(req.Operator, req.Notes, time.Now())
	})
}

// DismissAlert 关闭告警（误报）
func (h *HTTPHandler) DismissAlert(c *gin.Context) {
	h.transitionAlert(c, func(alert *domain.RiskAlert, req AlertActionRequest) error {
		return alert.Dismiss(req.Operator, req.Notes, time.Now())
	})
}

func (h *HTTPHandler) transitionAlert(c *gin.Context, transition func(*domain.RiskAlert, AlertActionRequest) error) {
	var req AlertActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	alert, err := h.alerts.FindByAlertNo(c.Request.Context(), c.Param("alert_no"))
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if alert == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, "alert not found")
		return
	}

	if err := transition(alert, req); err != nil {
		if errors.Is(err, domain.ErrInvalidAlertTransition) {
			response.ErrorWithStatus(c, http.StatusConflict, err.Error())
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	if err := h.alerts.Update(c.Request.Context(), alert); err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, alert)
}

// ListCustomerAlerts 查询客户的未关闭告警
func (h *HTTPHandler) ListCustomerAlerts(c *gin.Context) {
	alerts, err := h.alerts.FindOpenByEntity(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, alerts)
}

// GetReport 查询监管报告
func (h *HTTPHandler) GetReport(c *gin.Context) {
	report, err := h.reports.FindByReportNo(c.Request.Context(), c.Param("report_no"))
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if report == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, "report not found")
		return
	}
	response.Success(c, report)
}
