package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wyfcoding/riskmonitor/internal/aml/domain"
)

// reportPrefixes 报告编号前缀
var reportPrefixes = map[domain.ReportType]string{
	domain.ReportTypeCTR:         "CTR",
	domain.ReportTypeCrossBorder: "CBR",
	domain.ReportTypeSAR:         "SAR",
}

// ComplianceReportGenerator 生成并落库监管报告草稿
// 提交到监管接口由报送流程负责，这里只负责生成
type ComplianceReportGenerator struct {
	reports domain.ReportRepository
}

func NewComplianceReportGenerator(reports domain.ReportRepository) *ComplianceReportGenerator {
	return &ComplianceReportGenerator{reports: reports}
}

func (g *ComplianceReportGenerator) Generate(ctx context.Context, reportType domain.ReportType, entityID string, tx *domain.Transaction, details map[string]any) (*domain.ComplianceReport, error) {
	prefix, ok := reportPrefixes[reportType]
	if !ok {
		return nil, fmt.Errorf("unsupported report type: %q", reportType)
	}

	now := time.Now()
	report := &domain.ComplianceReport{
		ReportNo:   prefix + "-" + uuid.NewString(),
		Type:       reportType,
		CustomerID: entityID,
		Narrative:  buildNarrative(reportType, tx, details),
		Status:     domain.ReportStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if tx != nil {
		report.TransactionID = tx.TransactionID
	}
	if alertNo, ok := details["alert_no"].(string); ok {
		report.AlertID = alertNo
	}

	if err := g.reports.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	return report, nil
}

func buildNarrative(reportType domain.ReportType, tx *domain.Transaction, details map[string]any) string {
	if tx == nil {
		return fmt.Sprintf("%s report raised by periodic assessment: %v", reportType, details)
	}
	return fmt.Sprintf("%s report for transaction %s: %s %s %s, counterparty %q (%s); %v",
		reportType, tx.TransactionID, tx.Type, tx.AmountUSD, tx.Currency,
		tx.Counterparty.Name, tx.Counterparty.Country, details)
}
