package domain

import "context"

// RiskAlertEvent 组合告警领域事件。快照分析产生告警时对外广播。
type RiskAlertEvent struct {
	AccountID    string   `json:"accountId"`
	RiskScore    float64  `json:"riskScore"`
	Alerts       []string `json:"alerts"`
	CalculatedAt int64    `json:"calculatedAt"` // Unix 毫秒
}

// AlertEventPublisher 告警事件发布端口，由基础设施层实现。
type AlertEventPublisher interface {
	PublishRiskAlerts(ctx context.Context, event *RiskAlertEvent) error
}
