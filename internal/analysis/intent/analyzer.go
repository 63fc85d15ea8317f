package intent

import "strings"

// Label 表示一条用户消息的支持类意图。
type Label string

const (
	HoursLocationContact Label = "hours_location_contact"
	ServicesInfo         Label = "services_info"
	InsuranceFinancing   Label = "insurance_financing"
	AppointmentRequest   Label = "appointment_request"
	DeviceSupport        Label = "device_support_general"
	BillingAdmin         Label = "billing_admin"
	ClinicalRisk         Label = "clinical_risk_or_emergency"
	Unknown              Label = "other_unknown"
)

// Decision 给出意图识别结果、置信度以及命中的关键词数量。
type Decision struct {
	Intent     Label
	Confidence float64
	Score      int
}

type rule struct {
	label      Label
	confidence float64
	keywords   []string
}

// 规则按优先级排列：先命中的规则胜出。
var rules = []rule{
	{ClinicalRisk, 0.98, []string{"chest pain", "stroke", "can't breathe", "cannot breathe", "faint", "severe dizziness", "suicidal"}},
	{HoursLocationContact, 0.95, []string{"hours", "open", "closed", "address", "location", "phone", "directions"}},
	{InsuranceFinancing, 0.9, []string{"insurance", "medicare", "medicaid", "financing", "payment plan"}},
	{AppointmentRequest, 0.9, []string{"appointment", "schedule", "book", "callback", "call back"}},
	{DeviceSupport, 0.85, []string{"hearing aid", "device", "battery", "pair", "bluetooth", "charger"}},
	{BillingAdmin, 0.85, []string{"billing", "invoice", "receipt", "charge", "refund"}},
	{ServicesInfo, 0.8, []string{"service", "offer", "treatment", "test", "exam"}},
}

// unknownConfidence 低于升级阈值，因此未识别的问题会转人工。
const unknownConfidence = 0.55

// Analyze 根据关键词推断用户意图。
func Analyze(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Intent: Unknown, Confidence: unknownConfidence}
	}

	for _, r := range rules {
		hits := 0
		for _, word := range r.keywords {
			if strings.Contains(normalized, word) {
				hits++
			}
		}
		if hits > 0 {
			return Decision{Intent: r.label, Confidence: r.confidence, Score: hits}
		}
	}

	return Decision{Intent: Unknown, Confidence: unknownConfidence}
}

// IsEmergency reports whether the text trips the clinical-risk guardrail.
func IsEmergency(text string) bool {
	return Analyze(text).Intent == ClinicalRisk
}
