package agent

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/zhouzirui/chatwidget/internal/analysis/intent"
	"github.com/zhouzirui/chatwidget/internal/config"
	"github.com/zhouzirui/chatwidget/internal/model/chat"
)

// Responder drafts a free-form reply. *ai.Service implements it.
type Responder interface {
	GenerateResponse(ctx context.Context, sessionID string, label intent.Label, history []chat.Message, query string) (string, error)
}

// Result 是一轮编排的输出。
type Result struct {
	Intent           intent.Label
	Confidence       float64
	ResponseText     string
	Escalated        bool
	EscalationReason string
	References       []chat.Reference
}

const (
	ReasonEmergency     = "clinical_risk_or_emergency"
	ReasonLowConfidence = "low_confidence"
)

// minConfidence 以下的起草回复会被标记为需要人工跟进。
const minConfidence = 0.45

const escalationText = "I want to make sure you get an accurate answer. " +
	"I can escalate this to our team and collect callback details."

const afterHoursHint = " We're currently outside business hours, but I can collect your details " +
	"for callback during office hours."

// Orchestrator 依次执行：紧急护栏、确定性回答、起草回复、低置信度升级、营业时间提示。
type Orchestrator struct {
	responder Responder
	clinic    config.ClinicConfig
	now       func() time.Time
	classify  func(string) intent.Decision
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces time.Now for the business-hours check.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithClassifier replaces the keyword intent analyzer.
func WithClassifier(classify func(string) intent.Decision) Option {
	return func(o *Orchestrator) {
		if classify != nil {
			o.classify = classify
		}
	}
}

// New creates an orchestrator. responder may be nil, in which case templated
// replies are used.
func New(responder Responder, clinic config.ClinicConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		responder: responder,
		clinic:    clinic,
		now:       time.Now,
		classify:  intent.Analyze,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run produces the agent turn for query.
func (o *Orchestrator) Run(ctx context.Context, sessionID string, channel chat.Channel, history []chat.Message, query string) Result {
	if intent.IsEmergency(query) {
		return o.emergency(sessionID)
	}

	if text := o.deterministic(query); text != "" {
		return Result{
			Intent:       intent.HoursLocationContact,
			Confidence:   1.0,
			ResponseText: text,
			References:   []chat.Reference{},
		}
	}

	decision := o.classify(query)
	if decision.Intent == intent.ClinicalRisk {
		return o.emergency(sessionID)
	}

	result := Result{
		Intent:     decision.Intent,
		Confidence: decision.Confidence,
		References: []chat.Reference{},
	}

	if decision.Intent == intent.Unknown {
		result.ResponseText = escalationText
		result.Escalated = true
		result.EscalationReason = ReasonLowConfidence
		return result
	}

	result.ResponseText = o.draft(ctx, sessionID, channel, decision.Intent, history, query)

	if decision.Confidence < minConfidence {
		log.Printf("[agent] low confidence session=%s intent=%s confidence=%.2f", sessionID, decision.Intent, decision.Confidence)
		result.Escalated = true
		result.EscalationReason = ReasonLowConfidence
		return result
	}

	if !o.clinic.IsOpen(o.now()) {
		result.ResponseText = strings.TrimSpace(strings.TrimSpace(result.ResponseText) + afterHoursHint)
	}
	return result
}

func (o *Orchestrator) emergency(sessionID string) Result {
	log.Printf("[agent] emergency guardrail tripped session=%s", sessionID)
	return Result{
		Intent:           intent.ClinicalRisk,
		Confidence:       1.0,
		ResponseText:     o.clinic.EmergencyDisclaimer,
		Escalated:        true,
		EscalationReason: ReasonEmergency,
		References:       []chat.Reference{},
	}
}

func (o *Orchestrator) deterministic(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))

	switch {
	case containsAny(q, "business hours", "hours", "open", "closed"):
		return strings.TrimSpace("Our business hours are " + o.clinic.BusinessHours +
			" If you prefer, I can collect your details for a callback.")
	case containsAny(q, "phone", "call", "number", "contact"):
		return "You can reach us at " + o.clinic.Phone + "."
	case containsAny(q, "address", "location", "where are you", "directions"):
		return "Our office is located at " + o.clinic.Address + "."
	default:
		return ""
	}
}

func (o *Orchestrator) draft(ctx context.Context, sessionID string, channel chat.Channel, label intent.Label, history []chat.Message, query string) string {
	if label == intent.AppointmentRequest {
		return appointmentText(channel)
	}

	if o.responder != nil {
		text, err := o.responder.GenerateResponse(ctx, sessionID, label, history, query)
		if err != nil {
			log.Printf("[agent] draft fallback session=%s: %v", sessionID, err)
		} else if text != "" {
			return text
		}
	}

	return fallbackText(label)
}

func appointmentText(channel chat.Channel) string {
	if channel == chat.ChannelSMS {
		return "I can help with that. Reply with your first name, best callback number, and preferred " +
			"appointment time. By replying with contact details, you consent to staff follow-up."
	}
	return "I can help with that. Please share your name, best callback number, and preferred appointment time. " +
		"By sharing contact details, you consent to front desk follow-up."
}

func fallbackText(label intent.Label) string {
	switch label {
	case intent.InsuranceFinancing:
		return "We can help with insurance and financing questions. " +
			"Please share your insurance provider and we can route this to staff for confirmation."
	case intent.ServicesInfo:
		return "We offer hearing and balance-related services. Tell me what you need help with and I can guide you."
	case intent.DeviceSupport:
		return "I can help with general hearing-device support. " +
			"Please describe the device issue and I can suggest next steps or escalate to staff."
	case intent.BillingAdmin:
		return "For billing questions, please share your order or invoice details if available. " +
			"I can route this to our team for follow-up."
	default:
		return "I may need a team member to confirm that accurately. " +
			"If you want, I can escalate this and collect callback details."
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
