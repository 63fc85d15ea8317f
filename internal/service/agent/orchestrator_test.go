package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/chatwidget/internal/analysis/intent"
	"github.com/zhouzirui/chatwidget/internal/config"
	"github.com/zhouzirui/chatwidget/internal/model/chat"
)

type stubResponder struct {
	text  string
	err   error
	calls int
}

func (s *stubResponder) GenerateResponse(context.Context, string, intent.Label, []chat.Message, string) (string, error) {
	s.calls++
	return s.text, s.err
}

func clinic() config.ClinicConfig {
	return config.ClinicConfig{
		BusinessHours:       "Monday-Friday 9:00 AM-4:00 PM ET.",
		Phone:               "(864) 555-0100",
		Address:             "100 Main Street",
		EmergencyDisclaimer: "Call 911.",
		Timezone:            "UTC",
		OpenHour:            9,
		CloseHour:           16,
	}
}

// 2026-10-19 是周一。
var (
	mondayMorning = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	mondayEvening = time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)
	saturdayNoon  = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
)

func at(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func TestRunEmergencyEscalates(t *testing.T) {
	responder := &stubResponder{text: "should not be used"}
	o := New(responder, clinic(), at(mondayMorning))

	result := o.Run(context.Background(), "s1", chat.ChannelWeb, nil, "I have chest pain")

	assert.Equal(t, intent.ClinicalRisk, result.Intent)
	assert.True(t, result.Escalated)
	assert.Equal(t, ReasonEmergency, result.EscalationReason)
	assert.Equal(t, "Call 911.", result.ResponseText)
	assert.Zero(t, responder.calls)
}

func TestRunDeterministicAnswers(t *testing.T) {
	o := New(nil, clinic(), at(mondayMorning))
	ctx := context.Background()

	hours := o.Run(ctx, "s1", chat.ChannelWeb, nil, "What are your hours?")
	assert.Equal(t, intent.HoursLocationContact, hours.Intent)
	assert.Equal(t, 1.0, hours.Confidence)
	assert.True(t, strings.HasPrefix(hours.ResponseText, "Our business hours are Monday-Friday"))

	address := o.Run(ctx, "s1", chat.ChannelWeb, nil, "where are you?")
	assert.Equal(t, "Our office is located at 100 Main Street.", address.ResponseText)
}

func TestRunAppointmentUsesChannelTemplate(t *testing.T) {
	responder := &stubResponder{text: "llm"}
	o := New(responder, clinic(), at(mondayMorning))

	web := o.Run(context.Background(), "s1", chat.ChannelWeb, nil, "I want to book an appointment")
	sms := o.Run(context.Background(), "s1", chat.ChannelSMS, nil, "I want to book an appointment")

	assert.Contains(t, web.ResponseText, "front desk follow-up")
	assert.Contains(t, sms.ResponseText, "Reply with your first name")
	assert.Zero(t, responder.calls)
}

func TestRunUsesResponderForDraftableIntents(t *testing.T) {
	responder := &stubResponder{text: "We accept most plans."}
	o := New(responder, clinic(), at(mondayMorning))

	result := o.Run(context.Background(), "s1", chat.ChannelWeb, nil, "Do you take medicare insurance?")

	assert.Equal(t, intent.InsuranceFinancing, result.Intent)
	assert.Equal(t, "We accept most plans.", result.ResponseText)
	assert.False(t, result.Escalated)
	assert.Equal(t, 1, responder.calls)
}

func TestRunFallsBackWhenResponderFails(t *testing.T) {
	responder := &stubResponder{err: errors.New("model offline")}
	o := New(responder, clinic(), at(mondayMorning))

	result := o.Run(context.Background(), "s1", chat.ChannelWeb, nil, "my invoice looks wrong")

	assert.Equal(t, intent.BillingAdmin, result.Intent)
	assert.Contains(t, result.ResponseText, "billing questions")
}

func TestRunUnknownEscalatesForLowConfidence(t *testing.T) {
	o := New(nil, clinic(), at(mondayMorning))

	result := o.Run(context.Background(), "s1", chat.ChannelWeb, nil, "tell me a joke")

	assert.Equal(t, intent.Unknown, result.Intent)
	assert.True(t, result.Escalated)
	assert.Equal(t, ReasonLowConfidence, result.EscalationReason)
	assert.NotNil(t, result.References)
}

func TestRunAppendsAfterHoursHint(t *testing.T) {
	for name, now := range map[string]time.Time{"evening": mondayEvening, "weekend": saturdayNoon} {
		responder := &stubResponder{text: "We accept most plans."}
		o := New(responder, clinic(), at(now))

		result := o.Run(context.Background(), "s1", chat.ChannelWeb, nil, "Do you take medicare insurance?")

		assert.Equal(t, "We accept most plans. We're currently outside business hours, "+
			"but I can collect your details for callback during office hours.", result.ResponseText, name)
		assert.False(t, result.Escalated, name)
	}
}

func TestRunAfterHoursSkipsDeterministicAndEmergency(t *testing.T) {
	o := New(nil, clinic(), at(mondayEvening))
	ctx := context.Background()

	address := o.Run(ctx, "s1", chat.ChannelWeb, nil, "where are you?")
	assert.Equal(t, "Our office is located at 100 Main Street.", address.ResponseText)

	emergency := o.Run(ctx, "s1", chat.ChannelWeb, nil, "I have chest pain")
	assert.Equal(t, "Call 911.", emergency.ResponseText)
}

func TestRunEscalatesBelowConfidenceThreshold(t *testing.T) {
	responder := &stubResponder{text: "Maybe we can help."}
	classify := func(string) intent.Decision {
		return intent.Decision{Intent: intent.DeviceSupport, Confidence: 0.3}
	}
	o := New(responder, clinic(), at(mondayEvening), WithClassifier(classify))

	result := o.Run(context.Background(), "s1", chat.ChannelWeb, nil, "the thing is weird")

	assert.Equal(t, intent.DeviceSupport, result.Intent)
	assert.True(t, result.Escalated)
	assert.Equal(t, ReasonLowConfidence, result.EscalationReason)
	assert.Equal(t, "Maybe we can help.", result.ResponseText)
}

func TestRunClassifierEmergencyUsesGuardrail(t *testing.T) {
	classify := func(string) intent.Decision {
		return intent.Decision{Intent: intent.ClinicalRisk, Confidence: 0.9}
	}
	o := New(&stubResponder{text: "llm"}, clinic(), at(mondayMorning), WithClassifier(classify))

	result := o.Run(context.Background(), "s1", chat.ChannelWeb, nil, "I feel really unwell")

	assert.True(t, result.Escalated)
	assert.Equal(t, ReasonEmergency, result.EscalationReason)
	assert.Equal(t, "Call 911.", result.ResponseText)
}
