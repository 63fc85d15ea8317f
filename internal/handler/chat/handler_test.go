package chat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chatwidget/internal/config"
	"github.com/zhouzirui/chatwidget/internal/model/chat"
	"github.com/zhouzirui/chatwidget/internal/service/agent"
	chatservice "github.com/zhouzirui/chatwidget/internal/service/chat"
)

func setupRouter() (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService()
	clinic := config.ClinicConfig{BusinessHours: "9-4", Phone: "555-0100", Address: "1 Main St", EmergencyDisclaimer: "Call 911."}
	handler := New(chatSvc, agent.New(nil, clinic))

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createSession(t *testing.T, r http.Handler) chat.SessionResponse {
	t.Helper()

	resp := post(r, "/session", `{"channel":"web","consent_to_contact":false}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var session chat.SessionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return session
}

func TestCreateSessionDefaultsToWeb(t *testing.T) {
	r, _ := setupRouter()

	resp := post(r, "/session", `{}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var session chat.SessionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.SessionID == "" {
		t.Fatal("expected session_id")
	}
	if session.Channel != chat.ChannelWeb {
		t.Fatalf("expected web channel, got %s", session.Channel)
	}
}

func TestCreateSessionInvalidChannel(t *testing.T) {
	r, _ := setupRouter()

	resp := post(r, "/session", `{"channel":"fax"}`)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}

func TestCreateSessionInvalidBody(t *testing.T) {
	r, _ := setupRouter()

	resp := post(r, "/session", `not json`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestMessageUnknownSession(t *testing.T) {
	r, _ := setupRouter()

	resp := post(r, "/message", `{"session_id":"missing","channel":"web","text":"hi"}`)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestMessageValidation(t *testing.T) {
	r, _ := setupRouter()
	session := createSession(t, r)

	cases := map[string]string{
		"empty text":   `{"session_id":"` + session.SessionID + `","channel":"web","text":""}`,
		"bad channel":  `{"session_id":"` + session.SessionID + `","channel":"fax","text":"hi"}`,
		"no session":   `{"channel":"web","text":"hi"}`,
		"long message": `{"session_id":"` + session.SessionID + `","channel":"web","text":"` + strings.Repeat("a", chat.MaxTextLength+1) + `"}`,
	}

	for name, body := range cases {
		resp := post(r, "/message", body)
		if resp.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", name, resp.Code)
		}
	}
}

func TestMessageStoresTurnsAndReplies(t *testing.T) {
	r, chatSvc := setupRouter()
	session := createSession(t, r)

	payload, _ := json.Marshal(chat.MessageRequest{SessionID: session.SessionID, Channel: chat.ChannelWeb, Text: "What are your hours?"})
	req := httptest.NewRequest(http.MethodPost, "/message", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var reply chat.MessageResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Intent != "hours_location_contact" {
		t.Fatalf("unexpected intent %q", reply.Intent)
	}
	if !strings.Contains(reply.ResponseText, "9-4") {
		t.Fatalf("expected business hours in reply, got %q", reply.ResponseText)
	}
	if reply.References == nil {
		t.Fatal("expected references to encode as an empty list")
	}

	transcript, err := chatSvc.LoadTranscript(req.Context(), session.SessionID)
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(transcript) != 2 {
		t.Fatalf("expected 2 stored turns, got %d", len(transcript))
	}
	if transcript[0].Role != chat.RoleUser || transcript[1].Role != chat.RoleAgent {
		t.Fatalf("unexpected roles %s, %s", transcript[0].Role, transcript[1].Role)
	}
}

func TestMessageUpdatesConsent(t *testing.T) {
	r, chatSvc := setupRouter()
	session := createSession(t, r)

	resp := post(r, "/message", `{"session_id":"`+session.SessionID+`","text":"book an appointment","consent_to_contact":true}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	got, err := chatSvc.GetSession(httptest.NewRequest(http.MethodGet, "/", nil).Context(), session.SessionID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if !got.ConsentToContact {
		t.Fatal("expected consent to be recorded")
	}
}
