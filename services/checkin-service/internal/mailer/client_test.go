package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientSend(t *testing.T) {
	var captured struct {
		path    string
		auth    string
		payload sendRequest
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&captured.payload)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg-9","threadId":"thr-4"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "tok", "bot@example.com")
	result, err := client.Send(context.Background(), Message{
		To:        "jane@example.com",
		Subject:   "[Seguimiento diario] 2024-03-05 — Jane",
		Body:      "Hola Jane,\n",
		ThreadID:  "thr-4",
		InReplyTo: "<m1@mail.example.com>",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if result.MessageID != "msg-9" || result.ThreadID != "thr-4" {
		t.Errorf("unexpected result: %+v", result)
	}
	if captured.path != "/gmail/v1/users/me/messages/send" {
		t.Errorf("path = %s", captured.path)
	}
	if captured.auth != "Bearer tok" {
		t.Errorf("auth = %q", captured.auth)
	}
	if captured.payload.ThreadID != "thr-4" {
		t.Errorf("threadId = %q", captured.payload.ThreadID)
	}

	raw, err := base64.URLEncoding.DecodeString(captured.payload.Raw)
	if err != nil {
		t.Fatalf("raw is not base64url: %v", err)
	}
	msg := string(raw)
	for _, header := range []string{
		"To: jane@example.com",
		"From: bot@example.com",
		"Subject: [Seguimiento diario] 2024-03-05 — Jane",
		"In-Reply-To: <m1@mail.example.com>",
		"References: <m1@mail.example.com>",
	} {
		if !strings.Contains(msg, header+"\r\n") {
			t.Errorf("raw message missing %q", header)
		}
	}
	if !strings.HasSuffix(msg, "\r\n\r\nHola Jane,\n") {
		t.Errorf("body not separated from headers: %q", msg)
	}
}

func TestClientSend_NewConversationOmitsThreading(t *testing.T) {
	var payload sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg-1","threadId":"thr-1"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "", "bot@example.com")
	if _, err := client.Send(context.Background(), Message{To: "a@b.co", Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if payload.ThreadID != "" {
		t.Errorf("threadId should be omitted, got %q", payload.ThreadID)
	}
	raw, _ := base64.URLEncoding.DecodeString(payload.Raw)
	if strings.Contains(string(raw), "In-Reply-To") {
		t.Error("In-Reply-To must not appear on a new conversation")
	}
}

func TestClientSend_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(srv.URL, "expired", "bot@example.com")
	if _, err := client.Send(context.Background(), Message{To: "a@b.co"}); err == nil {
		t.Fatal("expected error for 401 response")
	}
}
