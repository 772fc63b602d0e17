package service

import (
	"context"
	"elearn_backend/internal/config"
	"elearn_backend/internal/util"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranslationService_Translate(t *testing.T) {
	var gotBody gradioRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: want=POST got=%s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":["akwaaba"]}`))
	}))
	defer srv.Close()

	s := NewTranslationService(config.TranslationConfig{Endpoint: srv.URL}, nil)
	got, err := s.Translate(context.Background(), "welcome")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "akwaaba" {
		t.Fatalf("translation: want=akwaaba got=%q", got)
	}
	if len(gotBody.Data) != 1 || gotBody.Data[0] != "welcome" {
		t.Fatalf("request body: got=%+v", gotBody)
	}
}

func TestTranslationService_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	s := NewTranslationService(config.TranslationConfig{Endpoint: srv.URL}, nil)
	got, err := s.Translate(context.Background(), "hello")
	if err != nil || got != "" {
		t.Fatalf("want empty translation, got=%q err=%v", got, err)
	}
}

func TestTranslationService_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewTranslationService(config.TranslationConfig{Endpoint: srv.URL}, nil)
	if _, err := s.Translate(context.Background(), "hello"); !errors.Is(err, util.ErrTranslationFailed) {
		t.Fatalf("upstream error: want=%v got=%v", util.ErrTranslationFailed, err)
	}
	if _, err := s.Translate(context.Background(), "   "); !errors.Is(err, util.ErrEmptyText) {
		t.Fatalf("empty text: want=%v got=%v", util.ErrEmptyText, err)
	}
}
