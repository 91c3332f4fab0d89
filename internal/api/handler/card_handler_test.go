package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
)

func TestCardHandler_Create(t *testing.T) {
	stub := &stubRemote{
		createCardFn: func(ctx context.Context, in ports.CreateCardInput) (*domain.Card, error) {
			if in.Type != domain.CardBAC || in.Name != "Work" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.Card{ID: "c1", Type: in.Type, Name: in.Name, Nickname: in.Nickname}, nil
		},
	}
	handler := NewCardHandler(stub)

	c, rec := newContext(http.MethodPost, "/cards", `{"type":"BAC","name":"Work","nickname":"w"}`)

	if err := handler.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var card domain.Card
	if err := json.Unmarshal(rec.Body.Bytes(), &card); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if card.ID != "c1" {
		t.Fatalf("unexpected card: %+v", card)
	}
}

func TestCardHandler_Create_UnknownType(t *testing.T) {
	stub := &stubRemote{
		createCardFn: func(ctx context.Context, in ports.CreateCardInput) (*domain.Card, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewCardHandler(stub)

	c, _ := newContext(http.MethodPost, "/cards", `{"type":"XYZ","name":"Work","nickname":"w"}`)

	if err := handler.Create(c); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCardHandler_Update_PassesPatch(t *testing.T) {
	stub := &stubRemote{
		updateCardFn: func(ctx context.Context, id string, patch ports.CardPatch) (*domain.Card, error) {
			if id != "c1" {
				t.Fatalf("unexpected id %q", id)
			}
			if patch.Name == nil || *patch.Name != "Renamed" || patch.Nickname != nil {
				t.Fatalf("unexpected patch: %+v", patch)
			}
			return &domain.Card{ID: id, Name: *patch.Name}, nil
		},
	}
	handler := NewCardHandler(stub)

	c, rec := newContext(http.MethodPatch, "/cards/c1", `{"name":"Renamed"}`)
	c.SetParamNames("id")
	c.SetParamValues("c1")

	if err := handler.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCardHandler_Delete_NotFound(t *testing.T) {
	stub := &stubRemote{
		deleteCardFn: func(ctx context.Context, id string) error {
			return domain.NewRemoteError("cards.delete", http.StatusNotFound, "Card not found")
		},
	}
	handler := NewCardHandler(stub)

	c, _ := newContext(http.MethodDelete, "/cards/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := handler.Delete(c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
