package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticklist/internal/item"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Prompt != "taco night" {
			t.Fatalf("unexpected prompt %q", req.Prompt)
		}
		json.NewEncoder(w).Encode(map[string]any{"items": []string{"Tortillas", "Salsa", "Limes"}})
	}))
	defer srv.Close()

	items, err := New(srv.URL).Generate(context.Background(), "taco night")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(items) != 3 || items[0] != "Tortillas" {
		t.Fatalf("unexpected items %v", items)
	}
}

func TestCategorizeSendsRowsAndDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/categorize" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Instruction string `json:"instruction"`
			Items       []Item `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Instruction != "group by aisle" || len(req.Items) != 2 {
			t.Fatalf("unexpected request %+v", req)
		}
		header := "new_1"
		json.NewEncoder(w).Encode(map[string]any{"items": []Item{
			{ID: header, Content: "# Dairy", Position: 0},
			{ID: req.Items[0].ID, Content: req.Items[0].Content, ParentID: &header, Position: 0},
			{ID: req.Items[1].ID, Content: req.Items[1].Content, ParentID: &header, Position: 1},
		}})
	}))
	defer srv.Close()

	rows := []item.Item{
		{ID: "itm_1", Content: "Milk"},
		{ID: "itm_2", Content: "Butter"},
	}
	result, err := New(srv.URL).Categorize(context.Background(), "group by aisle", rows)
	if err != nil {
		t.Fatalf("categorize: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("expected 3 result rows, got %d", len(result))
	}
	if !IsSynthetic(result[0].ID) {
		t.Fatalf("expected a synthetic header id, got %q", result[0].ID)
	}
	if result[1].ParentID == nil || *result[1].ParentID != "new_1" {
		t.Fatalf("expected children under the synthetic header, got %+v", result[1])
	}
}

func TestTheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/theme" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"color": "#b5e3d8"})
	}))
	defer srv.Close()

	color, err := New(srv.URL).Theme(context.Background(), "fresh mint")
	if err != nil {
		t.Fatalf("theme: %v", err)
	}
	if color != "#b5e3d8" {
		t.Fatalf("unexpected color %q", color)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Generate(context.Background(), "anything"); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestIsSynthetic(t *testing.T) {
	if !IsSynthetic("new_12") {
		t.Fatal("new_ ids are synthetic")
	}
	if IsSynthetic("itm_12") {
		t.Fatal("itm_ ids are real")
	}
}
