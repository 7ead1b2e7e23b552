package common

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeCategories(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "categories.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write categories file: %v", err)
	}
	return path
}

func TestLoadCategories(t *testing.T) {
	path := writeCategories(t, `
categories:
  - name: food
    description: Groceries
  - name: " petrol "
  - name: food
`)

	categories, err := LoadCategories(path)
	if err != nil {
		t.Fatalf("LoadCategories failed: %v", err)
	}

	if got, want := CategoryNames(categories), []string{"food", "petrol"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if categories[0].Description != "Groceries" {
		t.Errorf("Expected description to be kept, got %q", categories[0].Description)
	}
}

func TestLoadCategories_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "categories:\n  - description: nameless\n"},
		{"empty list", "categories: []\n"},
		{"bad yaml", "categories: [food\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadCategories(writeCategories(t, tt.content)); err == nil {
				t.Error("Expected error")
			}
		})
	}

	if _, err := LoadCategories(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDefaultCategories(t *testing.T) {
	want := []string{"food", "petrol", "creditcard", "emi"}
	if got := CategoryNames(DefaultCategories()); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
