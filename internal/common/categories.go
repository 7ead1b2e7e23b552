package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// Category is a suggested category shown in help text. Users may still
// type any category they like.
type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type CategoriesConfig struct {
	Categories []Category `yaml:"categories"`
}

func DefaultCategories() []Category {
	return []Category{
		{Name: "food"},
		{Name: "petrol"},
		{Name: "creditcard"},
		{Name: "emi"},
	}
}

func LoadCategories(categoriesFile string) ([]Category, error) {
	var categoriesPath string
	if filepath.IsAbs(categoriesFile) {
		categoriesPath = categoriesFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		categoriesPath = filepath.Join(wd, categoriesFile)
	}

	data, err := os.ReadFile(categoriesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", categoriesFile, err)
	}

	var config CategoriesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", categoriesFile, err)
	}

	seen := make(map[string]bool, len(config.Categories))
	categories := make([]Category, 0, len(config.Categories))
	for i, category := range config.Categories {
		category.Name = strings.TrimSpace(category.Name)
		if category.Name == "" {
			return nil, fmt.Errorf("category at index %d missing name", i)
		}
		if seen[category.Name] {
			continue
		}
		seen[category.Name] = true
		categories = append(categories, category)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%s lists no categories", categoriesFile)
	}

	return categories, nil
}

// CategoryNames returns the names in file order.
func CategoryNames(categories []Category) []string {
	names := make([]string, len(categories))
	for i, category := range categories {
		names[i] = category.Name
	}
	return names
}
