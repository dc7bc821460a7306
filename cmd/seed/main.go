package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"barista-ai-ordering/internal/config"
	"barista-ai-ordering/internal/domain/model"
	pg "barista-ai-ordering/internal/infra/db/postgres"
)

// seedBeverage is the YAML shape of one catalog entry.
type seedBeverage struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	PriceCents  int64  `yaml:"price_cents"`
	Tags        []string `yaml:"tags"`
	Axes        []struct {
		Name     string   `yaml:"name"`
		Values   []string `yaml:"values"`
		Default  string   `yaml:"default"`
		Required bool     `yaml:"required"`
	} `yaml:"axes"`
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	seedPath := flag.String("catalog", "", "catalog YAML (overrides catalog.seed_file)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	path := cfg.Catalog.SeedFile
	if *seedPath != "" {
		path = *seedPath
	}
	if path == "" {
		log.Fatal("no catalog file: set catalog.seed_file or pass -catalog")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read catalog: %v", err)
	}
	var entries []seedBeverage
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		log.Fatalf("parse catalog: %v", err)
	}
	if len(entries) == 0 {
		log.Fatalf("catalog %q is empty", path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	repo := pg.NewCatalogRepo(pool)
	for _, e := range entries {
		b := &model.Beverage{
			ID:             e.ID,
			Name:           e.Name,
			Description:    e.Description,
			BasePriceCents: e.PriceCents,
			Tags:           e.Tags,
		}
		for _, a := range e.Axes {
			b.Axes = append(b.Axes, model.CustomizationAxis{
				Name:     a.Name,
				Values:   a.Values,
				Default:  a.Default,
				Required: a.Required,
			})
		}
		if err := repo.Save(ctx, b); err != nil {
			log.Fatalf("save beverage %q: %v", e.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, price=%d¢, axes=%d)\n", b.Name, b.ID, b.BasePriceCents, len(b.Axes))
	}

	fmt.Printf("✅ %d beverages seeded.\n", len(entries))
}
