package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ProductCatalog/internal/catalog"
	"ProductCatalog/pkg/kit"
)

type sample struct {
	title       string
	description string
	price       string
	stock       int64
}

var samples = []sample{
	{"Blue Shirt", "Slim fit cotton shirt", "29.90", 40},
	{"Denim Jacket", "Washed denim, brass buttons", "89.00", 12},
	{"Running Shoes", "Lightweight mesh trainers", "119.50", 25},
	{"Wool Beanie", "Merino wool, one size", "19.00", 60},
	{"Leather Belt", "Full grain leather belt", "45.00", 30},
	{"Canvas Tote", "Heavy canvas shopping bag", "15.50", 80},
	{"Rain Coat", "Waterproof shell with hood", "139.00", 8},
	{"Linen Trousers", "Relaxed linen trousers", "64.90", 20},
	{"Sport Socks", "Pack of five cotton socks", "12.00", 150},
	{"Sunglasses", "Polarised lenses, acetate frame", "75.00", 18},
	{"Hoodie", "Brushed fleece hoodie", "54.00", 35},
	{"Baseball Cap", "Adjustable cotton twill cap", "22.00", 50},
}

func main() {
	var (
		dataFile string
		count    int
	)
	flag.StringVar(&dataFile, "data-file", "products.json", "catalog backing file to populate")
	flag.IntVar(&count, "n", len(samples), "number of sample products to add")
	flag.Parse()

	log, err := kit.NewLogger("catalog-seed", "info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog-seed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(context.Background(), log, dataFile, count); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}

func run(ctx context.Context, log *zap.Logger, dataFile string, count int) error {
	if count < 0 {
		return errors.Errorf("count %d is negative", count)
	}

	store := catalog.NewFileStore(dataFile)
	manager := catalog.NewManager(ctx, store, catalog.WithLogger(log))

	added := 0
	for i := range count {
		s := samples[i%len(samples)]
		in := catalog.ProductInput{
			Title:       s.title,
			Description: s.description,
			Price:       decimal.RequireFromString(s.price),
			Thumbnail:   fmt.Sprintf("https://cdn.example.com/products/%03d.jpg", i+1),
			Code:        fmt.Sprintf("SKU-%03d", i+1),
			Stock:       s.stock,
		}
		if i >= len(samples) {
			in.Title = fmt.Sprintf("%s #%d", s.title, i/len(samples)+1)
		}

		p, err := manager.Create(ctx, in)
		if errors.Is(err, catalog.ErrDuplicateCode) {
			log.Info("product already present", zap.String("code", in.Code))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create %s", in.Code)
		}
		added++
		log.Debug("product added", zap.String("id", p.ID), zap.String("code", p.Code))
	}

	// The manager only logs write failures, so read the file back.
	if added > 0 {
		saved, err := store.Load(ctx)
		if err != nil {
			return errors.Wrap(err, "verify data file")
		}
		if len(saved) != manager.Count() {
			return errors.Errorf("data file holds %d products, want %d", len(saved), manager.Count())
		}
	}

	log.Info("seed completed",
		zap.String("data_file", dataFile),
		zap.Int("added", added),
		zap.Int("total", manager.Count()),
	)
	return nil
}
