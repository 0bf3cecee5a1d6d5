package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"riddlerush/internal/config"
	"riddlerush/internal/content"
	"riddlerush/internal/repository"
)

// Offline starter set so a fresh database can run games without the
// riddles API.
var starter = []struct {
	category, text, answer string
}{
	{"funny", "What has to be broken before you can use it?", "An egg"},
	{"funny", "What gets wetter the more it dries?", "A towel"},
	{"funny", "What has hands but can't clap?", "A clock"},
	{"funny", "What has a head and a tail but no body?", "A coin"},
	{"funny", "What goes up but never comes down?", "Your age"},
	{"logic", "The more of this there is, the less you see. What is it?", "Darkness"},
	{"logic", "What can you catch, but not throw?", "A cold"},
	{"logic", "I have keys but open no locks. What am I?", "A piano"},
	{"logic", "What has many teeth but cannot bite?", "A comb"},
	{"logic", "What can travel around the world while staying in a corner?", "A stamp"},
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	riddleRepo := repository.NewRiddleRepo(client.Database(cfg.MongoDatabase))
	provider := content.NewProvider(nil, riddleRepo, nil)

	categories := make(map[string]int)
	for _, r := range starter {
		if _, err := provider.ResolveOrCreate(ctx, r.text, r.answer, r.category); err != nil {
			log.Fatalf("Failed to seed riddle %q: %v", r.text, err)
		}
		categories[r.category]++
	}
	for category, n := range categories {
		if _, err := riddleRepo.SaveCategory(ctx, category); err != nil {
			log.Fatalf("Failed to save category %s: %v", category, err)
		}
		fmt.Printf("Seeded %d riddles in category '%s'\n", n, category)
	}
}
