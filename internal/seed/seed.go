// Package seed loads the initial event content: round configs, the quiz bank,
// design challenges and presentation topics.
package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"rounds-service/internal/config"
	"rounds-service/internal/docstore"
	"rounds-service/internal/domain"
)

// Apply writes the baseline content in one batch. A round document that
// already exists is left alone so admin edits survive a re-seed; questions,
// challenges and topics are replaced wholesale.
func Apply(ctx context.Context, store docstore.Store, cfg *config.Config, log *zap.Logger) error {
	writes := make([]docstore.Write, 0, 64)

	roundsWritten := 0
	for _, round := range rounds(cfg) {
		id := round["id"].(string)
		delete(round, "id")
		if _, err := store.Get(ctx, docstore.CollectionRounds, id); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		writes = append(writes, docstore.Write{
			Collection: docstore.CollectionRounds,
			ID:         id,
			Data:       round,
		})
		roundsWritten++
	}
	for i, q := range questionBank {
		writes = append(writes, docstore.Write{
			Collection: docstore.CollectionQuestions,
			ID:         fmt.Sprintf("r1q%02d", i+1),
			Data: docstore.Document{
				"order":         i + 1,
				"question":      q.prompt,
				"options":       q.options,
				"correctAnswer": q.correct,
				"roundId":       domain.RoundMCQ,
			},
		})
	}
	for i, c := range challenges {
		writes = append(writes, docstore.Write{
			Collection: docstore.CollectionChallenges,
			ID:         fmt.Sprintf("dc%02d", i+1),
			Data:       docstore.Document{"name": c.name, "desc": c.desc},
		})
	}
	for i, topic := range topics {
		writes = append(writes, docstore.Write{
			Collection: docstore.CollectionTopics,
			ID:         fmt.Sprintf("tp%02d", i+1),
			Data:       docstore.Document{"title": topic},
		})
	}

	if err := store.BatchWrite(ctx, writes); err != nil {
		return fmt.Errorf("seed batch write: %w", err)
	}
	log.Info("seed applied",
		zap.Int("rounds", roundsWritten),
		zap.Int("questions", len(questionBank)),
		zap.Int("challenges", len(challenges)),
		zap.Int("topics", len(topics)),
	)
	return nil
}

// rounds builds the four round documents, applying per-round overrides from
// the config file (passwords, limits, activation).
func rounds(cfg *config.Config) []docstore.Document {
	docs := []docstore.Document{
		{
			"id":             domain.RoundMCQ,
			"title":          "Tech Quiz",
			"type":           domain.RoundTypeMCQ,
			"timeLimit":      30,
			"totalQuestions": len(questionBank),
			"isActive":       true,
		},
		{
			"id":             domain.RoundDesign,
			"title":          "Design Sprint",
			"type":           domain.RoundTypeDesign,
			"timeLimit":      45,
			"previewSeconds": 30,
			"isActive":       true,
		},
		{
			"id":        domain.RoundExternal,
			"title":     "Coding Challenge",
			"type":      domain.RoundTypeExternal,
			"timeLimit": 60,
			"isActive":  false,
		},
		{
			"id":        domain.RoundTopic,
			"title":     "Topic Presentation",
			"type":      domain.RoundTypeTopic,
			"timeLimit": 30,
			"isActive":  false,
		},
	}
	for _, doc := range docs {
		override, ok := cfg.Rounds[doc["id"].(string)]
		if !ok {
			continue
		}
		if override.Password != "" {
			doc["password"] = override.Password
		}
		if override.TimeLimit > 0 {
			doc["timeLimit"] = override.TimeLimit
		}
		if override.IsActive != nil {
			doc["isActive"] = *override.IsActive
		}
	}
	return docs
}

type seedQuestion struct {
	prompt  string
	options []string
	correct int
}

var questionBank = []seedQuestion{
	{"Which data structure uses FIFO ordering?", []string{"Stack", "Queue", "Tree", "Graph"}, 1},
	{"What does HTTP status 404 mean?", []string{"Server error", "Unauthorized", "Not found", "Moved permanently"}, 2},
	{"Which sorting algorithm has the best average-case complexity?", []string{"Bubble sort", "Insertion sort", "Merge sort", "Selection sort"}, 2},
	{"What does CSS stand for?", []string{"Computer Style Sheets", "Cascading Style Sheets", "Creative Style System", "Coded Style Syntax"}, 1},
	{"Which HTML tag creates a hyperlink?", []string{"<link>", "<href>", "<a>", "<url>"}, 2},
	{"Which company developed the Go programming language?", []string{"Microsoft", "Google", "Apple", "Mozilla"}, 1},
	{"What is the time complexity of binary search?", []string{"O(n)", "O(n log n)", "O(log n)", "O(1)"}, 2},
	{"Which protocol secures HTTPS traffic?", []string{"SSH", "TLS", "FTP", "SMTP"}, 1},
	{"In Git, which command creates a new branch?", []string{"git branch", "git clone", "git push", "git merge"}, 0},
	{"Which SQL keyword removes duplicate rows?", []string{"UNIQUE", "DISTINCT", "FILTER", "SINGLE"}, 1},
	{"What does RAM stand for?", []string{"Rapid Access Memory", "Read Access Module", "Random Access Memory", "Runtime Allocated Memory"}, 2},
	{"Which language runs natively in web browsers?", []string{"Python", "Java", "C++", "JavaScript"}, 3},
	{"What is the default port for HTTP?", []string{"21", "443", "80", "8080"}, 2},
	{"Which data structure backs recursion?", []string{"Queue", "Stack", "Heap", "List"}, 1},
	{"What does API stand for?", []string{"Application Programming Interface", "Applied Protocol Integration", "Automated Program Instruction", "Advanced Programming Interface"}, 0},
	{"Which of these is a NoSQL database?", []string{"PostgreSQL", "MySQL", "MongoDB", "SQLite"}, 2},
	{"What does DNS resolve?", []string{"IP addresses to MAC addresses", "Domain names to IP addresses", "URLs to file paths", "Ports to services"}, 1},
	{"Which keyword declares a constant in JavaScript?", []string{"var", "let", "const", "static"}, 2},
	{"What is the binary representation of decimal 10?", []string{"1010", "1100", "1001", "1110"}, 0},
	{"Which HTTP method is idempotent by definition?", []string{"POST", "PUT", "PATCH", "CONNECT"}, 1},
	{"What does OOP stand for?", []string{"Open Operations Protocol", "Ordered Object Processing", "Object-Oriented Programming", "Optimal Output Program"}, 2},
	{"Which OSI layer does a router operate at?", []string{"Physical", "Data link", "Network", "Transport"}, 2},
	{"Which of these is a version control system?", []string{"Docker", "Git", "Jenkins", "Kubernetes"}, 1},
	{"What is the result of 2^8?", []string{"128", "256", "512", "64"}, 1},
	{"Which tag embeds JavaScript in HTML?", []string{"<js>", "<code>", "<script>", "<embed>"}, 2},
	{"Which database operation does ACID's A stand for?", []string{"Availability", "Atomicity", "Aggregation", "Authorization"}, 1},
	{"What does CPU stand for?", []string{"Central Processing Unit", "Core Program Utility", "Computer Primary Unit", "Control Process Unit"}, 0},
	{"Which CSS property changes text color?", []string{"font-style", "text-color", "color", "foreground"}, 2},
	{"Which complexity class describes linear growth?", []string{"O(1)", "O(n)", "O(n^2)", "O(log n)"}, 1},
	{"What does JSON stand for?", []string{"Java Standard Object Notation", "JavaScript Object Notation", "Joined String Object Names", "Java Serialized Object Network"}, 1},
}

type seedChallenge struct {
	name string
	desc string
}

var challenges = []seedChallenge{
	{"Login Card", "Recreate a centered login card with a title, two inputs and a primary action button."},
	{"Pricing Table", "Build a three-column pricing table with a highlighted middle tier."},
	{"Profile Banner", "Recreate a profile header with avatar, name, handle and a follow button."},
	{"Notification Toast", "Build a dismissible notification toast anchored to the top-right corner."},
	{"Product Tile", "Recreate a product card with image placeholder, price tag and rating stars."},
}

var topics = []string{
	"The future of WebAssembly",
	"How containers changed deployment",
	"Edge computing versus the cloud",
	"Passwordless authentication",
	"The economics of open source",
	"Privacy engineering in consumer apps",
	"Why typed languages are winning",
	"Large language models as developer tools",
}
