package main

import (
	"fmt"
	"os"

	"github.com/mcdev12/quizarena/go/internal/questions"
)

// Validates a question bank file before it is deployed:
//
//	go run ./go/internal/tools/check_questions questions.yaml
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <bank.yaml|bank.json>\n", os.Args[0])
		os.Exit(2)
	}

	bank, err := questions.Load(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "load bank: %v\n", err)
		os.Exit(1)
	}

	var (
		total   = len(bank)
		choices int
		seen    = make(map[string]bool, total)
		dupes   int
	)
	for _, q := range bank {
		choices += len(q.Choices)
		if seen[q.Text] {
			fmt.Fprintf(os.Stderr, "duplicate question: %q\n", q.Text)
			dupes++
		}
		seen[q.Text] = true
	}

	fmt.Printf("Questions: %d\n", total)
	if total > 0 {
		fmt.Printf("Average choices: %.1f\n", float64(choices)/float64(total))
	}
	fmt.Printf("Duplicates: %d\n", dupes)
	if dupes > 0 {
		os.Exit(1)
	}
}
