package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Etheryii/Ai-Assistant-New/models"
	"github.com/Etheryii/Ai-Assistant-New/services"
)

const (
	colorReset  = "\033[0m"
	colorCyan   = "\033[96m"
	colorGreen  = "\033[92m"
	colorYellow = "\033[93m"
	colorGrey   = "\033[90m"
)

// runCLI drives the assistant from the terminal: same pipeline as the HTTP
// server, with conversation history kept for the session.
func runCLI(chat *services.ChatService, accountant *services.TokenAccountant) {
	fmt.Printf("%sSupport Assistant — interactive mode%s\n", colorCyan, colorReset)
	fmt.Printf("%sType your question, or 'exit' to quit.%s\n\n", colorGrey, colorReset)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var history []models.HistoryTurn

	for {
		fmt.Printf("%sYou:%s ", colorGreen, colorReset)
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		switch strings.ToLower(message) {
		case "exit", "quit", "bye", "goodbye":
			printSessionTotals(accountant)
			fmt.Printf("%sGoodbye!%s\n", colorCyan, colorReset)
			return
		}

		start := time.Now()
		resp := chat.Answer(context.Background(), models.ChatRequest{
			Message:          message,
			UseKnowledgeBase: true,
			History:          history,
		})
		elapsed := time.Since(start)

		fmt.Printf("\n%sAssistant:%s %s\n", colorCyan, colorReset, resp.Reply)
		if len(resp.Sources) > 0 {
			fmt.Printf("%sSources: %s%s\n", colorGrey, strings.Join(resp.Sources, ", "), colorReset)
		}
		fmt.Printf("%sTokens: %d in / %d out / %d total  (%.2fs)%s\n\n",
			colorGrey,
			resp.TokenUsage.InputTokens,
			resp.TokenUsage.OutputTokens,
			resp.TokenUsage.TotalTokens,
			elapsed.Seconds(),
			colorReset,
		)

		history = append(history,
			models.HistoryTurn{Role: "user", Text: message},
			models.HistoryTurn{Role: "assistant", Text: resp.Reply},
		)
	}

	printSessionTotals(accountant)
}

func printSessionTotals(accountant *services.TokenAccountant) {
	turns, usage := accountant.Snapshot()
	if turns == 0 {
		return
	}
	fmt.Printf("%sSession: %d turns, %d input + %d output = %d tokens%s\n",
		colorYellow, turns, usage.InputTokens, usage.OutputTokens, usage.TotalTokens, colorReset)
}
