package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/manifoldco/promptui"

	"github.com/payqr/payqr"
)

type consoleState struct {
	addr    string
	started time.Time
	repos   payqr.Repos
}

// runConsole drives the interactive admin console. It loops on a menu
// until the operator picks "exit" or the server context ends; picking
// "exit" requests a graceful shutdown.
func runConsole(ctx context.Context, state consoleState, requestStop func()) {
	for {
		if ctx.Err() != nil {
			return
		}

		sel := promptui.Select{
			Label: "payqr console",
			Items: []string{"status", "tokens", "exit"},
		}

		_, choice, err := sel.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) {
				requestStop()
				return
			}
			slog.Warn("console prompt failed, disabling console", "err", err)
			return
		}

		switch choice {
		case "status":
			fmt.Printf("listening on %s, up %s\n",
				state.addr, time.Since(state.started).Round(time.Second))
		case "tokens":
			printTokens(ctx, state.repos.Tokens)
		case "exit":
			requestStop()
			return
		}
	}
}

func printTokens(ctx context.Context, tokens payqr.TokenRepo) {
	list, err := tokens.List(ctx)
	if err != nil {
		fmt.Printf("list tokens: %v\n", err)
		return
	}

	if len(list) == 0 {
		fmt.Println("no active tokens")
		return
	}

	for _, t := range list {
		fmt.Printf("%-20s %v\n", t.ID, t.Permissions)
	}
}
