package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/acquirelab/threedsflow"
	"github.com/acquirelab/threedsflow/pkg/domain"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full authentication sequence from the command line",
	Long: `Drives a complete test run against the configured backend: starts a
session, executes the three steps in order, and resolves any challenge
automatically. Useful for smoke-testing gateway credentials.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		amount, _ := cmd.Flags().GetString("amount")

		harness, _, cleanup, err := buildHarness(cfg)
		if err != nil {
			fmt.Printf("Error initializing harness: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		ctx := cmd.Context()
		sess, err := harness.StartSession(ctx, cfg.Gateway, cfg.Card, threedsflow.StartParams{Amount: amount})
		if err != nil {
			fmt.Printf("Error starting session: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Session %s (order %s, transaction %s)\n", sess.ID, sess.OrderID, sess.TransactionID)

		if err := runSequence(ctx, harness, sess.ID); err != nil {
			fmt.Printf("Run failed: %v\n", err)
			os.Exit(1)
		}

		final, err := harness.Session(ctx, sess.ID)
		if err != nil {
			fmt.Printf("Error loading session: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Run finished with status %s\n", final.Status)
		for _, entry := range final.Log {
			fmt.Printf("  [%s] %s\n", entry.Kind, entry.Message)
		}
		if final.Status != domain.StatusCompleted {
			os.Exit(1)
		}
	},
}

func runSequence(ctx context.Context, harness *threedsflow.Harness, sessionID string) error {
	for step := 1; step <= 2; step++ {
		if err := runStep(ctx, harness, sessionID, step); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
	}

	// A challenge from step 2 cannot be completed headlessly; resolving it
	// runs the authorization step, so only a frictionless flow needs an
	// explicit step 3.
	sess, err := harness.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Challenge != nil {
		fmt.Println("Challenge presented, resolving")
		_, result, err := harness.ResolveChallenge(ctx, sessionID)
		if err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("authorization after challenge failed: %s", result.Error)
		}
		fmt.Println("Step 3 ok")
		return nil
	}
	if err := runStep(ctx, harness, sessionID, 3); err != nil {
		return fmt.Errorf("step 3: %w", err)
	}
	return nil
}

func runStep(ctx context.Context, harness *threedsflow.Harness, sessionID string, step int) error {
	_, result, err := harness.ExecuteStep(ctx, sessionID, step)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("gateway rejected the request: %s", result.Error)
	}
	fmt.Printf("Step %d ok\n", step)
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("amount", "25.00", "Transaction amount")
}
