package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"invoicer/internal/logger"
	"invoicer/internal/numbering"
)

var numberCmd = &cobra.Command{
	Use:   "number",
	Short: "Issue or inspect invoice numbers",
	Long: `Invoice numbers have the form <PREFIX>-<YYYY-MM-DD>-<NN>, where NN is a
running counter shared by all invoices. The counter never resets.`,
}

var numberNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Issue the next invoice number",
	Args:  cobra.NoArgs,
	RunE:  runNumberNext,
}

var numberPeekCmd = &cobra.Command{
	Use:   "peek",
	Short: "Show the last issued counter without consuming a number",
	Args:  cobra.NoArgs,
	RunE:  runNumberPeek,
}

func init() {
	rootCmd.AddCommand(numberCmd)
	numberCmd.AddCommand(numberNextCmd, numberPeekCmd)
}

func runNumberNext(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("number")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		number, err := a.numbers.Next(ctx)
		if err != nil {
			return handleStorageError(err, log)
		}
		fmt.Fprintln(cmd.OutOrStdout(), number)
		return nil
	})
}

func runNumberPeek(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("number")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		last, err := a.numbers.Peek(ctx)
		if err != nil {
			return handleStorageError(err, log)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Last issued counter: %d\n", last)
		fmt.Fprintf(out, "Next number today:   %s\n", numbering.Format(a.numbers.Prefix(), time.Now(), last+1))
		return nil
	})
}
