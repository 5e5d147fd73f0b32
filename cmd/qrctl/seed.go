package main

import (
	"fmt"
	"os"
	"time"

	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/spf13/cobra"
)

var seedSkipCards bool

// seedCmd 初始化管理员与演示卡片
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default admin and a few demo cards",
	Long: `Creates the default super admin (QR_DEFAULT_ADMIN_USERNAME /
QR_DEFAULT_ADMIN_PASSWORD) when no admin exists, then adds demo cards.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedSkipCards, "admin-only", false, "Only create the default admin")
}

func demoCards(now time.Time) []service.CreateCardInput {
	weekLater := now.Add(7 * 24 * time.Hour)
	return []service.CreateCardInput{
		{
			BusinessName: "Corner Cafe",
			Header:       "Free espresso",
			Subheader:    "One per guest, show this message at the counter",
			Address:      "12 Market Street",
			Quantity:     50,
			ExpiresAt:    &weekLater,
		},
		{
			BusinessName: "Book Nook",
			Header:       "20% off any paperback",
			Address:      "3 River Road",
			Quantity:     20,
		},
		{
			BusinessName: "Launch Party",
			Header:       "First 5 guests get a tote bag",
			Quantity:     5,
		},
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := models.InitDefaultAdmin(os.Getenv("QR_DEFAULT_ADMIN_USERNAME"), os.Getenv("QR_DEFAULT_ADMIN_PASSWORD")); err != nil {
		return fmt.Errorf("init default admin: %w", err)
	}
	if seedSkipCards {
		return nil
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	for _, input := range demoCards(time.Now().UTC()) {
		card, err := e.container.CardService.Create(ctx, cliOperator, input)
		if err != nil {
			return fmt.Errorf("create card %q: %w", input.Header, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", input.Header, e.container.CardService.ClaimURL(card.Code))
	}
	return nil
}
