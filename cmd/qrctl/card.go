package main

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/service"

	"github.com/spf13/cobra"
)

var (
	cardBusiness  string
	cardHeader    string
	cardSubheader string
	cardAddress   string
	cardQuantity  int
	cardExpiresIn time.Duration
)

// cardCmd 卡片管理
var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Create and inspect reward cards",
}

var cardCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a card and print its claim URL",
	RunE:  runCardCreate,
}

var cardShowCmd = &cobra.Command{
	Use:   "show <id|code>",
	Short: "Show a card with its remaining quantity",
	Args:  cobra.ExactArgs(1),
	RunE:  runCardShow,
}

func init() {
	cardCreateCmd.Flags().StringVar(&cardBusiness, "business", "", "Business name")
	cardCreateCmd.Flags().StringVar(&cardHeader, "header", "", "Reward headline")
	cardCreateCmd.Flags().StringVar(&cardSubheader, "subheader", "", "Reward details")
	cardCreateCmd.Flags().StringVar(&cardAddress, "address", "", "Redemption address")
	cardCreateCmd.Flags().IntVar(&cardQuantity, "quantity", 0, "Number of rewards available")
	cardCreateCmd.Flags().DurationVar(&cardExpiresIn, "expires-in", 0, "Expire after this duration (0 = never)")
	_ = cardCreateCmd.MarkFlagRequired("header")
	_ = cardCreateCmd.MarkFlagRequired("quantity")

	cardCmd.AddCommand(cardCreateCmd)
	cardCmd.AddCommand(cardShowCmd)
}

func runCardCreate(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	var expiresAt *time.Time
	if cardExpiresIn > 0 {
		at := time.Now().UTC().Add(cardExpiresIn)
		expiresAt = &at
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	card, err := e.container.CardService.Create(ctx, cliOperator, service.CreateCardInput{
		BusinessName: cardBusiness,
		Header:       cardHeader,
		Subheader:    cardSubheader,
		Address:      cardAddress,
		Quantity:     cardQuantity,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return err
	}
	detail, err := e.container.CardService.Get(ctx, card.ID)
	if err != nil {
		return err
	}
	return printJSON(cmd, detail)
}

func runCardShow(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	ref := strings.TrimSpace(args[0])
	id, parseErr := strconv.ParseUint(ref, 10, 64)
	if parseErr != nil {
		// 非数字按卡片 code 解析
		card, err := e.container.CardService.ResolveByCode(ctx, ref)
		if err != nil {
			return err
		}
		id = uint64(card.ID)
	}
	if id == 0 {
		return errors.New("card id must be positive")
	}
	detail, err := e.container.CardService.Get(ctx, uint(id))
	if err != nil {
		return err
	}
	return printJSON(cmd, detail)
}
