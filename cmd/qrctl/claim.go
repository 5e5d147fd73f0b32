package main

import (
	"strings"

	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/i18n"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/spf13/cobra"
)

var (
	claimContact string
	claimChannel string
	claimLocale  string
)

// claimCmd 在进程内走一遍完整的领取流程
var claimCmd = &cobra.Command{
	Use:   "claim <code>",
	Short: "Claim a card in-process, exactly as the public API does",
	Long: `Runs the claim guard, the recorder and the notifier against the
configured backends. Captcha is verified as configured, so disable
captcha.scenes.claim when using this against a captcha-protected setup.`,
	Args: cobra.ExactArgs(1),
	RunE: runClaim,
}

func init() {
	claimCmd.Flags().StringVar(&claimContact, "contact", "", "Email address or E.164 phone")
	claimCmd.Flags().StringVar(&claimChannel, "channel", constants.ClaimChannelEmail, "Notification channel (email|sms)")
	claimCmd.Flags().StringVar(&claimLocale, "locale", i18n.LocaleEN, "Notification locale")
	_ = claimCmd.MarkFlagRequired("contact")
}

func runClaim(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	result, err := e.container.ClaimService.Claim(ctx, service.ClaimInput{
		Code:     strings.TrimSpace(args[0]),
		Contact:  claimContact,
		Channel:  claimChannel,
		Locale:   claimLocale,
		ClientIP: "127.0.0.1",
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}
