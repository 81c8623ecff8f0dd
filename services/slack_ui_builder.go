package services

import (
	"fmt"

	"github.com/slack-go/slack"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"paymentpanel/models"
	"paymentpanel/record"
)

// Panel block and action identifiers
const (
	PanelActionsBlockID = "payment_panel_actions"
	ActionGenerateLink  = "generate_payment_link"
	ActionRefreshStatus = "refresh_payment_status"
	ActionExportSummary = "export_payment_summary"
	ActionClosePanel    = "close_payment_panel"
	panelErrorBlockID   = "payment_panel_error"
	panelDetailsBlockID = "payment_panel_details"
	panelFooterBlockID  = "payment_panel_footer"
)

var titleCaser = cases.Title(language.English)

func newPlainTextBlock(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

func newMarkdownBlock(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

// BuildPanelBlocks renders a record's payment link panel. The generate
// button is left out while generateDisabled is set.
func BuildPanelBlocks(opp record.Opportunity, state models.LinkState, generateDisabled bool, provider models.PaymentProvider) []slack.Block {
	header := slack.NewSectionBlock(
		newMarkdownBlock(fmt.Sprintf("*Payment link* for *%s*\nAmount: *%s*", opp.Name, formatAmount(opp.Amount, opp.Currency))),
		nil,
		nil,
	)

	link := "-"
	if state.PaymentLinkURL != "" {
		link = fmt.Sprintf("<%s|Open payment page>", state.PaymentLinkURL)
	}
	details := slack.NewSectionBlock(nil, []*slack.TextBlockObject{
		newMarkdownBlock("*Link*\n" + link),
		newMarkdownBlock("*Reference*\n" + displayOrDash(state.ReferenceID)),
		newMarkdownBlock("*Status*\n" + displayOrDash(state.Status)),
		newMarkdownBlock("*Last sync*\n" + formatSyncTime(state.LastSyncAt)),
	}, nil, slack.SectionBlockOptionBlockID(panelDetailsBlockID))

	blocks := []slack.Block{header, details}

	if state.ErrorMessage != "" {
		blocks = append(blocks, slack.NewContextBlock(panelErrorBlockID,
			newMarkdownBlock(":warning: "+state.ErrorMessage),
		))
	}

	var buttons []slack.BlockElement
	if !generateDisabled {
		generate := slack.NewButtonBlockElement(ActionGenerateLink, opp.ID, newPlainTextBlock("Generate link"))
		generate.Style = slack.StylePrimary
		buttons = append(buttons, generate)
	}
	buttons = append(buttons,
		slack.NewButtonBlockElement(ActionRefreshStatus, opp.ID, newPlainTextBlock("Refresh status")),
		slack.NewButtonBlockElement(ActionExportSummary, opp.ID, newPlainTextBlock("Export summary")),
		slack.NewButtonBlockElement(ActionClosePanel, opp.ID, newPlainTextBlock("Close")),
	)

	blocks = append(blocks,
		slack.NewActionBlock(PanelActionsBlockID, buttons...),
		slack.NewContextBlock(panelFooterBlockID,
			newPlainTextBlock(fmt.Sprintf("Payments by %s", titleCaser.String(string(provider)))),
		),
	)
	return blocks
}

// FormatNotification renders a notification as Slack message text
func FormatNotification(n models.Notification) string {
	icon := ":white_check_mark:"
	if n.Severity == models.SeverityError {
		icon = ":x:"
	}
	return fmt.Sprintf("%s *%s*\n%s", icon, n.Title, n.Message)
}
