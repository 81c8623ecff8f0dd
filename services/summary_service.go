package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/slack-go/slack"

	"paymentpanel/models"
	"paymentpanel/record"
)

type SummaryService struct {
	client slackClient
}

func NewSummaryService(client slackClient) *SummaryService {
	return &SummaryService{client: client}
}

func getCurrencySymbol(currency string) string {
	symbols := map[string]string{
		"USD": "$",
		"EUR": "€",
		"GBP": "£",
		"JPY": "¥",
		"HKD": "HK$",
		"CAD": "C$",
		"AUD": "A$",
	}
	if symbol, exists := symbols[strings.ToUpper(currency)]; exists {
		return symbol
	}
	return strings.ToUpper(currency) + " "
}

// formatAmount renders an amount held in minor units
func formatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%s%.2f", getCurrencySymbol(currency), float64(amount)/100)
}

func displayOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatSyncTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

// GenerateSummaryPDF renders the payment link summary of one opportunity
func (ss *SummaryService) GenerateSummaryPDF(opp record.Opportunity, state models.LinkState) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.Cell(0, 10, "Payment Link Summary")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 5, fmt.Sprintf("Generated: %s", time.Now().UTC().Format("January 2, 2006 15:04 UTC")))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Opportunity")
	pdf.Ln(8)

	// Amounts use the ISO code; the core fonts cannot encode every currency symbol
	rows := [][2]string{
		{"Name", opp.Name},
		{"ID", opp.ID},
		{"Amount", fmt.Sprintf("%.2f %s", float64(opp.Amount)/100, strings.ToUpper(opp.Currency))},
	}
	writeRows(pdf, rows)
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Payment Link")
	pdf.Ln(8)

	writeRows(pdf, [][2]string{
		{"URL", displayOrDash(state.PaymentLinkURL)},
		{"Reference", displayOrDash(state.ReferenceID)},
		{"Status", displayOrDash(state.Status)},
		{"Last Sync", formatSyncTime(state.LastSyncAt)},
	})

	if state.ErrorMessage != "" {
		pdf.Ln(6)
		pdf.SetTextColor(160, 0, 0)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Last error: "+state.ErrorMessage)
		pdf.SetTextColor(0, 0, 0)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(pdf *gofpdf.Fpdf, rows [][2]string) {
	pdf.SetDrawColor(200, 200, 200)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(40, 7, row[0])
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(0, 7, row[1])
		pdf.Ln(7)
		pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
		pdf.Ln(1)
	}
}

// SendSummaryToSlack uploads the PDF to the channel, falling back to the user's DM
func (ss *SummaryService) SendSummaryToSlack(userID, channelID string, opp record.Opportunity, pdfBytes []byte) error {
	message := fmt.Sprintf("📄 Payment summary for *%s* (%s)", opp.Name, formatAmount(opp.Amount, opp.Currency))
	filename := fmt.Sprintf("Payment_Summary_%s.pdf", opp.ID)

	_, err := ss.client.UploadFile(slack.FileUploadParameters{
		Reader:         bytes.NewReader(pdfBytes),
		Filename:       filename,
		Title:          fmt.Sprintf("Payment summary %s", opp.ID),
		Filetype:       "pdf",
		Channels:       []string{channelID},
		InitialComment: message,
	})
	if err == nil {
		return nil
	}

	debugMessage := message + fmt.Sprintf("\n\n:warning: _This file was not sent to the channel because of: %v. Perhaps add the bot to the channel?_", err)
	_, dmErr := ss.client.UploadFile(slack.FileUploadParameters{
		Reader:         bytes.NewReader(pdfBytes),
		Filename:       filename,
		Title:          fmt.Sprintf("Payment summary %s", opp.ID),
		Filetype:       "pdf",
		Channels:       []string{userID},
		InitialComment: debugMessage,
	})
	if dmErr != nil {
		return fmt.Errorf("failed to upload summary to both channel and DM: %v (channel error: %w)", dmErr, err)
	}
	return nil
}
