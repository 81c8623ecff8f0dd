package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"

	"paymentpanel/controller"
	"paymentpanel/logger"
	"paymentpanel/models"
	"paymentpanel/record"
)

// Operator-facing messages
const (
	MsgGenerateUnavailable = "A payment link cannot be generated for this opportunity right now."
	MsgSummarySent         = "Payment summary uploaded."
	MsgPanelClosed         = "Payment link panel closed."
	ErrMsgUnknownAction    = "unknown panel action: %s"
)

// ErrOpportunityNotFound is returned when a panel is requested for an unknown record
var ErrOpportunityNotFound = errors.New("opportunity not found")

// slackClient is the subset of *slack.Client the panel uses
type slackClient interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	UpdateMessage(channelID, timestamp string, options ...slack.MsgOption) (string, string, string, error)
	PostEphemeral(channelID, userID string, options ...slack.MsgOption) (string, error)
	UploadFile(params slack.FileUploadParameters) (*slack.File, error)
}

// PanelAction is a button press on a rendered panel
type PanelAction struct {
	ActionID  string
	RecordID  string
	ChannelID string
	MessageTS string
	UserID    string
}

type SlackService struct {
	client        slackClient
	signingSecret string
	panels        *PanelRegistry
	store         record.Store
	summaries     *SummaryService
	provider      models.PaymentProvider
}

func NewSlackService(client slackClient, signingSecret string, panels *PanelRegistry, store record.Store, summaries *SummaryService, provider models.PaymentProvider) *SlackService {
	return &SlackService{
		client:        client,
		signingSecret: signingSecret,
		panels:        panels,
		store:         store,
		summaries:     summaries,
		provider:      provider,
	}
}

func (s *SlackService) GetSigningSecret() string {
	return s.signingSecret
}

// panelSession scopes Slack panels to the channel they are posted in
func panelSession(channelID string) string {
	return "slack:" + channelID
}

func (s *SlackService) loadOpportunity(ctx context.Context, recordID string) (record.Opportunity, error) {
	opp, err := s.store.GetOpportunity(ctx, recordID)
	if errors.Is(err, record.ErrNotFound) {
		return record.Opportunity{}, ErrOpportunityNotFound
	}
	if err != nil {
		return record.Opportunity{}, fmt.Errorf("load opportunity %s: %w", recordID, err)
	}
	return opp, nil
}

func (s *SlackService) renderPanel(ctx context.Context, opp record.Opportunity, ctrl *controller.LinkController) slack.MsgOption {
	blocks := BuildPanelBlocks(opp, ctrl.State(), ctrl.IsGenerateDisabled(ctx), s.provider)
	return slack.MsgOptionBlocks(blocks...)
}

// OpenPanel mounts a panel for recordID and posts it to channelID
func (s *SlackService) OpenPanel(ctx context.Context, channelID, recordID string) error {
	log := logger.FromContext(ctx)

	opp, err := s.loadOpportunity(ctx, recordID)
	if err != nil {
		return err
	}

	ctrl := s.panels.Mount(panelSession(channelID), recordID)
	_, ts, err := s.client.PostMessage(channelID,
		s.renderPanel(ctx, opp, ctrl),
		slack.MsgOptionText(fmt.Sprintf("Payment link panel for %s", opp.Name), false),
	)
	if err != nil {
		log.Error("Failed to post payment panel", "record_id", recordID, "channel_id", channelID, "error", err)
		return fmt.Errorf("failed to post panel: %w", err)
	}

	log.Info("Payment panel opened", "record_id", recordID, "channel_id", channelID, "message_ts", ts)
	return nil
}

// HandlePanelAction runs the pressed button's operation, redraws the panel
// in place and tells the operator how a generation ended
func (s *SlackService) HandlePanelAction(ctx context.Context, action PanelAction) error {
	log := logger.FromContext(ctx).With("record_id", action.RecordID, "action_id", action.ActionID)

	opp, err := s.loadOpportunity(ctx, action.RecordID)
	if err != nil {
		return err
	}
	ctrl := s.panels.Mount(panelSession(action.ChannelID), action.RecordID)

	switch action.ActionID {
	case ActionGenerateLink:
		// Panels posted before the status turned terminal still show the button
		if ctrl.IsGenerateDisabled(ctx) {
			s.postEphemeral(ctx, action, MsgGenerateUnavailable)
			break
		}
		outcome := ctrl.Generate(ctx)
		if outcome.Notification != nil {
			s.postEphemeral(ctx, action, FormatNotification(*outcome.Notification))
		}
	case ActionRefreshStatus:
		ctrl.RefreshStatus(ctx)
	case ActionExportSummary:
		if err := s.exportSummary(ctx, action, opp, ctrl.State()); err != nil {
			log.Error("Summary export failed", "error", err)
			s.postEphemeral(ctx, action, fmt.Sprintf(":x: Could not export summary: %v", err))
		}
		return nil
	case ActionClosePanel:
		s.ClosePanel(action.ChannelID, action.RecordID)
		_, _, _, err := s.client.UpdateMessage(action.ChannelID, action.MessageTS,
			slack.MsgOptionText(MsgPanelClosed, false),
			slack.MsgOptionBlocks(),
		)
		if err != nil {
			return fmt.Errorf("failed to close panel: %w", err)
		}
		return nil
	default:
		return fmt.Errorf(ErrMsgUnknownAction, action.ActionID)
	}

	if _, _, _, err := s.client.UpdateMessage(action.ChannelID, action.MessageTS, s.renderPanel(ctx, opp, ctrl)); err != nil {
		log.Error("Failed to update payment panel", "error", err)
		return fmt.Errorf("failed to update panel: %w", err)
	}
	return nil
}

func (s *SlackService) exportSummary(ctx context.Context, action PanelAction, opp record.Opportunity, state models.LinkState) error {
	pdfBytes, err := s.summaries.GenerateSummaryPDF(opp, state)
	if err != nil {
		return err
	}
	if err := s.summaries.SendSummaryToSlack(action.UserID, action.ChannelID, opp, pdfBytes); err != nil {
		return err
	}
	s.postEphemeral(ctx, action, MsgSummarySent)
	return nil
}

func (s *SlackService) postEphemeral(ctx context.Context, action PanelAction, text string) {
	if _, err := s.client.PostEphemeral(action.ChannelID, action.UserID, slack.MsgOptionText(text, false)); err != nil {
		logger.FromContext(ctx).Warn("Failed to deliver ephemeral message", "user_id", action.UserID, "error", err)
	}
}

// ClosePanel unmounts the panel for recordID in channelID
func (s *SlackService) ClosePanel(channelID, recordID string) bool {
	return s.panels.Unmount(panelSession(channelID), recordID)
}
