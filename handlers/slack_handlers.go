package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/slack-go/slack"

	"paymentpanel/logger"
	"paymentpanel/services"
	"paymentpanel/utils"
)

// PanelCommand is the slash command that opens a payment link panel
const PanelCommand = "/payment-link"

const maxSlackBodyBytes = int64(1 << 20)

// panelService is the part of services.SlackService the Slack endpoints use
type panelService interface {
	GetSigningSecret() string
	OpenPanel(ctx context.Context, channelID, recordID string) error
	HandlePanelAction(ctx context.Context, action services.PanelAction) error
}

type SlackHandler struct {
	service  panelService
	// dispatch runs button work after Slack has been acknowledged
	dispatch func(func())
}

func NewSlackHandler(svc panelService) *SlackHandler {
	return &SlackHandler{
		service:  svc,
		dispatch: func(fn func()) { go fn() },
	}
}

// verifySlackRequest checks the request signature and leaves the body readable
func (sh *SlackHandler) verifySlackRequest(w http.ResponseWriter, r *http.Request) bool {
	log := logger.FromContext(r.Context())

	verifier, err := slack.NewSecretsVerifier(r.Header, sh.service.GetSigningSecret())
	if err != nil {
		log.Warn("Error creating Slack verifier", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}

	body, err := io.ReadAll(io.TeeReader(http.MaxBytesReader(w, r.Body, maxSlackBodyBytes), &verifier))
	if err != nil {
		log.Warn("Error reading Slack request body", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}

	if err := verifier.Ensure(); err != nil {
		log.Warn("Error verifying Slack request", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	return true
}

// HandleSlackCommands serves /payment-link <opportunity_id>
func (sh *SlackHandler) HandleSlackCommands(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	if !sh.verifySlackRequest(w, r) {
		return
	}

	sCmd, err := slack.SlashCommandParse(r)
	if err != nil {
		log.Warn("Error parsing slash command", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	log.Info("Parsed Slack command",
		"command", sCmd.Command,
		"text", sCmd.Text,
		"user_id", sCmd.UserID,
		"channel_id", sCmd.ChannelID)

	if sCmd.Command != PanelCommand {
		respondToSlack(w, fmt.Sprintf("Unknown command: %s", sCmd.Command))
		return
	}

	recordID, err := utils.ParsePanelCommand(sCmd.Text)
	if err != nil {
		respondToSlack(w, err.Error())
		return
	}

	if err := sh.service.OpenPanel(r.Context(), sCmd.ChannelID, recordID); err != nil {
		if errors.Is(err, services.ErrOpportunityNotFound) {
			respondToSlack(w, fmt.Sprintf("Opportunity %s not found.", recordID))
			return
		}
		log.Error("Error opening payment panel", "record_id", recordID, "error", err)
		respondToSlack(w, "Error opening payment panel. Please try again.")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleSlackInteractions acknowledges panel button presses and runs them in the background
func (sh *SlackHandler) HandleSlackInteractions(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	if !sh.verifySlackRequest(w, r) {
		return
	}

	payload := r.FormValue("payload")
	var interaction slack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &interaction); err != nil {
		log.Warn("Error parsing interaction payload", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if interaction.Type != slack.InteractionTypeBlockActions {
		log.Info("Unhandled interaction type", "type", interaction.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	actions := panelActions(interaction)
	if len(actions) > 0 {
		ctx := context.WithoutCancel(r.Context())
		sh.dispatch(func() {
			for _, action := range actions {
				if err := sh.service.HandlePanelAction(ctx, action); err != nil {
					logger.FromContext(ctx).Error("Panel action failed",
						"action_id", action.ActionID,
						"record_id", action.RecordID,
						"error", err)
				}
			}
		})
	}
	w.WriteHeader(http.StatusOK)
}

func panelActions(interaction slack.InteractionCallback) []services.PanelAction {
	messageTS := interaction.Container.MessageTs
	if messageTS == "" {
		messageTS = interaction.Message.Timestamp
	}

	var actions []services.PanelAction
	for _, a := range interaction.ActionCallback.BlockActions {
		if a == nil || a.BlockID != services.PanelActionsBlockID {
			continue
		}
		actions = append(actions, services.PanelAction{
			ActionID:  a.ActionID,
			RecordID:  a.Value,
			ChannelID: interaction.Channel.ID,
			MessageTS: messageTS,
			UserID:    interaction.User.ID,
		})
	}
	return actions
}

func respondToSlack(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"response_type": "ephemeral", "text": text})
}
