package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"paymentpanel/services"
)

const testSigningSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type MockPanelService struct {
	mock.Mock
}

func (m *MockPanelService) GetSigningSecret() string {
	return testSigningSecret
}

func (m *MockPanelService) OpenPanel(ctx context.Context, channelID, recordID string) error {
	args := m.Called(channelID, recordID)
	return args.Error(0)
}

func (m *MockPanelService) HandlePanelAction(ctx context.Context, action services.PanelAction) error {
	args := m.Called(action)
	return args.Error(0)
}

func newSyncSlackHandler(svc panelService) *SlackHandler {
	h := NewSlackHandler(svc)
	h.dispatch = func(fn func()) { fn() }
	return h
}

// signedSlackRequest builds a form POST carrying a valid Slack v0 signature
func signedSlackRequest(t *testing.T, path string, form url.Values, secret string) *http.Request {
	t.Helper()
	body := form.Encode()
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	mac := hmac.New(sha256.New, []byte(secret))
	_, err := mac.Write([]byte("v0:" + ts + ":" + body))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func commandForm(command, text string) url.Values {
	return url.Values{
		"command":    {command},
		"text":       {text},
		"user_id":    {"U1"},
		"channel_id": {"C1"},
		"team_id":    {"T1"},
	}
}

func slackText(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp["text"]
}

func TestHandleSlackCommands_OpensPanel(t *testing.T) {
	svc := new(MockPanelService)
	svc.On("OpenPanel", "C1", "opp-1").Return(nil)
	h := newSyncSlackHandler(svc)

	rr := httptest.NewRecorder()
	h.HandleSlackCommands(rr, signedSlackRequest(t, "/slack/commands", commandForm(PanelCommand, "opp-1"), testSigningSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestHandleSlackCommands_RejectsBadSignature(t *testing.T) {
	svc := new(MockPanelService)
	h := newSyncSlackHandler(svc)

	rr := httptest.NewRecorder()
	h.HandleSlackCommands(rr, signedSlackRequest(t, "/slack/commands", commandForm(PanelCommand, "opp-1"), "wrong-secret"))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertNotCalled(t, "OpenPanel", mock.Anything, mock.Anything)
}

func TestHandleSlackCommands_UsageErrors(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		text     string
		wantText string
	}{
		{"missing id", PanelCommand, "", "missing opportunity id"},
		{"too many args", PanelCommand, "opp-1 opp-2", "expected a single opportunity id"},
		{"unknown command", "/create-invoice", "opp-1", "Unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newSyncSlackHandler(new(MockPanelService))
			rr := httptest.NewRecorder()
			h.HandleSlackCommands(rr, signedSlackRequest(t, "/slack/commands", commandForm(tt.command, tt.text), testSigningSecret))

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, slackText(t, rr), tt.wantText)
		})
	}
}

func TestHandleSlackCommands_UnknownOpportunity(t *testing.T) {
	svc := new(MockPanelService)
	svc.On("OpenPanel", "C1", "opp-9").Return(services.ErrOpportunityNotFound)
	h := newSyncSlackHandler(svc)

	rr := httptest.NewRecorder()
	h.HandleSlackCommands(rr, signedSlackRequest(t, "/slack/commands", commandForm(PanelCommand, "opp-9"), testSigningSecret))

	assert.Equal(t, "Opportunity opp-9 not found.", slackText(t, rr))
}

const blockActionsPayload = `{
	"type": "block_actions",
	"user": {"id": "U1"},
	"channel": {"id": "C1"},
	"container": {"type": "message", "message_ts": "1700000000.000100", "channel_id": "C1"},
	"actions": [
		{"action_id": "generate_payment_link", "block_id": "payment_panel_actions", "value": "opp-1", "type": "button"},
		{"action_id": "other", "block_id": "somewhere_else", "value": "x", "type": "button"}
	]
}`

func TestHandleSlackInteractions_DispatchesPanelActions(t *testing.T) {
	svc := new(MockPanelService)
	svc.On("HandlePanelAction", services.PanelAction{
		ActionID:  services.ActionGenerateLink,
		RecordID:  "opp-1",
		ChannelID: "C1",
		MessageTS: "1700000000.000100",
		UserID:    "U1",
	}).Return(nil).Once()
	h := newSyncSlackHandler(svc)

	rr := httptest.NewRecorder()
	h.HandleSlackInteractions(rr, signedSlackRequest(t, "/slack/interactions", url.Values{"payload": {blockActionsPayload}}, testSigningSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestHandleSlackInteractions_AcknowledgesBeforeWork(t *testing.T) {
	svc := new(MockPanelService)
	h := NewSlackHandler(svc)
	var queued []func()
	h.dispatch = func(fn func()) { queued = append(queued, fn) }

	rr := httptest.NewRecorder()
	h.HandleSlackInteractions(rr, signedSlackRequest(t, "/slack/interactions", url.Values{"payload": {blockActionsPayload}}, testSigningSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, queued, 1)
	svc.AssertNotCalled(t, "HandlePanelAction", mock.Anything)

	svc.On("HandlePanelAction", mock.Anything).Return(nil)
	queued[0]()
	svc.AssertNumberOfCalls(t, "HandlePanelAction", 1)
}

func TestHandleSlackInteractions_IgnoresOtherTypes(t *testing.T) {
	svc := new(MockPanelService)
	h := newSyncSlackHandler(svc)

	rr := httptest.NewRecorder()
	payload := `{"type": "view_submission", "user": {"id": "U1"}}`
	h.HandleSlackInteractions(rr, signedSlackRequest(t, "/slack/interactions", url.Values{"payload": {payload}}, testSigningSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertNotCalled(t, "HandlePanelAction", mock.Anything)
}

func TestHandleSlackInteractions_BadPayload(t *testing.T) {
	h := newSyncSlackHandler(new(MockPanelService))

	rr := httptest.NewRecorder()
	h.HandleSlackInteractions(rr, signedSlackRequest(t, "/slack/interactions", url.Values{"payload": {"{not json"}}, testSigningSecret))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
