package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zap-ai/zapai/internal/company"
	"github.com/zap-ai/zapai/internal/observability/metrics"
	"github.com/zap-ai/zapai/pkg/logging"
)

const graphAPIBase = "https://graph.facebook.com/v24.0"

// InstagramDirectory is the configuration slice the Instagram webhook reads.
type InstagramDirectory interface {
	InstagramAccountByBusinessID(ctx context.Context, businessID string) (*company.InstagramAccount, error)
	ActiveKeywordRules(ctx context.Context, companyID uuid.UUID) ([]company.KeywordRule, error)
	VerifyTokenByCompany(ctx context.Context, companyID uuid.UUID) (string, error)
}

// GraphSender posts auto-replies to the Meta Graph API.
type GraphSender interface {
	SendDM(ctx context.Context, businessID, accessToken, recipientID, text string) error
}

// GraphClient is the production GraphSender.
type GraphClient struct {
	http    *http.Client
	baseURL string
	logger  *logging.Logger
}

func NewGraphClient(timeout time.Duration, logger *logging.Logger) *GraphClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GraphClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: graphAPIBase,
		logger:  logger.Component("graph_client"),
	}
}

func (c *GraphClient) SendDM(ctx context.Context, businessID, accessToken, recipientID, text string) error {
	body, err := json.Marshal(map[string]any{
		"recipient": map[string]string{"id": recipientID},
		"message":   map[string]string{"text": text},
	})
	if err != nil {
		return fmt.Errorf("gateway: encode dm: %w", err)
	}
	url := fmt.Sprintf("%s/%s/messages?access_token=%s", c.baseURL, businessID, accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gateway: build dm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: send dm: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway: graph api returned status %d", resp.StatusCode)
	}
	return nil
}

// InstagramHandler answers Meta webhook verification and replies to DMs that
// match a company's keyword rules.
type InstagramHandler struct {
	directory  InstagramDirectory
	sender     GraphSender
	defaultTok string
	metrics    *metrics.PipelineMetrics
	logger     *logging.Logger
}

func NewInstagramHandler(directory InstagramDirectory, sender GraphSender, defaultVerifyToken string, m *metrics.PipelineMetrics, logger *logging.Logger) *InstagramHandler {
	if directory == nil {
		panic("gateway: instagram directory required")
	}
	if sender == nil {
		panic("gateway: graph sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &InstagramHandler{
		directory:  directory,
		sender:     sender,
		defaultTok: defaultVerifyToken,
		metrics:    m,
		logger:     logger.Component("instagram"),
	}
}

// HandleVerify is GET /webhooks/instagram, Meta's subscription handshake.
func (h *InstagramHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	expected := h.defaultTok
	if companyID, err := uuid.Parse(q.Get("company_id")); err == nil {
		if custom, err := h.directory.VerifyTokenByCompany(r.Context(), companyID); err == nil && custom != "" {
			expected = custom
		}
	}

	if mode == "subscribe" && token != "" && token == expected {
		writeText(w, http.StatusOK, challenge)
		return
	}
	writeText(w, http.StatusForbidden, "Forbidden")
}

type instagramEnvelope struct {
	Entry []struct {
		ID        string `json:"id"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message struct {
				Text       string `json:"text"`
				QuickReply *struct {
					Payload string `json:"payload"`
				} `json:"quick_reply"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// HandleEvent is POST /webhooks/instagram. Meta expects a 200 regardless of
// what we did with the event; retries on non-200 would re-deliver it.
func (h *InstagramHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var env instagramEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		h.metrics.ObserveInbound("instagram", "rejected")
		writeText(w, http.StatusOK, "NO_ENTRY")
		return
	}
	if len(env.Entry) == 0 {
		h.metrics.ObserveInbound("instagram", "ignored")
		writeText(w, http.StatusOK, "NO_ENTRY")
		return
	}

	entry := env.Entry[0]
	if len(entry.Messaging) > 0 {
		h.handleDM(r.Context(), entry.ID, entry.Messaging[0].Sender.ID, triggerText(entry.Messaging[0].Message.Text, entry.Messaging[0].Message.QuickReply))
	}
	writeText(w, http.StatusOK, "OK")
}

func triggerText(text string, quickReply *struct {
	Payload string `json:"payload"`
}) string {
	if quickReply != nil && quickReply.Payload != "" {
		return quickReply.Payload
	}
	return text
}

func (h *InstagramHandler) handleDM(ctx context.Context, businessID, senderID, trigger string) {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" || businessID == "" || senderID == businessID {
		h.metrics.ObserveInbound("instagram", "ignored")
		return
	}

	acct, err := h.directory.InstagramAccountByBusinessID(ctx, businessID)
	if err != nil || acct.AccessToken == "" {
		h.metrics.ObserveInbound("instagram", "unknown_account")
		return
	}
	rules, err := h.directory.ActiveKeywordRules(ctx, acct.CompanyID)
	if err != nil {
		h.logger.Error("keyword rule lookup failed", "business_id", businessID, "error", err)
		h.metrics.ObserveInbound("instagram", "error")
		return
	}

	normalized := strings.ToLower(trigger)
	for _, rule := range rules {
		if strings.ToLower(strings.TrimSpace(rule.Keyword)) != normalized {
			continue
		}
		if err := h.sender.SendDM(ctx, businessID, acct.AccessToken, senderID, rule.ReplyText); err != nil {
			h.logger.Error("auto-reply failed", "business_id", businessID, "keyword", rule.Keyword, "error", err)
			h.metrics.ObserveInbound("instagram", "error")
			return
		}
		h.logger.Info("keyword auto-reply sent", "business_id", businessID, "keyword", rule.Keyword)
		h.metrics.ObserveInbound("instagram", "ok")
		return
	}
	h.metrics.ObserveInbound("instagram", "no_match")
}
