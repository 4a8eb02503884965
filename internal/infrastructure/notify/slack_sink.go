package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedback-escalation/internal/domain/notification"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
)

const slackPostMessageURL = "https://slack.com/api/chat.postMessage"

// SlackSink публикует уведомления через chat.postMessage. Первое сообщение по
// обращению открывает тред, последующие (согласования, закрытие) идут в него.
type SlackSink struct {
	botToken   string
	channelID  string
	endpoint   string
	httpClient *http.Client

	// caseID -> thread_ts
	threads sync.Map
}

type slackMessage struct {
	Channel     string            `json:"channel"`
	Text        string            `json:"text,omitempty"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
	ThreadTS    string            `json:"thread_ts,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Footer string       `json:"footer,omitempty"`
	Ts     int64        `json:"ts,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

func NewSlackSink(botToken, channelID string, timeout time.Duration) *SlackSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackSink{
		botToken:   botToken,
		channelID:  channelID,
		endpoint:   slackPostMessageURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsConfigured сообщает, заданы ли токен бота и канал.
func (s *SlackSink) IsConfigured() bool {
	return s.botToken != "" && s.channelID != ""
}

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) Send(ctx context.Context, n notification.Notification) error {
	if !s.IsConfigured() {
		return nil
	}

	msg := s.buildMessage(n)
	if ts, ok := s.threadFor(n.CaseID); ok {
		msg.ThreadTS = ts
	}

	resp, err := s.post(ctx, msg)
	if err != nil {
		return err
	}

	if msg.ThreadTS == "" && resp.TS != "" {
		s.threads.Store(n.CaseID, resp.TS)
	}
	if n.Kind == notification.KindCaseResolved {
		s.threads.Delete(n.CaseID)
	}
	return nil
}

func (s *SlackSink) buildMessage(n notification.Notification) slackMessage {
	color, title := "#439FE0", "Feedback update"
	switch n.Kind {
	case notification.KindCriticalEscalated:
		color, title = "#dc3545", "Critical feedback escalated"
	case notification.KindApprovalRecorded:
		color, title = "#ffc107", "Approval recorded"
	case notification.KindQuorumComplete:
		color, title = "#36a64f", "All approvals received, ready to archive"
	case notification.KindCaseResolved:
		color, title = "#36a64f", "Feedback resolved"
	}

	fields := []slackField{
		{Title: "Category", Value: n.Context.Category, Short: true},
		{Title: "Priority", Value: n.Context.Priority.String(), Short: true},
		{Title: "Status", Value: n.Context.Status.String(), Short: true},
	}
	if n.Context.StoreID != "" {
		fields = append(fields, slackField{Title: "Store", Value: n.Context.StoreID, Short: true})
	}
	if n.Context.Role != "" {
		fields = append(fields, slackField{Title: "Approved by", Value: n.Context.Role.Label(), Short: true})
	}
	if len(n.Context.MissingRoles) > 0 {
		fields = append(fields, slackField{Title: "Pending", Value: valueobject.JoinRoleLabels(n.Context.MissingRoles), Short: true})
	}
	if n.Context.SLADeadline != nil {
		fields = append(fields, slackField{Title: "SLA deadline", Value: n.Context.SLADeadline.UTC().Format(time.RFC3339), Short: true})
	}

	text := fmt.Sprintf("Case %s", n.CaseID)
	if n.Context.ResolutionNotes != "" {
		text += "\n" + n.Context.ResolutionNotes
	}

	return slackMessage{
		Channel: s.channelID,
		Text:    title,
		Attachments: []slackAttachment{{
			Color:  color,
			Title:  title,
			Text:   text,
			Footer: strings.TrimSpace("feedback-escalation " + n.Context.MarketID),
			Ts:     time.Now().Unix(),
			Fields: fields,
		}},
	}
}

func (s *SlackSink) post(ctx context.Context, msg slackMessage) (*slackResponse, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.botToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var slackResp slackResponse
	if err := json.Unmarshal(body, &slackResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !slackResp.OK {
		return nil, fmt.Errorf("slack API error: %s", slackResp.Error)
	}
	return &slackResp, nil
}

func (s *SlackSink) threadFor(caseID uuid.UUID) (string, bool) {
	v, ok := s.threads.Load(caseID)
	if !ok {
		return "", false
	}
	return v.(string), true
}
