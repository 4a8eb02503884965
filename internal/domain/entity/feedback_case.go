package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/feedback-escalation/internal/domain/policy"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

// SystemActor пишется в escalated_by, когда действие инициировано не человеком.
const SystemActor = "system"

type TransitionReason string

const (
	ReasonRegistered         TransitionReason = "registered"
	ReasonViewed             TransitionReason = "viewed"
	ReasonEscalatedOnUpgrade TransitionReason = "escalated_on_upgrade"
	ReasonDeescalated        TransitionReason = "deescalated_on_downgrade"
	ReasonAutoResolved       TransitionReason = "auto_resolved_on_downgrade"
	ReasonPriorityChanged    TransitionReason = "priority_changed"
	ReasonArchiveConfirmed   TransitionReason = "archive_confirmed"
	ReasonCancelled          TransitionReason = "cancelled"
	ReasonQuorumComplete     TransitionReason = "quorum_complete"
)

type FeedbackCase struct {
	ID              uuid.UUID
	Category        string
	Priority        valueobject.Priority
	Status          valueobject.CaseStatus
	EscalatedAt     *time.Time
	EscalatedBy     *string
	SLADeadline     *time.Time
	AutoEscalated   bool
	ResolutionNotes *string
	StoreID         string
	MarketID        string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Transition описывает результат одного действия над обращением.
type Transition struct {
	FromStatus   valueobject.CaseStatus
	ToStatus     valueobject.CaseStatus
	FromPriority valueobject.Priority
	ToPriority   valueobject.Priority
	Reason       TransitionReason
}

func (t Transition) StatusChanged() bool {
	return t.FromStatus != t.ToStatus
}

func (t Transition) PriorityChanged() bool {
	return t.FromPriority != t.ToPriority
}

func (t Transition) Changed() bool {
	return t.StatusChanged() || t.PriorityChanged()
}

func (t Transition) EnteredEscalated() bool {
	return t.ToStatus == valueobject.CaseStatusEscalated && t.FromStatus != valueobject.CaseStatusEscalated
}

func (t Transition) EnteredResolved() bool {
	return t.ToStatus == valueobject.CaseStatusResolved && t.FromStatus != valueobject.CaseStatusResolved
}

func (t Transition) LeftEscalated() bool {
	return t.FromStatus == valueobject.CaseStatusEscalated && t.ToStatus != valueobject.CaseStatusEscalated
}

// NewFeedbackCase заводит обращение и сразу эскалирует его, если категория критичная.
func NewFeedbackCase(category, storeID, marketID, actor string, now time.Time) (*FeedbackCase, Transition, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, Transition{}, apperror.New(apperror.ErrCodeValidation, "complaint category is required")
	}

	c := &FeedbackCase{
		ID:        uuid.New(),
		Category:  category,
		Priority:  policy.ClassifyPriority(category),
		Status:    valueobject.CaseStatusUnopened,
		StoreID:   strings.TrimSpace(storeID),
		MarketID:  strings.TrimSpace(marketID),
		CreatedAt: now,
		UpdatedAt: now,
	}

	t := Transition{
		FromStatus:   c.Status,
		ToStatus:     c.Status,
		FromPriority: c.Priority,
		ToPriority:   c.Priority,
		Reason:       ReasonRegistered,
	}

	if c.Priority.IsCritical() {
		if err := c.escalate(actor, now); err != nil {
			return nil, Transition{}, err
		}
		t.ToStatus = c.Status
		t.Reason = ReasonEscalatedOnUpgrade
	}

	return c, t, nil
}

// MarkViewed переводит непрочитанное обращение в opened.
// Для любого другого статуса возвращает false и ничего не меняет.
func (c *FeedbackCase) MarkViewed(now time.Time) (Transition, bool) {
	if c.Status != valueobject.CaseStatusUnopened {
		return Transition{}, false
	}

	t := c.begin(ReasonViewed)
	c.Status = valueobject.CaseStatusOpened
	c.UpdatedAt = now
	return c.finish(t), true
}

// ApplyCategory переклассифицирует обращение и проводит переходы вверх/вниз по приоритету.
// quorumComplete учитывается только при понижении из critical.
func (c *FeedbackCase) ApplyCategory(category, actor string, quorumComplete bool, now time.Time) (Transition, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return Transition{}, apperror.New(apperror.ErrCodeValidation, "complaint category is required")
	}

	oldPriority := c.Priority
	newPriority := policy.ClassifyPriority(category)

	t := c.begin(ReasonPriorityChanged)
	c.Category = category
	c.Priority = newPriority

	switch {
	case newPriority.IsCritical() && !oldPriority.IsCritical():
		if !c.Status.IsTerminal() && c.Status != valueobject.CaseStatusEscalated {
			if err := c.escalate(actor, now); err != nil {
				return Transition{}, err
			}
			t.Reason = ReasonEscalatedOnUpgrade
		}

	case oldPriority.IsCritical() && !newPriority.IsCritical():
		if c.Status == valueobject.CaseStatusEscalated {
			if quorumComplete {
				if err := c.moveTo(valueobject.CaseStatusResolved); err != nil {
					return Transition{}, err
				}
				notes := fmt.Sprintf(
					"Auto-resolved: category changed to %q (%s priority) after all required approvals (%s) were recorded.",
					category, newPriority, valueobject.JoinRoleLabels(valueobject.RequiredRoles()),
				)
				c.ResolutionNotes = &notes
				t.Reason = ReasonAutoResolved
			} else {
				if err := c.moveTo(valueobject.CaseStatusOpened); err != nil {
					return Transition{}, err
				}
				t.Reason = ReasonDeescalated
			}
		}
		// У закрытого обращения поля эскалации остаются как история.
		if !t.FromStatus.IsTerminal() {
			c.clearEscalation()
		}
	}

	c.UpdatedAt = now
	return c.finish(t), nil
}

// ConfirmArchive закрывает обращение по явному подтверждению человека после полного кворума.
// Повторный вызов для уже закрытого обращения ничего не меняет.
func (c *FeedbackCase) ConfirmArchive(actor string, quorumComplete bool, missing []valueobject.ApproverRole, now time.Time) (Transition, error) {
	switch c.Status {
	case valueobject.CaseStatusResolved:
		return Transition{}, nil
	case valueobject.CaseStatusCancelled:
		return Transition{}, apperror.ErrCaseClosed
	}

	if !quorumComplete {
		return Transition{}, apperror.New(
			apperror.ErrCodeQuorumIncomplete,
			"archive requires approval from all four roles; pending: "+valueobject.JoinRoleLabels(missing),
		).WithDetails(map[string]interface{}{"missing_roles": missing})
	}

	t := c.begin(ReasonArchiveConfirmed)
	if err := c.moveTo(valueobject.CaseStatusResolved); err != nil {
		return Transition{}, err
	}
	if c.ResolutionNotes == nil || strings.TrimSpace(*c.ResolutionNotes) == "" {
		notes := fmt.Sprintf("Archived after approval by %s; confirmed by %s.",
			valueobject.JoinRoleLabels(valueobject.RequiredRoles()), actor)
		c.ResolutionNotes = &notes
	}
	c.UpdatedAt = now
	return c.finish(t), nil
}

// QuorumReached фиксирует сбор всех согласований. Статус и приоритет не
// меняются, переход нужен для журнала аудита.
func (c *FeedbackCase) QuorumReached(now time.Time) Transition {
	t := c.begin(ReasonQuorumComplete)
	c.UpdatedAt = now
	return c.finish(t)
}

func (c *FeedbackCase) Cancel(now time.Time) (Transition, error) {
	t := c.begin(ReasonCancelled)
	if err := c.moveTo(valueobject.CaseStatusCancelled); err != nil {
		return Transition{}, err
	}
	c.UpdatedAt = now
	return c.finish(t), nil
}

// AwaitsArchiveConfirmation сообщает, что кворум собран, но приоритет всё ещё critical:
// закрывать обращение может только человек.
func (c *FeedbackCase) AwaitsArchiveConfirmation(quorumComplete bool) bool {
	return quorumComplete && c.Priority.IsCritical() && c.Status == valueobject.CaseStatusEscalated
}

func (c *FeedbackCase) IsClosed() bool {
	return c.Status.IsTerminal()
}

func (c *FeedbackCase) escalate(actor string, now time.Time) error {
	if err := c.moveTo(valueobject.CaseStatusEscalated); err != nil {
		return err
	}
	if actor == "" {
		actor = SystemActor
	}
	escalatedAt := now
	c.EscalatedAt = &escalatedAt
	c.EscalatedBy = &actor
	c.SLADeadline = policy.ComputeDeadline(c.Priority, now)
	c.AutoEscalated = true
	return nil
}

func (c *FeedbackCase) clearEscalation() {
	c.EscalatedAt = nil
	c.EscalatedBy = nil
	c.SLADeadline = nil
	c.AutoEscalated = false
}

func (c *FeedbackCase) moveTo(status valueobject.CaseStatus) error {
	if !c.Status.CanTransitionTo(status) {
		return apperror.New(apperror.ErrCodeBadRequest,
			fmt.Sprintf("cannot move feedback from %s to %s", c.Status, status))
	}
	c.Status = status
	return nil
}

func (c *FeedbackCase) begin(reason TransitionReason) Transition {
	return Transition{FromStatus: c.Status, FromPriority: c.Priority, Reason: reason}
}

func (c *FeedbackCase) finish(t Transition) Transition {
	t.ToStatus = c.Status
	t.ToPriority = c.Priority
	return t
}
