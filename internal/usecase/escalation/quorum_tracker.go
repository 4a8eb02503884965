package escalation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
	"github.com/ignatzorin/feedback-escalation/internal/domain/repository"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
)

type RecordApprovalResult struct {
	Record          *entity.ApprovalRecord
	AlreadyApproved bool
	// Approvals содержит согласования обращения после записи.
	Approvals []entity.ApprovalRecord
	// CompletedQuorum выставляется ровно одному согласованию: тому, что собрало кворум.
	CompletedQuorum bool
}

// QuorumTracker записывает согласования и считает кворум по строкам хранилища,
// а не по счётчику в памяти.
type QuorumTracker struct {
	approvalRepo repository.ApprovalRepository
}

func NewQuorumTracker(approvalRepo repository.ApprovalRepository) *QuorumTracker {
	return &QuorumTracker{approvalRepo: approvalRepo}
}

// RecordApproval идемпотентна по паре (обращение, согласующий). before должны
// быть прочитаны после загрузки fc: новая запись сохраняется только при
// неизменной версии обращения, иначе возвращается конфликт версий.
func (t *QuorumTracker) RecordApproval(ctx context.Context, fc *entity.FeedbackCase, before []entity.ApprovalRecord, approverID uuid.UUID, role string, now time.Time) (RecordApprovalResult, error) {
	record, err := entity.NewApprovalRecord(fc.ID, approverID, role, now)
	if err != nil {
		return RecordApprovalResult{}, err
	}

	after := make([]entity.ApprovalRecord, 0, len(before)+1)
	after = append(after, before...)
	after = append(after, *record)
	completed := !entity.NewQuorum(before).IsComplete() && entity.NewQuorum(after).IsComplete()

	var entry *entity.EscalationLogEntry
	if completed {
		entry = entity.NewEscalationLogEntry(fc.ID, approverID.String(), fc.QuorumReached(now), now)
	}

	inserted, err := t.approvalRepo.InsertIgnoreDuplicate(ctx, fc, record, entry)
	if err != nil {
		return RecordApprovalResult{}, storageError(err, "failed to record approval")
	}
	if !inserted {
		current, err := t.Approvals(ctx, fc.ID)
		if err != nil {
			return RecordApprovalResult{}, err
		}
		return RecordApprovalResult{Record: record, AlreadyApproved: true, Approvals: current}, nil
	}

	return RecordApprovalResult{Record: record, Approvals: after, CompletedQuorum: completed}, nil
}

func (t *QuorumTracker) Approvals(ctx context.Context, caseID uuid.UUID) ([]entity.ApprovalRecord, error) {
	records, err := t.approvalRepo.ListByFeedback(ctx, caseID)
	if err != nil {
		return nil, storageError(err, "failed to load approvals")
	}
	return records, nil
}

// IsQuorumComplete пересчитывает кворум по всем строкам согласований на момент вызова.
func (t *QuorumTracker) IsQuorumComplete(ctx context.Context, caseID uuid.UUID) (bool, error) {
	missing, err := t.MissingRoles(ctx, caseID)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

func (t *QuorumTracker) MissingRoles(ctx context.Context, caseID uuid.UUID) ([]valueobject.ApproverRole, error) {
	records, err := t.Approvals(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return entity.NewQuorum(records).MissingRoles(), nil
}
