package escalation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
	"github.com/ignatzorin/feedback-escalation/internal/domain/notification"
	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
	"github.com/ignatzorin/feedback-escalation/internal/usecase/escalation"
)

func TestOnCategoryChanged_UpgradeEscalates(t *testing.T) {
	e := newEngine()
	id := e.registerCase(t, "Slow Service")

	now := t0.Add(2 * time.Hour)
	snap, err := e.category.Execute(context.Background(), escalation.OnCategoryChangedInput{
		CaseID:   id,
		Category: "rude service",
		Actor:    "manager",
		Now:      now,
	})
	require.NoError(t, err)

	assert.Equal(t, valueobject.PriorityCritical, snap.Case.Priority)
	assert.Equal(t, valueobject.CaseStatusEscalated, snap.Case.Status)
	assert.True(t, snap.Case.AutoEscalated)
	require.NotNil(t, snap.Case.SLADeadline)
	assert.Equal(t, now.Add(24*time.Hour), *snap.Case.SLADeadline)
	require.NotNil(t, snap.Case.EscalatedAt)
	assert.Equal(t, now, *snap.Case.EscalatedAt)
	require.NotNil(t, snap.Case.EscalatedBy)
	assert.Equal(t, "manager", *snap.Case.EscalatedBy)

	assert.Equal(t, []notification.Kind{notification.KindCriticalEscalated}, e.notifier.kinds())

	entries := e.store.logEntries(id)
	require.Len(t, entries, 2)
	assert.Equal(t, entity.ReasonEscalatedOnUpgrade, entries[1].Reason)
	assert.Equal(t, valueobject.PriorityMedium, entries[1].FromPriority)
	assert.Equal(t, valueobject.PriorityCritical, entries[1].ToPriority)
}

func TestOnCategoryChanged_DowngradeWithQuorumResolves(t *testing.T) {
	e := newEngine()
	id := e.escalatedCase(t)
	for _, role := range []string{"ceo", "vp", "director", "dm"} {
		e.approveAs(t, id, role, t0.Add(time.Hour))
	}
	e.notifier.reset()

	snap, err := e.category.Execute(context.Background(), escalation.OnCategoryChangedInput{
		CaseID:   id,
		Category: "Product Issue",
		Actor:    "manager",
		Now:      t0.Add(3 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, valueobject.CaseStatusResolved, snap.Case.Status)
	assert.Equal(t, valueobject.PriorityLow, snap.Case.Priority)
	assert.Nil(t, snap.Case.EscalatedAt)
	assert.Nil(t, snap.Case.EscalatedBy)
	assert.Nil(t, snap.Case.SLADeadline)
	assert.False(t, snap.Case.AutoEscalated)
	require.NotNil(t, snap.Case.ResolutionNotes)
	assert.Contains(t, *snap.Case.ResolutionNotes, "Product Issue")

	assert.Equal(t, []notification.Kind{notification.KindCaseResolved}, e.notifier.kinds())

	stored := e.store.stored(id)
	assert.Equal(t, valueobject.CaseStatusResolved, stored.Status)
}

func TestOnCategoryChanged_DowngradeWithoutQuorumReopens(t *testing.T) {
	e := newEngine()
	id := e.escalatedCase(t)
	e.approveAs(t, id, "ceo", t0.Add(time.Hour))
	e.approveAs(t, id, "vp", t0.Add(time.Hour))
	e.notifier.reset()

	snap, err := e.category.Execute(context.Background(), escalation.OnCategoryChangedInput{
		CaseID:   id,
		Category: "Slow Service",
		Actor:    "manager",
		Now:      t0.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, valueobject.CaseStatusOpened, snap.Case.Status)
	assert.Equal(t, valueobject.PriorityMedium, snap.Case.Priority)
	assert.Nil(t, snap.Case.EscalatedAt)
	assert.Nil(t, snap.Case.EscalatedBy)
	assert.Nil(t, snap.Case.SLADeadline)
	assert.False(t, snap.Case.AutoEscalated)
	assert.Nil(t, snap.Case.ResolutionNotes)

	assert.Len(t, snap.Approvals, 2)
	approvals, err := e.store.ListByFeedback(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, approvals, 2)

	assert.Empty(t, e.notifier.kinds())
}

func TestOnCategoryChanged_SamePriorityOnlyRewritesCategory(t *testing.T) {
	e := newEngine()
	id := e.escalatedCase(t)
	e.notifier.reset()
	before := e.store.stored(id)

	snap, err := e.category.Execute(context.Background(), escalation.OnCategoryChangedInput{
		CaseID:   id,
		Category: "Food Safety",
		Actor:    "manager",
		Now:      t0.Add(time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, "Food Safety", snap.Case.Category)
	assert.Equal(t, valueobject.CaseStatusEscalated, snap.Case.Status)
	assert.Equal(t, before.SLADeadline, snap.Case.SLADeadline)
	assert.Empty(t, e.notifier.kinds())
	assert.Len(t, e.store.logEntries(id), 2)
}

func TestOnCategoryChanged_UnchangedCategorySkipsWrite(t *testing.T) {
	e := newEngine()
	id := e.registerCase(t, "Slow Service")

	_, err := e.category.Execute(context.Background(), escalation.OnCategoryChangedInput{
		CaseID:   id,
		Category: "Slow Service",
		Now:      t0,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, e.store.updateCount())
}

func TestOnCategoryChanged_ReclassifyingResolvedCaseKeepsHistory(t *testing.T) {
	e := newEngine()
	id := e.escalatedCase(t)
	for _, role := range []string{"ceo", "vp", "director", "dm"} {
		e.approveAs(t, id, role, t0)
	}
	_, err := e.archive.Execute(context.Background(), escalation.ConfirmArchiveInput{CaseID: id, Actor: "ceo"})
	require.NoError(t, err)
	_, err = e.category.Execute(context.Background(), escalation.OnCategoryChangedInput{
		CaseID: id, Category: "Praise", Now: t0,
	})
	require.NoError(t, err)
	e.notifier.reset()

	snap, err := e.category.Execute(context.Background(), escalation.OnCategoryChangedInput{
		CaseID:   id,
		Category: "Out of Product",
		Now:      t0.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.CaseStatusResolved, snap.Case.Status)
	assert.Equal(t, valueobject.PriorityCritical, snap.Case.Priority)
	require.NotNil(t, snap.Case.EscalatedAt)
	assert.Equal(t, t0, *snap.Case.EscalatedAt)
	require.NotNil(t, snap.Case.EscalatedBy)
	assert.Equal(t, "manager", *snap.Case.EscalatedBy)
	require.NotNil(t, snap.Case.SLADeadline)
	assert.Equal(t, t0.Add(24*time.Hour), *snap.Case.SLADeadline)
	assert.Empty(t, e.notifier.kinds())
}

func TestOnCategoryChanged_NotFound(t *testing.T) {
	e := newEngine()

	_, err := e.category.Execute(context.Background(), escalation.OnCategoryChangedInput{
		CaseID:   uuid.New(),
		Category: "Rude Service",
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestOnCategoryChanged_EmptyCategory(t *testing.T) {
	e := newEngine()
	id := e.registerCase(t, "Slow Service")

	_, err := e.category.Execute(context.Background(), escalation.OnCategoryChangedInput{
		CaseID:   id,
		Category: "   ",
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestOnCategoryChanged_PersistenceFailureLeavesCaseAndSkipsNotify(t *testing.T) {
	e := newEngine()
	id := e.registerCase(t, "Slow Service")
	e.notifier.reset()
	e.store.failUpdate = true

	_, err := e.category.Execute(context.Background(), escalation.OnCategoryChangedInput{
		CaseID:   id,
		Category: "Rude Service",
		Now:      t0,
	})
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodePersistenceUnavailable, apperror.CodeOf(err))

	stored := e.store.stored(id)
	assert.Equal(t, valueobject.CaseStatusUnopened, stored.Status)
	assert.Equal(t, valueobject.PriorityMedium, stored.Priority)
	assert.Nil(t, stored.SLADeadline)
	assert.Empty(t, e.notifier.kinds())
	assert.Len(t, e.store.logEntries(id), 1)
}

func TestOnCategoryChanged_StaleVersionConflicts(t *testing.T) {
	e := newEngine()
	id := e.registerCase(t, "Slow Service")

	stale, err := e.store.FindByID(context.Background(), id)
	require.NoError(t, err)

	_, err = e.category.Execute(context.Background(), escalation.OnCategoryChangedInput{
		CaseID: id, Category: "Rude Service", Now: t0,
	})
	require.NoError(t, err)

	stale.Category = "Praise"
	err = e.store.Update(context.Background(), stale, nil)
	assert.True(t, apperror.IsConflict(err))
}

func TestOnCategoryChanged_ApprovalBetweenReadAndWriteCompletesQuorum(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	id := e.escalatedCase(t)
	for _, role := range []string{"ceo", "vp", "director"} {
		e.approveAs(t, id, role, t0.Add(time.Hour))
	}
	e.notifier.reset()

	// Последнее согласование фиксируется после того, как смена категории
	// прочитала три роли, но до её записи.
	var late *escalation.ApprovalResult
	e.store.beforeUpdate = func() {
		late = e.approveAs(t, id, "dm", t0.Add(2*time.Hour))
	}

	snap, err := e.category.Execute(ctx, escalation.OnCategoryChangedInput{
		CaseID:   id,
		Category: "Slow Service",
		Actor:    "manager",
		Now:      t0.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	require.NotNil(t, late)
	assert.True(t, late.QuorumComplete)

	assert.Equal(t, valueobject.CaseStatusResolved, snap.Case.Status)
	assert.True(t, snap.QuorumComplete)
	assert.Len(t, snap.Approvals, 4)
	assert.Equal(t, valueobject.CaseStatusResolved, e.store.stored(id).Status)

	entries := e.store.logEntries(id)
	require.GreaterOrEqual(t, len(entries), 2)
	assert.Equal(t, entity.ReasonQuorumComplete, entries[len(entries)-2].Reason)
	assert.Equal(t, entity.ReasonAutoResolved, entries[len(entries)-1].Reason)

	assert.Equal(t, []notification.Kind{
		notification.KindApprovalRecorded,
		notification.KindQuorumComplete,
		notification.KindCaseResolved,
	}, e.notifier.kinds())

	writes := e.store.updateCount()
	archived, err := e.archive.Execute(ctx, escalation.ConfirmArchiveInput{CaseID: id, Actor: "ceo"})
	require.NoError(t, err)
	assert.Equal(t, valueobject.CaseStatusResolved, archived.Case.Status)
	assert.Equal(t, writes, e.store.updateCount())
}

func TestOnCategoryChanged_DowngradeBeforeApprovalWriteRejectsApproval(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	id := e.escalatedCase(t)
	for _, role := range []string{"ceo", "vp", "director"} {
		e.approveAs(t, id, role, t0.Add(time.Hour))
	}
	e.notifier.reset()

	e.store.beforeInsert = func() {
		_, err := e.category.Execute(ctx, escalation.OnCategoryChangedInput{
			CaseID:   id,
			Category: "Slow Service",
			Actor:    "manager",
			Now:      t0.Add(2 * time.Hour),
		})
		require.NoError(t, err)
	}

	_, err := e.approve.Execute(ctx, escalation.OnApproveInput{
		CaseID:     id,
		ApproverID: uuid.New(),
		Role:       "dm",
		Now:        t0.Add(2 * time.Hour),
	})
	assert.Equal(t, apperror.ErrCodeCaseNotCritical, apperror.CodeOf(err))

	snap, err := e.get.Execute(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, valueobject.CaseStatusOpened, snap.Case.Status)
	assert.Len(t, snap.Approvals, 3)
	assert.False(t, snap.QuorumComplete)

	for _, entry := range e.store.logEntries(id) {
		assert.NotEqual(t, entity.ReasonQuorumComplete, entry.Reason)
	}
	assert.Equal(t, 0, e.notifier.count(notification.KindQuorumComplete))
	assert.Equal(t, 0, e.notifier.count(notification.KindApprovalRecorded))
}
