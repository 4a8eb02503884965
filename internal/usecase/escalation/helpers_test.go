package escalation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/feedback-escalation/internal/usecase/escalation"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type engine struct {
	store    *memoryStore
	notifier *recordingNotifier

	register *escalation.RegisterFeedbackUseCase
	view     *escalation.MarkViewedUseCase
	category *escalation.OnCategoryChangedUseCase
	approve  *escalation.OnApproveUseCase
	archive  *escalation.ConfirmArchiveUseCase
	get      *escalation.GetCaseUseCase
	history  *escalation.ListEscalationLogUseCase
}

func newEngine() *engine {
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	tracker := escalation.NewQuorumTracker(store)

	return &engine{
		store:    store,
		notifier: notifier,
		register: escalation.NewRegisterFeedbackUseCase(store, notifier),
		view:     escalation.NewMarkViewedUseCase(store, tracker),
		category: escalation.NewOnCategoryChangedUseCase(store, tracker, notifier),
		approve:  escalation.NewOnApproveUseCase(store, tracker, notifier),
		archive:  escalation.NewConfirmArchiveUseCase(store, tracker, notifier),
		get:      escalation.NewGetCaseUseCase(store, tracker),
		history:  escalation.NewListEscalationLogUseCase(store, logView{store: store}),
	}
}

func (e *engine) registerCase(t *testing.T, category string) uuid.UUID {
	t.Helper()

	snap, err := e.register.Execute(context.Background(), escalation.RegisterFeedbackInput{
		Category: category,
		StoreID:  "store-17",
		MarketID: "market-3",
		Actor:    "intake",
		Now:      t0,
	})
	require.NoError(t, err)
	return snap.Case.ID
}

func (e *engine) escalatedCase(t *testing.T) uuid.UUID {
	t.Helper()

	id := e.registerCase(t, "Slow Service")
	_, err := e.category.Execute(context.Background(), escalation.OnCategoryChangedInput{
		CaseID:   id,
		Category: "Rude Service",
		Actor:    "manager",
		Now:      t0,
	})
	require.NoError(t, err)
	return id
}

func (e *engine) approveAs(t *testing.T, id uuid.UUID, role string, at time.Time) *escalation.ApprovalResult {
	t.Helper()

	res, err := e.approve.Execute(context.Background(), escalation.OnApproveInput{
		CaseID:     id,
		ApproverID: uuid.New(),
		Role:       role,
		Now:        at,
	})
	require.NoError(t, err)
	return res
}
