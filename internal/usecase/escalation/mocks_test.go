package escalation_test

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/ignatzorin/feedback-escalation/internal/domain/entity"
	"github.com/ignatzorin/feedback-escalation/internal/domain/notification"
	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

var errStorageDown = errors.New("connection refused")

type memoryStore struct {
	mu        sync.Mutex
	cases     map[uuid.UUID]entity.FeedbackCase
	approvals map[uuid.UUID][]entity.ApprovalRecord
	log       map[uuid.UUID][]entity.EscalationLogEntry

	failUpdate bool
	failFind   bool
	updates    int

	// beforeUpdate и beforeInsert срабатывают один раз перед записью, чтобы
	// вклинить конкурирующую операцию между чтением и записью.
	beforeUpdate func()
	beforeInsert func()
}

func (m *memoryStore) takeHook(hook *func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn := *hook
	*hook = nil
	return fn
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		cases:     make(map[uuid.UUID]entity.FeedbackCase),
		approvals: make(map[uuid.UUID][]entity.ApprovalRecord),
		log:       make(map[uuid.UUID][]entity.EscalationLogEntry),
	}
}

func (m *memoryStore) Create(ctx context.Context, fc *entity.FeedbackCase, entry *entity.EscalationLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fc.Version = 1
	m.cases[fc.ID] = *fc
	if entry != nil {
		m.log[fc.ID] = append(m.log[fc.ID], *entry)
	}
	return nil
}

func (m *memoryStore) Update(ctx context.Context, fc *entity.FeedbackCase, entry *entity.EscalationLogEntry) error {
	if hook := m.takeHook(&m.beforeUpdate); hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failUpdate {
		return errStorageDown
	}
	stored, ok := m.cases[fc.ID]
	if !ok {
		return apperror.ErrCaseNotFound
	}
	if stored.Version != fc.Version {
		return apperror.ErrVersionConflict
	}

	fc.Version++
	m.cases[fc.ID] = *fc
	m.updates++
	if entry != nil {
		m.log[fc.ID] = append(m.log[fc.ID], *entry)
	}
	return nil
}

func (m *memoryStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.FeedbackCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failFind {
		return nil, errStorageDown
	}
	fc, ok := m.cases[id]
	if !ok {
		return nil, nil
	}
	return &fc, nil
}

func (m *memoryStore) InsertIgnoreDuplicate(ctx context.Context, fc *entity.FeedbackCase, record *entity.ApprovalRecord, entry *entity.EscalationLogEntry) (bool, error) {
	if hook := m.takeHook(&m.beforeInsert); hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.approvals[record.FeedbackID] {
		if existing.ApproverID == record.ApproverID {
			return false, nil
		}
	}

	stored, ok := m.cases[fc.ID]
	if !ok {
		return false, apperror.ErrCaseNotFound
	}
	if stored.Version != fc.Version {
		return false, apperror.ErrVersionConflict
	}

	stored.Version++
	stored.UpdatedAt = record.CreatedAt
	m.cases[fc.ID] = stored
	fc.Version = stored.Version
	fc.UpdatedAt = record.CreatedAt

	m.approvals[record.FeedbackID] = append(m.approvals[record.FeedbackID], *record)
	if entry != nil {
		m.log[fc.ID] = append(m.log[fc.ID], *entry)
	}
	return true, nil
}

func (m *memoryStore) ListByFeedback(ctx context.Context, feedbackID uuid.UUID) ([]entity.ApprovalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]entity.ApprovalRecord, len(m.approvals[feedbackID]))
	copy(out, m.approvals[feedbackID])
	return out, nil
}

func (m *memoryStore) stored(id uuid.UUID) entity.FeedbackCase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cases[id]
}

func (m *memoryStore) logEntries(id uuid.UUID) []entity.EscalationLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]entity.EscalationLogEntry, len(m.log[id]))
	copy(out, m.log[id])
	return out
}

func (m *memoryStore) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

// logView отдаёт журнал как EscalationLogRepository.
type logView struct {
	store *memoryStore
}

func (v logView) ListByFeedback(ctx context.Context, feedbackID uuid.UUID) ([]entity.EscalationLogEntry, error) {
	return v.store.logEntries(feedbackID), nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, kind notification.Kind, caseID uuid.UUID, data notification.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification.Notification{Kind: kind, CaseID: caseID, Context: data})
}

func (n *recordingNotifier) kinds() []notification.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]notification.Kind, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}

func (n *recordingNotifier) count(kind notification.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	c := 0
	for _, s := range n.sent {
		if s.Kind == kind {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}
