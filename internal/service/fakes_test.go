package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/payment"
	"ai-chat-be/pkg/queue"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memoryStore is a process-local stand-in for the database. Begin snapshots
// it and Rollback restores the snapshot.
type memoryStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]entity.User
	otps      []entity.Otp
	chatrooms map[uuid.UUID]entity.Chatroom
	messages  []entity.Message
	usage     map[string]int
	orders    map[string]entity.SubscriptionOrder

	// failFindReply makes FindReply return an error once.
	failFindReply bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:     map[uuid.UUID]entity.User{},
		chatrooms: map[uuid.UUID]entity.Chatroom{},
		usage:     map[string]int{},
		orders:    map[string]entity.SubscriptionOrder{},
	}
}

type storeSnapshot struct {
	users     map[uuid.UUID]entity.User
	otps      []entity.Otp
	chatrooms map[uuid.UUID]entity.Chatroom
	messages  []entity.Message
	usage     map[string]int
	orders    map[string]entity.SubscriptionOrder
}

func (s *memoryStore) snapshot() *storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &storeSnapshot{
		users:     map[uuid.UUID]entity.User{},
		otps:      append([]entity.Otp(nil), s.otps...),
		chatrooms: map[uuid.UUID]entity.Chatroom{},
		messages:  append([]entity.Message(nil), s.messages...),
		usage:     map[string]int{},
		orders:    map[string]entity.SubscriptionOrder{},
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.chatrooms {
		snap.chatrooms[k] = v
	}
	for k, v := range s.usage {
		snap.usage[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	return snap
}

func (s *memoryStore) restore(snap *storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.otps = snap.otps
	s.chatrooms = snap.chatrooms
	s.messages = snap.messages
	s.usage = snap.usage
	s.orders = snap.orders
}

func usageKey(userId uuid.UUID, date time.Time) string {
	return userId.String() + "|" + entity.UsageDay(date).Format("2006-01-02")
}

func (s *memoryStore) promptCount(userId uuid.UUID, date time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[usageKey(userId, date)]
}

func (s *memoryStore) allMessages() []entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Message(nil), s.messages...)
}

func (s *memoryStore) repliesTo(id uuid.UUID) []entity.Message {
	var out []entity.Message
	for _, m := range s.allMessages() {
		if m.ReplyToId != nil && *m.ReplyToId == id {
			out = append(out, m)
		}
	}
	return out
}

func (s *memoryStore) user(id uuid.UUID) entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *memoryStore) chatroom(id uuid.UUID) entity.Chatroom {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatrooms[id]
}

// Unit of work

type fakeFactory struct {
	store *memoryStore
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeUow struct {
	store *memoryStore
	snap  *storeSnapshot
}

func (u *fakeUow) Begin(ctx context.Context) error {
	if u.snap != nil {
		return errors.New("transaction already started")
	}
	u.snap = u.store.snapshot()
	return nil
}

func (u *fakeUow) Commit() error {
	if u.snap == nil {
		return errors.New("no transaction to commit")
	}
	u.snap = nil
	return nil
}

func (u *fakeUow) Rollback() error {
	if u.snap == nil {
		return errors.New("no transaction to rollback")
	}
	u.store.restore(u.snap)
	u.snap = nil
	return nil
}

func (u *fakeUow) UserRepository() contract.UserRepository     { return &fakeUserRepo{u.store} }
func (u *fakeUow) ChatroomRepository() contract.ChatroomRepository { return &fakeChatroomRepo{u.store} }
func (u *fakeUow) MessageRepository() contract.MessageRepository   { return &fakeMessageRepo{u.store} }
func (u *fakeUow) UsageRepository() contract.UsageRepository       { return &fakeUsageRepo{u.store} }
func (u *fakeUow) SubscriptionRepository() contract.SubscriptionRepository {
	return &fakeSubscriptionRepo{u.store}
}

// Users

type fakeUserRepo struct{ s *memoryStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.MobileNumber == user.MobileNumber {
			return errors.New("duplicate mobile number")
		}
	}
	r.s.users[user.Id] = *user
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[user.Id] = *user
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if matchUser(u, specs) {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func matchUser(u entity.User, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if u.Id != s.ID {
				return false
			}
		case specification.ByMobileNumber:
			if u.MobileNumber != s.MobileNumber {
				return false
			}
		}
	}
	return true
}

func (r *fakeUserRepo) UpdateTier(ctx context.Context, id uuid.UUID, tier entity.SubscriptionTier, status *string, periodEnd *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.s.users[id]
	u.Tier = tier
	u.SubscriptionStatus = status
	u.CurrentPeriodEnd = periodEnd
	r.s.users[id] = u
	return nil
}

func (r *fakeUserRepo) CreateOtp(ctx context.Context, otp *entity.Otp) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.otps = append(r.s.otps, *otp)
	return nil
}

func (r *fakeUserRepo) FindLatestOtp(ctx context.Context, specs ...specification.Specification) (*entity.Otp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.otps) - 1; i >= 0; i-- {
		if matchOtp(r.s.otps[i], specs) {
			found := r.s.otps[i]
			return &found, nil
		}
	}
	return nil, nil
}

func matchOtp(o entity.Otp, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.UserOwnedBy:
			if o.UserId != s.UserID {
				return false
			}
		case specification.ByOtpCode:
			if o.Code != s.Code {
				return false
			}
		case specification.PendingOtp:
			if o.Verified || !o.ExpiresAt.After(s.Now) {
				return false
			}
		}
	}
	return true
}

func (r *fakeUserRepo) MarkOtpVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.otps {
		if r.s.otps[i].Id == id && !r.s.otps[i].Verified {
			r.s.otps[i].Verified = true
			return true, nil
		}
	}
	return false, nil
}

// Chatrooms

type fakeChatroomRepo struct{ s *memoryStore }

func (r *fakeChatroomRepo) Create(ctx context.Context, chatroom *entity.Chatroom) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.chatrooms[chatroom.Id] = *chatroom
	return nil
}

func (r *fakeChatroomRepo) FindOwnedBy(ctx context.Context, id uuid.UUID, userId uuid.UUID) (*entity.Chatroom, error) {
	c, err := r.FindByID(ctx, id)
	if c == nil || err != nil || c.UserId != userId {
		return nil, err
	}
	return c, nil
}

func (r *fakeChatroomRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Chatroom, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.chatrooms[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *fakeChatroomRepo) FindAllByUser(ctx context.Context, userId uuid.UUID) ([]*entity.Chatroom, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Chatroom
	for _, c := range r.s.chatrooms {
		if c.UserId != userId {
			continue
		}
		found := c
		for _, m := range r.s.messages {
			if m.ChatroomId == c.Id {
				found.MessageCount++
			}
		}
		out = append(out, &found)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *fakeChatroomRepo) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := r.s.chatrooms[id]
	c.UpdatedAt = at
	r.s.chatrooms[id] = c
	return nil
}

// Messages

type fakeMessageRepo struct{ s *memoryStore }

func matchMessage(m entity.Message, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if m.Id != s.ID {
				return false
			}
		case specification.ByChatroomID:
			if m.ChatroomId != s.ChatroomID {
				return false
			}
		case specification.ReplyTo:
			if m.ReplyToId == nil || *m.ReplyToId != s.MessageID {
				return false
			}
		case specification.ExcludeFallback:
			if m.IsFallback {
				return false
			}
		case specification.ExcludeID:
			if m.Id == s.ID {
				return false
			}
		}
	}
	return true
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.messages = append(r.s.messages, *message)
	return nil
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Message
	for _, m := range r.s.messages {
		if matchMessage(m, specs) {
			found := m
			out = append(out, &found)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) FindRecent(ctx context.Context, chatroomId uuid.UUID, limit int, specs ...specification.Specification) ([]*entity.Message, error) {
	specs = append(specs, specification.ByChatroomID{ChatroomID: chatroomId})
	all, _ := r.FindAll(ctx, specs...)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *fakeMessageRepo) FindReply(ctx context.Context, userMessageId uuid.UUID) (*entity.Message, error) {
	r.s.mu.Lock()
	if r.s.failFindReply {
		r.s.failFindReply = false
		r.s.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	r.s.mu.Unlock()
	return r.FindOne(ctx, specification.ReplyTo{MessageID: userMessageId})
}

func (r *fakeMessageRepo) CreateReply(ctx context.Context, reply *entity.Message) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.messages {
		if m.ReplyToId != nil && reply.ReplyToId != nil && *m.ReplyToId == *reply.ReplyToId {
			return false, nil
		}
	}
	r.s.messages = append(r.s.messages, *reply)
	return true, nil
}

func (r *fakeMessageRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string, isFallback bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.messages {
		if r.s.messages[i].Id == id {
			r.s.messages[i].Content = content
			r.s.messages[i].IsFallback = isFallback
			r.s.messages[i].UpdatedAt = time.Now()
		}
	}
	return nil
}

// Usage

type fakeUsageRepo struct{ s *memoryStore }

func (r *fakeUsageRepo) UpsertDailyCount(ctx context.Context, userId uuid.UUID, date time.Time, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := usageKey(userId, date)
	r.s.usage[key] += delta
	return r.s.usage[key], nil
}

func (r *fakeUsageRepo) IncrementIfBelow(ctx context.Context, userId uuid.UUID, date time.Time, limit int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := usageKey(userId, date)
	if r.s.usage[key] >= limit {
		return false, nil
	}
	r.s.usage[key]++
	return true, nil
}

func (r *fakeUsageRepo) FindDaily(ctx context.Context, userId uuid.UUID, date time.Time) (*entity.UsageStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count, ok := r.s.usage[usageKey(userId, date)]
	if !ok {
		return nil, nil
	}
	return &entity.UsageStats{UserId: userId, Date: entity.UsageDay(date), PromptCount: count}, nil
}

// Orders

type fakeSubscriptionRepo struct{ s *memoryStore }

func (r *fakeSubscriptionRepo) CreateOrder(ctx context.Context, order *entity.SubscriptionOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.orders[order.OrderId] = *order
	return nil
}

func (r *fakeSubscriptionRepo) UpdateOrder(ctx context.Context, order *entity.SubscriptionOrder) error {
	return r.CreateOrder(ctx, order)
}

func (r *fakeSubscriptionRepo) FindOneOrder(ctx context.Context, specs ...specification.Specification) (*entity.SubscriptionOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matches []entity.SubscriptionOrder
	for _, o := range r.s.orders {
		if matchOrder(o, specs) {
			matches = append(matches, o)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool { return paidAt(matches[i]).After(paidAt(matches[j])) })
	return &matches[0], nil
}

func paidAt(o entity.SubscriptionOrder) time.Time {
	if o.PaidAt == nil {
		return time.Time{}
	}
	return *o.PaidAt
}

func matchOrder(o entity.SubscriptionOrder, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByOrderID:
			if o.OrderId != s.OrderID {
				return false
			}
		case specification.UserOwnedBy:
			if o.UserId != s.UserID {
				return false
			}
		case specification.FilterBy:
			if s.Field == "status" && string(o.Status) != s.Value {
				return false
			}
		}
	}
	return true
}

// Collaborators

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Reply(ctx context.Context, history []llm.Message, content string) (string, error) {
	args := m.Called(ctx, history, content)
	return args.String(0), args.Error(1)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
	users  []uuid.UUID
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, event events.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.users = append(n.users, userID)
	return nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []queue.Job
	err  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, job queue.Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.jobs = append(q.jobs, job)
	return job.MessageId, nil
}

func (q *fakeQueue) Consume(ctx context.Context, handler queue.Handler) error { return nil }
func (q *fakeQueue) Close() error                                             { return nil }

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	args := m.Called(ctx, req)
	checkout, _ := args.Get(0).(*payment.Checkout)
	return checkout, args.Error(1)
}

func (m *mockGateway) TransactionStatus(ctx context.Context, orderID string) (string, error) {
	args := m.Called(ctx, orderID)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) VerifySignature(orderID, statusCode, grossAmount, signature string) bool {
	args := m.Called(orderID, statusCode, grossAmount, signature)
	return args.Bool(0)
}

// Fixtures

func seedUser(store *memoryStore, tier entity.SubscriptionTier) entity.User {
	u := entity.User{
		Id:           uuid.New(),
		MobileNumber: "98765" + uuid.NewString()[:5],
		Tier:         tier,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	store.users[u.Id] = u
	return u
}

func seedChatroom(store *memoryStore, userId uuid.UUID, updatedAt time.Time) entity.Chatroom {
	c := entity.Chatroom{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     "Trip planning",
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
	store.chatrooms[c.Id] = c
	return c
}

func seedMessage(store *memoryStore, chatroomId uuid.UUID, role entity.MessageRole, content string, at time.Time) entity.Message {
	m := entity.Message{
		Id:         uuid.New(),
		ChatroomId: chatroomId,
		Content:    content,
		Role:       role,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	store.messages = append(store.messages, m)
	return m
}
