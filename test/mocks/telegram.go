package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"gopkg.in/telebot.v4"
)

// API is a testify mock for bot.API.
type API struct {
	mock.Mock
}

// NewAPI creates a mock that asserts its expectations on cleanup.
func NewAPI(t testingT) *API {
	m := &API{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Handle provides a mock function.
func (m *API) Handle(endpoint interface{}, h telebot.HandlerFunc, mw ...telebot.MiddlewareFunc) {
	args := []interface{}{endpoint, h}
	for _, fn := range mw {
		args = append(args, fn)
	}
	m.Called(args...)
}

// Start provides a mock function.
func (m *API) Start() {
	m.Called()
}

// Stop provides a mock function.
func (m *API) Stop() {
	m.Called()
}

// Send provides a mock function.
func (m *API) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	args := append([]interface{}{to, what}, opts...)
	ret := m.Called(args...)

	var msg *telebot.Message
	if ret.Get(0) != nil {
		msg = ret.Get(0).(*telebot.Message)
	}

	return msg, ret.Error(1)
}

// SubscriptionRepository is a testify mock for sqlite.SubscriptionRepository.
type SubscriptionRepository struct {
	mock.Mock
}

// NewSubscriptionRepository creates a mock that asserts its expectations on cleanup.
func NewSubscriptionRepository(t testingT) *SubscriptionRepository {
	m := &SubscriptionRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// SubscribeChat provides a mock function.
func (m *SubscriptionRepository) SubscribeChat(ctx context.Context, chatID int64) error {
	return m.Called(ctx, chatID).Error(0)
}

// UnsubscribeChat provides a mock function.
func (m *SubscriptionRepository) UnsubscribeChat(ctx context.Context, chatID int64) error {
	return m.Called(ctx, chatID).Error(0)
}

// GetSubscribedChats provides a mock function.
func (m *SubscriptionRepository) GetSubscribedChats(ctx context.Context) ([]int64, error) {
	ret := m.Called(ctx)

	var chats []int64
	if ret.Get(0) != nil {
		chats = ret.Get(0).([]int64)
	}

	return chats, ret.Error(1)
}
