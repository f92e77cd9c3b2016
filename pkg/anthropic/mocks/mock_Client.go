// Package mocks provides test doubles for the anthropic client.
package mocks

import (
	"context"

	anthropic "github.com/sells-group/monument-cli/pkg/anthropic"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// MockClient_Expecter wraps the mock with typed expectation helpers.
type MockClient_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter.
func (_m *MockClient) EXPECT() *MockClient_Expecter {
	return &MockClient_Expecter{mock: &_m.Mock}
}

// CreateMessage provides a mock function with given fields: ctx, req
func (_m *MockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for CreateMessage")
	}

	var r0 *anthropic.MessageResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, anthropic.MessageRequest) *anthropic.MessageResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*anthropic.MessageResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, anthropic.MessageRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MockClient_CreateMessage_Call is a typed wrapper around mock.Call.
type MockClient_CreateMessage_Call struct {
	*mock.Call
}

// CreateMessage is a helper method to define mock.On call
func (_e *MockClient_Expecter) CreateMessage(ctx interface{}, req interface{}) *MockClient_CreateMessage_Call {
	return &MockClient_CreateMessage_Call{Call: _e.mock.On("CreateMessage", ctx, req)}
}

// Return sets the return values.
func (_c *MockClient_CreateMessage_Call) Return(resp *anthropic.MessageResponse, err error) *MockClient_CreateMessage_Call {
	_c.Call.Return(resp, err)
	return _c
}

// RunAndReturn sets a function computing the return values.
func (_c *MockClient_CreateMessage_Call) RunAndReturn(run func(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error)) *MockClient_CreateMessage_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockClient creates a new instance of MockClient and registers a cleanup
// that asserts expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
