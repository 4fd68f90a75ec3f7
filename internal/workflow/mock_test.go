package workflow

import (
	"context"

	"coupon-desk/internal/transport"

	"github.com/stretchr/testify/mock"
)

// MockSender is a mock implementation of transport.Sender.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, method, path string, body any) (*transport.Response, error) {
	args := m.Called(ctx, method, path, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transport.Response), args.Error(1)
}
