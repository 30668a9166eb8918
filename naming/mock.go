package naming

import "context"

// MockService is a test double for Service.
// All function fields must be set before the corresponding method is called.
type MockService struct {
	ResolvePointerFn func(ctx context.Context, name string) (*PointerRecord, error)
	SubmitPointerFn  func(ctx context.Context, name string, record *PointerRecord) error
}

func (m *MockService) ResolvePointer(ctx context.Context, name string) (*PointerRecord, error) {
	return m.ResolvePointerFn(ctx, name)
}

func (m *MockService) SubmitPointer(ctx context.Context, name string, record *PointerRecord) error {
	return m.SubmitPointerFn(ctx, name, record)
}
