package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hushh-labs/consent-core/interfaces"
)

// MockBlobStore implements interfaces.BlobStore for testing
type MockBlobStore struct {
	mock.Mock
	name string
}

func (m *MockBlobStore) Put(ctx context.Context, userID, domain string, blob interfaces.EncryptedBlob) error {
	args := m.Called(ctx, userID, domain, blob)
	return args.Error(0)
}

func (m *MockBlobStore) Get(ctx context.Context, userID, domain string) (interfaces.EncryptedBlob, error) {
	args := m.Called(ctx, userID, domain)
	return args.Get(0).(interfaces.EncryptedBlob), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, userID, domain string) error {
	args := m.Called(ctx, userID, domain)
	return args.Error(0)
}

func (m *MockBlobStore) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockBlobStore) Name() string {
	return m.name
}

func (m *MockBlobStore) LocationURI() string {
	return "mock:" + m.name
}

func TestMultiStoreAvailable(t *testing.T) {
	tests := []struct {
		name     string
		members  []bool
		expected bool
	}{
		{
			name:     "all members available",
			members:  []bool{true, true, true},
			expected: true,
		},
		{
			name:     "some members available",
			members:  []bool{false, true, false},
			expected: true,
		},
		{
			name:     "no members available",
			members:  []bool{false, false, false},
			expected: false,
		},
		{
			name:     "no members",
			members:  []bool{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stores []interfaces.BlobStore
			for i, available := range tt.members {
				mockStore := &MockBlobStore{name: fmt.Sprintf("mock-%d", i)}
				mockStore.On("Available", mock.Anything).Return(available).Maybe()
				stores = append(stores, mockStore)
			}

			multi := NewMultiStore(stores, testLogger())
			assert.Equal(t, tt.expected, multi.Available(context.Background()))

			for _, store := range stores {
				store.(*MockBlobStore).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStoreGet(t *testing.T) {
	blob := testBlob(0x11)
	backendErr := errors.New("backend error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.BlobStore
		expectedBlob  interfaces.EncryptedBlob
		expectedError error
	}{
		{
			name: "first member holds the blob",
			setupMocks: func() []interfaces.BlobStore {
				mock1 := &MockBlobStore{name: "mock-a"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, "u1", "attr.food").Return(blob, nil)

				mock2 := &MockBlobStore{name: "mock-b"}
				// Never consulted once the first member answers

				return []interfaces.BlobStore{mock1, mock2}
			},
			expectedBlob: blob,
		},
		{
			name: "first member missing, second holds it",
			setupMocks: func() []interfaces.BlobStore {
				mock1 := &MockBlobStore{name: "mock-a"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, "u1", "attr.food").Return(interfaces.EncryptedBlob{}, interfaces.ErrBlobNotFound)

				mock2 := &MockBlobStore{name: "mock-b"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, "u1", "attr.food").Return(blob, nil)

				return []interfaces.BlobStore{mock1, mock2}
			},
			expectedBlob: blob,
		},
		{
			name: "all members missing reports not found",
			setupMocks: func() []interfaces.BlobStore {
				mock1 := &MockBlobStore{name: "mock-a"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, "u1", "attr.food").Return(interfaces.EncryptedBlob{}, interfaces.ErrBlobNotFound)

				mock2 := &MockBlobStore{name: "mock-b"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, "u1", "attr.food").Return(interfaces.EncryptedBlob{}, interfaces.ErrBlobNotFound)

				return []interfaces.BlobStore{mock1, mock2}
			},
			expectedError: interfaces.ErrBlobNotFound,
		},
		{
			name: "unavailable members are skipped",
			setupMocks: func() []interfaces.BlobStore {
				mock1 := &MockBlobStore{name: "mock-a"}
				mock1.On("Available", mock.Anything).Return(false)

				mock2 := &MockBlobStore{name: "mock-b"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, "u1", "attr.food").Return(blob, nil)

				return []interfaces.BlobStore{mock1, mock2}
			},
			expectedBlob: blob,
		},
		{
			name: "no members available",
			setupMocks: func() []interfaces.BlobStore {
				mock1 := &MockBlobStore{name: "mock-a"}
				mock1.On("Available", mock.Anything).Return(false)

				return []interfaces.BlobStore{mock1}
			},
			expectedError: interfaces.ErrStoreUnavailable,
		},
		{
			name: "member failure is not mistaken for not found",
			setupMocks: func() []interfaces.BlobStore {
				mock1 := &MockBlobStore{name: "mock-a"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, "u1", "attr.food").Return(interfaces.EncryptedBlob{}, backendErr)

				mock2 := &MockBlobStore{name: "mock-b"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, "u1", "attr.food").Return(interfaces.EncryptedBlob{}, interfaces.ErrBlobNotFound)

				return []interfaces.BlobStore{mock1, mock2}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := tt.setupMocks()
			multi := NewMultiStore(stores, testLogger())

			got, err := multi.Get(context.Background(), "u1", "attr.food")

			if tt.expectedError != nil {
				require.ErrorIs(t, err, tt.expectedError)
			} else if tt.expectedBlob.Algorithm != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedBlob, got)
			} else {
				require.Error(t, err)
				require.NotErrorIs(t, err, interfaces.ErrBlobNotFound)
			}

			for _, store := range stores {
				store.(*MockBlobStore).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStorePut(t *testing.T) {
	blob := testBlob(0x22)
	backendErr := errors.New("backend error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.BlobStore
		expectedError bool
	}{
		{
			name: "all members accept",
			setupMocks: func() []interfaces.BlobStore {
				mock1 := &MockBlobStore{name: "mock-a"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Put", mock.Anything, "u1", "attr.food", blob).Return(nil)

				mock2 := &MockBlobStore{name: "mock-b"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Put", mock.Anything, "u1", "attr.food", blob).Return(nil)

				return []interfaces.BlobStore{mock1, mock2}
			},
		},
		{
			name: "one member failing still succeeds",
			setupMocks: func() []interfaces.BlobStore {
				mock1 := &MockBlobStore{name: "mock-a"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Put", mock.Anything, "u1", "attr.food", blob).Return(backendErr)

				mock2 := &MockBlobStore{name: "mock-b"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Put", mock.Anything, "u1", "attr.food", blob).Return(nil)

				return []interfaces.BlobStore{mock1, mock2}
			},
		},
		{
			name: "all members failing is an error",
			setupMocks: func() []interfaces.BlobStore {
				mock1 := &MockBlobStore{name: "mock-a"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Put", mock.Anything, "u1", "attr.food", blob).Return(backendErr)

				mock2 := &MockBlobStore{name: "mock-b"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Put", mock.Anything, "u1", "attr.food", blob).Return(backendErr)

				return []interfaces.BlobStore{mock1, mock2}
			},
			expectedError: true,
		},
		{
			name: "no members available is an error",
			setupMocks: func() []interfaces.BlobStore {
				mock1 := &MockBlobStore{name: "mock-a"}
				mock1.On("Available", mock.Anything).Return(false)

				return []interfaces.BlobStore{mock1}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := tt.setupMocks()
			multi := NewMultiStore(stores, testLogger())

			err := multi.Put(context.Background(), "u1", "attr.food", blob)
			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			for _, store := range stores {
				store.(*MockBlobStore).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStoreDeleteContinuesPastFailures(t *testing.T) {
	backendErr := errors.New("backend error")

	mock1 := &MockBlobStore{name: "mock-a"}
	mock1.On("Available", mock.Anything).Return(true)
	mock1.On("Delete", mock.Anything, "u1", "attr.food").Return(backendErr)

	mock2 := &MockBlobStore{name: "mock-b"}
	mock2.On("Available", mock.Anything).Return(true)
	mock2.On("Delete", mock.Anything, "u1", "attr.food").Return(nil)

	multi := NewMultiStore([]interfaces.BlobStore{mock1, mock2}, testLogger())

	// Both members see the delete; the surviving failure is reported
	err := multi.Delete(context.Background(), "u1", "attr.food")
	require.Error(t, err)
	mock1.AssertExpectations(t)
	mock2.AssertExpectations(t)
}
