// Package testutil provides mocks and fakes of the host collaborators.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/webview-iframe/internal/host"
	"github.com/GriffinCanCode/webview-iframe/internal/providers/archive"
)

// MockFolderPicker is a mock implementation of host.FolderPicker.
type MockFolderPicker struct {
	mock.Mock
}

// ShowOpenDialog mocks the ShowOpenDialog method.
func (m *MockFolderPicker) ShowOpenDialog(ctx context.Context, opts host.OpenDialogOptions) ([]string, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockCommander is a mock implementation of host.Commander.
type MockCommander struct {
	mock.Mock
}

// OpenFolder mocks the OpenFolder method.
func (m *MockCommander) OpenFolder(ctx context.Context, path string, forceNewWindow bool) error {
	return m.Called(ctx, path, forceNewWindow).Error(0)
}

// MockNotifier is a mock implementation of host.Notifier.
type MockNotifier struct {
	mock.Mock
}

// Info mocks the Info method.
func (m *MockNotifier) Info(message string) {
	m.Called(message)
}

// Error mocks the Error method.
func (m *MockNotifier) Error(message string) {
	m.Called(message)
}

// MockPanelHider records Hide calls.
type MockPanelHider struct {
	mock.Mock
}

// Hide mocks the Hide method.
func (m *MockPanelHider) Hide() {
	m.Called()
}

// MockFetcher is a mock archive fetcher.
type MockFetcher struct {
	mock.Mock
}

// Fetch mocks the Fetch method.
func (m *MockFetcher) Fetch(ctx context.Context, url, dest string) error {
	return m.Called(ctx, url, dest).Error(0)
}

// MockExtractor is a mock archive extractor.
type MockExtractor struct {
	mock.Mock
}

// Extract mocks the Extract method.
func (m *MockExtractor) Extract(ctx context.Context, src, dest string) (archive.Result, error) {
	args := m.Called(ctx, src, dest)
	return args.Get(0).(archive.Result), args.Error(1)
}

// NewMockNotifier creates a notifier that accepts any message.
func NewMockNotifier() *MockNotifier {
	m := new(MockNotifier)
	m.On("Info", mock.Anything).Maybe()
	m.On("Error", mock.Anything).Maybe()
	return m
}
