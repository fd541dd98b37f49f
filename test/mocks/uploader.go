package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Uploader is a testify mock for imagecache.Uploader.
type Uploader struct {
	mock.Mock
}

// NewUploader creates a mock that asserts its expectations on cleanup.
func NewUploader(t testingT) *Uploader {
	m := &Uploader{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Upload provides a mock function.
func (m *Uploader) Upload(ctx context.Context, assetURL string) (string, error) {
	ret := m.Called(ctx, assetURL)

	return ret.String(0), ret.Error(1)
}
