package contact

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	requests []backend.Request
}

func (f *fakeBackend) Do(_ context.Context, req backend.Request) ([]byte, error) {
	f.requests = append(f.requests, req)
	return []byte(`{"data":{"id":"c1"}}`), nil
}

func TestSubmitPostsTrimmedMessage(t *testing.T) {
	be := &fakeBackend{}
	svc, err := NewService(be)
	require.NoError(t, err)

	err = svc.Submit(context.Background(), Message{
		Name:    " Ana ",
		Email:   "ANA@example.com",
		Subject: "Tutoring",
		Message: "I need a maths tutor for grade 8.",
	})
	require.NoError(t, err)

	require.Len(t, be.requests, 1)
	assert.Equal(t, pathCreate, be.requests[0].Path)
	sent := be.requests[0].Body.(Message)
	assert.Equal(t, "Ana", sent.Name)
	assert.Equal(t, "ana@example.com", sent.Email)
}

func TestSubmitRejectsInvalidLocally(t *testing.T) {
	be := &fakeBackend{}
	svc, err := NewService(be)
	require.NoError(t, err)

	err = svc.Submit(context.Background(), Message{Email: "bad", Message: "short"})
	require.Error(t, err)

	fields := validation.Fields(err)
	assert.Equal(t, validation.MessageRequired, fields["name"])
	assert.Equal(t, "Enter a valid email address", fields["email"])
	assert.Equal(t, "Must be at least 10 characters", fields["message"])
	assert.Empty(t, be.requests)
}
