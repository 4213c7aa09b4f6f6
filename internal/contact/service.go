package contact

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/validation"
)

const pathCreate = "contact/create-contact"

// Message is the public contact form.
type Message struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

func (m Message) trimmed() Message {
	return Message{
		Name:    strings.TrimSpace(m.Name),
		Email:   strings.ToLower(strings.TrimSpace(m.Email)),
		Phone:   strings.TrimSpace(m.Phone),
		Subject: strings.TrimSpace(m.Subject),
		Message: strings.TrimSpace(m.Message),
	}
}

type Service interface {
	Submit(ctx context.Context, msg Message) error
}

type backendCaller interface {
	Do(ctx context.Context, req backend.Request) ([]byte, error)
}

type service struct {
	backend backendCaller
}

func NewService(client backendCaller) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	return &service{backend: client}, nil
}

// Submit validates locally and posts the message. Invalid input never
// reaches the backend.
func (s *service) Submit(ctx context.Context, msg Message) error {
	clean := msg.trimmed()
	if err := validation.Struct(clean); err != nil {
		return err
	}
	_, err := s.backend.Do(ctx, backend.Request{
		Op:        "contact.create",
		Method:    http.MethodPost,
		Path:      pathCreate,
		Body:      clean,
		Anonymous: true,
	})
	return err
}
