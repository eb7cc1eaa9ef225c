package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/central-contacts/internal/metrics"
	"gitlab.com/dirk.krummacker/central-contacts/internal/store"
	"gitlab.com/dirk.krummacker/central-contacts/pkg/model"
)

// Outcome is the result of a contact operation: an HTTP status and the body to be serialized.
type Outcome struct {
	Status int
	Body   any
}

// MaxPayloadBytes bounds the size of a create request body.
const MaxPayloadBytes = 64 << 10

var errTrailingData = errors.New("unexpected data after the contact object")

// DecodeError reports a create payload that cannot be interpreted as a contact.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(e.Err, &fieldErrs):
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
		return "missing required field: " + strings.Join(fields, ", ")
	case errors.Is(e.Err, io.EOF):
		return "invalid JSON: empty request body"
	default:
		return "invalid JSON: " + e.Err.Error()
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeCandidate interprets the request body as a new contact. The body must be a JSON object
// with a "name" member; "phone" and "email" are optional. Members of the wrong type, or a body that
// is not exactly one JSON value, yield a *DecodeError.
func DecodeCandidate(payload []byte) (model.Contact, error) {
	var candidate model.Candidate
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&candidate); err != nil {
		return model.Contact{}, &DecodeError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return model.Contact{}, &DecodeError{Err: errTrailingData}
	}
	if err := binding.Validator.ValidateStruct(&candidate); err != nil {
		return model.Contact{}, &DecodeError{Err: err}
	}
	return candidate.Contact(), nil
}

// ContactService maps list and create requests onto a ContactStore.
type ContactService struct {
	store  store.ContactStore
	logger *zap.Logger
}

// NewContactService returns a service that works exclusively on the given store. A nil logger
// discards all log output.
func NewContactService(s store.ContactStore, logger *zap.Logger) *ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{store: s, logger: logger}
}

// HandleList responds with all contacts in the order they were created.
func (s *ContactService) HandleList(ctx context.Context) Outcome {
	contacts, err := s.store.ListAll(ctx)
	if err != nil {
		return s.storageFailure("list contacts", err)
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}
	return Outcome{Status: http.StatusOK, Body: contacts}
}

// HandleCreate decodes the payload and stores it as a new contact. It responds with the full
// contact including the newly assigned id, or with BAD REQUEST if the payload is malformed, in
// which case the store is not touched.
func (s *ContactService) HandleCreate(ctx context.Context, payload []byte) Outcome {
	candidate, err := DecodeCandidate(payload)
	if err != nil {
		return s.reject(err)
	}
	contact, err := s.store.Add(ctx, candidate)
	if err != nil {
		return s.storageFailure("create contact", err)
	}
	metrics.ContactsCreated.Inc()
	s.logger.Info("contact created", zap.Int64("id", contact.Id))
	return Outcome{Status: http.StatusCreated, Body: contact}
}

// reject answers a payload that could not be decoded. The store is not touched.
func (s *ContactService) reject(err error) Outcome {
	metrics.ContactsRejected.Inc()
	s.logger.Warn("rejected contact payload", zap.Error(err))
	return Outcome{Status: http.StatusBadRequest, Body: model.ErrorMessage{Message: err.Error()}}
}

// storageFailure only happens with a durable store. The in-memory store never fails.
func (s *ContactService) storageFailure(op string, err error) Outcome {
	s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
	return Outcome{
		Status: http.StatusServiceUnavailable,
		Body:   model.ErrorMessage{Message: fmt.Sprintf("could not %s: storage unavailable", op)},
	}
}
