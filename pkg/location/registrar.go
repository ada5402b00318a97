package location

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/multierr"

	"github.com/git-hulk/pathtemplate/pkg/batch"
)

// Registration records that an entity was given a resource identifier in a location.
type Registration struct {
	ID                 string    `json:"id" yaml:"id"`
	Timestamp          time.Time `json:"timestamp" yaml:"timestamp"`
	Location           string    `json:"location" yaml:"location"`
	EntityType         string    `json:"entityType,omitempty" yaml:"entity_type,omitempty"`
	EntityID           string    `json:"entityId,omitempty" yaml:"entity_id,omitempty"`
	ResourceIdentifier string    `json:"resourceIdentifier" yaml:"resource_identifier"`
	Pattern            string    `json:"pattern" yaml:"pattern"`
}

// RegistrationError is a per-item rejection reported by the registry server.
type RegistrationError struct {
	ID      string `json:"id,omitempty"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// RegistrationErrors is returned when the server accepted a batch but rejected some
// of its items.
type RegistrationErrors []RegistrationError

func (errs RegistrationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%s: %d %s", e.ID, e.Status, e.Message))
	}
	return "registration errors: " + strings.Join(parts, "; ")
}

// Registrar delivers registrations to POST /locations/{name}/registrations in
// batches.
type Registrar struct {
	restyCli  *resty.Client
	processor *batch.Processor[Registration]
}

// NewRegistrar creates a registrar with the provided HTTP client.
//
// The resty client should be pre-configured with authentication and base URL.
func NewRegistrar(cli *resty.Client, options ...batch.Option) *Registrar {
	registrar := &Registrar{restyCli: cli}
	options = append([]batch.Option{batch.WithName("registrations")}, options...)
	registrar.processor = batch.NewProcessor[Registration](registrar, options...)
	return registrar
}

// Submit queues a registration without blocking.
func (r *Registrar) Submit(registration Registration) error {
	return r.processor.Submit(registration)
}

func (r *Registrar) Flush() {
	r.processor.Flush()
}

func (r *Registrar) Stats() batch.Stats {
	return r.processor.Stats()
}

// Send posts registrations grouped by location, one request per location in the
// order the locations first appear.
func (r *Registrar) Send(ctx context.Context, registrations []Registration) error {
	if len(registrations) == 0 {
		return nil
	}

	var names []string
	groups := make(map[string][]Registration)
	for _, registration := range registrations {
		if _, ok := groups[registration.Location]; !ok {
			names = append(names, registration.Location)
		}
		groups[registration.Location] = append(groups[registration.Location], registration)
	}

	var errs error
	for _, name := range names {
		if err := r.post(ctx, name, groups[name]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("location %q: %w", name, err))
		}
	}
	return errs
}

func (r *Registrar) post(ctx context.Context, name string, registrations []Registration) error {
	registrationBatchSize.Observe(float64(len(registrations)))
	record := func(failed int) {
		registrationsTotal.WithLabelValues(name, statusFailed).Add(float64(failed))
		registrationsTotal.WithLabelValues(name, statusSent).Add(float64(len(registrations) - failed))
	}

	rsp, err := r.restyCli.R().
		SetContext(ctx).
		SetPathParam("name", name).
		SetBody(map[string]any{"batch": registrations}).
		Post("/locations/{name}/registrations")
	if err != nil {
		record(len(registrations))
		return err
	}
	if rsp.IsError() {
		record(len(registrations))
		return fmt.Errorf("register resource identifiers got unexpected status code: %d", rsp.StatusCode())
	}

	var registerResponse struct {
		Errors RegistrationErrors `json:"errors"`
	}
	if len(rsp.Body()) > 0 {
		if err := json.Unmarshal(rsp.Body(), &registerResponse); err != nil {
			record(len(registrations))
			return fmt.Errorf("failed to unmarshal registration response: %w", err)
		}
	}
	record(len(registerResponse.Errors))
	if len(registerResponse.Errors) > 0 {
		return registerResponse.Errors
	}
	return nil
}

// Close delivers the queued registrations and stops the registrar.
func (r *Registrar) Close() error {
	return r.processor.Close()
}
