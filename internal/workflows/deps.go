package workflows

import (
	"context"
	_ "embed"
	"errors"
	"maps"
	"net/http"
	"slices"
	"sync"

	sgerrors "github.com/randalmurphal/stategraph/pkg/stategraph/errors"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
)

var (
	//go:embed data/news.txt
	newsCorpus string

	//go:embed data/insurance_policies.txt
	policyCorpus string
)

// Deps are the outside services workflows talk to. Zero fields are
// filled with offline implementations.
type Deps struct {
	LLM      llm.Client
	News     Retriever
	Policies Retriever
	Patients PatientDirectory
	Claims   ClaimSink
}

func (d Deps) withDefaults() Deps {
	if d.LLM == nil {
		d.LLM = NewOfflineModel()
	}
	if d.News == nil {
		d.News = NewKeywordIndex(SplitText(newsCorpus, 500, "\n---\n", "\n\n", "\n", " "))
	}
	if d.Policies == nil {
		d.Policies = NewKeywordIndex(SplitText(policyCorpus, 300, "\n\n", "\n", " "))
	}
	if d.Patients == nil {
		d.Patients = SamplePatients()
	}
	if d.Claims == nil {
		d.Claims = &MemoryClaims{}
	}
	return d
}

// ErrPatientNotFound is wrapped by a PatientDirectory for unknown IDs.
var ErrPatientNotFound = errors.New("patient not found")

// PatientDirectory looks up clinical records.
type PatientDirectory interface {
	Patient(ctx context.Context, id string) (map[string]any, error)
	Coverage(ctx context.Context, patientID string) (map[string]any, error)
}

// StaticDirectory is an in-memory PatientDirectory.
type StaticDirectory struct {
	Patients  map[string]map[string]any
	Coverages map[string]map[string]any
}

// Patient implements PatientDirectory.
func (d StaticDirectory) Patient(_ context.Context, id string) (map[string]any, error) {
	p, ok := d.Patients[id]
	if !ok {
		return nil, notFound("get patient", ErrPatientNotFound)
	}
	return maps.Clone(p), nil
}

// Coverage implements PatientDirectory.
func (d StaticDirectory) Coverage(_ context.Context, patientID string) (map[string]any, error) {
	c, ok := d.Coverages[patientID]
	if !ok {
		return nil, notFound("get coverage", ErrPatientNotFound)
	}
	return maps.Clone(c), nil
}

func notFound(op string, err error) error {
	return &sgerrors.ServiceError{Service: "patients", Op: op, Status: http.StatusNotFound, Err: err}
}

// SamplePatients returns a directory with two insured patients.
func SamplePatients() StaticDirectory {
	return StaticDirectory{
		Patients: map[string]map[string]any{
			"12345": {"resourceType": "Patient", "id": "12345", "name": "Jane Roe", "birthDate": "1984-03-02"},
			"67890": {"resourceType": "Patient", "id": "67890", "name": "John Doe", "birthDate": "1971-11-19"},
		},
		Coverages: map[string]map[string]any{
			"12345": {"resourceType": "Coverage", "status": "active", "plan": "Gold PPO"},
			"67890": {"resourceType": "Coverage", "status": "active", "plan": "Bronze HMO"},
		},
	}
}

// ClaimRecord is a stored claim decision.
type ClaimRecord struct {
	PatientID       string `json:"patient_id"`
	Status          string `json:"status"`
	DecisionDetails string `json:"decision_details"`
}

// ClaimSink persists claim decisions.
type ClaimSink interface {
	StoreClaim(ctx context.Context, rec ClaimRecord) error
}

// MemoryClaims keeps claim records in memory.
type MemoryClaims struct {
	mu      sync.Mutex
	records []ClaimRecord
}

// StoreClaim implements ClaimSink.
func (m *MemoryClaims) StoreClaim(_ context.Context, rec ClaimRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns the stored claims in insertion order.
func (m *MemoryClaims) Records() []ClaimRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}
