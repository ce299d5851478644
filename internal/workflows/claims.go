package workflows

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	sgerrors "github.com/randalmurphal/stategraph/pkg/stategraph/errors"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
)

// Claim decisions.
const (
	DecisionApproved = "Approved"
	DecisionRejected = "Rejected"
	DecisionMoreInfo = "Request More Info"
)

const claimValidationPrompt = "Validate the following claim. Should it be Approved, Rejected or need more info?"

var claimValidation = prompt.New(claimValidationPrompt + `
Claim Details: {claim_details}
Treatment Code: {treatment_code}
Patient Data: {patient_data}
Insurance Coverage: {insurance_data}
Retrieved Policies: {policies}`)

// ClaimState is the state of the patient claim workflow.
type ClaimState struct {
	PatientID     string         `json:"patient_id" validate:"required"`
	TreatmentCode string         `json:"treatment_code" validate:"required"`
	ClaimDetails  string         `json:"claim_details"`
	PatientData   map[string]any `json:"patient_data,omitempty"`
	InsuranceData map[string]any `json:"insurance_data,omitempty"`
	PolicyDocs    []string       `json:"policy_docs,omitempty"`
	Validation    string         `json:"ai_validation_feedback,omitempty"`
	FinalDecision string         `json:"final_decision,omitempty"`
	Next          string         `json:"next,omitempty"`
}

// lookupRetry retries directory calls that fail with 429, 5xx or a
// timeout. Any other directory status is answered in state instead.
var lookupRetry = sgerrors.NewRetryConfig(
	sgerrors.WithMaxAttempts(3),
	sgerrors.WithInitialBackoff(50*time.Millisecond),
)

// unanswered reports whether a directory lookup came back with a status
// that retrying will not change.
func unanswered(err error) bool {
	if errors.Is(err, ErrPatientNotFound) {
		return true
	}
	var svc *sgerrors.ServiceError
	return errors.As(err, &svc) && !sgerrors.IsRetryable(err)
}

// ClaimReview is the interrupt payload sent to a human reviewer, who
// resumes with the final decision as a string.
type ClaimReview struct {
	PatientID string `json:"patient_id"`
	Feedback  string `json:"feedback"`
}

// Decide maps validation feedback to a decision and the next node.
// Feedback that is neither an approval nor a rejection goes to a human.
func Decide(feedback string) (decision, next string) {
	text := strings.ToLower(feedback)
	switch {
	case strings.Contains(text, "more info"):
		return DecisionMoreInfo, "human_review"
	case strings.Contains(text, "approve"):
		return DecisionApproved, "store_claim"
	case strings.Contains(text, "reject"):
		return DecisionRejected, "store_claim"
	default:
		return DecisionMoreInfo, "human_review"
	}
}

// NewClaims builds the claim processing pipeline: gather patient,
// coverage and policy context, validate with the model, then store the
// decision directly or after a human review interrupt.
func NewClaims(d Deps) (*stategraph.CompiledGraph[ClaimState], error) {
	d = d.withDefaults()

	fetchPatient := func(ctx stategraph.Context, s ClaimState) (ClaimState, error) {
		p, err := d.Patients.Patient(ctx, s.PatientID)
		switch {
		case unanswered(err):
			s.PatientData = map[string]any{"error": "Patient Not Found"}
		case err != nil:
			return s, fmt.Errorf("fetch patient %s: %w", s.PatientID, err)
		default:
			s.PatientData = p
		}
		return s, nil
	}

	fetchInsurance := func(ctx stategraph.Context, s ClaimState) (ClaimState, error) {
		c, err := d.Patients.Coverage(ctx, s.PatientID)
		switch {
		case unanswered(err):
			s.InsuranceData = map[string]any{"error": "Insurance Not Found"}
		case err != nil:
			return s, fmt.Errorf("fetch coverage for %s: %w", s.PatientID, err)
		default:
			s.InsuranceData = c
		}
		return s, nil
	}

	retrievePolicies := func(ctx stategraph.Context, s ClaimState) (ClaimState, error) {
		docs, err := d.Policies.Retrieve(ctx, "insurance policy details for "+s.TreatmentCode, 4)
		if err != nil {
			return s, fmt.Errorf("retrieve policies: %w", err)
		}
		policies := make([]string, 0, len(docs))
		for _, doc := range docs {
			policies = append(policies, doc.Content)
		}
		s.PolicyDocs = policies
		return s, nil
	}

	validate := func(ctx stategraph.Context, s ClaimState) (ClaimState, error) {
		feedback, err := claimValidation.Invoke(ctx, d.LLM, map[string]any{
			"claim_details":  s.ClaimDetails,
			"treatment_code": s.TreatmentCode,
			"patient_data":   s.PatientData,
			"insurance_data": s.InsuranceData,
			"policies":       s.PolicyDocs,
		})
		if err != nil {
			return s, fmt.Errorf("validate claim: %w", err)
		}
		s.Validation = feedback
		return s, nil
	}

	decide := func(ctx stategraph.Context, s ClaimState) (ClaimState, error) {
		s.FinalDecision, s.Next = Decide(s.Validation)
		ctx.Logger().Info("claim decision", "decision", s.FinalDecision, "next", s.Next)
		return s, nil
	}

	humanReview := func(ctx stategraph.Context, s ClaimState) (ClaimState, error) {
		decision, err := stategraph.Interrupt[string](ctx, ClaimReview{
			PatientID: s.PatientID,
			Feedback:  s.Validation,
		})
		if err != nil {
			return s, err
		}
		s.FinalDecision = decision
		return s, nil
	}

	store := func(ctx stategraph.Context, s ClaimState) (ClaimState, error) {
		err := d.Claims.StoreClaim(ctx, ClaimRecord{
			PatientID:       s.PatientID,
			Status:          s.FinalDecision,
			DecisionDetails: s.Validation,
		})
		if err != nil {
			return s, fmt.Errorf("store claim: %w", err)
		}
		return s, nil
	}

	return stategraph.NewGraph[ClaimState]().
		SetName("claims").
		AddNode("fetch_patient_data", fetchPatient).
		AddNode("fetch_patient_insurance", fetchInsurance).
		AddNode("retrieve_policy_docs", retrievePolicies).
		AddNode("validate_claim", validate).
		AddNode("claim_decision", decide).
		AddNode("human_review", humanReview).
		AddNode("store_claim", store).
		SetEntry("fetch_patient_data").
		AddEdge("fetch_patient_data", "fetch_patient_insurance").
		AddEdge("fetch_patient_insurance", "retrieve_policy_docs").
		AddEdge("retrieve_policy_docs", "validate_claim").
		AddEdge("validate_claim", "claim_decision").
		AddConditionalEdge("claim_decision", func(_ stategraph.Context, s ClaimState) string {
			return s.Next
		}, map[string]string{
			"store_claim":  "store_claim",
			"human_review": "human_review",
		}).
		AddEdge("human_review", "store_claim").
		AddEdge("store_claim", stategraph.END).
		SetRetryPolicy("fetch_patient_data", lookupRetry).
		SetRetryPolicy("fetch_patient_insurance", lookupRetry).
		Compile()
}

func claimsWorkflow(d Deps) (Workflow, error) {
	g, err := NewClaims(d)
	if err != nil {
		return nil, err
	}
	return newEntry("claims", "Patient claim validation with a human review interrupt", g), nil
}
