// Package checkout implements the three-step checkout wizard: personal data,
// payment method and completion.
package checkout

import (
	"fmt"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"
)

// Flow is the state machine of one checkout session. Every transition is
// all-or-nothing: on error the state is left as it was.
//
// A Flow is not safe for concurrent use.
type Flow struct {
	plan  domain.PlanConfig
	state domain.FlowState
}

// NewFlow starts a flow in collecting-user-data with card selected in 1x.
func NewFlow(plan domain.PlanConfig) *Flow {
	return &Flow{
		plan: plan,
		state: domain.FlowState{
			Step:                 domain.StepCollectingUserData,
			Payment:              domain.PaymentSelection{Method: domain.PaymentMethodCard, Installments: 1},
			LastCardInstallments: 1,
		},
	}
}

// Restore resumes a flow from a saved state.
func Restore(plan domain.PlanConfig, state domain.FlowState) *Flow {
	if state.LastCardInstallments < 1 {
		state.LastCardInstallments = 1
	}
	if state.Payment.Installments < 1 {
		state.Payment.Installments = 1
	}
	return &Flow{plan: plan, state: state}
}

// State returns a copy of the current state.
func (f *Flow) State() domain.FlowState {
	return f.state
}

func (f *Flow) Step() domain.Step {
	return f.state.Step
}

func (f *Flow) Plan() domain.PlanConfig {
	return f.plan
}

// SubmitUserData stores data and moves to selecting-payment.
func (f *Flow) SubmitUserData(data domain.UserData) error {
	if err := f.expect("submit user data", domain.StepCollectingUserData); err != nil {
		return err
	}
	if missing := data.MissingFields(); len(missing) > 0 {
		return domain.ErrMissingFields(missing)
	}
	f.state.UserData = data
	f.state.Step = domain.StepSelectingPayment
	return nil
}

// UpdateUserData applies a partial edit while the form is visible.
func (f *Flow) UpdateUserData(patch domain.UserDataPatch) error {
	if err := f.expect("edit user data", domain.StepCollectingUserData); err != nil {
		return err
	}
	f.state.UserData = patch.Apply(f.state.UserData)
	return nil
}

// GoBack returns to the personal data step, keeping every input.
func (f *Flow) GoBack() error {
	if err := f.expect("go back", domain.StepSelectingPayment); err != nil {
		return err
	}
	f.state.Step = domain.StepCollectingUserData
	return nil
}

// SelectPaymentMethod switches method. Leaving card remembers the
// installment count; coming back to card restores it; any other method
// is always charged in 1x.
func (f *Flow) SelectPaymentMethod(method domain.PaymentMethod) error {
	if err := f.expect("select payment method", domain.StepSelectingPayment); err != nil {
		return err
	}
	if _, err := domain.ParsePaymentMethod(string(method)); err != nil {
		return err
	}

	p := &f.state.Payment
	if p.Method == domain.PaymentMethodCard {
		f.state.LastCardInstallments = p.Installments
	}
	p.Method = method
	if method == domain.PaymentMethodCard {
		p.Installments = f.state.LastCardInstallments
	} else {
		p.Installments = 1
	}
	return nil
}

// SetInstallments picks the card split, 1..plan.MaxInstallments.
func (f *Flow) SetInstallments(n int) error {
	if err := f.expect("set installments", domain.StepSelectingPayment); err != nil {
		return err
	}
	if f.state.Payment.Method != domain.PaymentMethodCard {
		return &domain.ErrValidation{Field: "installments", Message: "installments apply only to card payments"}
	}
	if n < 1 || n > f.plan.MaxInstallments {
		return &domain.ErrValidation{
			Field:   "installments",
			Message: fmt.Sprintf("must be between 1 and %d", f.plan.MaxInstallments),
		}
	}
	f.state.Payment.Installments = n
	f.state.LastCardInstallments = n
	return nil
}

// CanComplete reports whether Complete(card) would succeed.
func (f *Flow) CanComplete(card *domain.CardDetails) bool {
	return f.checkComplete(card) == nil
}

// Complete finishes the checkout. Card payments need number, expiry and
// CVV to be present; their contents are not checked here.
func (f *Flow) Complete(card *domain.CardDetails) error {
	if err := f.checkComplete(card); err != nil {
		return err
	}
	f.state.Step = domain.StepCompleted
	return nil
}

func (f *Flow) checkComplete(card *domain.CardDetails) error {
	if err := f.expect("complete", domain.StepSelectingPayment); err != nil {
		return err
	}
	if f.state.Payment.Method == "" {
		return &domain.ErrValidation{Field: "method", Message: "required"}
	}
	if f.state.Payment.Method != domain.PaymentMethodCard {
		return nil
	}
	if card == nil {
		return domain.ErrMissingFields([]string{"cardNumber", "expiry", "cvv"})
	}
	var missing []string
	if card.Number == "" {
		missing = append(missing, "cardNumber")
	}
	if card.Expiry == "" {
		missing = append(missing, "expiry")
	}
	if card.CVV == "" {
		missing = append(missing, "cvv")
	}
	if len(missing) > 0 {
		return domain.ErrMissingFields(missing)
	}
	return nil
}

func (f *Flow) expect(action string, step domain.Step) error {
	if f.state.Step != step {
		return &domain.ErrInvalidTransition{Action: action, Step: f.state.Step}
	}
	return nil
}
