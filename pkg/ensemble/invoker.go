package ensemble

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"laptopprice/pkg/model"
)

// NoSelectionMessage is shown to users who submit without picking a model.
const NoSelectionMessage = "select at least one model!"

var (
	ErrNoSelection    = errors.New(NoSelectionMessage)
	ErrModelNotLoaded = errors.New("model not loaded")

	ErrInvalidSelection = errors.New("ensemble: invalid selection")
)

// InvocationError wraps a failed model call.
type InvocationError struct {
	Model Member
	Err   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s model failed: %v", e.Model, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Models holds the loaded regressors. A nil slot means the model is unavailable.
type Models struct {
	KNN          model.Regressor
	RandomForest model.Regressor
}

func (m Models) get(member Member) model.Regressor {
	switch member {
	case MemberKNN:
		return m.KNN
	case MemberRandomForest:
		return m.RandomForest
	}
	return nil
}

// Output is one model's raw estimate.
type Output struct {
	Model Member  `json:"model"`
	Price float64 `json:"price"`
}

// Result is the ensemble price and the outputs it was averaged from.
type Result struct {
	Price   float64  `json:"price"`
	Outputs []Output `json:"outputs"`
}

// Invoker runs the selected models over one feature vector.
type Invoker struct {
	models Models
}

func NewInvoker(models Models) *Invoker {
	return &Invoker{models: models}
}

func (inv *Invoker) Models() Models {
	return inv.models
}

func (inv *Invoker) Invoke(x []float64, sel Selection) (Result, error) {
	if err := sel.Validate(); err != nil {
		return Result{}, err
	}
	members := sel.Members()
	if len(members) == 0 {
		return Result{}, ErrNoSelection
	}

	outputs := make([]Output, 0, len(members))
	prices := make([]float64, 0, len(members))
	for _, member := range members {
		r := inv.models.get(member)
		if r == nil {
			return Result{}, &InvocationError{Model: member, Err: ErrModelNotLoaded}
		}
		price, err := r.Predict(x)
		if err != nil {
			return Result{}, &InvocationError{Model: member, Err: err}
		}
		if math.IsNaN(price) || math.IsInf(price, 0) {
			return Result{}, &InvocationError{Model: member, Err: fmt.Errorf("non-finite output %v", price)}
		}
		outputs = append(outputs, Output{Model: member, Price: price})
		prices = append(prices, price)
	}

	return Result{
		Price:   Round2(stat.Mean(prices, nil)),
		Outputs: outputs,
	}, nil
}

// Round2 rounds to two decimals, ties to even.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
